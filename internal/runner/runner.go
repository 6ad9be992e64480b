// Package runner connects to the configured MCP servers, builds a ReAct
// agent over their tools, asks it one question and prints the reply.
package runner

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"slices"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"

	"sentiomcp/internal/agent"
	"sentiomcp/internal/config"
	"sentiomcp/internal/history"
	"sentiomcp/internal/llm"
	"sentiomcp/internal/mcpclient"
	"sentiomcp/internal/trace"
)

// ToolClient discovers tools on remote servers and owns their sessions.
type ToolClient interface {
	GetTools(ctx context.Context) ([]agent.Tool, error)
	Close() error
}

type ClientFactory func(servers map[string]*config.ServerConfig) ToolClient

type ModelFactory func(id string) (llm.Provider, error)

type Recorder interface {
	Record(ctx context.Context, run *history.Run) error
}

type Config struct {
	Servers       map[string]*config.ServerConfig
	Model         string
	Query         string
	Label         string
	SystemPrompt  string
	MaxIterations int
	LLMs          map[string]*config.LLMConfig
}

// FromConfig extracts the runner settings from the application config.
func FromConfig(c *config.Config) Config {
	return Config{
		Servers:       c.Runner.Servers,
		Model:         c.Runner.Model,
		Query:         c.Runner.Query,
		Label:         c.Runner.Label,
		SystemPrompt:  c.Runner.SystemPrompt,
		MaxIterations: c.Runner.MaxIterations,
		LLMs:          c.LLMs,
	}
}

type Option func(*Runner)

func WithClientFactory(f ClientFactory) Option {
	return func(r *Runner) { r.newClient = f }
}

func WithModelFactory(f ModelFactory) Option {
	return func(r *Runner) { r.openModel = f }
}

// WithRecorder stores every run, successful or not.
func WithRecorder(rec Recorder) Option {
	return func(r *Runner) { r.recorder = rec }
}

func WithAgentOptions(opts ...agent.Option) Option {
	return func(r *Runner) { r.agentOpts = append(r.agentOpts, opts...) }
}

type Runner struct {
	cfg       Config
	newClient ClientFactory
	openModel ModelFactory
	recorder  Recorder
	agentOpts []agent.Option
}

func New(cfg Config, opts ...Option) *Runner {
	r := &Runner{cfg: cfg}
	r.newClient = func(servers map[string]*config.ServerConfig) ToolClient {
		return mcpclient.New(servers, mcpclient.WithHTTPClient(trace.HTTPClient()))
	}
	if cfg.SystemPrompt != "" {
		r.agentOpts = append(r.agentOpts, agent.WithSystemPrompt(cfg.SystemPrompt))
	}
	if cfg.MaxIterations > 0 {
		r.agentOpts = append(r.agentOpts, agent.WithMaxIterations(cfg.MaxIterations))
	}
	r.openModel = func(id string) (llm.Provider, error) {
		return llm.Open(id, cfg.LLMs)
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run performs one complete run and writes "<label> <result>" as a single
// line to out. Nothing is written when any step fails.
func (r *Runner) Run(ctx context.Context, out io.Writer) (err error) {
	runID := uuid.NewString()
	ctx = agent.ContextWithRunID(ctx, runID)

	ctx, span := trace.Tracer().Start(ctx, "runner.run",
		oteltrace.WithAttributes(
			attribute.String("run.id", runID),
			attribute.String("llm.model", r.cfg.Model),
			attribute.StringSlice("mcp.servers", r.serverNames()),
		),
	)
	defer span.End()

	run := &history.Run{
		ID:        runID,
		Model:     r.cfg.Model,
		Query:     r.cfg.Query,
		Servers:   r.serverNames(),
		StartedAt: time.Now(),
	}
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			run.Error = err.Error()
		}
		r.record(ctx, run)
	}()

	res, err := r.invoke(ctx)
	if err != nil {
		return err
	}

	line := res.String()
	run.Response = json.RawMessage(line)
	if _, err := fmt.Fprintln(out, r.cfg.Label, line); err != nil {
		return fmt.Errorf("writing response: %w", err)
	}

	slog.Info("run finished", "run_id", runID, "messages", len(res.Messages),
		"input_tokens", res.Usage.InputTokens, "output_tokens", res.Usage.OutputTokens)
	return nil
}

func (r *Runner) invoke(ctx context.Context) (*agent.Result, error) {
	client := r.newClient(r.cfg.Servers)
	defer func() {
		if err := client.Close(); err != nil {
			slog.Warn("closing mcp client", "error", err)
		}
	}()

	tools, err := client.GetTools(ctx)
	if err != nil {
		return nil, fmt.Errorf("discovering tools: %w", err)
	}

	provider, err := r.openModel(r.cfg.Model)
	if err != nil {
		return nil, fmt.Errorf("opening model: %w", err)
	}

	slog.Info("invoking agent", "model", r.cfg.Model, "tools", len(tools))
	res, err := agent.NewReactAgent(provider, tools, r.agentOpts...).Invoke(ctx, r.cfg.Query)
	if err != nil {
		return nil, fmt.Errorf("invoking agent: %w", err)
	}
	return res, nil
}

func (r *Runner) record(ctx context.Context, run *history.Run) {
	if r.recorder == nil {
		return
	}
	run.FinishedAt = time.Now()
	// The run context may already be cancelled; the record should still land.
	if err := r.recorder.Record(context.WithoutCancel(ctx), run); err != nil {
		slog.Warn("recording run", "run_id", run.ID, "error", err)
	}
}

func (r *Runner) serverNames() []string {
	return slices.Sorted(maps.Keys(r.cfg.Servers))
}
