package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"sentiomcp/internal/agent"
	"sentiomcp/internal/config"
	"sentiomcp/internal/db"
	"sentiomcp/internal/history"
	"sentiomcp/internal/runner"
)

type exampleOptions struct {
	url       string
	transport string
	model     string
	query     string
	label     string
	timeout   time.Duration
}

func newExampleCmd(o *exampleOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "example",
		Short: "Ask an agent one question using the tools of the configured MCP servers",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			o.apply(cmd, cfg)

			if d := cfg.Runner.Timeout.Duration; d > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, d)
				defer cancel()
			}

			flush, err := initTracing(ctx, cfg)
			if err != nil {
				return err
			}
			defer flush()

			opts := []runner.Option{runner.WithAgentOptions(agent.WithEmit(logAgentEvent))}
			if cfg.History.Path != "" {
				database, err := db.Open(ctx, cfg.History.Path)
				if err != nil {
					return fmt.Errorf("opening history: %w", err)
				}
				defer database.Close()
				opts = append(opts, runner.WithRecorder(history.NewStore(database)))
			}

			slog.Info("starting run", "model", cfg.Runner.Model, "servers", len(cfg.Runner.Servers))
			return runner.New(runner.FromConfig(cfg), opts...).Run(ctx, os.Stdout)
		},
	}

	f := cmd.Flags()
	f.StringVar(&o.url, "url", config.DefaultServerURL, "MCP server endpoint")
	f.StringVar(&o.transport, "transport", config.DefaultTransport, "transport: sse, streamable_http or stdio")
	f.StringVarP(&o.model, "model", "m", config.DefaultModel, "model identifier as provider:model")
	f.StringVarP(&o.query, "query", "q", config.DefaultQuery, "question to ask the agent")
	f.StringVar(&o.label, "label", config.DefaultLabel, "prefix printed before the response")
	f.DurationVar(&o.timeout, "timeout", 0, "abort the run after this long (0 disables)")
	return cmd
}

// apply overrides config values with the flags that were set on cmd.
// --url and --transport replace the server table with a single server.
func (o *exampleOptions) apply(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("url") || flags.Changed("transport") {
		srv := &config.ServerConfig{URL: config.DefaultServerURL, Transport: config.DefaultTransport}
		if def, ok := cfg.Runner.Servers[config.DefaultServer]; ok && def != nil {
			copied := *def
			srv = &copied
		}
		if flags.Changed("url") {
			srv.URL = o.url
		}
		if flags.Changed("transport") {
			srv.Transport = o.transport
		}
		cfg.Runner.Servers = map[string]*config.ServerConfig{config.DefaultServer: srv}
	}
	if flags.Changed("model") {
		cfg.Runner.Model = o.model
	}
	if flags.Changed("query") {
		cfg.Runner.Query = o.query
	}
	if flags.Changed("label") {
		cfg.Runner.Label = o.label
	}
	if flags.Changed("timeout") {
		cfg.Runner.Timeout.Duration = o.timeout
	}
}

func logAgentEvent(ev agent.Event) {
	switch ev.Type {
	case agent.EventToolCall, agent.EventToolResult:
		slog.Debug("agent event", "type", ev.Type, "data", ev.Data)
	}
}
