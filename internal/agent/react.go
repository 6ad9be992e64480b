package agent

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"

	"sentiomcp/internal/llm"
	"sentiomcp/internal/trace"
)

const defaultMaxIterations = 25

type Option func(*ReactAgent)

func WithSystemPrompt(s string) Option {
	return func(a *ReactAgent) { a.systemPrompt = s }
}

// WithMaxIterations bounds the number of model calls per invocation.
func WithMaxIterations(n int) Option {
	return func(a *ReactAgent) {
		if n > 0 {
			a.maxIterations = n
		}
	}
}

func WithEmit(emit func(Event)) Option {
	return func(a *ReactAgent) { a.emit = emit }
}

// ReactAgent implements a ReAct (Reason + Act) agent loop.
// The agent keeps thinking and acting until the model returns no more tool
// calls, the iteration limit is reached or the context is cancelled.
type ReactAgent struct {
	provider      llm.Provider
	registry      *Registry
	systemPrompt  string
	maxIterations int

	mu   sync.Mutex
	emit func(Event)
}

func NewReactAgent(provider llm.Provider, tools []Tool, opts ...Option) *ReactAgent {
	a := &ReactAgent{
		provider:      provider,
		registry:      NewRegistry(tools...),
		maxIterations: defaultMaxIterations,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *ReactAgent) send(ev Event) {
	if a.emit == nil {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.emit(ev)
}

func (a *ReactAgent) Invoke(ctx context.Context, query string) (*Result, error) {
	truncatedQuery := query
	if len(truncatedQuery) > 200 {
		truncatedQuery = truncatedQuery[:200]
	}
	ctx, span := trace.Tracer().Start(ctx, "agent.react.invoke",
		oteltrace.WithAttributes(
			attribute.String("run.id", RunIDFromContext(ctx)),
			attribute.String("user.message", truncatedQuery),
			attribute.Int("agent.tools", a.registry.Len()),
		),
	)
	defer span.End()

	var messages []llm.Message
	if a.systemPrompt != "" {
		messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: a.systemPrompt})
	}
	start := len(messages)
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: query})

	res, err := a.loop(ctx, messages)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		a.send(Event{Type: EventError, Data: err.Error()})
		return nil, err
	}

	// The system prompt is configuration, not part of the exchange.
	res.Messages = res.Messages[start:]

	a.send(Event{Type: EventDone, Data: res.Output})
	return res, nil
}

// loop is the core ReAct cycle. Each iteration is a single model call; tool
// failures go back into the conversation so the model can adapt.
func (a *ReactAgent) loop(ctx context.Context, messages []llm.Message) (*Result, error) {
	specs := a.registry.Specs()
	var usage llm.Usage

	for iteration := 0; iteration < a.maxIterations; iteration++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		llmCtx, llmSpan := trace.Tracer().Start(ctx, "llm.react",
			oteltrace.WithAttributes(attribute.Int("llm.iteration", iteration)),
		)

		resp, err := a.provider.Chat(llmCtx, messages, specs, func(token string) {
			a.send(Event{Type: EventToken, Data: token})
		})
		if err != nil {
			llmSpan.RecordError(err)
			llmSpan.SetStatus(codes.Error, err.Error())
			llmSpan.End()
			return nil, fmt.Errorf("calling model: %w", err)
		}

		llmSpan.SetAttributes(
			attribute.String("llm.model", resp.Model),
			attribute.Int64("llm.input_tokens", resp.Usage.InputTokens),
			attribute.Int64("llm.output_tokens", resp.Usage.OutputTokens),
		)
		llmSpan.End()

		usage.InputTokens += resp.Usage.InputTokens
		usage.OutputTokens += resp.Usage.OutputTokens

		msg := resp.Message
		msg.Role = llm.RoleAssistant
		messages = append(messages, msg)

		slog.Debug("agent.react: model turn", "iteration", iteration, "tool_calls", len(msg.ToolCalls))

		// No tool calls: the model has answered.
		if len(msg.ToolCalls) == 0 {
			return &Result{Messages: messages, Output: msg.Content, Usage: usage}, nil
		}

		messages = append(messages, a.act(ctx, msg.ToolCalls)...)
	}

	return nil, fmt.Errorf("agent stopped after %d iterations without a final answer", a.maxIterations)
}

// act executes tool calls in parallel and returns one tool message per call,
// in call order.
func (a *ReactAgent) act(ctx context.Context, calls []llm.ToolCall) []llm.Message {
	for _, call := range calls {
		a.send(Event{Type: EventToolCall, Data: map[string]string{
			"name":      call.Name,
			"arguments": call.Arguments,
		}})
	}

	var wg sync.WaitGroup
	results := make([]llm.Message, len(calls))

	for i, call := range calls {
		wg.Add(1)
		go func(i int, call llm.ToolCall) {
			defer wg.Done()
			results[i] = a.execute(ctx, call)
			a.send(Event{Type: EventToolResult, Data: map[string]string{
				"name":    call.Name,
				"content": results[i].Content,
			}})
		}(i, call)
	}

	wg.Wait()
	return results
}

func (a *ReactAgent) execute(ctx context.Context, call llm.ToolCall) llm.Message {
	msg := llm.Message{Role: llm.RoleTool, ToolCallID: call.ID, Name: call.Name}

	tool, ok := a.registry.Get(call.Name)
	if !ok {
		slog.Warn("unknown tool call", "name", call.Name)
		msg.Content = "error: unknown tool"
		msg.IsError = true
		return msg
	}

	input := call.Arguments
	if input == "" {
		input = "{}"
	}

	result, err := withTrace(tool).Execute(ctx, input)
	if err != nil {
		slog.Warn("tool execution failed", "name", call.Name, "error", err)
		msg.Content = "error: " + err.Error()
		msg.IsError = true
		return msg
	}

	msg.Content = result
	return msg
}
