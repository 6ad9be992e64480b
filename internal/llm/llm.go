package llm

import (
	"context"
	"fmt"
	"strings"

	"sentiomcp/internal/config"
)

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// Message is one entry of a provider-neutral conversation. Tool messages
// carry the ID of the call they answer.
type Message struct {
	Role       Role       `json:"role"`
	Content    string     `json:"content,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	Name       string     `json:"name,omitempty"`
	IsError    bool       `json:"is_error,omitempty"`
}

// ToolSpec advertises a callable tool to the model. Parameters is a JSON
// schema object.
type ToolSpec struct {
	Name        string
	Description string
	Parameters  map[string]any
}

type Usage struct {
	InputTokens  int64 `json:"input_tokens"`
	OutputTokens int64 `json:"output_tokens"`
}

type Response struct {
	Model   string
	Message Message
	Usage   Usage
}

type Provider interface {
	Chat(ctx context.Context, messages []Message, tools []ToolSpec, onToken func(string)) (*Response, error)
}

const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// ParseModelID splits "provider:model". A bare model name selects OpenAI.
func ParseModelID(id string) (provider, model string, err error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", "", fmt.Errorf("empty model identifier")
	}
	provider, model, ok := strings.Cut(id, ":")
	if !ok {
		return ProviderOpenAI, id, nil
	}
	if provider == "" || model == "" {
		return "", "", fmt.Errorf("invalid model identifier %q", id)
	}
	return strings.ToLower(provider), model, nil
}

// Open builds the provider named by a model identifier such as
// "openai:gpt-4.1".
func Open(id string, llms map[string]*config.LLMConfig) (Provider, error) {
	provider, model, err := ParseModelID(id)
	if err != nil {
		return nil, err
	}

	cfg := llms[provider]
	if cfg == nil {
		cfg = &config.LLMConfig{}
	}

	switch provider {
	case ProviderOpenAI:
		return NewOpenAI(cfg.BaseURL, cfg.APIKey, model), nil
	case ProviderAnthropic:
		return NewAnthropic(cfg.BaseURL, cfg.APIKey, model, cfg.MaxTokens), nil
	default:
		return nil, fmt.Errorf("unsupported model provider %q", provider)
	}
}

// SystemPrompt returns the content of the leading system messages.
func SystemPrompt(messages []Message) (string, []Message) {
	var parts []string
	i := 0
	for ; i < len(messages) && messages[i].Role == RoleSystem; i++ {
		parts = append(parts, messages[i].Content)
	}
	return strings.Join(parts, "\n\n"), messages[i:]
}
