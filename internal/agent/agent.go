package agent

import (
	"encoding/json"

	"sentiomcp/internal/llm"
)

type EventType string

const (
	EventToken      EventType = "token"
	EventToolCall   EventType = "tool_call"
	EventToolResult EventType = "tool_result"
	EventDone       EventType = "done"
	EventError      EventType = "error"
)

type Event struct {
	Type EventType `json:"type"`
	Data any       `json:"data"`
}

// Result is the final state of one invocation: every message exchanged,
// starting with the user query, and the text of the final answer.
type Result struct {
	Messages []llm.Message `json:"messages"`
	Output   string        `json:"output"`
	Usage    llm.Usage     `json:"usage"`
}

// String renders the result as single-line JSON.
func (r *Result) String() string {
	if r == nil {
		return "null"
	}
	b, err := json.Marshal(r)
	if err != nil {
		return r.Output
	}
	return string(b)
}
