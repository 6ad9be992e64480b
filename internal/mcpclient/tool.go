package mcpclient

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Tool adapts a remote MCP tool to agent.Tool.
type Tool struct {
	server  string
	session *mcp.ClientSession
	def     *mcp.Tool
	schema  map[string]any
}

func newTool(server string, session *mcp.ClientSession, def *mcp.Tool) *Tool {
	return &Tool{
		server:  server,
		session: session,
		def:     def,
		schema:  schemaMap(def.InputSchema),
	}
}

func (t *Tool) Name() string        { return t.def.Name }
func (t *Tool) Description() string { return t.def.Description }
func (t *Tool) InputSchema() any    { return t.schema }
func (t *Tool) Server() string      { return t.server }

// Execute calls the tool with JSON-encoded arguments and returns its content
// as text. A result flagged as an error is returned as a Go error.
func (t *Tool) Execute(ctx context.Context, input string) (string, error) {
	var args map[string]any
	if strings.TrimSpace(input) != "" {
		if err := json.Unmarshal([]byte(input), &args); err != nil {
			return "", fmt.Errorf("parsing %s arguments: %w", t.def.Name, err)
		}
	}
	if args == nil {
		args = map[string]any{}
	}

	res, err := t.session.CallTool(ctx, &mcp.CallToolParams{
		Name:      t.def.Name,
		Arguments: args,
	})
	if err != nil {
		return "", fmt.Errorf("calling %s on %s: %w", t.def.Name, t.server, err)
	}

	text := ResultText(res)
	if res.IsError {
		if text == "" {
			text = "tool reported an error"
		}
		return "", errors.New(text)
	}
	return text, nil
}

// ResultText flattens the content of a tool result. Text and embedded text
// resources are kept verbatim; binary content is replaced by a placeholder.
func ResultText(res *mcp.CallToolResult) string {
	if res == nil {
		return ""
	}

	var parts []string
	for _, c := range res.Content {
		switch v := c.(type) {
		case *mcp.TextContent:
			parts = append(parts, v.Text)
		case *mcp.EmbeddedResource:
			if v.Resource == nil {
				continue
			}
			if v.Resource.Text != "" {
				parts = append(parts, v.Resource.Text)
			} else if len(v.Resource.Blob) > 0 {
				parts = append(parts, fmt.Sprintf("[resource %s: %s]", v.Resource.URI, base64.StdEncoding.EncodeToString(v.Resource.Blob)))
			}
		case *mcp.ResourceLink:
			parts = append(parts, fmt.Sprintf("[resource link %s]", v.URI))
		case *mcp.ImageContent:
			parts = append(parts, fmt.Sprintf("[image %s, %d bytes]", v.MIMEType, len(v.Data)))
		case *mcp.AudioContent:
			parts = append(parts, fmt.Sprintf("[audio %s, %d bytes]", v.MIMEType, len(v.Data)))
		}
	}

	if len(parts) == 0 && res.StructuredContent != nil {
		if b, err := json.Marshal(res.StructuredContent); err == nil {
			return string(b)
		}
	}
	return strings.Join(parts, "\n")
}

func schemaMap(schema any) map[string]any {
	out := map[string]any{"type": "object", "properties": map[string]any{}}
	if schema == nil {
		return out
	}
	b, err := json.Marshal(schema)
	if err != nil {
		return out
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil || m == nil {
		return out
	}
	if _, ok := m["type"]; !ok {
		m["type"] = "object"
	}
	return m
}
