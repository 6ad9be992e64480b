package agent

import (
	"context"

	"sentiomcp/internal/llm"
)

type Tool interface {
	Name() string
	Description() string
	InputSchema() any
	Execute(ctx context.Context, input string) (string, error)
}

// Registry holds tools in registration order.
type Registry struct {
	tools map[string]Tool
	order []string
}

func NewRegistry(tools ...Tool) *Registry {
	r := &Registry{tools: make(map[string]Tool)}
	for _, t := range tools {
		r.Register(t)
	}
	return r
}

// Register adds t unless a tool with the same name is already present.
func (r *Registry) Register(t Tool) bool {
	if _, ok := r.tools[t.Name()]; ok {
		return false
	}
	r.tools[t.Name()] = t
	r.order = append(r.order, t.Name())
	return true
}

func (r *Registry) Get(name string) (Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

func (r *Registry) All() []Tool {
	out := make([]Tool, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tools[name])
	}
	return out
}

func (r *Registry) Len() int { return len(r.order) }

// Specs describes the registered tools for the model.
func (r *Registry) Specs() []llm.ToolSpec {
	specs := make([]llm.ToolSpec, 0, len(r.order))
	for _, t := range r.All() {
		schema, _ := t.InputSchema().(map[string]any)
		if schema == nil {
			schema = map[string]any{"type": "object", "properties": map[string]any{}}
		}
		specs = append(specs, llm.ToolSpec{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  schema,
		})
	}
	return specs
}
