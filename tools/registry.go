// Package tools holds the host-side functions a model may call and the
// registry the dispatcher resolves tool calls against.
//
// A Registry is built once at startup and never mutated afterwards, so it can
// be shared freely between the dispatcher and the MCP server.
package tools

import (
	"context"
	"errors"

	mcptypes "github.com/mark3labs/mcp-go/mcp"
	"github.com/sahilm/fuzzy"
)

// ErrInvalidArguments is wrapped by tools that reject the arguments a model
// supplied.
var ErrInvalidArguments = errors.New("invalid tool arguments")

// Tool is a function the model can request by name.
type Tool interface {
	Name() string
	// Definition is the schema advertised to the model.
	Definition() mcptypes.Tool
	// Call runs the tool. The returned string is sent back to the model as is.
	Call(ctx context.Context, args map[string]any) (string, error)
}

type Registry struct {
	tools map[string]Tool
	order []string
}

// NewRegistry builds an immutable registry. Nil tools are ignored and, for
// duplicate names, the first registration wins.
func NewRegistry(tools ...Tool) *Registry {
	r := &Registry{tools: make(map[string]Tool, len(tools))}
	for _, t := range tools {
		if t == nil {
			continue
		}
		name := t.Name()
		if _, exists := r.tools[name]; exists {
			continue
		}
		r.tools[name] = t
		r.order = append(r.order, name)
	}
	return r
}

// Default returns the registry with every built-in tool.
func Default() *Registry {
	return NewRegistry(NewFlightTimes())
}

func (r *Registry) Lookup(name string) (Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// Names returns tool names in registration order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

func (r *Registry) Len() int {
	return len(r.order)
}

// Definitions returns the schemas of all tools in registration order.
func (r *Registry) Definitions() []mcptypes.Tool {
	defs := make([]mcptypes.Tool, 0, len(r.order))
	for _, name := range r.order {
		defs = append(defs, r.tools[name].Definition())
	}
	return defs
}

// Suggest returns the registered name closest to name, or "" when nothing is
// similar. Only used to build hints for unknown tool reports; Lookup never
// matches approximately. fuzzy.Find returns matches best first.
func (r *Registry) Suggest(name string) string {
	if name == "" || len(r.order) == 0 {
		return ""
	}
	matches := fuzzy.Find(name, r.order)
	if len(matches) == 0 {
		return ""
	}
	return matches[0].Str
}
