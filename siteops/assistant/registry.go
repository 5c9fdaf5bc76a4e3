package assistant

import (
	"fmt"
	"slices"

	ports "github.com/ZanzyTHEbar/siteops/siteops/assistant/ports"
	"github.com/ZanzyTHEbar/siteops/siteops/inference"
)

// Registry is the immutable, name-keyed catalogue of tools. It is built
// once at startup and shared without locking.
type Registry struct {
	tools map[string]ports.Tool
	names []string // sorted
}

// NewRegistry builds a registry. A duplicate or empty name, or a missing
// handler, is a programming error and panics.
func NewRegistry(tools ...ports.Tool) *Registry {
	r := &Registry{tools: make(map[string]ports.Tool, len(tools))}
	for _, t := range tools {
		if t.Name == "" {
			panic("assistant: tool with empty name")
		}
		if t.Handler == nil {
			panic(fmt.Sprintf("assistant: tool %q has no handler", t.Name))
		}
		if _, dup := r.tools[t.Name]; dup {
			panic(fmt.Sprintf("assistant: duplicate tool name %q", t.Name))
		}
		r.tools[t.Name] = t
		r.names = append(r.names, t.Name)
	}
	slices.Sort(r.names)
	return r
}

// Get returns the tool registered under name.
func (r *Registry) Get(name string) (ports.Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// Has reports whether a tool is registered under name.
func (r *Registry) Has(name string) bool {
	_, ok := r.tools[name]
	return ok
}

func (r *Registry) Len() int { return len(r.tools) }

// Descriptors lists every tool without handlers, sorted by name.
func (r *Registry) Descriptors() []ports.ToolDescriptor {
	out := make([]ports.ToolDescriptor, 0, len(r.names))
	for _, name := range r.names {
		out = append(out, r.tools[name].Descriptor())
	}
	return out
}

// FunctionDefinitions renders the catalogue in the runtime's function-calling format.
func (r *Registry) FunctionDefinitions() []inference.FunctionDefinition {
	out := make([]inference.FunctionDefinition, 0, len(r.names))
	for _, name := range r.names {
		t := r.tools[name]
		out = append(out, inference.FunctionDefinition{
			Type: "function",
			Function: inference.FunctionSchema{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters.JSONSchema(),
			},
		})
	}
	return out
}
