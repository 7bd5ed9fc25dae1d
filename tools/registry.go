// Tool registry with dynamic registration and structural argument validation.
//
// Information Hiding:
// - Tool storage and lookup implementation hidden
// - Registration lifecycle hidden
// - Validation rules internalized

package tools

import (
	"fmt"
	"sort"
	"sync"

	"github.com/richinex/scribe/model"
)

// Registry manages available tools. Registration overwrites any prior entry
// with the same name; tools are registered at startup and may be unregistered.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// NewRegistry creates a new empty tool registry.
func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[string]Tool),
	}
}

// Register adds a tool, replacing any prior entry with the same name.
func (r *Registry) Register(tool Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.tools[tool.Definition().Name] = tool
}

// Unregister removes a tool by name. Removing an absent name is a no-op.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.tools, name)
}

// Get returns a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tool, exists := r.tools[name]
	return tool, exists
}

// Has checks if a tool exists in the registry.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, exists := r.tools[name]
	return exists
}

// Names returns all registered tool names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Definitions returns definitions for all registered tools, sorted by name.
func (r *Registry) Definitions() []model.ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := make([]model.ToolDefinition, 0, len(r.tools))
	for _, tool := range r.tools {
		defs = append(defs, tool.Definition())
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	return defs
}

// ValidateArguments structurally checks parsed arguments against a tool's
// JSON-Schema parameters: all required properties must be present, no
// property outside the declared set may appear, and when no properties are
// declared the arguments must be empty. Types are not coerced or checked.
func ValidateArguments(args map[string]any, def model.ToolDefinition) error {
	properties, _ := def.Parameters["properties"].(map[string]any)

	if len(properties) == 0 {
		if len(args) != 0 {
			return fmt.Errorf("tool %q accepts no arguments, got %d", def.Name, len(args))
		}
		return nil
	}

	for _, field := range requiredFields(def.Parameters) {
		if _, exists := args[field]; !exists {
			return fmt.Errorf("missing required argument %q for tool %q", field, def.Name)
		}
	}

	for key := range args {
		if _, declared := properties[key]; !declared {
			return fmt.Errorf("unknown argument %q for tool %q", key, def.Name)
		}
	}

	return nil
}

// requiredFields reads the schema's required list, accepting both the
// unmarshaled []any form and the []string form of hand-built schemas.
func requiredFields(parameters map[string]any) []string {
	switch req := parameters["required"].(type) {
	case []string:
		return req
	case []any:
		fields := make([]string, 0, len(req))
		for _, r := range req {
			if s, ok := r.(string); ok {
				fields = append(fields, s)
			}
		}
		return fields
	default:
		return nil
	}
}
