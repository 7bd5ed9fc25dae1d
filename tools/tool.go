// Package tools provides the tool system for the query engine.
//
// Information Hiding:
// - Tool execution details hidden behind interface
// - Tool parameters and schemas hidden in implementations
// - Registry implementation details hidden from consumers
// - Followup synthesis internalized in the Coordinator
package tools

import (
	"context"

	"github.com/richinex/scribe/model"
)

// Tool is the interface that all callable tools implement. A tool receives
// already-parsed, validated keyword arguments and returns a JSON-serializable
// string result or an error.
type Tool interface {
	// Definition returns the tool's name, description and JSON-Schema
	// parameters. Name is the unique registry key.
	Definition() model.ToolDefinition

	// Execute runs the tool with the given arguments.
	Execute(ctx context.Context, args map[string]any) (string, error)
}

// Func adapts a plain function into a Tool.
type Func struct {
	Def model.ToolDefinition
	Fn  func(ctx context.Context, args map[string]any) (string, error)
}

// Definition returns the tool definition.
func (f Func) Definition() model.ToolDefinition {
	return f.Def
}

// Execute invokes the wrapped function.
func (f Func) Execute(ctx context.Context, args map[string]any) (string, error) {
	return f.Fn(ctx, args)
}
