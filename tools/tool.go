// Package tools provides the web tool system for tool-calling sessions.
//
// Information Hiding:
// - Tool execution details hidden behind interface
// - Tool parameters and schemas hidden in implementations
// - Registry implementation details hidden from consumers
// - Error handling internalized per tool
package tools

import (
	"context"
	"fmt"

	"ecochat/llm"
)

// Arguments is a decoded tool-call argument set.
type Arguments map[string]any

// String returns the named argument as a string, or fallback when it is
// missing or not a string.
func (a Arguments) String(name, fallback string) string {
	if v, ok := a[name].(string); ok {
		return v
	}
	return fallback
}

// Int returns the named argument as an int, tolerating the float64 that
// JSON decoding produces. Missing or mistyped values yield fallback.
func (a Arguments) Int(name string, fallback int) int {
	switch v := a[name].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return fallback
	}
}

// ToolParameter defines a parameter schema for a tool.
type ToolParameter struct {
	Name        string `json:"name"`
	ParamType   string `json:"param_type"`
	Description string `json:"description"`
	Required    bool   `json:"required"`
}

// ToolMetadata describes what a tool does and how to use it.
type ToolMetadata struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  []ToolParameter `json:"parameters"`
}

// String returns a string representation of the tool metadata.
func (m ToolMetadata) String() string {
	return fmt.Sprintf("%s: %s", m.Name, m.Description)
}

// Declaration converts the metadata into the wire-level tool definition.
func (m ToolMetadata) Declaration() llm.ToolDefinition {
	def := llm.ToolDefinition{
		Name:        m.Name,
		Description: m.Description,
	}
	for _, p := range m.Parameters {
		def.Parameters = append(def.Parameters, llm.ToolParameter{
			Name:        p.Name,
			Type:        p.ParamType,
			Description: p.Description,
			Required:    p.Required,
		})
	}
	return def
}

// Tool is the interface that all tools must implement.
//
// Information Hiding: Tool implementations hide their internal execution
// logic, transport, and error handling behind this interface.
type Tool interface {
	// Metadata returns tool metadata (name, description, parameters).
	Metadata() ToolMetadata

	// Execute runs the tool with decoded arguments and returns the
	// textual result to hand back to the model.
	Execute(ctx context.Context, args Arguments) (string, error)
}
