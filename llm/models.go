// Package llm provides shared data models and the runtime abstraction for
// local LLM backends.
package llm

// ChatMessage represents a chat message with role and content.
// Images carry raw (not base64) payloads for vision models; they are
// excluded from JSON so exports and token accounting stay text-only.
type ChatMessage struct {
	Role      string     `json:"role"`
	Content   string     `json:"content"`
	ToolName  string     `json:"tool_name,omitempty"`
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
	Images    [][]byte   `json:"-"`
}

// ToolCall represents a tool call requested by the model.
// Arguments may arrive as a decoded mapping or as a JSON-encoded string
// depending on the runtime; callers normalize before use.
type ToolCall struct {
	ID        string `json:"id,omitempty"`
	Name      string `json:"name"`
	Arguments any    `json:"arguments,omitempty"`
}

// ToolParameter defines one parameter of a tool declaration.
type ToolParameter struct {
	Name        string
	Type        string
	Description string
	Required    bool
}

// ToolDefinition declares a tool the model may call.
type ToolDefinition struct {
	Name        string
	Description string
	Parameters  []ToolParameter
}

// Options control a single model invocation.
type Options struct {
	Temperature float64
	NumPredict  int  // -1 lets the model run to completion
	Think       bool // extended reasoning, where the model supports it
}

// ToolTurn is one assistant response from a tool-enabled invocation.
// ToolCalls is empty when the model chose to answer directly.
type ToolTurn struct {
	Content   string
	ToolCalls []ToolCall
}

// ModelInfo describes one model installed on the runtime.
type ModelInfo struct {
	Name string
	Size int64
}

// SystemMessage creates a system message.
func SystemMessage(content string) ChatMessage {
	return ChatMessage{Role: "system", Content: content}
}

// UserMessage creates a user message.
func UserMessage(content string) ChatMessage {
	return ChatMessage{Role: "user", Content: content}
}

// AssistantMessage creates an assistant message.
func AssistantMessage(content string) ChatMessage {
	return ChatMessage{Role: "assistant", Content: content}
}

// ToolMessage creates a tool-result message.
func ToolMessage(toolName, content string) ChatMessage {
	return ChatMessage{Role: "tool", ToolName: toolName, Content: content}
}
