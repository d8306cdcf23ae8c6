// Runtime interface - the abstract interface for local model backends.
// Each implementation hides:
// - API client initialization
// - Request/response format conversion
// - Backend-specific error handling

package llm

import "context"

// StreamFunc receives one response fragment at a time. Returning an error
// aborts the stream; the error is propagated to the caller of StreamChat.
type StreamFunc func(chunk string) error

// Runtime defines the abstract interface for model backends. Sessions are
// bound to a model key, so the model is passed per call and a single Runtime
// serves every session.
type Runtime interface {
	// Name returns the runtime name (for logging/debugging).
	Name() string

	// CheckModel verifies the named model is ready on the backend.
	CheckModel(ctx context.Context, model string) error

	// Chat sends a blocking chat completion request.
	Chat(ctx context.Context, model string, messages []ChatMessage, opts Options) (string, error)

	// StreamChat streams a chat completion, invoking fn once per fragment.
	// Fragments are delivered in order; the stream is finite and cannot be
	// restarted.
	StreamChat(ctx context.Context, model string, messages []ChatMessage, opts Options, fn StreamFunc) error

	// ChatWithTools sends a chat completion request with tool declarations.
	// The model may respond with tool calls in ToolTurn.ToolCalls.
	ChatWithTools(ctx context.Context, model string, messages []ChatMessage, tools []ToolDefinition) (ToolTurn, error)

	// ListModels lists the models installed on the backend.
	ListModels(ctx context.Context) ([]ModelInfo, error)
}

// ModelManager is implemented by runtimes that can install and remove models
// (Ollama). OpenAI-compatible servers manage models out of band.
type ModelManager interface {
	PullModel(ctx context.Context, name string) error
	DeleteModel(ctx context.Context, name string) error

	// CreateModel builds a named model from Modelfile text (FROM,
	// SYSTEM, TEMPLATE, PARAMETER directives).
	CreateModel(ctx context.Context, name, modelfile string) error
}
