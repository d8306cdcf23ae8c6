// Web-augmented session using runtime tool calling.

package session

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"ecochat/internal/logger"
	"ecochat/llm"
	"ecochat/tools"
)

const (
	// DefaultWebMaxIterations bounds the model/tool round trips per ask.
	DefaultWebMaxIterations = 5

	// DefaultToolResultLimit caps the characters of a tool result fed
	// back to the model.
	DefaultToolResultLimit = 8000
)

// webFallbackReply is returned when the loop exhausts its iterations
// without the model producing any text.
const webFallbackReply = "I couldn't generate a response."

// WebSession answers questions with optional multi-step web tool use.
// Unlike ChatSession it keeps its own message list (the system turn
// included) because tool-role turns must persist in history.
type WebSession struct {
	mu sync.Mutex

	runtime llm.Runtime
	prompts PromptSource
	tools   *tools.Registry

	model           string
	maxIterations   int
	toolResultLimit int

	messages []llm.ChatMessage
}

// NewWebSession creates a web session for model, capping model/tool
// round trips at maxIterations (<=0 selects DefaultWebMaxIterations).
// The model is checked lazily on first ask: web-capable models are
// routinely pulled on demand, and a failing ask rolls back cleanly
// anyway.
func NewWebSession(rt llm.Runtime, prompts PromptSource, registry *tools.Registry, model string, maxIterations int) *WebSession {
	if maxIterations <= 0 {
		maxIterations = DefaultWebMaxIterations
	}
	s := &WebSession{
		runtime:         rt,
		prompts:         prompts,
		tools:           registry,
		model:           model,
		maxIterations:   maxIterations,
		toolResultLimit: DefaultToolResultLimit,
	}
	s.seedSystem()
	return s
}

func (s *WebSession) seedSystem() {
	if prompt := systemPrompt(s.prompts, webProfile); prompt != "" {
		s.messages = append(s.messages, llm.SystemMessage(prompt))
	}
}

// Model returns the session's model name.
func (s *WebSession) Model() string {
	return s.model
}

// Reset clears the conversation and re-seeds the system prompt.
func (s *WebSession) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = nil
	s.seedSystem()
}

// Ask runs one user turn, letting the model call web tools for up to
// the iteration bound. Assistant text from every iteration accumulates
// into the final reply. Tool failures become tool-role turns the model
// can read; only a model invocation failure aborts, rolling the
// conversation back to its pre-ask state.
func (s *WebSession) Ask(ctx context.Context, userInput string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	wlog := logger.WithPrefix("web")
	checkpoint := len(s.messages)
	s.messages = append(s.messages, llm.UserMessage(userInput))

	var chunks []string
	for iteration := 1; iteration <= s.maxIterations; iteration++ {
		wlog.Info("iteration", "n", iteration, "max", s.maxIterations)

		turn, err := s.runtime.ChatWithTools(ctx, s.model, s.messages, s.tools.Declarations())
		if err != nil {
			s.messages = s.messages[:checkpoint]
			return "", fmt.Errorf("%w: %v", ErrInvocationFailed, err)
		}

		if turn.Content != "" {
			chunks = append(chunks, turn.Content)
		}
		s.messages = append(s.messages, llm.ChatMessage{
			Role:      "assistant",
			Content:   turn.Content,
			ToolCalls: turn.ToolCalls,
		})

		if len(turn.ToolCalls) == 0 {
			break
		}

		for _, call := range turn.ToolCalls {
			s.messages = append(s.messages, s.runTool(ctx, call))
		}
	}

	reply := strings.TrimSpace(strings.Join(chunks, "\n\n"))
	if reply == "" {
		reply = webFallbackReply
	}
	return reply, nil
}

// runTool executes one requested tool call. Every failure mode becomes
// a tool-role message so the model can recover; nothing propagates.
func (s *WebSession) runTool(ctx context.Context, call llm.ToolCall) llm.ChatMessage {
	wlog := logger.WithPrefix("web")

	args, err := tools.NormalizeArguments(call.Arguments)
	if err != nil {
		wlog.Error("bad tool arguments", "tool", call.Name, "err", err)
		return llm.ToolMessage(call.Name, fmt.Sprintf("Error calling %s: %v", call.Name, err))
	}

	tool, ok := s.tools.Get(call.Name)
	if !ok {
		wlog.Error("tool not found", "tool", call.Name)
		return llm.ToolMessage(call.Name, fmt.Sprintf("Tool %s not found", call.Name))
	}

	wlog.Info("calling tool", "tool", call.Name, "args", args)
	result, err := tool.Execute(ctx, args)
	if err != nil {
		wlog.Error("tool failed", "tool", call.Name, "err", err)
		return llm.ToolMessage(call.Name, fmt.Sprintf("Error calling %s: %v", call.Name, err))
	}

	if len(result) > s.toolResultLimit {
		// Back off to a rune boundary so the cut never feeds the
		// model a split UTF-8 sequence.
		cut := s.toolResultLimit
		for cut > 0 && !utf8.RuneStart(result[cut]) {
			cut--
		}
		result = result[:cut]
	}
	wlog.Info("tool ok", "tool", call.Name)
	return llm.ToolMessage(call.Name, result)
}

// History returns a copy of the conversation, system turn included.
func (s *WebSession) History() []llm.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]llm.ChatMessage, len(s.messages))
	copy(out, s.messages)
	return out
}
