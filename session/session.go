// Conversation sessions.
//
// A session owns the mutable state of one model's conversation: the
// history, the loaded document context, and the configured token budget.
// Turns serialize on a per-session mutex held across the runtime call,
// so concurrent asks against the same session queue up rather than
// interleave histories.

package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"ecochat/internal/logger"
	"ecochat/llm"
)

// Thinking modes for streamed turns. Fast trades depth for latency;
// deep lowers temperature, removes the prediction cap, and enables
// extended reasoning on runtimes that support it.
const (
	ThinkingFast = "fast"
	ThinkingDeep = "deep"
)

// DefaultMaxContextTokens is the context budget when none is configured.
const DefaultMaxContextTokens = 120_000

// DocumentInfo summarizes a freshly loaded document.
type DocumentInfo struct {
	Name            string  `json:"filename"`
	Chars           int     `json:"chars"`
	EstimatedTokens int     `json:"estimated_tokens"`
	UtilizationPct  float64 `json:"context_utilization_pct"`
}

// Status summarizes a session for introspection endpoints.
type Status struct {
	Model       string   `json:"model"`
	LoadedItems []string `json:"loaded_items"`
	NumItems    int      `json:"num_items"`
	Turns       int      `json:"conversation_turns"`
	Context     Usage    `json:"context_usage"`
}

// ChatSession is the plain conversational session: history plus a
// document context window against a single model.
type ChatSession struct {
	mu sync.Mutex

	runtime llm.Runtime
	prompts PromptSource
	profile modeProfile

	model            string
	maxContextTokens int

	history []llm.ChatMessage
	docs    *ContextStore
}

// NewChatSession creates a session for model, verifying the model is
// available on the runtime first. maxContextTokens <= 0 selects
// DefaultMaxContextTokens.
func NewChatSession(ctx context.Context, rt llm.Runtime, prompts PromptSource, model string, maxContextTokens int) (*ChatSession, error) {
	s, err := newSession(ctx, rt, prompts, chatProfile, model, maxContextTokens)
	if err != nil {
		return nil, err
	}
	logger.WithPrefix("chat").Info("model ready", "model", model)
	return s, nil
}

func newSession(ctx context.Context, rt llm.Runtime, prompts PromptSource, profile modeProfile, model string, maxContextTokens int) (*ChatSession, error) {
	if maxContextTokens <= 0 {
		maxContextTokens = DefaultMaxContextTokens
	}
	if err := rt.CheckModel(ctx, model); err != nil {
		return nil, fmt.Errorf("%w: %s (pull it first): %v", ErrModelUnavailable, model, err)
	}
	return &ChatSession{
		runtime:          rt,
		prompts:          prompts,
		profile:          profile,
		model:            model,
		maxContextTokens: maxContextTokens,
		docs:             NewContextStore(profile.contextLabel),
	}, nil
}

// Model returns the session's model name.
func (s *ChatSession) Model() string {
	return s.model
}

// Ask runs one non-streaming turn. On runtime failure the user message
// is rolled back so the history matches its pre-call state.
func (s *ChatSession) Ask(ctx context.Context, userMessage string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.warnIfNearLimit()
	s.history = append(s.history, llm.UserMessage(userMessage))
	messages := buildMessages(s.profile, s.prompts, s.docs, s.history)

	reply, err := s.runtime.Chat(ctx, s.model, messages, llm.Options{Temperature: 0.7, NumPredict: -1})
	if err != nil {
		s.rollbackUser()
		return "", fmt.Errorf("%w: %v", ErrInvocationFailed, err)
	}

	s.history = append(s.history, llm.AssistantMessage(reply))
	return reply, nil
}

// StreamAsk runs one streaming turn, forwarding fragments to fn as they
// arrive. The concatenated reply is committed to history only after the
// stream ends cleanly; any mid-stream error (including cancellation by
// fn or the context) rolls back the user message, even though some
// fragments may already have been delivered.
func (s *ChatSession) StreamAsk(ctx context.Context, userMessage, thinkingMode string, fn llm.StreamFunc) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.warnIfNearLimit()
	s.history = append(s.history, llm.UserMessage(userMessage))
	messages := buildMessages(s.profile, s.prompts, s.docs, s.history)

	reply, err := s.streamLocked(ctx, messages, thinkingMode, fn)
	if err != nil {
		s.rollbackUser()
		return "", fmt.Errorf("%w: %v", ErrInvocationFailed, err)
	}

	s.history = append(s.history, llm.AssistantMessage(reply))
	return reply, nil
}

func (s *ChatSession) streamLocked(ctx context.Context, messages []llm.ChatMessage, thinkingMode string, fn llm.StreamFunc) (string, error) {
	opts := optionsForThinking(thinkingMode)

	var full []byte
	err := s.runtime.StreamChat(ctx, s.model, messages, opts, func(chunk string) error {
		full = append(full, chunk...)
		return fn(chunk)
	})
	if err != nil {
		return "", err
	}
	return string(full), nil
}

func optionsForThinking(mode string) llm.Options {
	if mode == ThinkingDeep {
		return llm.Options{Temperature: 0.3, NumPredict: -1, Think: true}
	}
	return llm.Options{Temperature: 0.7, NumPredict: 256}
}

// rollbackUser pops the trailing user message after a failed turn.
func (s *ChatSession) rollbackUser() {
	if n := len(s.history); n > 0 && s.history[n-1].Role == "user" {
		s.history = s.history[:n-1]
	}
}

func (s *ChatSession) warnIfNearLimit() {
	usage := computeUsage(s.docs.Text(), s.history, s.maxContextTokens)
	if usage.UtilizationPct > 90 {
		logger.WithPrefix("chat").Warn("context near limit",
			"model", s.model, "utilization_pct", usage.UtilizationPct)
	}
}

// AddDocument appends extracted document text to the session's context
// window. Loading the same name twice appends it twice.
func (s *ChatSession) AddDocument(name, content string) DocumentInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.docs.Add(name, content)
	usage := computeUsage(s.docs.Text(), s.history, s.maxContextTokens)

	info := DocumentInfo{
		Name:            name,
		Chars:           len(content),
		EstimatedTokens: EstimateTokens(content),
		UtilizationPct:  usage.UtilizationPct,
	}
	logger.WithPrefix("chat").Info("loaded document",
		"name", name, "chars", info.Chars, "tokens", info.EstimatedTokens)
	if usage.UtilizationPct > 80 {
		logger.WithPrefix("chat").Warn("context usage high",
			"utilization_pct", usage.UtilizationPct)
	}
	return info
}

// ClearHistory drops the conversation but keeps loaded documents.
func (s *ChatSession) ClearHistory() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = nil
}

// ClearDocuments drops loaded documents but keeps the conversation.
func (s *ChatSession) ClearDocuments() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs.Clear()
}

// Reset drops both conversation and documents.
func (s *ChatSession) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = nil
	s.docs.Clear()
}

// Usage reports the current approximate context consumption.
func (s *ChatSession) Usage() Usage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return computeUsage(s.docs.Text(), s.history, s.maxContextTokens)
}

// Status summarizes the session.
func (s *ChatSession) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Status{
		Model:       s.model,
		LoadedItems: s.docs.Names(),
		NumItems:    len(s.docs.Names()),
		Turns:       len(s.history) / 2,
		Context:     computeUsage(s.docs.Text(), s.history, s.maxContextTokens),
	}
}

// Export serializes the session to JSON: model, loaded item names, and
// the conversation. One-way; there is no import.
func (s *ChatSession) Export() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return json.MarshalIndent(map[string]any{
		"model":        s.model,
		"loaded_items": s.docs.Names(),
		"conversation": s.history,
	}, "", "  ")
}

// History returns a copy of the conversation history.
func (s *ChatSession) History() []llm.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]llm.ChatMessage, len(s.history))
	copy(out, s.history)
	return out
}

// RestoreHistory replaces the conversation, used when loading a saved chat.
func (s *ChatSession) RestoreHistory(history []llm.ChatMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = make([]llm.ChatMessage, len(history))
	copy(s.history, history)
}
