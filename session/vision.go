package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"ecochat/internal/logger"
	"ecochat/llm"
)

// NoImageLoaded is returned (as content, not an error) when an analysis
// is requested before any image has been loaded. The frontend renders it
// like any assistant reply.
const NoImageLoaded = "Please load an image first."

// Image is a loaded image blob.
type Image struct {
	Name string
	Data []byte
}

// VisionSession analyzes loaded images with a vision model. Every user
// turn carries the full ordered list of loaded images.
type VisionSession struct {
	mu sync.Mutex

	runtime llm.Runtime
	prompts PromptSource

	model   string
	history []llm.ChatMessage
	images  []Image
}

// NewVisionSession creates a vision session for model, verifying the
// model is available on the runtime.
func NewVisionSession(ctx context.Context, rt llm.Runtime, prompts PromptSource, model string) (*VisionSession, error) {
	if err := rt.CheckModel(ctx, model); err != nil {
		return nil, fmt.Errorf("%w: %s (pull it first): %v", ErrModelUnavailable, model, err)
	}
	logger.WithPrefix("image").Info("vision model ready", "model", model)
	return &VisionSession{runtime: rt, prompts: prompts, model: model}, nil
}

// Model returns the session's model name.
func (s *VisionSession) Model() string {
	return s.model
}

// AddImage loads an image blob for analysis.
func (s *VisionSession) AddImage(name string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.images = append(s.images, Image{Name: name, Data: data})
	logger.WithPrefix("image").Info("loaded image", "name", name, "bytes", len(data))
}

// Ask analyzes the loaded images with the given prompt. Without a loaded
// image it returns the fixed refusal content with a nil error.
func (s *VisionSession) Ask(ctx context.Context, userMessage string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.images) == 0 {
		logger.WithPrefix("image").Warn("no images loaded")
		return NoImageLoaded, nil
	}

	s.history = append(s.history, s.userTurn(userMessage))
	messages := buildMessages(visionProfile, s.prompts, nil, s.history)

	reply, err := s.runtime.Chat(ctx, s.model, messages, llm.Options{Temperature: 0.7, NumPredict: -1})
	if err != nil {
		s.rollbackUser()
		return "", fmt.Errorf("%w: %v", ErrInvocationFailed, err)
	}

	s.history = append(s.history, llm.AssistantMessage(reply))
	return reply, nil
}

// StreamAsk analyzes the loaded images, streaming fragments to fn. The
// refusal for an empty image list is delivered through fn as a single
// fragment. Commit/rollback semantics match ChatSession.StreamAsk.
func (s *VisionSession) StreamAsk(ctx context.Context, userMessage string, fn llm.StreamFunc) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.images) == 0 {
		logger.WithPrefix("image").Warn("no images loaded")
		if err := fn(NoImageLoaded); err != nil {
			return "", err
		}
		return NoImageLoaded, nil
	}

	s.history = append(s.history, s.userTurn(userMessage))
	messages := buildMessages(visionProfile, s.prompts, nil, s.history)

	var full []byte
	err := s.runtime.StreamChat(ctx, s.model, messages,
		llm.Options{Temperature: 0.7, NumPredict: -1},
		func(chunk string) error {
			full = append(full, chunk...)
			return fn(chunk)
		})
	if err != nil {
		s.rollbackUser()
		return "", fmt.Errorf("%w: %v", ErrInvocationFailed, err)
	}

	reply := string(full)
	s.history = append(s.history, llm.AssistantMessage(reply))
	return reply, nil
}

func (s *VisionSession) userTurn(content string) llm.ChatMessage {
	msg := llm.UserMessage(content)
	for _, img := range s.images {
		msg.Images = append(msg.Images, img.Data)
	}
	return msg
}

func (s *VisionSession) rollbackUser() {
	if n := len(s.history); n > 0 && s.history[n-1].Role == "user" {
		s.history = s.history[:n-1]
	}
}

// ClearImages drops loaded images but keeps the conversation.
func (s *VisionSession) ClearImages() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.images = nil
}

// ClearHistory drops the conversation but keeps loaded images.
func (s *VisionSession) ClearHistory() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = nil
}

// Reset drops both conversation and images.
func (s *VisionSession) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = nil
	s.images = nil
}

// ImageNames returns the loaded image names in order.
func (s *VisionSession) ImageNames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, len(s.images))
	for i, img := range s.images {
		names[i] = img.Name
	}
	return names
}

// History returns a copy of the conversation history.
func (s *VisionSession) History() []llm.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]llm.ChatMessage, len(s.history))
	copy(out, s.history)
	return out
}

// LastImage returns the most recently loaded image, or ok=false.
func (s *VisionSession) LastImage() (Image, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.images) == 0 {
		return Image{}, false
	}
	return s.images[len(s.images)-1], true
}

// Status summarizes the session.
func (s *VisionSession) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, len(s.images))
	for i, img := range s.images {
		names[i] = img.Name
	}
	return Status{
		Model:       s.model,
		LoadedItems: names,
		NumItems:    len(names),
		Turns:       len(s.history) / 2,
	}
}

// Export serializes the session to JSON. Image bytes are excluded; only
// names are kept.
func (s *VisionSession) Export() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, len(s.images))
	for i, img := range s.images {
		names[i] = img.Name
	}
	return json.MarshalIndent(map[string]any{
		"model":        s.model,
		"loaded_items": names,
		"conversation": s.history,
	}, "", "  ")
}
