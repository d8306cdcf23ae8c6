package session

import (
	"context"
	"sync"

	"ecochat/llm"
)

// stubRuntime is a deterministic Runtime for tests. It records every
// message list it receives and replays canned responses.
type stubRuntime struct {
	mu sync.Mutex

	checkErr error

	chatReply string
	chatErr   error

	streamChunks []string
	streamErr    error // returned after delivering streamChunks

	toolTurns []llm.ToolTurn // consumed one per ChatWithTools call
	toolErr   error

	calls       int
	gotMessages [][]llm.ChatMessage
	gotOptions  []llm.Options
}

func (s *stubRuntime) Name() string { return "stub" }

func (s *stubRuntime) CheckModel(ctx context.Context, model string) error {
	return s.checkErr
}

func (s *stubRuntime) record(messages []llm.ChatMessage, opts llm.Options) {
	s.calls++
	copied := make([]llm.ChatMessage, len(messages))
	copy(copied, messages)
	s.gotMessages = append(s.gotMessages, copied)
	s.gotOptions = append(s.gotOptions, opts)
}

func (s *stubRuntime) Chat(ctx context.Context, model string, messages []llm.ChatMessage, opts llm.Options) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record(messages, opts)
	if s.chatErr != nil {
		return "", s.chatErr
	}
	return s.chatReply, nil
}

func (s *stubRuntime) StreamChat(ctx context.Context, model string, messages []llm.ChatMessage, opts llm.Options, fn llm.StreamFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record(messages, opts)
	for _, chunk := range s.streamChunks {
		if err := fn(chunk); err != nil {
			return err
		}
	}
	return s.streamErr
}

func (s *stubRuntime) ChatWithTools(ctx context.Context, model string, messages []llm.ChatMessage, tools []llm.ToolDefinition) (llm.ToolTurn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record(messages, llm.Options{})
	if s.toolErr != nil {
		return llm.ToolTurn{}, s.toolErr
	}
	if len(s.toolTurns) == 0 {
		return llm.ToolTurn{}, nil
	}
	turn := s.toolTurns[0]
	s.toolTurns = s.toolTurns[1:]
	return turn, nil
}

func (s *stubRuntime) ListModels(ctx context.Context) ([]llm.ModelInfo, error) {
	return []llm.ModelInfo{{Name: "stub-model"}}, nil
}
