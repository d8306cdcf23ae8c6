package session

import (
	"context"

	"ecochat/internal/logger"
	"ecochat/llm"
)

// CodingSession is the coding-assistant variant: same turn mechanics as
// ChatSession, with the coding persona and code-file context banners.
type CodingSession struct {
	*ChatSession
}

// NewCodingSession creates a coding session for model.
func NewCodingSession(ctx context.Context, rt llm.Runtime, prompts PromptSource, model string, maxContextTokens int) (*CodingSession, error) {
	s, err := newSession(ctx, rt, prompts, codingProfile, model, maxContextTokens)
	if err != nil {
		return nil, err
	}
	logger.WithPrefix("vibe").Info("coding model ready", "model", model)
	return &CodingSession{ChatSession: s}, nil
}

// AddCodeFile loads code text into the session's context window.
func (s *CodingSession) AddCodeFile(name, content string) DocumentInfo {
	return s.AddDocument(name, content)
}
