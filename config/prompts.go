package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"ecochat/internal/logger"
)

// Prompts resolves per-mode system prompt overrides from
// configs/prompts.json. The file is read once and cached; a missing or
// invalid file means every lookup returns its fallback.
//
// File shape: {"chat": {"system_prompt": "..."}, "vibe_coding": {...}}
type Prompts struct {
	path string

	once    sync.Once
	prompts map[string]modePrompt
}

type modePrompt struct {
	SystemPrompt string `json:"system_prompt"`
}

// NewPrompts creates a prompt provider reading from dir/prompts.json.
func NewPrompts(dir string) *Prompts {
	return &Prompts{path: filepath.Join(dir, "prompts.json")}
}

func (p *Prompts) load() {
	p.prompts = map[string]modePrompt{}

	data, err := os.ReadFile(p.path)
	if err != nil {
		logger.WithPrefix("config").Warn("prompts file not found, using built-in defaults", "path", p.path)
		return
	}
	var parsed map[string]modePrompt
	if err := json.Unmarshal(data, &parsed); err != nil {
		logger.WithPrefix("config").Error("failed to parse prompts file", "path", p.path, "err", err)
		return
	}
	p.prompts = parsed
}

// SystemPrompt returns the configured prompt for mode, or fallback when
// no non-blank override exists.
func (p *Prompts) SystemPrompt(mode, fallback string) string {
	p.once.Do(p.load)
	if entry, ok := p.prompts[mode]; ok && strings.TrimSpace(entry.SystemPrompt) != "" {
		return entry.SystemPrompt
	}
	return fallback
}
