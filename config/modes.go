package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"ecochat/internal/logger"
)

// ModeDefaults names the preferred model for one mode. Chat carries
// fast/thinking presets on top of the plain default.
type ModeDefaults struct {
	Default  string `json:"default"`
	Fast     string `json:"fast,omitempty"`
	Thinking string `json:"thinking,omitempty"`
}

// builtinModeDefaults applies when models.json is absent or partial.
var builtinModeDefaults = map[string]ModeDefaults{
	"chat":        {Default: "qwen3:1.7b", Fast: "qwen2.5:14b", Thinking: "qwen3:14b"},
	"vibe_coding": {Default: "qwen2.5-coder:7b"},
	"image":       {Default: "qwen2.5vl:7b"},
	"web":         {Default: "qwen2.5:7b"},
}

// ModeModels resolves per-mode default models from configs/models.json,
// cached after the first read.
type ModeModels struct {
	path string

	once  sync.Once
	modes map[string]ModeDefaults
}

// NewModeModels creates a provider reading from dir/models.json.
func NewModeModels(dir string) *ModeModels {
	return &ModeModels{path: filepath.Join(dir, "models.json")}
}

func (m *ModeModels) load() {
	m.modes = map[string]ModeDefaults{}

	data, err := os.ReadFile(m.path)
	if err != nil {
		logger.WithPrefix("config").Warn("models file not found, using built-in defaults", "path", m.path)
		return
	}
	var parsed map[string]ModeDefaults
	if err := json.Unmarshal(data, &parsed); err != nil {
		logger.WithPrefix("config").Error("failed to parse models file", "path", m.path, "err", err)
		return
	}
	m.modes = parsed
}

// Defaults returns the model presets for mode. Configured values win
// per field; unset fast/thinking presets fall back to the mode default.
func (m *ModeModels) Defaults(mode string) ModeDefaults {
	m.once.Do(m.load)

	d := builtinModeDefaults[mode]
	if entry, ok := m.modes[mode]; ok {
		if entry.Default != "" {
			d.Default = entry.Default
		}
		if entry.Fast != "" {
			d.Fast = entry.Fast
		}
		if entry.Thinking != "" {
			d.Thinking = entry.Thinking
		}
	}
	if mode == "chat" {
		if d.Fast == "" {
			d.Fast = d.Default
		}
		if d.Thinking == "" {
			d.Thinking = d.Default
		}
	}
	return d
}
