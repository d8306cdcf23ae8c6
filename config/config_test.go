package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
}

func TestSettingsDefaults(t *testing.T) {
	for _, key := range []string{
		"ECOCHAT_ADDR", "ECOCHAT_RUNTIME",
		"ECOCHAT_MAX_CONTEXT_TOKENS", "ECOCHAT_WEB_MAX_ITERATIONS",
		"ECOCHAT_CONFIG_DIR",
	} {
		t.Setenv(key, "")
	}

	s, err := New()
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if s.Server.Addr != ":8000" {
		t.Errorf("addr = %q", s.Server.Addr)
	}
	if s.Runtime.Kind != "ollama" {
		t.Errorf("runtime = %q", s.Runtime.Kind)
	}
	if s.Session.MaxContextTokens != 120_000 {
		t.Errorf("max context tokens = %d", s.Session.MaxContextTokens)
	}
	if s.Session.WebMaxIterations != 5 {
		t.Errorf("web max iterations = %d", s.Session.WebMaxIterations)
	}
	if s.Paths.ConfigDir != "configs" {
		t.Errorf("config dir = %q", s.Paths.ConfigDir)
	}
}

func TestSettingsFromEnvironment(t *testing.T) {
	t.Setenv("ECOCHAT_ADDR", ":9001")
	t.Setenv("ECOCHAT_RUNTIME", "openai")
	t.Setenv("ECOCHAT_MAX_CONTEXT_TOKENS", "32000")

	s, err := New()
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if s.Server.Addr != ":9001" {
		t.Errorf("addr = %q", s.Server.Addr)
	}
	if s.Runtime.Kind != "openai" {
		t.Errorf("runtime = %q", s.Runtime.Kind)
	}
	if s.Session.MaxContextTokens != 32000 {
		t.Errorf("max context tokens = %d", s.Session.MaxContextTokens)
	}
}

func TestSettingsRejectsUnknownRuntime(t *testing.T) {
	t.Setenv("ECOCHAT_RUNTIME", "bedrock")
	if _, err := New(); err == nil {
		t.Fatal("expected error for unknown runtime")
	}
}

func TestSettingsRejectsBadInteger(t *testing.T) {
	t.Setenv("ECOCHAT_MAX_CONTEXT_TOKENS", "lots")
	if _, err := New(); err == nil {
		t.Fatal("expected error for non-integer")
	}
}

func TestPromptsFallbackWhenFileMissing(t *testing.T) {
	p := NewPrompts(t.TempDir())
	if got := p.SystemPrompt("chat", "built-in"); got != "built-in" {
		t.Errorf("got %q", got)
	}
}

func TestPromptsOverride(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "prompts.json",
		`{"chat": {"system_prompt": "custom chat prompt"}, "web": {"system_prompt": "   "}}`)

	p := NewPrompts(dir)
	if got := p.SystemPrompt("chat", "built-in"); got != "custom chat prompt" {
		t.Errorf("chat = %q", got)
	}
	// Blank overrides are ignored.
	if got := p.SystemPrompt("web", "built-in"); got != "built-in" {
		t.Errorf("web = %q", got)
	}
	if got := p.SystemPrompt("image", "built-in"); got != "built-in" {
		t.Errorf("image = %q", got)
	}
}

func TestModeDefaultsBuiltin(t *testing.T) {
	m := NewModeModels(t.TempDir())

	chat := m.Defaults("chat")
	if chat.Default != "qwen3:1.7b" || chat.Fast != "qwen2.5:14b" || chat.Thinking != "qwen3:14b" {
		t.Errorf("chat = %+v", chat)
	}
	if got := m.Defaults("image").Default; got != "qwen2.5vl:7b" {
		t.Errorf("image = %q", got)
	}
}

func TestModeDefaultsPartialOverride(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "models.json", `{"chat": {"default": "llama3.2:3b"}}`)

	m := NewModeModels(dir)
	chat := m.Defaults("chat")
	if chat.Default != "llama3.2:3b" {
		t.Errorf("default = %q", chat.Default)
	}
	// Untouched presets keep the built-in values.
	if chat.Fast != "qwen2.5:14b" || chat.Thinking != "qwen3:14b" {
		t.Errorf("chat = %+v", chat)
	}
}

func TestModeDefaultsChatPresetsFallBackToDefault(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "models.json", `{"unlisted": {"default": "llama3.2:3b"}}`)

	m := NewModeModels(dir)
	got := m.Defaults("unlisted")
	if got.Default != "llama3.2:3b" || got.Fast != "" || got.Thinking != "" {
		t.Errorf("unlisted = %+v", got)
	}
}

func TestCloudPowerEntries(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "default_power_consumptions.json",
		`{"gpt-4o": 0.3, "claude-sonnet": 0.25}`)

	entries := NewCloudPower(dir).Entries()
	if len(entries) != 2 {
		t.Fatalf("entries = %+v", entries)
	}
	// Sorted by model name.
	if entries[0].Model != "claude-sonnet" || entries[1].Model != "gpt-4o" {
		t.Errorf("order = %v, %v", entries[0].Model, entries[1].Model)
	}
	if entries[0].Power != 0.25 || entries[0].Type != "Cloud API" {
		t.Errorf("entry = %+v", entries[0])
	}
}

func TestCloudPowerMissingFile(t *testing.T) {
	if entries := NewCloudPower(t.TempDir()).Entries(); len(entries) != 0 {
		t.Errorf("entries = %+v, want none", entries)
	}
}
