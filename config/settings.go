// Package config provides application settings loaded from environment
// variables plus cached JSON configuration files (prompts, per-mode
// default models, cloud power references).
//
// Settings are created via New() which handles:
// - Environment variable parsing with validation
// - Default value application
// - Runtime-specific configuration lookup

package config

import (
	"fmt"
	"os"
	"strconv"
)

// Settings holds all application configuration.
type Settings struct {
	Server  ServerConfig
	Runtime RuntimeConfig
	Search  SearchConfig
	Session SessionConfig
	Paths   PathsConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Addr     string
	LogLevel string
}

// RuntimeConfig selects and configures the model runtime.
type RuntimeConfig struct {
	// Kind is "ollama" or "openai" (any OpenAI-compatible server).
	Kind          string
	OllamaURL     string
	OpenAIBaseURL string
	OpenAIAPIKey  string
}

// SearchConfig configures the web tool backend.
type SearchConfig struct {
	APIKey  string
	BaseURL string
}

// SessionConfig holds per-session limits.
type SessionConfig struct {
	MaxContextTokens int
	WebMaxIterations int
}

// PathsConfig locates on-disk resources.
type PathsConfig struct {
	ConfigDir string
	Database  string
}

// New loads settings from the environment, applying defaults.
func New() (Settings, error) {
	maxContextTokens, err := getEnvInt("ECOCHAT_MAX_CONTEXT_TOKENS", 120_000)
	if err != nil {
		return Settings{}, err
	}

	webMaxIterations, err := getEnvInt("ECOCHAT_WEB_MAX_ITERATIONS", 5)
	if err != nil {
		return Settings{}, err
	}

	kind := getEnv("ECOCHAT_RUNTIME", "ollama")
	if kind != "ollama" && kind != "openai" {
		return Settings{}, fmt.Errorf("unknown runtime %q (want ollama or openai)", kind)
	}

	return Settings{
		Server: ServerConfig{
			Addr:     getEnv("ECOCHAT_ADDR", ":8000"),
			LogLevel: getEnv("ECOCHAT_LOG_LEVEL", "info"),
		},
		Runtime: RuntimeConfig{
			Kind:          kind,
			OllamaURL:     getEnv("OLLAMA_HOST", ""),
			OpenAIBaseURL: getEnv("ECOCHAT_OPENAI_BASE_URL", ""),
			OpenAIAPIKey:  getEnv("ECOCHAT_OPENAI_API_KEY", ""),
		},
		Search: SearchConfig{
			APIKey:  getEnv("OLLAMA_API_KEY", ""),
			BaseURL: getEnv("ECOCHAT_WEB_API_BASE", ""),
		},
		Session: SessionConfig{
			MaxContextTokens: maxContextTokens,
			WebMaxIterations: webMaxIterations,
		},
		Paths: PathsConfig{
			ConfigDir: getEnv("ECOCHAT_CONFIG_DIR", "configs"),
			Database:  getEnv("ECOCHAT_DB", "data/ecochat.db"),
		},
	}, nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q is not an integer", key, val)
	}
	return parsed, nil
}
