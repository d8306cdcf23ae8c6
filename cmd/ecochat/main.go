// Package main provides the ecochat server entry point.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"ecochat/config"
	"ecochat/internal/logger"
	"ecochat/llm"
	"ecochat/power"
	"ecochat/server"
	"ecochat/storage"
)

func main() {
	// Load .env file if present (ignore "file not found" errors)
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Warning: failed to load .env file: %v\n", err)
		}
	}

	rootCmd := &cobra.Command{
		Use:   "ecochat",
		Short: "Local LLM chat backend with context and energy tracking",
		Long: `ecochat serves a frontend talking to a local LLM runtime across four
modes: plain chat, vision, coding assistant, and web-search-augmented
chat. It tracks approximate context-window usage per session and
estimates the energy cost of each generation.`,
	}

	rootCmd.AddCommand(serveCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := config.New()
			if err != nil {
				return err
			}
			if addr != "" {
				settings.Server.Addr = addr
			}
			logger.Init(settings.Server.LogLevel)

			return run(settings)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides ECOCHAT_ADDR)")
	return cmd
}

func run(settings config.Settings) error {
	rt, err := buildRuntime(settings.Runtime)
	if err != nil {
		return err
	}

	// Persistence is best-effort: a broken database disables saved
	// chats and power history but the chat modes still work.
	store, err := storage.Open(settings.Paths.Database)
	if err != nil {
		logger.Log.Warn("persistence disabled", "err", err)
		store = nil
	} else {
		defer store.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var recorder power.Recorder
	if store != nil {
		recorder = store
	}
	tracker := power.NewTracker(power.NvidiaSampler{}, recorder)
	tracker.Start(ctx)
	defer tracker.Stop()

	return server.New(settings, rt, store, tracker).Run(ctx)
}

func buildRuntime(cfg config.RuntimeConfig) (llm.Runtime, error) {
	switch cfg.Kind {
	case "openai":
		return llm.NewOpenAIRuntime(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL), nil
	default:
		return llm.NewOllamaRuntime(cfg.OllamaURL)
	}
}
