// Package server provides the HTTP API: mode endpoints (chat, coding,
// web, image), model management, transcript persistence, and power
// analytics.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"ecochat/config"
	"ecochat/internal/logger"
	"ecochat/llm"
	"ecochat/power"
	"ecochat/session"
	"ecochat/storage"
	"ecochat/tools"
)

const (
	// ReadHeaderTimeout bounds request header reads. Full read/write
	// timeouts are deliberately absent: chat responses stream for as
	// long as the model generates.
	ReadHeaderTimeout = 10 * time.Second

	// IdleTimeout is the maximum wait for the next request.
	IdleTimeout = 120 * time.Second

	// ShutdownTimeout is the maximum wait for graceful shutdown.
	ShutdownTimeout = 30 * time.Second

	// MaxUploadBytes caps multipart upload memory before spilling to disk.
	MaxUploadBytes = 32 << 20
)

// Server wires sessions, storage, and power tracking into HTTP handlers.
type Server struct {
	addr    string
	runtime llm.Runtime
	prompts *config.Prompts
	modes   *config.ModeModels
	cloud   *config.CloudPower
	store   *storage.Store
	tracker *power.Tracker
	tmpDir  string

	chatSessions   *session.Registry[*session.ChatSession]
	codingSessions *session.Registry[*session.CodingSession]
	visionSessions *session.Registry[*session.VisionSession]
	webSessions    *session.Registry[*session.WebSession]

	httpServer *http.Server
}

// New builds a server from its collaborators. The store and tracker may
// be nil (persistence and energy endpoints then degrade gracefully).
func New(settings config.Settings, rt llm.Runtime, store *storage.Store, tracker *power.Tracker) *Server {
	prompts := config.NewPrompts(settings.Paths.ConfigDir)
	searchClient := tools.NewSearchClient(settings.Search.APIKey, settings.Search.BaseURL)
	webTools := tools.WebRegistry(searchClient)
	maxTokens := settings.Session.MaxContextTokens

	s := &Server{
		addr:    settings.Server.Addr,
		runtime: rt,
		prompts: prompts,
		modes:   config.NewModeModels(settings.Paths.ConfigDir),
		cloud:   config.NewCloudPower(settings.Paths.ConfigDir),
		store:   store,
		tracker: tracker,
		tmpDir:  filepath.Join(os.TempDir(), "ecochat-uploads"),
	}

	s.chatSessions = session.NewRegistry(func(ctx context.Context, model string) (*session.ChatSession, error) {
		return session.NewChatSession(ctx, rt, prompts, model, maxTokens)
	})
	s.codingSessions = session.NewRegistry(func(ctx context.Context, model string) (*session.CodingSession, error) {
		return session.NewCodingSession(ctx, rt, prompts, model, maxTokens)
	})
	s.visionSessions = session.NewRegistry(func(ctx context.Context, model string) (*session.VisionSession, error) {
		return session.NewVisionSession(ctx, rt, prompts, model)
	})
	webMaxIterations := settings.Session.WebMaxIterations
	s.webSessions = session.NewRegistry(func(ctx context.Context, model string) (*session.WebSession, error) {
		return session.NewWebSession(rt, prompts, webTools, model, webMaxIterations), nil
	})

	return s
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/chat", s.handleChat)
	mux.HandleFunc("POST /api/chat/reset", s.handleChatReset)
	mux.HandleFunc("GET /api/chat/usage", s.handleChatUsage)

	mux.HandleFunc("POST /api/vibe/code", s.handleVibeCode)
	mux.HandleFunc("POST /api/vibe/reset", s.handleVibeReset)

	mux.HandleFunc("POST /api/web/chat", s.handleWebChat)
	mux.HandleFunc("POST /api/web/reset", s.handleWebReset)

	mux.HandleFunc("POST /api/image/analyze", s.handleImageAnalyze)
	mux.HandleFunc("POST /api/image/reset", s.handleImageReset)

	mux.HandleFunc("GET /api/models", s.handleListModels)
	mux.HandleFunc("POST /api/models/pull", s.handlePullModel)
	mux.HandleFunc("POST /api/models/create", s.handleCreateModel)
	mux.HandleFunc("DELETE /api/models", s.handleDeleteModels)
	mux.HandleFunc("GET /api/modes/default-models", s.handleModeDefaults)

	mux.HandleFunc("GET /api/chats", s.handleListChats)
	mux.HandleFunc("POST /api/chats/save", s.handleSaveChat)
	mux.HandleFunc("GET /api/chats/{name}", s.handleLoadChat)
	mux.HandleFunc("GET /api/chats-search", s.handleSearchChats)

	mux.HandleFunc("GET /api/analyses", s.handleListAnalyses)
	mux.HandleFunc("POST /api/analyses/save", s.handleSaveAnalysis)
	mux.HandleFunc("GET /api/analyses/{name}", s.handleLoadAnalysis)

	mux.HandleFunc("GET /api/power/summary", s.handlePowerSummary)
	mux.HandleFunc("GET /api/power/stream", s.handlePowerStream)
	mux.HandleFunc("GET /api/analytics/power", s.handlePowerAnalytics)

	mux.HandleFunc("GET /api/health", s.handleHealth)

	return withCORS(mux)
}

// Run starts the HTTP server and blocks until ctx is cancelled, then
// shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: ReadHeaderTimeout,
		IdleTimeout:       IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.WithPrefix("server").Info("listening", "addr", s.addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	logger.WithPrefix("server").Info("shutting down")
	return s.httpServer.Shutdown(shutdownCtx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// withCORS allows the local frontend to call the API from another port.
func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.WithPrefix("server").Error("failed to encode response", "err", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]any{"ok": false, "error": err.Error()})
}

// statusForSessionError maps the session error taxonomy onto HTTP codes.
func statusForSessionError(err error) int {
	switch {
	case errors.Is(err, session.ErrModelUnavailable):
		return http.StatusNotFound
	case errors.Is(err, session.ErrInvocationFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
