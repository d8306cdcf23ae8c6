package server

import (
	"fmt"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"

	"ecochat/internal/logger"
	"ecochat/loader"
	"ecochat/session"
)

// handleChat streams a chat turn as SSE. Multipart form fields: prompt,
// model, thinking_mode (default fast), plus optional document uploads
// loaded into the model's context window before answering.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(MaxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid multipart form: %w", err))
		return
	}
	prompt := r.FormValue("prompt")
	model := r.FormValue("model")
	thinkingMode := r.FormValue("thinking_mode")
	if thinkingMode == "" {
		thinkingMode = session.ThinkingFast
	}
	if prompt == "" || model == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("prompt and model are required"))
		return
	}

	engine, err := s.chatSessions.Get(r.Context(), model)
	if err != nil {
		writeError(w, statusForSessionError(err), err)
		return
	}

	// Load uploaded documents. Failures are non-fatal: log and still
	// answer the prompt.
	if r.MultipartForm != nil {
		for _, header := range r.MultipartForm.File["files"] {
			path, err := s.saveUpload(header)
			if err != nil {
				logger.WithPrefix("server").Error("failed to persist upload", "file", header.Filename, "err", err)
				continue
			}
			content, err := loader.ExtractText(path)
			if err != nil {
				logger.WithPrefix("server").Error("failed to load document", "file", header.Filename, "err", err)
				continue
			}
			engine.AddDocument(header.Filename, content)
		}
	}

	stream, err := newSSEStream(w)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	if s.tracker != nil {
		s.tracker.Begin(model)
		defer s.tracker.End()
	}

	if _, err := engine.StreamAsk(r.Context(), prompt, thinkingMode, stream.Delta); err != nil {
		stream.Error(err)
	}
	stream.Done()
}

// handleChatReset clears the model's conversation and documents and
// zeroes the per-session energy counters.
func (s *Server) handleChatReset(w http.ResponseWriter, r *http.Request) {
	model := r.FormValue("model")
	if model == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("model is required"))
		return
	}
	if engine, ok := s.chatSessions.Peek(model); ok {
		engine.Reset()
	}
	if s.tracker != nil {
		s.tracker.ResetSession()
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// handleChatUsage reports the approximate context-window consumption
// for the model's session.
func (s *Server) handleChatUsage(w http.ResponseWriter, r *http.Request) {
	model := r.URL.Query().Get("model")
	if model == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("model is required"))
		return
	}
	engine, err := s.chatSessions.Get(r.Context(), model)
	if err != nil {
		writeError(w, statusForSessionError(err), err)
		return
	}
	writeJSON(w, http.StatusOK, engine.Usage())
}

// saveUpload persists one multipart file under the server's temp dir
// and returns its path.
func (s *Server) saveUpload(header *multipart.FileHeader) (string, error) {
	if err := os.MkdirAll(s.tmpDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create upload dir: %w", err)
	}

	src, err := header.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open upload: %w", err)
	}
	defer src.Close()

	// Base strips any path components a client might smuggle in.
	dst := filepath.Join(s.tmpDir, filepath.Base(header.Filename))
	out, err := os.Create(dst)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", dst, err)
	}
	defer out.Close()

	if _, err := out.ReadFrom(src); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", dst, err)
	}
	return dst, nil
}
