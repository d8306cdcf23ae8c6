package server

import (
	"fmt"
	"net/http"

	"ecochat/internal/logger"
	"ecochat/loader"
)

// handleVibeCode answers a coding prompt as plain JSON. Multipart form
// fields: prompt, model, plus optional code file uploads loaded into
// context first.
func (s *Server) handleVibeCode(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(MaxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid multipart form: %w", err))
		return
	}
	prompt := r.FormValue("prompt")
	model := r.FormValue("model")
	if prompt == "" || model == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("prompt and model are required"))
		return
	}

	engine, err := s.codingSessions.Get(r.Context(), model)
	if err != nil {
		writeError(w, statusForSessionError(err), err)
		return
	}

	if r.MultipartForm != nil {
		for _, header := range r.MultipartForm.File["files"] {
			path, err := s.saveUpload(header)
			if err != nil {
				logger.WithPrefix("server").Error("failed to persist upload", "file", header.Filename, "err", err)
				continue
			}
			content, err := loader.ExtractCode(path)
			if err != nil {
				logger.WithPrefix("server").Error("failed to load code file", "file", header.Filename, "err", err)
				continue
			}
			engine.AddCodeFile(header.Filename, content)
		}
	}

	if s.tracker != nil {
		s.tracker.Begin(model)
		defer s.tracker.End()
	}

	reply, err := engine.Ask(r.Context(), prompt)
	if err != nil {
		writeError(w, statusForSessionError(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "response": reply})
}

// handleVibeReset clears the coding session and the per-session energy
// counters.
func (s *Server) handleVibeReset(w http.ResponseWriter, r *http.Request) {
	model := r.FormValue("model")
	if model == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("model is required"))
		return
	}
	if engine, ok := s.codingSessions.Peek(model); ok {
		engine.Reset()
	}
	if s.tracker != nil {
		s.tracker.ResetSession()
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}
