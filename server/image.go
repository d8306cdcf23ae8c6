package server

import (
	"fmt"
	"io"
	"net/http"
	"path/filepath"

	"ecochat/internal/logger"
	"ecochat/loader"
	"ecochat/power"
)

// handleImageAnalyze streams an image analysis as SSE. Multipart form
// fields: prompt, model, plus an optional image upload appended to the
// session's loaded images.
func (s *Server) handleImageAnalyze(w http.ResponseWriter, r *http.Request) {
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

	sess, err := s.visionSessions.Get(r.Context(), model)
	if err != nil {
		writeError(w, statusForSessionError(err), err)
		return
	}

	if file, header, err := r.FormFile("image"); err == nil {
		defer file.Close()
		if !loader.IsImageExt(filepath.Ext(header.Filename)) {
			writeError(w, http.StatusBadRequest, fmt.Errorf("unsupported image type: %s", filepath.Ext(header.Filename)))
			return
		}
		data, err := io.ReadAll(file)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("failed to read image: %w", err))
			return
		}
		sess.AddImage(header.Filename, data)
	}

	stream, err := newSSEStream(w)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	if s.tracker != nil {
		s.tracker.Begin(model + power.ImageLabelSuffix)
		defer s.tracker.End()
	}

	if _, err := sess.StreamAsk(r.Context(), prompt, stream.Delta); err != nil {
		logger.WithPrefix("server").Error("image analysis failed", "model", model, "err", err)
		stream.Error(err)
	}
	stream.Done()
}

// handleImageReset clears the vision session and per-session energy
// counters.
func (s *Server) handleImageReset(w http.ResponseWriter, r *http.Request) {
	model := r.FormValue("model")
	if model == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("model is required"))
		return
	}
	if sess, ok := s.visionSessions.Peek(model); ok {
		sess.Reset()
	}
	if s.tracker != nil {
		s.tracker.ResetSession()
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}
