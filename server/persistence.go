// Transcript persistence endpoints: saved chats and image analyses.

package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"ecochat/storage"
)

func (s *Server) requireStore(w http.ResponseWriter) bool {
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, fmt.Errorf("persistence is not configured"))
		return false
	}
	return true
}

func (s *Server) handleListChats(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	names, err := s.store.ListChats(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if names == nil {
		names = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"chats": names})
}

// handleSaveChat upserts a chat transcript with its optional study
// documents. Form fields: name, history_json, metrics_json,
// session_json, interview_text.
func (s *Server) handleSaveChat(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	name := r.FormValue("name")
	history := r.FormValue("history_json")
	if name == "" || history == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("name and history_json are required"))
		return
	}

	err := s.store.SaveChat(r.Context(), storage.ChatRecord{
		Name:      name,
		History:   history,
		Metrics:   r.FormValue("metrics_json"),
		Session:   r.FormValue("session_json"),
		Interview: r.FormValue("interview_text"),
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// handleLoadChat returns the saved history JSON verbatim.
func (s *Server) handleLoadChat(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	rec, err := s.store.LoadChat(r.Context(), r.PathValue("name"))
	if errors.Is(err, storage.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "not found"})
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	io.WriteString(w, rec.History)
}

func (s *Server) handleSearchChats(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	results, err := s.store.SearchChats(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if results == nil {
		results = []storage.SearchResult{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

func (s *Server) handleListAnalyses(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	names, err := s.store.ListAnalyses(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if names == nil {
		names = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"analyses": names})
}

// handleSaveAnalysis upserts an analysis transcript with an optional
// image upload. Form fields: name, history_json, image (file).
func (s *Server) handleSaveAnalysis(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	if err := r.ParseMultipartForm(MaxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid multipart form: %w", err))
		return
	}
	name := r.FormValue("name")
	history := r.FormValue("history_json")
	if name == "" || history == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("name and history_json are required"))
		return
	}

	var image []byte
	if file, _, err := r.FormFile("image"); err == nil {
		defer file.Close()
		if image, err = io.ReadAll(file); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("failed to read image: %w", err))
			return
		}
	}

	err := s.store.SaveAnalysis(r.Context(), storage.AnalysisRecord{
		Name:    name,
		History: history,
		Image:   image,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// handleLoadAnalysis returns the history plus whether an image was
// stored alongside it.
func (s *Server) handleLoadAnalysis(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	rec, err := s.store.LoadAnalysis(r.Context(), r.PathValue("name"))
	if errors.Is(err, storage.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "not found"})
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"history":   json.RawMessage(rec.History),
		"has_image": len(rec.Image) > 0,
	})
}
