package server

import (
	"fmt"
	"net/http"
)

// handleWebChat answers a web-augmented prompt as plain JSON. The
// session may call web_search / web_fetch internally. Form fields:
// prompt, model.
func (s *Server) handleWebChat(w http.ResponseWriter, r *http.Request) {
	prompt := r.FormValue("prompt")
	model := r.FormValue("model")
	if prompt == "" || model == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("prompt and model are required"))
		return
	}

	sess, err := s.webSessions.Get(r.Context(), model)
	if err != nil {
		writeError(w, statusForSessionError(err), err)
		return
	}

	if s.tracker != nil {
		s.tracker.Begin(model)
		defer s.tracker.End()
	}

	reply, err := sess.Ask(r.Context(), prompt)
	if err != nil {
		writeError(w, statusForSessionError(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "response": reply})
}

// handleWebReset resets the web session and per-session energy counters.
func (s *Server) handleWebReset(w http.ResponseWriter, r *http.Request) {
	model := r.FormValue("model")
	if model == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("model is required"))
		return
	}
	if sess, ok := s.webSessions.Peek(model); ok {
		sess.Reset()
	}
	if s.tracker != nil {
		s.tracker.ResetSession()
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}
