package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"ecochat/llm"
)

// handleListModels returns the model names installed on the runtime.
func (s *Server) handleListModels(w http.ResponseWriter, r *http.Request) {
	models, err := s.runtime.ListModels(r.Context())
	if err != nil {
		writeError(w, http.StatusBadGateway, err)
		return
	}
	names := make([]string, len(models))
	for i, m := range models {
		names[i] = m.Name
	}
	writeJSON(w, http.StatusOK, map[string]any{"models": names})
}

// handlePullModel downloads a model. Only runtimes with model
// management (Ollama) support this.
func (s *Server) handlePullModel(w http.ResponseWriter, r *http.Request) {
	name := r.FormValue("name")
	if name == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("name is required"))
		return
	}
	manager, ok := s.runtime.(llm.ModelManager)
	if !ok {
		writeError(w, http.StatusNotImplemented, fmt.Errorf("runtime %s does not manage models", s.runtime.Name()))
		return
	}
	if err := manager.PullModel(r.Context(), name); err != nil {
		writeError(w, http.StatusBadGateway, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// handleCreateModel builds a custom model from Modelfile text. Form
// fields: name, modelfile.
func (s *Server) handleCreateModel(w http.ResponseWriter, r *http.Request) {
	name := r.FormValue("name")
	modelfile := r.FormValue("modelfile")
	if name == "" || modelfile == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("name and modelfile are required"))
		return
	}
	manager, ok := s.runtime.(llm.ModelManager)
	if !ok {
		writeError(w, http.StatusNotImplemented, fmt.Errorf("runtime %s does not manage models", s.runtime.Name()))
		return
	}
	if err := manager.CreateModel(r.Context(), name, modelfile); err != nil {
		writeError(w, http.StatusBadGateway, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// handleDeleteModels removes models, reporting per-model outcomes. Any
// live chat session for a deleted model is dropped too.
func (s *Server) handleDeleteModels(w http.ResponseWriter, r *http.Request) {
	var names []string
	if err := json.NewDecoder(r.Body).Decode(&names); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}
	manager, ok := s.runtime.(llm.ModelManager)
	if !ok {
		writeError(w, http.StatusNotImplemented, fmt.Errorf("runtime %s does not manage models", s.runtime.Name()))
		return
	}

	results := make(map[string]string, len(names))
	for _, name := range names {
		if err := manager.DeleteModel(r.Context(), name); err != nil {
			results[name] = fmt.Sprintf("error: %v", err)
			continue
		}
		results[name] = "deleted"
		s.chatSessions.Remove(name)
		s.codingSessions.Remove(name)
		s.visionSessions.Remove(name)
		s.webSessions.Remove(name)
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

// handleModeDefaults reports the preferred model per mode and whether
// each is installed, including the chat fast/thinking presets.
func (s *Server) handleModeDefaults(w http.ResponseWriter, r *http.Request) {
	installed := map[string]bool{}
	if models, err := s.runtime.ListModels(r.Context()); err == nil {
		for _, m := range models {
			installed[m.Name] = true
		}
	}

	info := func(model string) map[string]any {
		return map[string]any{"default": model, "installed": installed[model]}
	}

	chat := s.modes.Defaults("chat")
	chatInfo := info(chat.Default)
	chatInfo["fast"] = chat.Fast
	chatInfo["fast_installed"] = installed[chat.Fast]
	chatInfo["thinking"] = chat.Thinking
	chatInfo["thinking_installed"] = installed[chat.Thinking]

	writeJSON(w, http.StatusOK, map[string]any{
		"chat":        chatInfo,
		"vibe_coding": info(s.modes.Defaults("vibe_coding").Default),
		"image":       info(s.modes.Defaults("image").Default),
		"web":         info(s.modes.Defaults("web").Default),
	})
}
