package api

import (
	"encoding/json"
	"net/http"

	"github.com/mvelez/jobdeck/internal/settings"
)

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.settings.Get(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

// handleUpdateSettings replaces the settings record. The update is
// all-or-nothing: a rejected value leaves the stored record untouched and
// any source whose credentials it would have cleared stays as it was.
func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var incoming settings.AppSettings
	if err := json.NewDecoder(r.Body).Decode(&incoming); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}

	normalized, err := settings.Normalize(incoming, s.maxProjects)
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{Error: err.Error()})
		return
	}

	updated, err := s.settings.Update(r.Context(), normalized)
	if err != nil {
		writeError(w, err)
		return
	}

	s.logger.Info("settings updated", "maxProjects", updated.MaxProjects)
	writeJSON(w, http.StatusOK, updated)
}
