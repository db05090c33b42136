package api

import (
	"net/http"
	"strings"
)

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// handleWS handles GET /ws?user_id=. The user must exist.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	if s.subscriber == nil {
		http.NotFound(w, r)
		return
	}
	userID := strings.TrimSpace(r.URL.Query().Get("user_id"))
	if userID == "" {
		s.writeError(w, r, ErrMissingUserID)
		return
	}
	if _, err := s.deps.Team(r.Context(), userID); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.subscriber.ServeWS(w, r, userID)
}
