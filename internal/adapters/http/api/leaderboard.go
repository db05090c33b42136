package api

import (
	"net/http"
	"strconv"
)

// handleLeaderboard handles GET /leaderboard?limit=N. A missing limit returns
// the configured maximum.
func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			s.writeError(w, r, ErrBadQuery)
			return
		}
		limit = n
	}
	rows, err := s.deps.Leaderboard(r.Context(), limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

// handleAnalytics handles GET /admin/analytics.
func (s *Server) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	a, err := s.deps.Analytics(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}
