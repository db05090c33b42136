package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	service "github.com/okian/fantasycricket/internal/app"
)

// handleRegister handles POST /users.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var in service.RegisterInput
	if err := decodeJSON(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	u, err := s.deps.Register(r.Context(), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Location", "/users/"+u.ID+"/team")
	writeJSON(w, http.StatusCreated, u)
}

// handleTeam handles GET /users/{id}/team.
func (s *Server) handleTeam(w http.ResponseWriter, r *http.Request) {
	team, err := s.deps.Team(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, team)
}

// handleAddPlayer handles POST /users/{id}/team/{playerID}.
func (s *Server) handleAddPlayer(w http.ResponseWriter, r *http.Request) {
	res, err := s.deps.AddPlayer(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "playerID"), idempotencyKey(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleRemovePlayer handles DELETE /users/{id}/team/{playerID}.
func (s *Server) handleRemovePlayer(w http.ResponseWriter, r *http.Request) {
	res, err := s.deps.RemovePlayer(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "playerID"), idempotencyKey(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// idempotencyKey is empty when the client sent none; the mutation then
// always applies.
func idempotencyKey(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(idempotencyKeyHeader))
}
