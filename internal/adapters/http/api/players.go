package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	service "github.com/okian/fantasycricket/internal/app"
	"github.com/okian/fantasycricket/internal/domain/model"
)

// handleListPlayers handles GET /players?role=&affiliation=&q=&seed=.
func (s *Server) handleListPlayers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := model.PlayerFilter{
		Affiliation:  q.Get("affiliation"),
		NameContains: q.Get("q"),
	}
	if raw := q.Get("role"); raw != "" {
		role, err := model.ParseRole(raw)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		filter.Role = role
	}
	if raw := q.Get("seed"); raw != "" {
		seed, err := strconv.ParseBool(raw)
		if err != nil {
			s.writeError(w, r, ErrBadQuery)
			return
		}
		filter.SeedOnly = seed
	}

	players, err := s.deps.ListPlayers(r.Context(), filter)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, players)
}

// handleGetPlayer handles GET /players/{id}.
func (s *Server) handleGetPlayer(w http.ResponseWriter, r *http.Request) {
	p, err := s.deps.GetPlayer(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// handleCreatePlayer handles POST /players.
func (s *Server) handleCreatePlayer(w http.ResponseWriter, r *http.Request) {
	var in service.CreatePlayerInput
	if err := decodeJSON(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	p, err := s.deps.CreatePlayer(r.Context(), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Location", "/players/"+p.ID)
	writeJSON(w, http.StatusCreated, p)
}

// handleUpdatePlayer handles PUT /players/{id}.
func (s *Server) handleUpdatePlayer(w http.ResponseWriter, r *http.Request) {
	var in service.UpdatePlayerInput
	if err := decodeJSON(r, &in); err != nil {
		s.writeError(w, r, err)
		return
	}
	p, err := s.deps.UpdatePlayer(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// handleDeletePlayer handles DELETE /players/{id}.
func (s *Server) handleDeletePlayer(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.DeletePlayer(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
