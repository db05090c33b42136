// Package api serves the JSON HTTP API.
package api

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/okian/fantasycricket/internal/adapters/http/swagger"
	service "github.com/okian/fantasycricket/internal/app"
	"github.com/okian/fantasycricket/internal/domain/leaderboard"
	"github.com/okian/fantasycricket/internal/domain/model"
	"github.com/okian/fantasycricket/pkg/logger"
	"github.com/okian/fantasycricket/pkg/metrics"
)

const (
	adminTokenHeader     = "X-Admin-Token"
	idempotencyKeyHeader = "Idempotency-Key"
	defaultTimeout       = 30 * time.Second
	maxBodyBytes         = 1 << 20
)

// Dependencies required by HTTP handlers.
type Dependencies interface {
	ListPlayers(ctx context.Context, filter model.PlayerFilter) ([]service.PlayerView, error)
	GetPlayer(ctx context.Context, id string) (service.PlayerView, error)
	CreatePlayer(ctx context.Context, in service.CreatePlayerInput) (service.PlayerView, error)
	UpdatePlayer(ctx context.Context, id string, in service.UpdatePlayerInput) (service.PlayerView, error)
	DeletePlayer(ctx context.Context, id string) error

	Register(ctx context.Context, in service.RegisterInput) (model.User, error)
	Team(ctx context.Context, userID string) (service.TeamView, error)
	AddPlayer(ctx context.Context, userID, playerID, idemKey string) (service.MutationResult, error)
	RemovePlayer(ctx context.Context, userID, playerID, idemKey string) (service.MutationResult, error)

	Leaderboard(ctx context.Context, limit int) ([]leaderboard.Standing, error)
	Analytics(ctx context.Context) (service.Analytics, error)
}

// Subscriber upgrades a request to a stream of one user's events.
type Subscriber interface {
	ServeWS(w http.ResponseWriter, r *http.Request, userID string)
}

// Server wires HTTP routes for the business API.
type Server struct {
	deps       Dependencies
	subscriber Subscriber
	adminToken string
	timeout    time.Duration
	logger     logger.Logger
	mux        *chi.Mux
}

// NewServer builds the router.
func NewServer(deps Dependencies, opts ...Option) *Server {
	s := &Server{
		deps:    deps,
		timeout: defaultTimeout,
		mux:     chi.NewRouter(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("http")
	}
	s.routes()
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	r := s.mux
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(MetricsMiddleware)

	r.Get("/healthz", handleHealth)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())
	r.Get("/ws", s.handleWS)
	swagger.Register(r)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(s.timeout))

		r.Get("/players", s.handleListPlayers)
		r.Get("/players/{id}", s.handleGetPlayer)
		r.Post("/users", s.handleRegister)
		r.Get("/users/{id}/team", s.handleTeam)
		r.Post("/users/{id}/team/{playerID}", s.handleAddPlayer)
		r.Delete("/users/{id}/team/{playerID}", s.handleRemovePlayer)
		r.Get("/leaderboard", s.handleLeaderboard)

		r.Group(func(r chi.Router) {
			r.Use(s.adminOnly)
			r.Post("/players", s.handleCreatePlayer)
			r.Put("/players/{id}", s.handleUpdatePlayer)
			r.Delete("/players/{id}", s.handleDeletePlayer)
			r.Get("/admin/analytics", s.handleAnalytics)
		})
	})
}

// adminOnly lets through requests carrying the configured admin token.
func (s *Server) adminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.adminToken == "" {
			s.writeError(w, r, ErrAdminDisabled)
			return
		}
		got := r.Header.Get(adminTokenHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(s.adminToken)) != 1 {
			s.writeError(w, r, ErrUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func decodeJSON(r *http.Request, out any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("%s: %w", err, ErrBadRequest)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError answers with {code, message}. Server errors are logged and
// their detail withheld.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status >= http.StatusInternalServerError {
		s.logger.Error(r.Context(), "request failed",
			logger.String("method", r.Method),
			logger.String("path", r.URL.Path),
			logger.String("request_id", middleware.GetReqID(r.Context())),
			logger.Error(err),
		)
		msg = http.StatusText(status)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		status = http.StatusGatewayTimeout
		msg = http.StatusText(status)
	}
	writeJSON(w, status, errorResponse{Code: codeFor(err, status), Message: strings.TrimSpace(msg)})
}
