// Package service wires the domain packages into the operations the HTTP
// API and the CLI call.
package service

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"reflect"
	"slices"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/okian/fantasycricket/internal/adapters/repository"
	"github.com/okian/fantasycricket/internal/domain/dedupe"
	"github.com/okian/fantasycricket/internal/domain/leaderboard"
	"github.com/okian/fantasycricket/internal/domain/ledger"
	"github.com/okian/fantasycricket/internal/domain/model"
	"github.com/okian/fantasycricket/internal/domain/scoring"
	"github.com/okian/fantasycricket/internal/domain/stats"
	"github.com/okian/fantasycricket/internal/domain/valuation"
	"github.com/okian/fantasycricket/internal/importer"
	"github.com/okian/fantasycricket/pkg/logger"
	"github.com/okian/fantasycricket/pkg/metrics"
)

const topPlayersInAnalytics = 5

// Service implements the API dependencies for the fantasy game.
type Service struct {
	store    repository.Store
	valuer   *valuation.Engine
	ledger   *ledger.Ledger
	board    *leaderboard.Aggregator
	importer *importer.Importer
	deduper  dedupe.Deduper
	flight   singleflight.Group
	validate *validator.Validate

	// Configuration
	dedupeSize      int
	maxLimit        int
	importWorkers   int
	importQueueSize int

	newID  func() string
	now    func() time.Time
	logger logger.Logger
}

// New constructs a Service over store. The ledger decides roster size and
// starting budget; valuer prices players everywhere.
func New(store repository.Store, valuer *valuation.Engine, l *ledger.Ledger, opts ...Option) *Service {
	s := &Service{
		store:      store,
		valuer:     valuer,
		ledger:     l,
		dedupeSize: 50_000,
		maxLimit:   100,
		newID:      uuid.NewString,
		now:        time.Now,
		validate:   newValidator(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	if s.deduper == nil {
		s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	}
	s.board = leaderboard.NewAggregator(store, l.RosterSize())
	s.importer = importer.New(store, valuer,
		importer.WithWorkers(s.importWorkers),
		importer.WithQueueSize(s.importQueueSize),
		importer.WithLogger(s.logger.Named("importer")),
	)
	return s
}

// Close releases the store.
func (s *Service) Close() {
	s.store.Close()
}

// View derives every figure of p from its raw counters.
func (s *Service) View(p model.Player) PlayerView {
	d := stats.Derive(p.Stats)
	c := scoring.Breakdown(d)
	return PlayerView{
		Player:     p,
		Derived:    d,
		Components: c,
		Score:      c.Total,
		Price:      s.valuer.Quote(p),
	}
}

// GetPlayer returns one player view.
func (s *Service) GetPlayer(ctx context.Context, id string) (PlayerView, error) {
	p, err := s.store.GetPlayer(ctx, id)
	if err != nil {
		return PlayerView{}, fmt.Errorf("get player: %w", err)
	}
	return s.View(p), nil
}

// ListPlayers returns views of every player matching filter.
func (s *Service) ListPlayers(ctx context.Context, filter model.PlayerFilter) ([]PlayerView, error) {
	players, err := s.store.ListPlayers(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list players: %w", err)
	}
	out := make([]PlayerView, len(players))
	for i, p := range players {
		out[i] = s.View(p)
	}
	return out, nil
}

// CreatePlayer stores a new non-seed player and prices it once.
func (s *Service) CreatePlayer(ctx context.Context, in CreatePlayerInput) (PlayerView, error) {
	if err := s.check(in); err != nil {
		return PlayerView{}, fmt.Errorf("create player: %w", err)
	}
	role, err := model.ParseRole(in.Role)
	if err != nil {
		return PlayerView{}, fmt.Errorf("create player: %w", err)
	}
	raw := in.Stats.raw()
	if err := raw.Validate(); err != nil {
		return PlayerView{}, fmt.Errorf("create player: %w", err)
	}

	now := s.now().UTC()
	p := model.Player{
		ID:          s.newID(),
		Name:        strings.TrimSpace(in.Name),
		Affiliation: strings.TrimSpace(in.Affiliation),
		Role:        role,
		Stats:       raw,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	quote := s.valuer.Quote(p)
	p.Value = quote.Value
	metrics.RecordValuation(string(quote.Source))

	if err := s.store.CreatePlayer(ctx, p); err != nil {
		return PlayerView{}, fmt.Errorf("create player: %w", err)
	}
	s.logger.Info(ctx, "player created",
		logger.String("player_id", p.ID),
		logger.String("role", string(p.Role)),
		logger.Int64("value", p.Value),
		logger.String("source", string(quote.Source)),
	)
	return s.View(p), nil
}

// UpdatePlayer edits a non-seed player. The stored value is kept, so prices
// already paid stay consistent.
func (s *Service) UpdatePlayer(ctx context.Context, id string, in UpdatePlayerInput) (PlayerView, error) {
	if err := s.check(in); err != nil {
		return PlayerView{}, fmt.Errorf("update player: %w", err)
	}
	p, err := s.store.GetPlayer(ctx, id)
	if err != nil {
		return PlayerView{}, fmt.Errorf("update player: %w", err)
	}
	if p.Seed {
		return PlayerView{}, fmt.Errorf("update player %s: %w", id, ErrSeedImmutable)
	}

	if in.Name != nil {
		p.Name = strings.TrimSpace(*in.Name)
	}
	if in.Affiliation != nil {
		p.Affiliation = strings.TrimSpace(*in.Affiliation)
	}
	if in.Role != nil {
		if p.Role, err = model.ParseRole(*in.Role); err != nil {
			return PlayerView{}, fmt.Errorf("update player: %w", err)
		}
	}
	in.Stats.apply(&p.Stats)
	if err := p.Stats.Validate(); err != nil {
		return PlayerView{}, fmt.Errorf("update player: %w", err)
	}
	p.UpdatedAt = s.now().UTC()

	if err := s.store.SavePlayer(ctx, p); err != nil {
		return PlayerView{}, fmt.Errorf("update player: %w", err)
	}
	s.logger.Info(ctx, "player updated", logger.String("player_id", p.ID))
	return s.View(p), nil
}

// DeletePlayer removes a non-seed player that sits on no roster.
func (s *Service) DeletePlayer(ctx context.Context, id string) error {
	p, err := s.store.GetPlayer(ctx, id)
	if err != nil {
		return fmt.Errorf("delete player: %w", err)
	}
	if p.Seed {
		return fmt.Errorf("delete player %s: %w", id, ErrSeedImmutable)
	}
	if err := s.store.DeletePlayer(ctx, id); err != nil {
		return fmt.Errorf("delete player: %w", err)
	}
	s.logger.Info(ctx, "player deleted", logger.String("player_id", id))
	return nil
}

// Register creates a user with the starting budget.
func (s *Service) Register(ctx context.Context, in RegisterInput) (model.User, error) {
	if err := s.check(in); err != nil {
		return model.User{}, fmt.Errorf("register: %w", err)
	}
	return s.ledger.Register(ctx, s.newID(), strings.TrimSpace(in.Name))
}

// Team returns the user's roster with the price paid for each member.
func (s *Service) Team(ctx context.Context, userID string) (TeamView, error) {
	u, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return TeamView{}, fmt.Errorf("team: %w", err)
	}

	players := make(map[string]model.Player, len(u.Roster))
	members := make([]MemberView, 0, len(u.Roster))
	for _, e := range u.Roster {
		m := MemberView{PlayerID: e.PlayerID, Paid: e.Value}
		p, err := s.store.GetPlayer(ctx, e.PlayerID)
		switch {
		case err == nil:
			players[p.ID] = p
			m.Name = p.Name
			m.Role = string(p.Role)
			m.Score = scoring.ScoreRaw(p.Stats)
		case errors.Is(err, model.ErrNotFound):
			m.Missing = true
		default:
			return TeamView{}, fmt.Errorf("team: %w", err)
		}
		members = append(members, m)
	}

	view := TeamView{
		UserID:         u.ID,
		Name:           u.Name,
		Budget:         u.Budget,
		StartingBudget: s.ledger.StartingBudget(),
		RosterSize:     len(u.Roster),
		RosterCap:      s.ledger.RosterSize(),
		Members:        members,
	}
	if score, ok := leaderboard.TeamScore(u, players, s.ledger.RosterSize()); ok {
		view.Complete = true
		view.Score = &score
	}
	return view, nil
}

// AddPlayer buys playerID for the user. A non-empty idempotency key makes a
// repeat of a successful request report the original outcome as
// StatusDuplicate without touching the roster.
func (s *Service) AddPlayer(ctx context.Context, userID, playerID, idemKey string) (MutationResult, error) {
	return s.mutate(ctx, "add", userID, idemKey, func() (ledger.Result, error) {
		return s.ledger.AddPlayer(ctx, userID, playerID)
	})
}

// RemovePlayer sells playerID back for what was paid.
func (s *Service) RemovePlayer(ctx context.Context, userID, playerID, idemKey string) (MutationResult, error) {
	return s.mutate(ctx, "remove", userID, idemKey, func() (ledger.Result, error) {
		return s.ledger.RemovePlayer(ctx, userID, playerID)
	})
}

// mutate runs apply at most once per idempotency key. Requests carrying the
// same key while the first is in flight wait for it and share its outcome,
// failures included. A key whose mutation failed is released for retry.
func (s *Service) mutate(ctx context.Context, op, userID, idemKey string, apply func() (ledger.Result, error)) (MutationResult, error) {
	if idemKey == "" {
		return s.run(op, apply)
	}
	key := userID + "|" + op + "|" + idemKey

	ran := false
	v, err, _ := s.flight.Do(key, func() (any, error) {
		ran = true
		if s.deduper.SeenAndRecord(ctx, key) {
			return s.recorded(ctx, op, userID, idemKey, key)
		}
		res, err := s.run(op, apply)
		if err != nil {
			s.deduper.Unrecord(ctx, key)
			return nil, err
		}
		s.deduper.Remember(ctx, key, res)
		return res, nil
	})
	if err != nil {
		return MutationResult{}, err
	}
	res := v.(MutationResult)
	if !ran {
		res = s.replay(ctx, op, userID, idemKey, res)
	}
	return res, nil
}

func (s *Service) run(op string, apply func() (ledger.Result, error)) (MutationResult, error) {
	res, err := apply()
	if err != nil {
		return MutationResult{}, fmt.Errorf("%s player: %w", op, err)
	}
	return MutationResult{
		Status:     StatusApplied,
		UserID:     res.User.ID,
		Budget:     res.User.Budget,
		RosterSize: len(res.User.Roster),
		Player:     &res.Player,
	}, nil
}

// recorded answers a key that completed earlier. If its outcome was evicted
// the user's current state stands in for it.
func (s *Service) recorded(ctx context.Context, op, userID, idemKey, key string) (MutationResult, error) {
	if v, ok := s.deduper.Outcome(ctx, key); ok {
		if res, ok := v.(MutationResult); ok {
			return s.replay(ctx, op, userID, idemKey, res), nil
		}
	}
	u, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return MutationResult{}, fmt.Errorf("%s player: %w", op, err)
	}
	return s.replay(ctx, op, userID, idemKey, MutationResult{UserID: u.ID, Budget: u.Budget, RosterSize: len(u.Roster)}), nil
}

func (s *Service) replay(ctx context.Context, op, userID, idemKey string, res MutationResult) MutationResult {
	metrics.RecordIdempotentReplay()
	s.logger.Debug(ctx, "idempotent replay",
		logger.String("op", op),
		logger.String("user_id", userID),
		logger.String("key", idemKey),
	)
	res.Status = StatusDuplicate
	if res.Player != nil {
		p := *res.Player
		res.Player = &p
	}
	return res
}

// Leaderboard ranks every user. limit 0 means the configured maximum.
func (s *Service) Leaderboard(ctx context.Context, limit int) ([]leaderboard.Standing, error) {
	if limit < 0 || limit > s.maxLimit {
		return nil, fmt.Errorf("leaderboard: limit %d not in [0, %d]: %w", limit, s.maxLimit, ErrInvalidLimit)
	}
	if limit == 0 {
		limit = s.maxLimit
	}
	seq, err := s.board.Standings(ctx)
	if err != nil {
		return nil, err
	}
	return leaderboard.Top(seq, limit), nil
}

// Analytics summarizes players, values and teams.
func (s *Service) Analytics(ctx context.Context) (Analytics, error) {
	players, err := s.store.ListPlayers(ctx, model.PlayerFilter{})
	if err != nil {
		return Analytics{}, fmt.Errorf("analytics: %w", err)
	}
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return Analytics{}, fmt.Errorf("analytics: %w", err)
	}
	metrics.UpdatePlayers(len(players))
	metrics.UpdateUsers(len(users))

	out := Analytics{
		Players:       len(players),
		PlayersByRole: map[model.Role]int{model.RoleBatsman: 0, model.RoleBowler: 0, model.RoleAllRounder: 0},
		Users:         len(users),
	}
	views := make([]PlayerView, len(players))
	for i, p := range players {
		views[i] = s.View(p)
		out.PlayersByRole[p.Role]++
		out.TotalValue += views[i].Price.Value
	}
	if len(views) > 0 {
		out.AverageValue = float64(out.TotalValue) / float64(len(views))
	}
	slices.SortFunc(views, func(a, b PlayerView) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	out.TopPlayers = views[:min(topPlayersInAnalytics, len(views))]

	index := leaderboard.Index(players)
	for _, u := range users {
		if _, ok := leaderboard.TeamScore(u, index, s.ledger.RosterSize()); ok {
			out.CompleteTeams++
		}
	}
	return out, nil
}

// Import loads seed players from CSV.
func (s *Service) Import(ctx context.Context, r io.Reader) (importer.Report, error) {
	return s.importer.Import(ctx, r)
}

// ImportFile loads seed players from a CSV file.
func (s *Service) ImportFile(ctx context.Context, path string) (importer.Report, error) {
	return s.importer.ImportFile(ctx, path)
}

// check runs struct validation and folds the field errors into one
// ErrInvalidRequest.
func (s *Service) check(v any) error {
	err := s.validate.Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	msgs := make([]string, len(fieldErrs))
	for i, fe := range fieldErrs {
		msgs[i] = describe(fe)
	}
	return fmt.Errorf("%s: %w", strings.Join(msgs, "; "), ErrInvalidRequest)
}

// newValidator reports fields by their json names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func describe(fe validator.FieldError) string {
	field := fe.Namespace()
	if i := strings.IndexByte(field, '.'); i >= 0 {
		field = field[i+1:]
	}
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "gte":
		return field + " must be at least " + fe.Param()
	case "max":
		return field + " must be at most " + fe.Param() + " characters"
	case "min":
		return field + " must not be empty"
	}
	return field + " failed " + fe.Tag()
}
