// Package ledger owns the roster and budget of every user.
//
// AddPlayer and RemovePlayer are the only transitions. Each either applies
// completely or not at all, and after every one of them
//
//	budget + sum(roster values) == starting budget
//
// still holds. Transitions on the same user are serialized in process by a
// keyed lock and across processes by the store's version check.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/okian/fantasycricket/internal/domain/model"
	"github.com/okian/fantasycricket/pkg/logger"
	"github.com/okian/fantasycricket/pkg/metrics"
)

// EventTeamUpdate is the notification type sent after a transition.
const EventTeamUpdate = "team-update"

// Defaults.
const (
	DefaultRosterSize     = 11
	DefaultStartingBudget = int64(9_000_000)
	defaultMaxAttempts    = 5
)

const (
	opAdd    = "add"
	opRemove = "remove"
)

// Store is the slice of persistence the ledger needs.
type Store interface {
	GetPlayer(ctx context.Context, id string) (model.Player, error)
	GetUser(ctx context.Context, id string) (model.User, error)
	// SaveUser must fail with an error of kind model.ErrConflict when u is stale.
	SaveUser(ctx context.Context, u model.User) (model.User, error)
}

// Valuer prices a player.
type Valuer interface {
	Value(p model.Player) int64
}

// Notifier receives best-effort notifications. Its errors are logged and
// otherwise ignored.
type Notifier interface {
	NotifyUser(ctx context.Context, userID, eventType string, payload any) error
}

// PlayerRef identifies the player a transition touched.
type PlayerRef struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Value int64  `json:"value"`
}

// TeamUpdate is the payload of EventTeamUpdate.
type TeamUpdate struct {
	Action     string    `json:"action"`
	RosterSize int       `json:"roster_size"`
	Budget     int64     `json:"budget"`
	Player     PlayerRef `json:"player"`
}

// Result is the outcome of a successful transition.
type Result struct {
	User   model.User
	Player PlayerRef
}

// Ledger applies roster transitions.
type Ledger struct {
	store          Store
	valuer         Valuer
	notifier       Notifier
	log            logger.Logger
	rosterSize     int
	startingBudget int64
	maxAttempts    int
	now            func() time.Time
	locks          *keyedMutex
}

type nopNotifier struct{}

func (nopNotifier) NotifyUser(context.Context, string, string, any) error { return nil }

// New builds a Ledger.
func New(store Store, valuer Valuer, opts ...Option) *Ledger {
	l := &Ledger{
		store:          store,
		valuer:         valuer,
		notifier:       nopNotifier{},
		rosterSize:     DefaultRosterSize,
		startingBudget: DefaultStartingBudget,
		maxAttempts:    defaultMaxAttempts,
		now:            time.Now,
		locks:          newKeyedMutex(),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.log == nil {
		l.log = logger.Get().Named("ledger")
	}
	return l
}

// RosterSize returns the roster cap.
func (l *Ledger) RosterSize() int { return l.rosterSize }

// StartingBudget returns the allowance of a new user.
func (l *Ledger) StartingBudget() int64 { return l.startingBudget }

// Register creates a user with the starting budget and an empty roster.
func (l *Ledger) Register(ctx context.Context, id, name string) (model.User, error) {
	u, err := l.store.SaveUser(ctx, model.User{
		ID:        id,
		Name:      name,
		Budget:    l.startingBudget,
		Roster:    []model.RosterEntry{},
		CreatedAt: l.now().UTC(),
	})
	if err != nil {
		return model.User{}, fmt.Errorf("register: %w", err)
	}
	l.log.Info(ctx, "user registered", logger.String("user_id", id), logger.Int64("budget", u.Budget))
	return u, nil
}

// AddPlayer puts playerID on the user's roster and charges its value.
//
// Checks run in this order: roster full, duplicate, player exists, budget.
func (l *Ledger) AddPlayer(ctx context.Context, userID, playerID string) (Result, error) {
	return l.apply(ctx, opAdd, userID, func(u *model.User) (PlayerRef, error) {
		if len(u.Roster) >= l.rosterSize {
			return PlayerRef{}, fmt.Errorf("roster has %d of %d: %w", len(u.Roster), l.rosterSize, ErrRosterFull)
		}
		if u.HasPlayer(playerID) {
			return PlayerRef{}, fmt.Errorf("%s: %w", playerID, ErrDuplicatePlayer)
		}
		p, err := l.store.GetPlayer(ctx, playerID)
		if errors.Is(err, model.ErrNotFound) {
			return PlayerRef{}, fmt.Errorf("%s: %w", playerID, ErrPlayerNotFound)
		}
		if err != nil {
			return PlayerRef{}, fmt.Errorf("load player: %w", err)
		}

		value := l.valuer.Value(p)
		if value > u.Budget {
			return PlayerRef{}, fmt.Errorf("player costs %d, budget is %d: %w", value, u.Budget, ErrInsufficientBudget)
		}

		u.Roster = append(u.Roster, model.RosterEntry{PlayerID: p.ID, Value: value, AddedAt: l.now().UTC()})
		u.Budget -= value
		return PlayerRef{ID: p.ID, Name: p.Name, Value: value}, nil
	})
}

// RemovePlayer takes playerID off the roster and refunds exactly what was
// paid for it, whatever the player is worth today.
func (l *Ledger) RemovePlayer(ctx context.Context, userID, playerID string) (Result, error) {
	return l.apply(ctx, opRemove, userID, func(u *model.User) (PlayerRef, error) {
		entry, ok := u.Entry(playerID)
		if !ok {
			return PlayerRef{}, fmt.Errorf("%s: %w", playerID, ErrPlayerNotInRoster)
		}
		u.Roster = u.WithoutPlayer(playerID)
		u.Budget += entry.Value

		ref := PlayerRef{ID: playerID, Value: entry.Value}
		if p, err := l.store.GetPlayer(ctx, playerID); err == nil {
			ref.Name = p.Name
		}
		return ref, nil
	})
}

// apply runs mutate against a fresh copy of the user and persists the result,
// re-reading and re-validating on a version conflict. Only the read-modify-write
// runs under the user's lock; logging and notification happen after release.
func (l *Ledger) apply(ctx context.Context, op, userID string, mutate func(*model.User) (PlayerRef, error)) (Result, error) {
	unlock := l.locks.lock(userID)
	res, err := l.attempt(ctx, op, userID, mutate)
	unlock()

	if err != nil {
		outcome := model.CodeOf(err)
		if outcome == "" {
			outcome = "error"
			metrics.RecordErrorByComponent("ledger", op)
			l.log.Error(ctx, "roster transition failed", logger.String("op", op), logger.String("user_id", userID), logger.Error(err))
		}
		metrics.RecordLedgerOperation(op, outcome)
		return Result{}, err
	}
	metrics.RecordLedgerOperation(op, "ok")

	l.log.Debug(ctx, "roster updated",
		logger.String("op", op),
		logger.String("user_id", userID),
		logger.String("player_id", res.Player.ID),
		logger.Int64("value", res.Player.Value),
		logger.Int64("budget", res.User.Budget),
	)
	l.notify(ctx, op, res)
	return res, nil
}

func (l *Ledger) attempt(ctx context.Context, op, userID string, mutate func(*model.User) (PlayerRef, error)) (Result, error) {
	for attempt := 1; ; attempt++ {
		cur, err := l.store.GetUser(ctx, userID)
		if errors.Is(err, model.ErrNotFound) {
			return Result{}, fmt.Errorf("%s: %w", userID, ErrUserNotFound)
		}
		if err != nil {
			return Result{}, fmt.Errorf("%s: load user: %w", op, err)
		}

		next := cur.Clone()
		ref, err := mutate(&next)
		if err != nil {
			return Result{}, err
		}

		saved, err := l.store.SaveUser(ctx, next)
		if err == nil {
			return Result{User: saved, Player: ref}, nil
		}
		if model.CodeOf(err) == ErrPlayerNotFound.Code() {
			// Deleted between the read and the write.
			return Result{}, fmt.Errorf("%s: %w", ref.ID, ErrPlayerNotFound)
		}
		if !errors.Is(err, model.ErrConflict) {
			return Result{}, fmt.Errorf("%s: save user: %w", op, err)
		}
		if attempt >= l.maxAttempts {
			return Result{}, fmt.Errorf("%s after %d attempts: %w", op, attempt, ErrContention)
		}
		metrics.RecordLedgerRetry()
		l.log.Debug(ctx, "stale user, retrying", logger.String("user_id", userID), logger.Int("attempt", attempt))
	}
}

func (l *Ledger) notify(ctx context.Context, op string, res Result) {
	err := l.notifier.NotifyUser(ctx, res.User.ID, EventTeamUpdate, TeamUpdate{
		Action:     op,
		RosterSize: len(res.User.Roster),
		Budget:     res.User.Budget,
		Player:     res.Player,
	})
	if err != nil {
		l.log.Warn(ctx, "team update not delivered", logger.String("user_id", res.User.ID), logger.Error(err))
	}
}

// Balanced reports whether u satisfies the roster and budget invariants.
func (l *Ledger) Balanced(u model.User) bool {
	return u.Budget >= 0 &&
		len(u.Roster) <= l.rosterSize &&
		u.Budget+u.RosterValue() == l.startingBudget
}
