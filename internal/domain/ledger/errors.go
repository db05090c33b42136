package ledger

import "github.com/okian/fantasycricket/internal/domain/model"

// Roster transition failures. Each is reported distinctly so callers can
// show a specific message.
var (
	ErrRosterFull         = model.NewReason(model.ErrPrecondition, "roster_full", "your team already has the maximum number of players")
	ErrDuplicatePlayer    = model.NewReason(model.ErrPrecondition, "duplicate_player", "player is already on your team")
	ErrInsufficientBudget = model.NewReason(model.ErrPrecondition, "insufficient_budget", "insufficient budget for this player")
	ErrPlayerNotInRoster  = model.NewReason(model.ErrPrecondition, "player_not_in_roster", "player is not on your team")
	ErrPlayerNotFound     = model.NewReason(model.ErrNotFound, "player_not_found", "player not found")
	ErrUserNotFound       = model.NewReason(model.ErrNotFound, "user_not_found", "user not found")
	ErrContention         = model.NewReason(model.ErrConflict, "contention", "team was modified concurrently, try again")
)
