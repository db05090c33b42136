package repository

import "github.com/okian/fantasycricket/internal/domain/model"

// Store failures. Each unwraps to a model error kind.
var (
	ErrPlayerNotFound  = model.NewReason(model.ErrNotFound, "player_not_found", "player not found")
	ErrUserNotFound    = model.NewReason(model.ErrNotFound, "user_not_found", "user not found")
	ErrPlayerInUse     = model.NewReason(model.ErrPrecondition, "player_in_use", "player is on at least one roster")
	ErrAlreadyExists   = model.NewReason(model.ErrConflict, "already_exists", "record already exists")
	ErrVersionConflict = model.NewReason(model.ErrConflict, "version_conflict", "record was modified concurrently")
	ErrTxConflict      = model.NewReason(model.ErrConflict, "tx_conflict", "transaction could not be serialized")
)
