// Package repository persists players and users.
package repository

import (
	"context"

	"github.com/okian/fantasycricket/internal/domain/model"
)

// Store is the persistence collaborator. Records cross the boundary by value;
// callers never share memory with the store.
type Store interface {
	// GetPlayer returns ErrPlayerNotFound for unknown ids.
	GetPlayer(ctx context.Context, id string) (model.Player, error)
	// ListPlayers returns players matching filter ordered by name then id.
	ListPlayers(ctx context.Context, filter model.PlayerFilter) ([]model.Player, error)
	// CreatePlayer inserts p and returns ErrAlreadyExists when the id is taken.
	CreatePlayer(ctx context.Context, p model.Player) error
	// SavePlayer replaces an existing player.
	SavePlayer(ctx context.Context, p model.Player) error
	// DeletePlayer removes a player. It refuses with ErrPlayerInUse while any
	// roster references id; the check and the delete are one atomic step.
	DeletePlayer(ctx context.Context, id string) error

	// GetUser returns ErrUserNotFound for unknown ids.
	GetUser(ctx context.Context, id string) (model.User, error)
	// ListUsers returns every user ordered by id.
	ListUsers(ctx context.Context) ([]model.User, error)
	// SaveUser inserts u when u.Version is 0, otherwise updates it only if
	// the stored version still equals u.Version (ErrVersionConflict if not).
	// Roster entries not already stored must reference an existing player
	// (ErrPlayerNotFound if not). The returned user carries the new version.
	SaveUser(ctx context.Context, u model.User) (model.User, error)

	// Close releases resources.
	Close()
}
