package repository

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/okian/fantasycricket/internal/domain/model"
)

// MemoryStore keeps everything in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	players map[string]model.Player
	users   map[string]model.User
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		players: make(map[string]model.Player),
		users:   make(map[string]model.User),
	}
}

func (s *MemoryStore) GetPlayer(_ context.Context, id string) (model.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.players[id]
	if !ok {
		return model.Player{}, fmt.Errorf("%s: %w", id, ErrPlayerNotFound)
	}
	return p, nil
}

func (s *MemoryStore) ListPlayers(_ context.Context, filter model.PlayerFilter) ([]model.Player, error) {
	s.mu.RLock()
	out := make([]model.Player, 0, len(s.players))
	for _, p := range s.players {
		if filter.Match(p) {
			out = append(out, p)
		}
	}
	s.mu.RUnlock()

	slices.SortFunc(out, func(a, b model.Player) int {
		return cmp.Or(cmp.Compare(a.Name, b.Name), cmp.Compare(a.ID, b.ID))
	})
	return out, nil
}

func (s *MemoryStore) CreatePlayer(_ context.Context, p model.Player) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.players[p.ID]; ok {
		return fmt.Errorf("player %s: %w", p.ID, ErrAlreadyExists)
	}
	s.players[p.ID] = p
	return nil
}

func (s *MemoryStore) SavePlayer(_ context.Context, p model.Player) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.players[p.ID]; !ok {
		return fmt.Errorf("%s: %w", p.ID, ErrPlayerNotFound)
	}
	s.players[p.ID] = p
	return nil
}

// DeletePlayer checks rosters and deletes under one write lock, so a
// concurrent SaveUser either lands first and blocks the delete or sees the
// player gone.
func (s *MemoryStore) DeletePlayer(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.players[id]; !ok {
		return fmt.Errorf("%s: %w", id, ErrPlayerNotFound)
	}
	if s.inUse(id) {
		return fmt.Errorf("player %s: %w", id, ErrPlayerInUse)
	}
	delete(s.players, id)
	return nil
}

// inUse reports whether any roster references id. Caller holds s.mu.
func (s *MemoryStore) inUse(id string) bool {
	for _, u := range s.users {
		if u.HasPlayer(id) {
			return true
		}
	}
	return false
}

func (s *MemoryStore) GetUser(_ context.Context, id string) (model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return model.User{}, fmt.Errorf("%s: %w", id, ErrUserNotFound)
	}
	return u.Clone(), nil
}

func (s *MemoryStore) ListUsers(_ context.Context) ([]model.User, error) {
	s.mu.RLock()
	out := make([]model.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u.Clone())
	}
	s.mu.RUnlock()

	slices.SortFunc(out, func(a, b model.User) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

func (s *MemoryStore) SaveUser(_ context.Context, u model.User) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, exists := s.users[u.ID]
	switch {
	case u.Version == 0 && exists:
		return model.User{}, fmt.Errorf("user %s: %w", u.ID, ErrAlreadyExists)
	case u.Version != 0 && !exists:
		return model.User{}, fmt.Errorf("%s: %w", u.ID, ErrUserNotFound)
	case u.Version != 0 && cur.Version != u.Version:
		return model.User{}, fmt.Errorf("user %s at version %d: %w", u.ID, u.Version, ErrVersionConflict)
	}
	for _, e := range u.Roster {
		if cur.HasPlayer(e.PlayerID) {
			continue
		}
		if _, ok := s.players[e.PlayerID]; !ok {
			return model.User{}, fmt.Errorf("roster of %s: %s: %w", u.ID, e.PlayerID, ErrPlayerNotFound)
		}
	}

	stored := u.Clone()
	stored.Version = u.Version + 1
	s.users[u.ID] = stored
	return stored.Clone(), nil
}

// Close is a no-op.
func (s *MemoryStore) Close() {}
