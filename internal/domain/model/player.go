// Package model contains domain models passed between layers.
package model

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Role is a player's category.
type Role string

// Known roles.
const (
	RoleBatsman    Role = "Batsman"
	RoleBowler     Role = "Bowler"
	RoleAllRounder Role = "All-Rounder"
)

// ErrUnknownRole is returned by ParseRole.
var ErrUnknownRole = NewReason(ErrInvalidInput, "unknown_role", "role must be Batsman, Bowler or All-Rounder")

// ParseRole accepts the canonical names case-insensitively, plus "allrounder".
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "batsman", "batter":
		return RoleBatsman, nil
	case "bowler":
		return RoleBowler, nil
	case "all-rounder", "allrounder", "all rounder":
		return RoleAllRounder, nil
	}
	return "", fmt.Errorf("%q: %w", s, ErrUnknownRole)
}

// RawStats holds the six counters everything else is derived from.
type RawStats struct {
	TotalRuns     int     `json:"total_runs"`
	BallsFaced    int     `json:"balls_faced"`
	InningsPlayed int     `json:"innings_played"`
	Wickets       int     `json:"wickets"`
	OversBowled   float64 `json:"overs_bowled"` // 10.3 means 10 overs and 3 balls
	RunsConceded  int     `json:"runs_conceded"`
}

// ErrInvalidStats is returned by RawStats.Validate.
var ErrInvalidStats = NewReason(ErrInvalidInput, "invalid_stats", "statistics must be non-negative and overs must use .0 to .5 for balls")

// Validate rejects counters no match could produce.
func (s RawStats) Validate() error {
	counters := []struct {
		name string
		v    int
	}{
		{"total_runs", s.TotalRuns},
		{"balls_faced", s.BallsFaced},
		{"innings_played", s.InningsPlayed},
		{"wickets", s.Wickets},
		{"runs_conceded", s.RunsConceded},
	}
	for _, c := range counters {
		if c.v < 0 {
			return fmt.Errorf("%s is %d: %w", c.name, c.v, ErrInvalidStats)
		}
	}
	if math.IsNaN(s.OversBowled) || math.IsInf(s.OversBowled, 0) || s.OversBowled < 0 {
		return fmt.Errorf("overs_bowled is %v: %w", s.OversBowled, ErrInvalidStats)
	}
	if balls := int(math.Floor(s.OversBowled*10+1e-6)) % 10; balls > 5 {
		return fmt.Errorf("overs_bowled %v has %d balls in the last over: %w", s.OversBowled, balls, ErrInvalidStats)
	}
	return nil
}

// Player is the stored record. Derived statistics are never stored here;
// Value is the price locked when the player was first valued (0 when unset).
type Player struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Affiliation string    `json:"affiliation"`
	Role        Role      `json:"role"`
	Stats       RawStats  `json:"stats"`
	Value       int64     `json:"value"`
	Seed        bool      `json:"seed"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// PlayerFilter narrows ListPlayers. Zero fields match everything.
type PlayerFilter struct {
	Role         Role
	Affiliation  string
	NameContains string
	SeedOnly     bool
}

// Match reports whether p passes the filter.
func (f PlayerFilter) Match(p Player) bool {
	if f.Role != "" && p.Role != f.Role {
		return false
	}
	if f.Affiliation != "" && !strings.EqualFold(f.Affiliation, p.Affiliation) {
		return false
	}
	if f.NameContains != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(f.NameContains)) {
		return false
	}
	if f.SeedOnly && !p.Seed {
		return false
	}
	return true
}
