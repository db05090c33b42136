package service

import (
	"github.com/okian/fantasycricket/internal/domain/ledger"
	"github.com/okian/fantasycricket/internal/domain/model"
	"github.com/okian/fantasycricket/internal/domain/scoring"
	"github.com/okian/fantasycricket/internal/domain/stats"
	"github.com/okian/fantasycricket/internal/domain/valuation"
)

// StatsInput carries raw counters. Every field is required on create.
type StatsInput struct {
	TotalRuns     *int     `json:"total_runs" validate:"required,gte=0"`
	BallsFaced    *int     `json:"balls_faced" validate:"required,gte=0"`
	InningsPlayed *int     `json:"innings_played" validate:"required,gte=0"`
	Wickets       *int     `json:"wickets" validate:"required,gte=0"`
	OversBowled   *float64 `json:"overs_bowled" validate:"required,gte=0"`
	RunsConceded  *int     `json:"runs_conceded" validate:"required,gte=0"`
}

// CreatePlayerInput is an administrator's new player.
type CreatePlayerInput struct {
	Name        string      `json:"name" validate:"required,max=100"`
	Affiliation string      `json:"affiliation" validate:"max=100"`
	Role        string      `json:"role" validate:"required"`
	Stats       *StatsInput `json:"stats" validate:"required"`
}

// StatsPatch changes only the counters that are set.
type StatsPatch struct {
	TotalRuns     *int     `json:"total_runs" validate:"omitempty,gte=0"`
	BallsFaced    *int     `json:"balls_faced" validate:"omitempty,gte=0"`
	InningsPlayed *int     `json:"innings_played" validate:"omitempty,gte=0"`
	Wickets       *int     `json:"wickets" validate:"omitempty,gte=0"`
	OversBowled   *float64 `json:"overs_bowled" validate:"omitempty,gte=0"`
	RunsConceded  *int     `json:"runs_conceded" validate:"omitempty,gte=0"`
}

// UpdatePlayerInput changes only the fields that are set.
type UpdatePlayerInput struct {
	Name        *string     `json:"name" validate:"omitempty,min=1,max=100"`
	Affiliation *string     `json:"affiliation" validate:"omitempty,max=100"`
	Role        *string     `json:"role" validate:"omitempty,min=1"`
	Stats       *StatsPatch `json:"stats"`
}

// RegisterInput creates a user.
type RegisterInput struct {
	Name string `json:"name" validate:"required,max=64"`
}

// PlayerView is a player with every derived figure freshly computed.
type PlayerView struct {
	model.Player
	Derived    stats.Derived      `json:"derived"`
	Components scoring.Components `json:"components"`
	Score      float64            `json:"score"`
	Price      valuation.Quote    `json:"price"`
}

// MemberView is a roster slot.
type MemberView struct {
	PlayerID string  `json:"player_id"`
	Name     string  `json:"name,omitempty"`
	Role     string  `json:"role,omitempty"`
	Paid     int64   `json:"paid"`
	Score    float64 `json:"score"`
	Missing  bool    `json:"missing,omitempty"`
}

// TeamView is a user's roster and budget.
type TeamView struct {
	UserID         string       `json:"user_id"`
	Name           string       `json:"name"`
	Budget         int64        `json:"budget"`
	StartingBudget int64        `json:"starting_budget"`
	RosterSize     int          `json:"roster_size"`
	RosterCap      int          `json:"roster_cap"`
	Complete       bool         `json:"complete"`
	Score          *float64     `json:"score"`
	Members        []MemberView `json:"members"`
}

// Mutation statuses.
const (
	StatusApplied   = "applied"
	StatusDuplicate = "duplicate"
)

// MutationResult reports a roster change. A replayed idempotency key carries
// the original outcome; Player is empty only if that outcome was evicted.
type MutationResult struct {
	Status     string            `json:"status"`
	UserID     string            `json:"user_id"`
	Budget     int64             `json:"budget"`
	RosterSize int               `json:"roster_size"`
	Player     *ledger.PlayerRef `json:"player,omitempty"`
}

// Analytics summarizes the tournament.
type Analytics struct {
	Players       int                `json:"players"`
	PlayersByRole map[model.Role]int `json:"players_by_role"`
	TopPlayers    []PlayerView       `json:"top_players"`
	TotalValue    int64              `json:"total_value"`
	AverageValue  float64            `json:"average_value"`
	Users         int                `json:"users"`
	CompleteTeams int                `json:"complete_teams"`
}

func (in *StatsInput) raw() model.RawStats {
	return model.RawStats{
		TotalRuns:     *in.TotalRuns,
		BallsFaced:    *in.BallsFaced,
		InningsPlayed: *in.InningsPlayed,
		Wickets:       *in.Wickets,
		OversBowled:   *in.OversBowled,
		RunsConceded:  *in.RunsConceded,
	}
}

func (p *StatsPatch) apply(s *model.RawStats) {
	if p == nil {
		return
	}
	setInt := func(dst *int, v *int) {
		if v != nil {
			*dst = *v
		}
	}
	setInt(&s.TotalRuns, p.TotalRuns)
	setInt(&s.BallsFaced, p.BallsFaced)
	setInt(&s.InningsPlayed, p.InningsPlayed)
	setInt(&s.Wickets, p.Wickets)
	setInt(&s.RunsConceded, p.RunsConceded)
	if p.OversBowled != nil {
		s.OversBowled = *p.OversBowled
	}
}
