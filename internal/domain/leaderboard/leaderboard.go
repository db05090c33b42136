// Package leaderboard ranks users by the summed score of their rosters.
package leaderboard

import (
	"cmp"
	"context"
	"fmt"
	"iter"
	"slices"
	"time"

	"github.com/okian/fantasycricket/internal/domain/model"
	"github.com/okian/fantasycricket/internal/domain/scoring"
	"github.com/okian/fantasycricket/internal/domain/stats"
	"github.com/okian/fantasycricket/pkg/metrics"
)

// Standing is one row of the leaderboard. Score is nil, and Rank 0, unless
// the roster is complete.
type Standing struct {
	Rank       int      `json:"rank,omitempty"`
	UserID     string   `json:"user_id"`
	Name       string   `json:"name"`
	RosterSize int      `json:"roster_size"`
	Complete   bool     `json:"complete"`
	Score      *float64 `json:"score"`
}

// TeamScore sums the current score of every roster member. ok is false when
// the roster is not exactly rosterSize long or a member cannot be resolved.
func TeamScore(u model.User, players map[string]model.Player, rosterSize int) (score float64, ok bool) {
	if len(u.Roster) != rosterSize {
		return 0, false
	}
	for _, e := range u.Roster {
		p, found := players[e.PlayerID]
		if !found {
			return 0, false
		}
		score += scoring.Score(stats.Derive(p.Stats))
	}
	return score, true
}

// Rank orders users by team score, highest first. Equal scores share a rank
// and the next score takes the following rank; ties are listed by user id.
// Incomplete users follow every complete one, ordered by id, without a score.
//
// Nothing is computed until the sequence is ranged over, and every range
// recomputes from the given users and players.
func Rank(users []model.User, players map[string]model.Player, rosterSize int) iter.Seq[Standing] {
	return func(yield func(Standing) bool) {
		for _, s := range build(users, players, rosterSize) {
			if !yield(s) {
				return
			}
		}
	}
}

func build(users []model.User, players map[string]model.Player, rosterSize int) []Standing {
	rows := make([]Standing, 0, len(users))
	for _, u := range users {
		s := Standing{UserID: u.ID, Name: u.Name, RosterSize: len(u.Roster)}
		if score, ok := TeamScore(u, players, rosterSize); ok {
			s.Complete = true
			s.Score = &score
		}
		rows = append(rows, s)
	}

	slices.SortStableFunc(rows, func(a, b Standing) int {
		switch {
		case a.Complete && !b.Complete:
			return -1
		case !a.Complete && b.Complete:
			return 1
		case a.Complete && *a.Score != *b.Score:
			return cmp.Compare(*b.Score, *a.Score)
		}
		return cmp.Compare(a.UserID, b.UserID)
	})
	assignRanksWithTies(rows)
	return rows
}

// assignRanksWithTies gives consecutive ranks to complete rows, repeating a
// rank for equal scores.
func assignRanksWithTies(rows []Standing) {
	rank := 0
	var last float64
	for i := range rows {
		if !rows[i].Complete {
			return
		}
		if rank == 0 || *rows[i].Score != last {
			rank++
			last = *rows[i].Score
		}
		rows[i].Rank = rank
	}
}

// Source loads the state the leaderboard is computed from.
type Source interface {
	ListUsers(ctx context.Context) ([]model.User, error)
	ListPlayers(ctx context.Context, filter model.PlayerFilter) ([]model.Player, error)
}

// Aggregator reads a fresh snapshot on every call.
type Aggregator struct {
	src        Source
	rosterSize int
}

// NewAggregator builds an Aggregator for rosters of rosterSize players.
func NewAggregator(src Source, rosterSize int) *Aggregator {
	return &Aggregator{src: src, rosterSize: rosterSize}
}

// Standings loads every user and player and returns the ranked sequence.
// Users are read without locking each other; the result is advisory.
func (a *Aggregator) Standings(ctx context.Context) (iter.Seq[Standing], error) {
	start := time.Now()
	defer func() {
		metrics.RecordLeaderboardBuild(float64(time.Since(start).Microseconds()) / 1000)
	}()

	users, err := a.src.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("leaderboard: list users: %w", err)
	}
	players, err := a.src.ListPlayers(ctx, model.PlayerFilter{})
	if err != nil {
		return nil, fmt.Errorf("leaderboard: list players: %w", err)
	}
	index := Index(players)

	complete := 0
	for _, u := range users {
		if _, ok := TeamScore(u, index, a.rosterSize); ok {
			complete++
		}
	}
	metrics.UpdateCompleteTeams(complete)

	return Rank(users, index, a.rosterSize), nil
}

// Index maps players by id.
func Index(players []model.Player) map[string]model.Player {
	out := make(map[string]model.Player, len(players))
	for _, p := range players {
		out[p.ID] = p
	}
	return out
}

// Top collects at most limit standings. limit <= 0 collects everything.
func Top(seq iter.Seq[Standing], limit int) []Standing {
	out := []Standing{}
	for s := range seq {
		if limit > 0 && len(out) >= limit {
			break
		}
		out = append(out, s)
	}
	return out
}
