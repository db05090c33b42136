package loadtest

import (
	"fmt"
	"math"
)

const scoreTolerance = 1e-6

// verifyTeams checks every team's books: what was paid plus what is left
// equals the starting budget, and no roster outgrows its cap.
func verifyTeams(teams []Team) []string {
	var out []string
	for _, t := range teams {
		var paid int64
		var score float64
		for _, m := range t.Members {
			paid += m.Paid
			score += m.Score
		}
		if t.Budget+paid != t.StartingBudget {
			out = append(out, fmt.Sprintf("user %s: budget %d + paid %d != starting %d", t.UserID, t.Budget, paid, t.StartingBudget))
		}
		if t.Budget < 0 {
			out = append(out, fmt.Sprintf("user %s: negative budget %d", t.UserID, t.Budget))
		}
		if t.RosterSize > t.RosterCap {
			out = append(out, fmt.Sprintf("user %s: roster %d over cap %d", t.UserID, t.RosterSize, t.RosterCap))
		}
		if len(t.Members) != t.RosterSize {
			out = append(out, fmt.Sprintf("user %s: %d members listed for roster size %d", t.UserID, len(t.Members), t.RosterSize))
		}
		if t.Complete && (t.Score == nil || math.Abs(*t.Score-score) > scoreTolerance) {
			out = append(out, fmt.Sprintf("user %s: team score does not match its members", t.UserID))
		}
	}
	return out
}

// verifyLeaderboard checks the ordering and ranks of board and that it
// agrees with the teams fetched for the run's own users.
func verifyLeaderboard(board []Standing, teams []Team) []string {
	var out []string

	seenIncomplete := false
	for i, s := range board {
		if !s.Complete {
			seenIncomplete = true
			if s.Rank != 0 || s.Score != nil {
				out = append(out, fmt.Sprintf("row %d: incomplete team %s carries a rank or score", i, s.UserID))
			}
			continue
		}
		if seenIncomplete {
			out = append(out, fmt.Sprintf("row %d: complete team %s listed after an incomplete one", i, s.UserID))
		}
		if s.Score == nil {
			out = append(out, fmt.Sprintf("row %d: complete team %s has no score", i, s.UserID))
			continue
		}
		if i == 0 {
			if s.Rank != 1 {
				out = append(out, fmt.Sprintf("row 0: first rank is %d", s.Rank))
			}
			continue
		}
		prev := board[i-1]
		if prev.Score == nil {
			continue
		}
		switch {
		case *s.Score > *prev.Score:
			out = append(out, fmt.Sprintf("row %d: score %.3f above previous %.3f", i, *s.Score, *prev.Score))
		case *s.Score == *prev.Score && s.Rank != prev.Rank:
			out = append(out, fmt.Sprintf("row %d: tied score but rank %d != %d", i, s.Rank, prev.Rank))
		case *s.Score < *prev.Score && s.Rank != prev.Rank+1:
			out = append(out, fmt.Sprintf("row %d: rank %d does not follow %d", i, s.Rank, prev.Rank))
		}
	}

	rows := make(map[string]Standing, len(board))
	for _, s := range board {
		rows[s.UserID] = s
	}
	for _, t := range teams {
		s, ok := rows[t.UserID]
		if !ok {
			// The board may be capped below the number of users.
			continue
		}
		if s.Complete != t.Complete {
			out = append(out, fmt.Sprintf("user %s: leaderboard says complete=%t, team says %t", t.UserID, s.Complete, t.Complete))
		}
	}
	return out
}
