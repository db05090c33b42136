// Package stats derives cricket rate statistics from raw counters.
//
// Every ratio guards its denominator: a zero denominator yields 0, except the
// bowling strike rate which is absent (nil) when no wickets were taken.
package stats

import (
	"math"

	"github.com/okian/fantasycricket/internal/domain/model"
)

// BallsPerOver is the number of legal deliveries in an over.
const BallsPerOver = 6

// Derived holds the rates computed from a player's raw counters.
type Derived struct {
	BattingStrikeRate float64  `json:"batting_strike_rate"`
	BattingAverage    float64  `json:"batting_average"`
	BallsBowled       int      `json:"balls_bowled"`
	BowlingStrikeRate *float64 `json:"bowling_strike_rate"`
	EconomyRate       float64  `json:"economy_rate"`
	Wickets           int      `json:"wickets"`
}

// Derive computes all rates for raw.
func Derive(raw model.RawStats) Derived {
	balls := BallsBowled(raw.OversBowled)

	d := Derived{
		BallsBowled: balls,
		Wickets:     raw.Wickets,
	}
	if raw.BallsFaced > 0 {
		d.BattingStrikeRate = float64(raw.TotalRuns) / float64(raw.BallsFaced) * 100
	}
	if raw.InningsPlayed > 0 {
		d.BattingAverage = float64(raw.TotalRuns) / float64(raw.InningsPlayed)
	}
	if raw.Wickets > 0 {
		sr := float64(balls) / float64(raw.Wickets)
		d.BowlingStrikeRate = &sr
	}
	if balls > 0 {
		d.EconomyRate = float64(raw.RunsConceded) / float64(balls) * BallsPerOver
	}
	return d
}

// BallsBowled converts cricket overs notation to legal deliveries. The
// integer part counts whole overs and the first decimal digit counts extra
// balls, so 10.3 is 63 balls. Digits past the first are ignored. Negative
// and non-finite inputs yield 0.
func BallsBowled(overs float64) int {
	if overs <= 0 || math.IsNaN(overs) || math.IsInf(overs, 0) {
		return 0
	}
	// The epsilon absorbs binary representation error (10.3*10 = 102.99999...).
	tenths := int(math.Floor(overs*10 + 1e-6))
	return tenths/10*BallsPerOver + tenths%10
}
