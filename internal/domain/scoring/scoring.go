// Package scoring turns derived cricket statistics into a performance score.
//
// This is the only implementation of the formula; valuation, the ledger and
// the leaderboard all call into it.
package scoring

import (
	"github.com/okian/fantasycricket/internal/domain/model"
	"github.com/okian/fantasycricket/internal/domain/stats"
)

// Formula constants.
const (
	strikeRateDivisor  = 5.0
	averageWeight      = 0.8
	bowlingStrikeScale = 500.0
	economyScale       = 140.0
)

// Components is the score split by term, in the order the terms are added.
type Components struct {
	Batting       float64 `json:"batting"`
	BowlingStrike float64 `json:"bowling_strike"`
	Economy       float64 `json:"economy"`
	Total         float64 `json:"total"`
}

// Breakdown applies the formula term by term. A term whose precondition
// fails contributes 0:
//
//	batting:        strike rate > 0            -> SR/5 + average*0.8
//	bowling strike: wickets > 0 and SR > 0     -> 500/SR
//	economy:        economy > 0                -> 140/economy
func Breakdown(d stats.Derived) Components {
	var c Components
	if d.BattingStrikeRate > 0 {
		c.Batting = d.BattingStrikeRate/strikeRateDivisor + d.BattingAverage*averageWeight
	}
	if d.Wickets > 0 && d.BowlingStrikeRate != nil && *d.BowlingStrikeRate > 0 {
		c.BowlingStrike = bowlingStrikeScale / *d.BowlingStrikeRate
	}
	if d.EconomyRate > 0 {
		c.Economy = economyScale / d.EconomyRate
	}
	c.Total = c.Batting + c.BowlingStrike + c.Economy
	return c
}

// Score returns the unrounded performance score for d. It is never negative.
func Score(d stats.Derived) float64 {
	return Breakdown(d).Total
}

// ScoreRaw derives d from raw counters and scores it.
func ScoreRaw(raw model.RawStats) float64 {
	return Score(stats.Derive(raw))
}
