// Package valuation prices players from their performance score.
package valuation

import (
	"math"

	"github.com/okian/fantasycricket/internal/domain/model"
	"github.com/okian/fantasycricket/internal/domain/scoring"
	"github.com/okian/fantasycricket/internal/domain/stats"
)

// Defaults used when no option overrides them.
const (
	DefaultFloor int64 = 100_000
	DefaultStep  int64 = 50_000
)

// Source tells which rule produced a value.
type Source string

// Sources, in order of precedence.
const (
	SourceLocked   Source = "locked"
	SourceOverride Source = "override"
	SourceComputed Source = "computed"
	SourceFloor    Source = "floor"
)

// Quote is a value together with the rule that produced it.
type Quote struct {
	Value  int64   `json:"value"`
	Source Source  `json:"source"`
	Score  float64 `json:"score"`
}

// Engine computes player values. It is immutable after construction and safe
// for concurrent use.
type Engine struct {
	floor     int64
	step      int64
	lock      bool
	overrides map[string]int64
}

// New builds an Engine with locking enabled and the default floor and step.
func New(opts ...Option) *Engine {
	e := &Engine{
		floor:     DefaultFloor,
		step:      DefaultStep,
		lock:      true,
		overrides: map[string]int64{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Value returns the monetary value of p.
func (e *Engine) Value(p model.Player) int64 {
	return e.Quote(p).Value
}

// Quote resolves the value of p:
//  1. a stored non-zero value when locking is on,
//  2. the name override,
//  3. the floor when the score is not positive,
//  4. otherwise (9*score+100)*1000 rounded half away from zero to a multiple of the step.
//
// The result is always a positive multiple of the step and never below the
// floor. Computed values saturate at the largest multiple of the step that
// fits in an int64.
func (e *Engine) Quote(p model.Player) Quote {
	score := scoring.Score(stats.Derive(p.Stats))
	if e.lock && p.Value > 0 {
		return Quote{Value: p.Value, Source: SourceLocked, Score: score}
	}
	if amount, ok := e.overrides[normalizeName(p.Name)]; ok {
		return Quote{Value: amount, Source: SourceOverride, Score: score}
	}
	return e.fromScore(score)
}

// FromScore prices a bare score, skipping the locked and override rules.
func (e *Engine) FromScore(score float64) int64 {
	return e.fromScore(score).Value
}

func (e *Engine) fromScore(score float64) Quote {
	if !(score > 0) || math.IsInf(score, 0) {
		return Quote{Value: e.floor, Source: SourceFloor, Score: score}
	}
	raw := (9*score + 100) * 1000
	// Scores too large for int64 saturate at the largest multiple of step.
	steps, maxSteps := math.Round(raw/float64(e.step)), math.MaxInt64/e.step
	v := maxSteps * e.step
	if steps < float64(maxSteps) {
		v = int64(steps) * e.step
	}
	if v < e.floor {
		v = e.floor
	}
	return Quote{Value: v, Source: SourceComputed, Score: score}
}

// Floor returns the configured floor.
func (e *Engine) Floor() int64 { return e.floor }

// Step returns the configured rounding step.
func (e *Engine) Step() int64 { return e.step }
