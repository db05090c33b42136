package valuation

import "strings"

// Option configures an Engine.
type Option func(*Engine)

// WithFloor sets the price of a player whose score is not positive.
func WithFloor(floor int64) Option {
	return func(e *Engine) {
		if floor > 0 {
			e.floor = floor
		}
	}
}

// WithStep sets the rounding granularity.
func WithStep(step int64) Option {
	return func(e *Engine) {
		if step > 0 {
			e.step = step
		}
	}
}

// WithLocking controls whether a stored non-zero value is returned as is.
func WithLocking(lock bool) Option {
	return func(e *Engine) {
		e.lock = lock
	}
}

// WithOverrides pins values by player name. Names match case-insensitively.
func WithOverrides(overrides map[string]int64) Option {
	return func(e *Engine) {
		for name, amount := range overrides {
			if amount > 0 {
				e.overrides[normalizeName(name)] = amount
			}
		}
	}
}

func normalizeName(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}
