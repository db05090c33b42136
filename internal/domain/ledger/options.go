package ledger

import (
	"time"

	"github.com/okian/fantasycricket/pkg/logger"
)

// Option configures a Ledger.
type Option func(*Ledger)

// WithRosterSize sets the roster cap.
func WithRosterSize(n int) Option {
	return func(l *Ledger) {
		if n > 0 {
			l.rosterSize = n
		}
	}
}

// WithStartingBudget sets the allowance given to new users.
func WithStartingBudget(amount int64) Option {
	return func(l *Ledger) {
		if amount > 0 {
			l.startingBudget = amount
		}
	}
}

// WithNotifier sets the collaborator told about successful transitions.
func WithNotifier(n Notifier) Option {
	return func(l *Ledger) {
		if n != nil {
			l.notifier = n
		}
	}
}

// WithMaxAttempts bounds optimistic retries of one transition.
func WithMaxAttempts(n int) Option {
	return func(l *Ledger) {
		if n > 0 {
			l.maxAttempts = n
		}
	}
}

// WithLogger sets the ledger logger.
func WithLogger(log logger.Logger) Option {
	return func(l *Ledger) {
		if log != nil {
			l.log = log
		}
	}
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		if now != nil {
			l.now = now
		}
	}
}
