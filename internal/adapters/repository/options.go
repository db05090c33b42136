package repository

import (
	"time"

	"github.com/okian/fantasycricket/pkg/logger"
)

// Option configures a PostgresStore.
type Option func(*PostgresStore)

// WithLogger sets the store logger.
func WithLogger(l logger.Logger) Option {
	return func(s *PostgresStore) {
		if l != nil {
			s.log = l
		}
	}
}

// WithTxAttempts bounds retries of a transaction that failed to serialize.
func WithTxAttempts(n int) Option {
	return func(s *PostgresStore) {
		if n > 0 {
			s.txAttempts = n
		}
	}
}

// WithRetryDelay sets the first backoff delay between transaction retries.
func WithRetryDelay(d time.Duration) Option {
	return func(s *PostgresStore) {
		if d > 0 {
			s.retryDelay = d
		}
	}
}
