package service

import (
	"time"

	"github.com/okian/fantasycricket/internal/domain/dedupe"
	"github.com/okian/fantasycricket/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithDeduper replaces the idempotency key store.
func WithDeduper(d dedupe.Deduper) Option {
	return func(s *Service) {
		if d != nil {
			s.deduper = d
		}
	}
}

// WithDedupeSize sets the size of the default idempotency key store.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithMaxLeaderboardLimit caps how many standings one request may ask for.
func WithMaxLeaderboardLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxLimit = n
		}
	}
}

// WithImportWorkers sets the number of workers per import.
func WithImportWorkers(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.importWorkers = n
		}
	}
}

// WithImportQueueSize bounds the records buffered per import.
func WithImportQueueSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.importQueueSize = n
		}
	}
}

// WithIDGenerator overrides uuid generation for new players and users.
func WithIDGenerator(gen func() string) Option {
	return func(s *Service) {
		if gen != nil {
			s.newID = gen
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}
