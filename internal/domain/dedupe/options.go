package dedupe

import "time"

// Option configures an InMemoryDeduper.
type Option func(*InMemoryDeduper)

// WithMaxSize bounds the number of keys kept. 0 or less means unbounded.
func WithMaxSize(maxSize int) Option {
	return func(d *InMemoryDeduper) {
		d.maxSize = maxSize
	}
}

// WithTTL forgets keys older than ttl. 0 keeps them until evicted.
func WithTTL(ttl time.Duration) Option {
	return func(d *InMemoryDeduper) {
		d.ttl = ttl
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(d *InMemoryDeduper) {
		if now != nil {
			d.now = now
		}
	}
}
