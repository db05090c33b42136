// Package dedupe remembers idempotency keys so a retried roster mutation is
// applied once.
package dedupe

import (
	"context"
	"sync"
	"time"
)

const defaultMaxSize = 50_000

// Deduper records idempotency keys.
type Deduper interface {
	// SeenAndRecord reports whether key was already recorded and records it
	// when it was not. Check and record happen atomically.
	SeenAndRecord(ctx context.Context, key string) bool

	// Unrecord forgets key so the same request may be retried. Callers use it
	// when the mutation behind a freshly recorded key failed.
	Unrecord(ctx context.Context, key string)

	// Remember attaches the outcome of a completed mutation to a recorded
	// key. Unknown keys are ignored.
	Remember(ctx context.Context, key string, outcome any)

	// Outcome returns what was remembered for key, if anything.
	Outcome(ctx context.Context, key string) (any, bool)

	Size() int
}

// entry is a node in the recency list; head is the newest key.
type entry struct {
	key        string
	at         time.Time
	outcome    any
	prev, next *entry
}

// InMemoryDeduper keeps keys in a map plus a doubly linked list so the
// oldest key is evicted first once maxSize is reached. A maxSize of 0 or
// less keeps every key.
type InMemoryDeduper struct {
	mu      sync.Mutex
	keys    map[string]*entry
	head    *entry
	tail    *entry
	maxSize int
	ttl     time.Duration
	now     func() time.Time
}

// NewInMemoryDeduper creates a deduper holding up to 50,000 keys by default.
func NewInMemoryDeduper(opts ...Option) *InMemoryDeduper {
	d := &InMemoryDeduper{
		keys:    make(map[string]*entry),
		maxSize: defaultMaxSize,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *InMemoryDeduper) SeenAndRecord(_ context.Context, key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	d.expire(now)

	if _, ok := d.keys[key]; ok {
		return true
	}
	if d.maxSize > 0 && len(d.keys) >= d.maxSize {
		d.unlink(d.tail)
	}

	e := &entry{key: key, at: now, next: d.head}
	if d.head != nil {
		d.head.prev = e
	}
	d.head = e
	if d.tail == nil {
		d.tail = e
	}
	d.keys[key] = e
	return false
}

func (d *InMemoryDeduper) Unrecord(_ context.Context, key string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if e, ok := d.keys[key]; ok {
		d.unlink(e)
	}
}

func (d *InMemoryDeduper) Remember(_ context.Context, key string, outcome any) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if e, ok := d.keys[key]; ok {
		e.outcome = outcome
	}
}

func (d *InMemoryDeduper) Outcome(_ context.Context, key string) (any, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.expire(d.now())
	e, ok := d.keys[key]
	if !ok || e.outcome == nil {
		return nil, false
	}
	return e.outcome, true
}

func (d *InMemoryDeduper) Size() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.keys)
}

// expire drops keys older than ttl, oldest first. Caller holds d.mu.
func (d *InMemoryDeduper) expire(now time.Time) {
	if d.ttl <= 0 {
		return
	}
	for d.tail != nil && now.Sub(d.tail.at) >= d.ttl {
		d.unlink(d.tail)
	}
}

// unlink removes e from the list and the map. Caller holds d.mu.
func (d *InMemoryDeduper) unlink(e *entry) {
	if e == nil {
		return
	}
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		d.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		d.tail = e.prev
	}
	e.prev, e.next = nil, nil
	delete(d.keys, e.key)
}
