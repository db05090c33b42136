// Package queue buffers import records between the file reader and the
// worker pool.
package queue

import (
	"context"
	"sync"

	"github.com/okian/fantasycricket/internal/domain/model"
	"github.com/okian/fantasycricket/pkg/metrics"
)

const defaultQueueCapacity = 10_000

// Record is one parsed row of a seed file.
type Record struct {
	// Line is the 1-based line in the source file, for error reports.
	Line   int
	Player model.Player
}

// Queue provides enqueue and channel-based dequeue semantics.
type Queue interface {
	// TryEnqueue adds r without blocking and reports whether it was accepted.
	TryEnqueue(ctx context.Context, r Record) bool

	// Enqueue blocks until r is accepted, ctx is done or the queue closes.
	Enqueue(ctx context.Context, r Record) error

	// Dequeue returns a channel of records that is closed once the queue is
	// closed and drained.
	Dequeue(ctx context.Context) <-chan Record

	// Len returns the number of buffered records.
	Len() int

	// Close stops accepting records. Buffered records are still delivered.
	Close() error
}

// InMemoryQueue implements Queue on a buffered channel.
type InMemoryQueue struct {
	records  chan Record
	capacity int

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

// NewInMemoryQueue creates a queue.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{capacity: defaultQueueCapacity, done: make(chan struct{})}
	for _, opt := range opts {
		opt(q)
	}
	q.records = make(chan Record, q.capacity)

	metrics.UpdateQueueCapacity(q.capacity)
	metrics.UpdateQueueSize(0)
	return q
}

func (q *InMemoryQueue) TryEnqueue(_ context.Context, r Record) bool { //nolint:gocritic // hugeParam: records travel by value
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		metrics.RecordQueueEnqueueError()
		return false
	}
	select {
	case q.records <- r:
		metrics.UpdateQueueSize(len(q.records))
		return true
	default:
		metrics.RecordQueueEnqueueError()
		return false
	}
}

func (q *InMemoryQueue) Enqueue(ctx context.Context, r Record) error { //nolint:gocritic // hugeParam: records travel by value
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		metrics.RecordQueueEnqueueError()
		return ErrClosed
	}
	select {
	case q.records <- r:
		metrics.UpdateQueueSize(len(q.records))
		return nil
	case <-ctx.Done():
		metrics.RecordQueueEnqueueError()
		return ctx.Err()
	}
}

func (q *InMemoryQueue) Dequeue(ctx context.Context) <-chan Record {
	out := make(chan Record)
	go func() {
		defer close(out)
		for r := range q.records {
			select {
			case out <- r:
				metrics.UpdateQueueSize(len(q.records))
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

func (q *InMemoryQueue) Len() int {
	return len(q.records)
}

// Close is idempotent.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil
	}
	q.closed = true
	close(q.records)
	return nil
}
