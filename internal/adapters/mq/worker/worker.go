// Package worker drains the import queue with a pool of workers.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"time"

	"github.com/okian/fantasycricket/internal/adapters/mq/queue"
	"github.com/okian/fantasycricket/pkg/logger"
	"github.com/okian/fantasycricket/pkg/metrics"
)

const poolShutdownTimeout = 30 * time.Second

// Processor handles one record. Errors are logged and counted; they never
// stop the worker.
type Processor interface {
	Process(ctx context.Context, r queue.Record) error
}

// Queue defines how workers receive records.
type Queue interface {
	Dequeue(ctx context.Context) <-chan queue.Record
}

// InMemoryWorker pulls records until the queue closes or it is told to stop.
type InMemoryWorker struct {
	queue     Queue
	processor Processor
	name      string

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a worker.
func NewInMemoryWorker(q Queue, p Processor, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:     q,
		processor: p,
		name:      "worker",
		shutdown:  make(chan struct{}),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = logger.Get().Named("worker")
	}
	w.logger = w.logger.With(logger.String("worker", w.name))
	return w
}

// Run processes records until the queue is drained, ctx is cancelled or
// Shutdown is called.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	records := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case r, ok := <-records:
			if !ok {
				return
			}
			w.process(ctx, r)
		}
	}
}

// Done is closed once Run returns.
func (w *InMemoryWorker) Done() <-chan struct{} {
	return w.done
}

// Shutdown stops the worker after the record in hand.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	close(w.shutdown)
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

func (w *InMemoryWorker) process(ctx context.Context, r queue.Record) { //nolint:gocritic // hugeParam: records travel by value
	start := time.Now()
	defer func() {
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	if err := w.processor.Process(ctx, r); err != nil {
		metrics.RecordErrorByComponent("worker", "process")
		w.logger.Debug(ctx, "record not imported",
			logger.Int("line", r.Line),
			logger.String("player_id", r.Player.ID),
			logger.Error(err),
		)
	}
}

// Pool runs several workers over one queue.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue
	logger  logger.Logger
}

// NewPool creates workerCount workers; a count below 1 means one per CPU.
func NewPool(workerCount int, q Queue, p Processor, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}
	pool := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   q,
	}
	for i := range workerCount {
		pool.workers[i] = NewInMemoryWorker(q, p, append(opts, WithName("worker-"+strconv.Itoa(i)))...)
	}
	pool.logger = pool.workers[0].logger
	return pool
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Start launches every worker.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
	metrics.UpdateWorkerCount(len(p.workers))
}

// Wait blocks until every worker has returned, which happens once the queue
// is closed and drained.
func (p *Pool) Wait(ctx context.Context) error {
	defer metrics.UpdateWorkerCount(0)
	for _, w := range p.workers {
		select {
		case <-w.done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Shutdown closes the queue when it can be closed and stops every worker.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()
	for i, w := range p.workers {
		if err := w.Shutdown(shutdownCtx); err != nil {
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
		}
	}
	metrics.UpdateWorkerCount(0)
	return nil
}
