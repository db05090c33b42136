// Package importer loads seed players from CSV through the worker pool.
//
// Every record is valued exactly once on the way in and stored with the seed
// flag, so its price is locked before anyone can buy it.
package importer

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"sync"
	"time"

	"github.com/okian/fantasycricket/internal/adapters/mq/queue"
	"github.com/okian/fantasycricket/internal/adapters/mq/worker"
	"github.com/okian/fantasycricket/internal/domain/model"
	"github.com/okian/fantasycricket/internal/domain/valuation"
	"github.com/okian/fantasycricket/pkg/logger"
	"github.com/okian/fantasycricket/pkg/metrics"
)

// Store is where imported players go.
type Store interface {
	// CreatePlayer must fail with a model.ErrConflict kind for a taken id.
	CreatePlayer(ctx context.Context, p model.Player) error
}

// Valuer prices a player and names the rule used.
type Valuer interface {
	Quote(p model.Player) valuation.Quote
}

// Report summarizes one import.
type Report struct {
	Imported int        `json:"imported"`
	Skipped  int        `json:"skipped"`
	Failed   []RowError `json:"failed"`
}

// Importer runs imports. It is safe for concurrent use.
type Importer struct {
	store     Store
	valuer    Valuer
	workers   int
	queueSize int
	log       logger.Logger
	now       func() time.Time
}

// Option configures an Importer.
type Option func(*Importer)

// WithWorkers sets the worker pool size.
func WithWorkers(n int) Option {
	return func(im *Importer) {
		if n > 0 {
			im.workers = n
		}
	}
}

// WithQueueSize bounds the records buffered between reader and workers.
func WithQueueSize(n int) Option {
	return func(im *Importer) {
		if n > 0 {
			im.queueSize = n
		}
	}
}

// WithLogger sets the importer logger.
func WithLogger(l logger.Logger) Option {
	return func(im *Importer) {
		if l != nil {
			im.log = l
		}
	}
}

// New builds an Importer.
func New(store Store, valuer Valuer, opts ...Option) *Importer {
	im := &Importer{
		store:     store,
		valuer:    valuer,
		queueSize: 1024,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(im)
	}
	if im.log == nil {
		im.log = logger.Get().Named("importer")
	}
	return im
}

// ImportFile imports the CSV at path.
func (im *Importer) ImportFile(ctx context.Context, path string) (Report, error) {
	f, err := os.Open(path)
	if err != nil {
		return Report{}, fmt.Errorf("%w: %w", ErrOpen, err)
	}
	defer f.Close()
	return im.Import(ctx, f)
}

// Import reads r and stores every valid row. Rows whose id already exists
// are skipped; malformed rows are listed in the report by line.
func (im *Importer) Import(ctx context.Context, r io.Reader) (Report, error) {
	start := time.Now()
	c := &collector{}
	q := queue.NewInMemoryQueue(queue.WithCapacity(im.queueSize))
	pool := worker.NewPool(im.workers, q, &processor{im: im, c: c}, worker.WithLogger(im.log))
	pool.Start(ctx)

	var readErr error
	for rec, err := range Records(r, im.now().UTC()) {
		var rowErr *RowError
		if errors.As(err, &rowErr) {
			c.fail(*rowErr)
			metrics.RecordImport("malformed")
			continue
		}
		if err != nil {
			readErr = err
			break
		}
		if err := q.Enqueue(ctx, rec); err != nil {
			readErr = err
			break
		}
	}

	_ = q.Close()
	if err := pool.Wait(ctx); err != nil && readErr == nil {
		readErr = err
	}

	rep := c.report()
	im.log.Info(ctx, "import finished",
		logger.Int("imported", rep.Imported),
		logger.Int("skipped", rep.Skipped),
		logger.Int("failed", len(rep.Failed)),
		logger.Int("workers", pool.Size()),
		logger.Int64("elapsed_ms", time.Since(start).Milliseconds()),
	)
	if readErr != nil {
		return rep, fmt.Errorf("import: %w", readErr)
	}
	return rep, nil
}

type processor struct {
	im *Importer
	c  *collector
}

func (p *processor) Process(ctx context.Context, r queue.Record) error { //nolint:gocritic // hugeParam: records travel by value
	player := r.Player
	player.Seed = true
	quote := p.im.valuer.Quote(player)
	player.Value = quote.Value
	metrics.RecordValuation(string(quote.Source))

	err := p.im.store.CreatePlayer(ctx, player)
	switch {
	case err == nil:
		p.c.imported()
		metrics.RecordImport("imported")
		return nil
	case errors.Is(err, model.ErrConflict):
		p.c.skipped()
		metrics.RecordImport("skipped")
		return nil
	default:
		p.c.fail(RowError{Line: r.Line, Msg: err.Error()})
		metrics.RecordImport("failed")
		return err
	}
}

type collector struct {
	mu  sync.Mutex
	rep Report
}

func (c *collector) imported() {
	c.mu.Lock()
	c.rep.Imported++
	c.mu.Unlock()
}

func (c *collector) skipped() {
	c.mu.Lock()
	c.rep.Skipped++
	c.mu.Unlock()
}

func (c *collector) fail(e RowError) {
	c.mu.Lock()
	c.rep.Failed = append(c.rep.Failed, e)
	c.mu.Unlock()
}

func (c *collector) report() Report {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.rep
	out.Failed = slices.Clone(c.rep.Failed)
	slices.SortFunc(out.Failed, func(a, b RowError) int { return cmp.Compare(a.Line, b.Line) })
	if out.Failed == nil {
		out.Failed = []RowError{}
	}
	return out
}
