package worker_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	queue "github.com/okian/fantasycricket/internal/adapters/mq/queue"
	worker "github.com/okian/fantasycricket/internal/adapters/mq/worker"
	model "github.com/okian/fantasycricket/internal/domain/model"
	logging "github.com/okian/fantasycricket/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

type mockQueue struct {
	records chan queue.Record
}

func newMockQueue() *mockQueue {
	return &mockQueue{records: make(chan queue.Record, 100)}
}

func (mq *mockQueue) Dequeue(context.Context) <-chan queue.Record {
	return mq.records
}

func (mq *mockQueue) Close() error {
	close(mq.records)
	return nil
}

func (mq *mockQueue) add(line int) {
	mq.records <- queue.Record{Line: line, Player: model.Player{ID: fmt.Sprintf("p%d", line)}}
}

type mockProcessor struct {
	mu   sync.Mutex
	seen map[string]int
	fail map[string]error
}

func newMockProcessor() *mockProcessor {
	return &mockProcessor{seen: map[string]int{}, fail: map[string]error{}}
}

func (mp *mockProcessor) Process(_ context.Context, r queue.Record) error {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	if err, ok := mp.fail[r.Player.ID]; ok {
		return err
	}
	mp.seen[r.Player.ID] = r.Line
	return nil
}

func (mp *mockProcessor) failOn(id string, err error) {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	mp.fail[id] = err
}

func (mp *mockProcessor) count() int {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	return len(mp.seen)
}

func TestInMemoryWorker(t *testing.T) {
	log := logging.Nop()

	convey.Convey("Given a worker over a queue", t, func() {
		q := newMockQueue()
		p := newMockProcessor()
		w := worker.NewInMemoryWorker(q, p, worker.WithName("w1"), worker.WithLogger(log))
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go w.Run(ctx)

		convey.Convey("When records arrive and the queue closes", func() {
			q.add(1)
			q.add(2)
			p.failOn("p3", errors.New("bad row"))
			q.add(3)
			convey.So(q.Close(), convey.ShouldBeNil)

			convey.Convey("Then good records are processed and the worker exits", func() {
				select {
				case <-w.Done():
				case <-time.After(2 * time.Second):
					t.Fatal("worker did not exit")
				}
				convey.So(p.count(), convey.ShouldEqual, 2)
				convey.So(p.seen["p2"], convey.ShouldEqual, 2)
			})
		})

		convey.Convey("When it is shut down", func() {
			err := w.Shutdown(context.Background())

			convey.Convey("Then it stops cleanly", func() {
				convey.So(err, convey.ShouldBeNil)
			})
		})

		convey.Convey("When the context is cancelled", func() {
			cancel()

			convey.Convey("Then the worker stops", func() {
				select {
				case <-w.Done():
				case <-time.After(2 * time.Second):
					t.Fatal("worker did not stop")
				}
			})
		})
	})
}

func TestWorkerPool(t *testing.T) {
	log := logging.Nop()

	convey.Convey("Given a pool of four workers", t, func() {
		q := queue.NewInMemoryQueue(queue.WithCapacity(8))
		p := newMockProcessor()
		pool := worker.NewPool(4, q, p, worker.WithLogger(log))
		convey.So(pool.Size(), convey.ShouldEqual, 4)

		ctx := context.Background()
		pool.Start(ctx)

		convey.Convey("When more records than the queue holds are enqueued", func() {
			for i := range 100 {
				convey.So(q.Enqueue(ctx, queue.Record{Line: i + 1, Player: model.Player{ID: fmt.Sprintf("p%d", i)}}), convey.ShouldBeNil)
			}
			convey.So(q.Close(), convey.ShouldBeNil)

			convey.Convey("Then Wait returns after all of them are processed", func() {
				waitCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
				defer cancel()
				convey.So(pool.Wait(waitCtx), convey.ShouldBeNil)
				convey.So(p.count(), convey.ShouldEqual, 100)
			})
		})

		convey.Convey("When the pool is shut down", func() {
			convey.So(pool.Shutdown(ctx), convey.ShouldBeNil)

			convey.Convey("Then the queue refuses new records", func() {
				convey.So(q.TryEnqueue(ctx, queue.Record{}), convey.ShouldBeFalse)
			})
		})
	})

	convey.Convey("Given a non-positive worker count", t, func() {
		pool := worker.NewPool(0, newMockQueue(), newMockProcessor(), worker.WithLogger(log))

		convey.Convey("Then one worker per CPU is created", func() {
			convey.So(pool.Size(), convey.ShouldBeGreaterThan, 0)
		})
	})
}
