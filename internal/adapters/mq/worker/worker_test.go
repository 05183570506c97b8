package worker_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"
	"go.uber.org/goleak"

	"github.com/okian/pitchlens/internal/adapters/mq/queue"
	"github.com/okian/pitchlens/internal/adapters/mq/worker"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// sliceQueue hands out a fixed set of items and then closes.
type sliceQueue struct {
	ch chan int
}

func newSliceQueue(items ...int) *sliceQueue {
	ch := make(chan int, len(items))
	for _, it := range items {
		ch <- it
	}
	close(ch)
	return &sliceQueue{ch: ch}
}

func (q *sliceQueue) Dequeue(context.Context) <-chan int { return q.ch }

func TestInMemoryWorker(t *testing.T) {
	convey.Convey("Given a worker over a finite queue", t, func() {
		var sum atomic.Int64
		w := worker.NewInMemoryWorker[int](newSliceQueue(1, 2, 3, 4), func(_ context.Context, v int) error {
			sum.Add(int64(v))
			return nil
		}, worker.WithName("joiner"))

		convey.Convey("When it runs to completion", func() {
			err := w.Run(context.Background())

			convey.Convey("Then every item is handled", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(sum.Load(), convey.ShouldEqual, 10)
				convey.So(w.Processed(), convey.ShouldEqual, 4)
			})
		})
	})

	convey.Convey("Given a worker whose handler fails", t, func() {
		boom := errors.New("boom")
		w := worker.NewInMemoryWorker[int](newSliceQueue(1, 2, 3), func(_ context.Context, v int) error {
			if v == 2 {
				return boom
			}
			return nil
		})

		convey.Convey("Then Run stops with the handler error", func() {
			err := w.Run(context.Background())
			convey.So(errors.Is(err, boom), convey.ShouldBeTrue)
			convey.So(w.Processed(), convey.ShouldEqual, 1)
		})
	})

	convey.Convey("Given a gated worker", t, func() {
		gate := make(chan struct{})
		var handled atomic.Int64
		w := worker.NewInMemoryWorker[int](newSliceQueue(1), func(context.Context, int) error {
			handled.Add(1)
			return nil
		}, worker.WithGate(gate))

		convey.Convey("When the context ends before the gate opens", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
			defer cancel()
			err := w.Run(ctx)

			convey.Convey("Then nothing is processed", func() {
				convey.So(errors.Is(err, context.DeadlineExceeded), convey.ShouldBeTrue)
				convey.So(handled.Load(), convey.ShouldEqual, 0)
			})
		})

		convey.Convey("When the gate opens", func() {
			close(gate)
			convey.So(w.Run(context.Background()), convey.ShouldBeNil)
			convey.So(handled.Load(), convey.ShouldEqual, 1)
		})
	})
}

func TestWorkerPool(t *testing.T) {
	convey.Convey("Given a pool draining a real queue", t, func() {
		q := queue.NewInMemoryQueue[int](queue.WithCapacity(8))
		gate := make(chan struct{})
		var sum atomic.Int64
		p := worker.NewPool[int](4, q, func(_ context.Context, v int) error {
			sum.Add(int64(v))
			return nil
		}, worker.WithGate(gate))

		ctx := context.Background()
		p.Start(ctx)

		convey.Convey("When items are produced before the gate opens", func() {
			produced := make(chan error, 1)
			go func() {
				for i := 1; i <= 100; i++ {
					if err := q.Put(ctx, i); err != nil {
						produced <- err
						return
					}
				}
				produced <- q.Close()
			}()

			time.Sleep(20 * time.Millisecond)
			convey.So(sum.Load(), convey.ShouldEqual, 0)
			close(gate)

			convey.So(<-produced, convey.ShouldBeNil)
			convey.So(p.Wait(), convey.ShouldBeNil)

			convey.Convey("Then every item is handled exactly once", func() {
				convey.So(sum.Load(), convey.ShouldEqual, 5050)
				convey.So(p.Processed(), convey.ShouldEqual, 100)
				convey.So(p.Size(), convey.ShouldEqual, 4)
			})
		})
	})

	convey.Convey("Given a pool whose handler fails", t, func() {
		q := queue.NewInMemoryQueue[int](queue.WithCapacity(4))
		boom := errors.New("bad batch")
		p := worker.NewPool[int](2, q, func(_ context.Context, v int) error {
			if v == 3 {
				return boom
			}
			return nil
		})
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		p.Start(ctx)

		for i := 1; i <= 4; i++ {
			_ = q.Put(ctx, i)
		}

		convey.Convey("Then Wait reports the failure and the other workers stop", func() {
			err := p.Wait()
			convey.So(errors.Is(err, boom), convey.ShouldBeTrue)
			_ = q.Close()
		})
	})

	convey.Convey("Given a pool whose handler panics", t, func() {
		p := worker.NewPool[int](1, newSliceQueue(1), func(context.Context, int) error {
			panic("kaboom")
		})
		p.Start(context.Background())

		convey.Convey("Then the panic is returned as an error", func() {
			err := p.Wait()
			convey.So(err, convey.ShouldNotBeNil)
			convey.So(err.Error(), convey.ShouldContainSubstring, "kaboom")
		})
	})
}

func TestWorkerOptions(t *testing.T) {
	convey.Convey("Given a non-positive worker count", t, func() {
		p := worker.NewPool[int](0, newSliceQueue(), func(context.Context, int) error { return nil })

		convey.Convey("Then one worker per CPU is used", func() {
			convey.So(p.Size(), convey.ShouldBeGreaterThan, 0)
		})
	})
}
