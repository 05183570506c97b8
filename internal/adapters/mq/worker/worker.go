package worker

import (
	"context"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/sourcegraph/conc"

	"github.com/okian/pitchlens/pkg/logger"
	"github.com/okian/pitchlens/pkg/metrics"
)

// Queue defines how workers receive items.
type Queue[T any] interface {
	Dequeue(ctx context.Context) <-chan T
}

// Handler processes one item. A non-nil error stops the whole pool.
type Handler[T any] func(ctx context.Context, item T) error

// InMemoryWorker drains a queue through a handler.
type InMemoryWorker[T any] struct {
	queue  Queue[T]
	handle Handler[T]
	name   string
	gate   <-chan struct{}

	processed atomic.Int64

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker[T any](q Queue[T], h Handler[T], opts ...Option) *InMemoryWorker[T] {
	cfg := config{name: "worker", logger: logger.Nop()}
	for _, opt := range opts {
		opt(&cfg)
	}

	return &InMemoryWorker[T]{
		queue:  q,
		handle: h,
		name:   cfg.name,
		gate:   cfg.gate,
		logger: cfg.logger.Named(cfg.name),
	}
}

// Run processes items until the queue is drained, ctx ends or the handler
// fails.
func (w *InMemoryWorker[T]) Run(ctx context.Context) error {
	if w.gate != nil {
		select {
		case <-w.gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	items := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case item, ok := <-items:
			if !ok {
				return nil
			}
			if err := w.process(ctx, item); err != nil {
				return err
			}
		}
	}
}

// Processed returns how many items this worker handled successfully.
func (w *InMemoryWorker[T]) Processed() int64 {
	return w.processed.Load()
}

func (w *InMemoryWorker[T]) process(ctx context.Context, item T) error {
	start := time.Now()
	defer func() {
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Milliseconds()))
	}()

	if err := w.handle(ctx, item); err != nil {
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "handler_error")
		w.logger.Error(ctx, "handler failed", logger.Error(err))
		return errors.Wrapf(err, "%s", w.name)
	}
	w.processed.Add(1)
	return nil
}

// Pool supervises a fixed set of workers sharing one queue.
type Pool[T any] struct {
	workers []*InMemoryWorker[T]
	wg      conc.WaitGroup
	cancel  context.CancelFunc

	errOnce sync.Once
	err     error

	logger logger.Logger
}

// NewPool creates a new worker pool. A non-positive workerCount uses one
// worker per CPU.
func NewPool[T any](workerCount int, q Queue[T], h Handler[T], opts ...Option) *Pool[T] {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}

	cfg := config{logger: logger.Nop()}
	for _, opt := range opts {
		opt(&cfg)
	}

	p := &Pool[T]{
		workers: make([]*InMemoryWorker[T], workerCount),
		logger:  cfg.logger.Named("worker-pool"),
	}
	for i := range p.workers {
		p.workers[i] = NewInMemoryWorker(q, h,
			append(opts[:len(opts):len(opts)], WithName("worker-"+strconv.Itoa(i)))...,
		)
	}

	metrics.UpdateWorkerCount(workerCount)
	return p
}

// Start launches every worker. The first handler error cancels the others.
func (p *Pool[T]) Start(ctx context.Context) {
	ctx, p.cancel = context.WithCancel(ctx)
	for _, w := range p.workers {
		p.wg.Go(func() {
			if err := w.Run(ctx); err != nil {
				p.fail(err)
				p.cancel()
			}
		})
	}
}

func (p *Pool[T]) fail(err error) {
	p.errOnce.Do(func() { p.err = err })
}

// Wait blocks until every worker has exited and returns the first failure.
// A panicking handler is reported as an error.
func (p *Pool[T]) Wait() error {
	recovered := p.wg.WaitAndRecover()
	if p.cancel != nil {
		p.cancel()
	}
	metrics.UpdateWorkerCount(0)
	if recovered != nil {
		p.logger.Error(context.Background(), "worker panicked", logger.String("value", recovered.String()))
		return errors.Wrap(recovered.AsError(), "worker panic")
	}
	return p.err
}

// Processed returns the number of items handled across all workers.
func (p *Pool[T]) Processed() int64 {
	var n int64
	for _, w := range p.workers {
		n += w.Processed()
	}
	return n
}

// Size returns the number of workers in the pool.
func (p *Pool[T]) Size() int {
	return len(p.workers)
}
