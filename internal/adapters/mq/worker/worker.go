// Package worker applies queued rating updates. Each worker owns one queue
// partition, which makes it the single writer for every user routed there.
package worker

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/rapport/internal/adapters/mq/queue"
	"github.com/okian/rapport/internal/domain/model"
	"github.com/okian/rapport/pkg/logger"
	"github.com/okian/rapport/pkg/metrics"
)

// Default worker configuration constants.
const (
	poolShutdownTimeout = 30 * time.Second
)

// Applier folds a score record into a user's snapshot.
type Applier interface {
	Update(ctx context.Context, userKey string, rec model.ScoreRecord) (model.Snapshot, error)
	Reset(ctx context.Context, userKey string) error
}

// Source is the partition a worker consumes.
type Source interface {
	Dequeue() <-chan queue.Job
	Done(j queue.Job)
}

// Worker processes jobs until its source is closed and drained.
type Worker interface {
	// Run starts the worker loop until ctx is canceled or the source closes.
	Run(ctx context.Context)

	// Shutdown waits for the worker loop to exit.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker for one queue partition.
type InMemoryWorker struct {
	source  Source
	applier Applier
	name    string
	active  *atomic.Int64

	done chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(source Source, applier Applier, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		source:  source,
		applier: applier,
		name:    "worker",
		active:  &atomic.Int64{},
		done:    make(chan struct{}),
		logger:  logger.Nop(),
	}

	for _, opt := range opts {
		opt(w)
	}

	w.logger = w.logger.Named(w.name)

	return w
}

// Run starts the worker loop. Jobs already queued when the source closes
// are still applied.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	jobs := w.source.Dequeue()
	for {
		select {
		case <-ctx.Done():
			return
		case j, ok := <-jobs:
			if !ok {
				return
			}
			w.process(ctx, j)
		}
	}
}

// Shutdown waits for the worker loop to exit. Close the source first.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// process applies one job and replies to the submitter.
func (w *InMemoryWorker) process(ctx context.Context, j queue.Job) { //nolint:gocritic // hugeParam: Job must be passed by value for channel semantics
	defer w.source.Done(j)

	metrics.UpdateWorkerActiveCount(int(w.active.Add(1)))
	start := time.Now()
	defer func() {
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Microseconds()) / 1000)
		metrics.UpdateWorkerActiveCount(int(w.active.Add(-1)))
	}()

	snap, err := w.apply(ctx, j)
	if err != nil {
		metrics.RecordWorkerError()
		w.logger.Debug(ctx, "update failed",
			logger.String("user", j.UserKey),
			logger.String("request_id", j.RequestID),
			logger.Error(err),
		)
	}

	if j.Reply == nil {
		return
	}
	select {
	case j.Reply <- queue.Result{Snapshot: snap, Err: err}:
	default:
		w.logger.Warn(ctx, "reply dropped, submitter is gone",
			logger.String("user", j.UserKey),
			logger.String("request_id", j.RequestID),
		)
	}
}

func (w *InMemoryWorker) apply(ctx context.Context, j queue.Job) (model.Snapshot, error) { //nolint:gocritic // hugeParam
	if j.Reset {
		if err := w.applier.Reset(ctx, j.UserKey); err != nil {
			return model.Snapshot{}, err
		}
		return model.NewSnapshot(), nil
	}
	return w.applier.Update(ctx, j.UserKey, j.Record)
}

// Pool runs one worker per partition of a partitioned queue.
type Pool struct {
	workers []*InMemoryWorker
	queue   *queue.Partitioned
	active  atomic.Int64

	stopOnce sync.Once
	logger   logger.Logger
}

// NewPool creates a worker for every partition of q. A nil log discards
// output.
func NewPool(q *queue.Partitioned, applier Applier, log logger.Logger) *Pool {
	if log == nil {
		log = logger.Nop()
	}
	pool := &Pool{
		workers: make([]*InMemoryWorker, q.Partitions()),
		queue:   q,
		logger:  log.Named("worker-pool"),
	}

	for i := range pool.workers {
		pool.workers[i] = NewInMemoryWorker(q.Partition(i), applier,
			WithName("worker-"+strconv.Itoa(i)),
			WithLogger(log),
			withActiveCounter(&pool.active),
		)
	}

	metrics.UpdateWorkerCount(len(pool.workers))
	metrics.UpdateWorkerActiveCount(0)

	return pool
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
	p.logger.Info(ctx, "worker pool started", logger.Int("workers", len(p.workers)))
}

// Shutdown closes the queue and waits for workers to drain it.
func (p *Pool) Shutdown(ctx context.Context) error {
	var err error
	p.stopOnce.Do(func() {
		if cerr := p.queue.Close(); cerr != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(cerr))
		}

		shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
		defer cancel()

		for i, w := range p.workers {
			if werr := w.Shutdown(shutdownCtx); werr != nil {
				p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
				err = werr
			}
		}
	})
	return err
}
