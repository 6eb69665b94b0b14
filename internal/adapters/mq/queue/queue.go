// Package queue holds rating update jobs between submission and the worker
// that applies them.
package queue

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/rapport/internal/domain/model"
	"github.com/okian/rapport/pkg/metrics"
)

// Default queue configuration constants.
const (
	defaultQueueCapacity = 10000
)

// Result is what a worker reports back for one job.
type Result struct {
	Snapshot model.Snapshot
	Err      error
}

// Job is one score record waiting to be folded into a user's snapshot, or
// a reset of that snapshot when Reset is set.
type Job struct {
	UserKey string
	// PartitionKey overrides UserKey for routing. Jobs that touch the same
	// stored snapshot must carry the same PartitionKey.
	PartitionKey string
	Record       model.ScoreRecord
	Reset        bool
	RequestID    string
	EnqueuedAt   time.Time
	// Reply receives exactly one Result. It should be buffered so a worker
	// never blocks on a submitter that stopped waiting.
	Reply chan<- Result
}

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds a job to the queue.
	// Returns false if the queue is full or closed.
	Enqueue(ctx context.Context, j Job) bool

	// Len returns the current number of queued jobs.
	Len() int

	// Close gracefully shuts down the queue.
	// After closing, no new jobs can be enqueued and consumers drain what is left.
	Close() error
}

// gauge tracks queued jobs across one or more queues for the size metrics.
type gauge struct {
	size     atomic.Int64
	capacity int
}

func (g *gauge) add(delta int64) {
	size := g.size.Add(delta)
	metrics.UpdateQueueSize(int(size))
	if g.capacity > 0 {
		metrics.UpdateQueueUtilization(float64(size) / float64(g.capacity))
	}
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	jobs     chan Job
	capacity int
	gauge    *gauge

	mu     sync.RWMutex
	closed bool
}

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{
		capacity: defaultQueueCapacity,
	}

	for _, opt := range opts {
		opt(q)
	}

	q.jobs = make(chan Job, q.capacity)
	if q.gauge == nil {
		q.gauge = &gauge{capacity: q.capacity}
		metrics.UpdateQueueCapacity(q.capacity)
		metrics.UpdateQueueSize(0)
		metrics.UpdateQueueUtilization(0.0)
	}

	return q
}

// Enqueue adds a job to the queue.
func (q *InMemoryQueue) Enqueue(ctx context.Context, j Job) bool { //nolint:gocritic // hugeParam: Job must be passed by value for channel semantics
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordQueueEnqueueError()
		return false
	}

	if j.EnqueuedAt.IsZero() {
		j.EnqueuedAt = time.Now()
	}

	select {
	case <-ctx.Done():
		metrics.RecordQueueEnqueueError()
		return false
	default:
	}

	select {
	case q.jobs <- j:
		metrics.RecordQueueEnqueue()
		q.gauge.add(1)
		return true
	default:
		metrics.RecordQueueEnqueueError()
		return false // queue is full
	}
}

// Dequeue returns the channel jobs are delivered on. It is closed after
// Close once every queued job has been received.
func (q *InMemoryQueue) Dequeue() <-chan Job {
	return q.jobs
}

// Done must be called once for every job received from Dequeue.
func (q *InMemoryQueue) Done(j Job) { //nolint:gocritic // hugeParam: mirrors Enqueue
	metrics.RecordQueueDequeue()
	metrics.RecordQueueProcessingLatency(float64(time.Since(j.EnqueuedAt).Microseconds()) / 1000)
	q.gauge.add(-1)
}

// Len returns the current number of queued jobs.
func (q *InMemoryQueue) Len() int {
	return len(q.jobs)
}

// Capacity returns the maximum number of queued jobs.
func (q *InMemoryQueue) Capacity() int {
	return q.capacity
}

// Close gracefully shuts down the queue.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil // already closed
	}

	close(q.jobs)
	q.closed = true

	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
