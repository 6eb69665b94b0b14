package queue

import (
	"context"
	"errors"
	"hash/fnv"

	"github.com/okian/rapport/pkg/metrics"
)

// Partitioned spreads jobs over independent queues by user key. Every job
// for one user lands on the same partition, so a single consumer per
// partition sees that user's jobs in submission order.
type Partitioned struct {
	parts []*InMemoryQueue
	gauge *gauge
}

var _ Queue = (*Partitioned)(nil)

// NewPartitioned creates n partitions. WithCapacity sets the capacity of
// each partition.
func NewPartitioned(n int, opts ...Option) *Partitioned {
	if n < 1 {
		n = 1
	}

	probe := &InMemoryQueue{capacity: defaultQueueCapacity}
	for _, opt := range opts {
		opt(probe)
	}
	g := &gauge{capacity: n * probe.capacity}

	p := &Partitioned{parts: make([]*InMemoryQueue, n), gauge: g}
	for i := range p.parts {
		p.parts[i] = NewInMemoryQueue(append(opts, withGauge(g))...)
	}

	metrics.UpdateQueueCapacity(g.capacity)
	metrics.UpdateQueueSize(0)
	metrics.UpdateQueueUtilization(0.0)
	return p
}

// PartitionFor returns the partition index owning userKey.
func (p *Partitioned) PartitionFor(userKey string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(userKey))
	return int(h.Sum32() % uint32(len(p.parts)))
}

// Partitions returns the number of partitions.
func (p *Partitioned) Partitions() int { return len(p.parts) }

// Partition returns partition i.
func (p *Partitioned) Partition(i int) *InMemoryQueue { return p.parts[i] }

// Enqueue routes j to the partition owning j.PartitionKey, or j.UserKey
// when no partition key is set.
func (p *Partitioned) Enqueue(ctx context.Context, j Job) bool { //nolint:gocritic // hugeParam: Job must be passed by value for channel semantics
	key := j.PartitionKey
	if key == "" {
		key = j.UserKey
	}
	return p.parts[p.PartitionFor(key)].Enqueue(ctx, j)
}

// Len returns the number of jobs across partitions that are queued or
// still being applied.
func (p *Partitioned) Len() int {
	return int(p.gauge.size.Load())
}

// Capacity returns the combined capacity of all partitions.
func (p *Partitioned) Capacity() int { return p.gauge.capacity }

// Close closes every partition.
func (p *Partitioned) Close() error {
	var errs []error
	for _, q := range p.parts {
		errs = append(errs, q.Close())
	}
	return errors.Join(errs...)
}
