package queue

// Option applies a configuration option to the InMemoryQueue.
type Option func(*InMemoryQueue)

// WithCapacity sets the maximum capacity of the queue.
func WithCapacity(capacity int) Option {
	return func(q *InMemoryQueue) {
		if capacity > 0 {
			q.capacity = capacity
		}
	}
}

// withGauge shares one size gauge between the partitions of a Partitioned.
func withGauge(g *gauge) Option {
	return func(q *InMemoryQueue) {
		q.gauge = g
	}
}
