// Package dedupe tracks which conversations have already been folded into a
// rating, so a retried submission is applied at most once.
package dedupe

import (
	"context"
	"sync"
)

// Deduper records seen conversation IDs to ensure at-most-once processing.
type Deduper interface {
	// SeenAndRecord atomically checks if id was seen and records it if not.
	// Returns true if id was already seen, false if it was newly recorded.
	SeenAndRecord(ctx context.Context, id string) bool

	// Unrecord removes an ID from the seen list, allowing it to be retried.
	// Only for IDs recorded but never applied (e.g. queue backpressure or a
	// failed save).
	Unrecord(ctx context.Context, id string)

	Size() int64
}

// slot is one position of the eviction ring.
type slot struct {
	id  string
	seq uint64
}

// inMemoryDeduper keeps the most recent maxSize IDs and evicts the oldest
// first. maxSize <= 0 keeps everything.
type inMemoryDeduper struct {
	mu      sync.Mutex
	seen    map[string]uint64 // id -> seq of its live ring slot
	ring    []slot
	next    int // ring position of the next write
	seq     uint64
	maxSize int
}

// NewInMemoryDeduper creates a new in-memory deduper with configuration options.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{
		maxSize: 50000,
	}

	for _, opt := range opts {
		opt(d)
	}

	d.seen = make(map[string]uint64)
	if d.maxSize > 0 {
		d.ring = make([]slot, d.maxSize)
	}

	return d
}

// SeenAndRecord implements Deduper.
func (d *inMemoryDeduper) SeenAndRecord(_ context.Context, id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.seen[id]; exists {
		return true
	}

	d.seq++
	if d.maxSize > 0 {
		old := d.ring[d.next]
		// Stale slots belong to IDs that were unrecorded or recorded again.
		if seq, ok := d.seen[old.id]; ok && old.seq != 0 && seq == old.seq {
			delete(d.seen, old.id)
		}
		d.ring[d.next] = slot{id: id, seq: d.seq}
		d.next = (d.next + 1) % d.maxSize
	}
	d.seen[id] = d.seq
	return false
}

// Unrecord implements Deduper.
func (d *inMemoryDeduper) Unrecord(_ context.Context, id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.seen, id)
}

// Size returns the current number of entries in the deduper.
func (d *inMemoryDeduper) Size() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return int64(len(d.seen))
}
