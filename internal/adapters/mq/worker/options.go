package worker

import (
	"sync/atomic"

	"github.com/okian/rapport/pkg/logger"
)

// Option applies a configuration option to the InMemoryWorker.
type Option func(*InMemoryWorker)

// WithName sets the worker name for identification and logging.
func WithName(name string) Option {
	return func(w *InMemoryWorker) {
		if name != "" {
			w.name = name
		}
	}
}

// WithLogger sets a custom logger for the worker.
func WithLogger(logger logger.Logger) Option {
	return func(w *InMemoryWorker) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// withActiveCounter shares the busy-worker count across a pool.
func withActiveCounter(c *atomic.Int64) Option {
	return func(w *InMemoryWorker) {
		w.active = c
	}
}
