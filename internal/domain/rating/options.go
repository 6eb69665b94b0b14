package rating

import (
	"time"

	"github.com/okian/rapport/pkg/logger"
)

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithClock sets the time source stamped into LastUpdated.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}
