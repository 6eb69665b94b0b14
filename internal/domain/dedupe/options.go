package dedupe

// Option configures NewInMemoryDeduper.
type Option func(*inMemoryDeduper)

// WithMaxSize bounds how many conversation IDs are remembered. Once full,
// recording a new ID forgets the oldest one. A size of zero or less
// remembers every ID for the life of the process.
func WithMaxSize(n int) Option {
	return func(d *inMemoryDeduper) {
		d.maxSize = n
	}
}
