package repository

import "github.com/okian/rapport/pkg/logger"

// Option applies a configuration option to the SnapshotStore.
type Option func(*SnapshotStore)

// WithKeyPrefix sets the namespace prepended to user keys.
func WithKeyPrefix(prefix string) Option {
	return func(s *SnapshotStore) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

// WithSharedKey stores every user under one fixed key, the layout of
// single-installation deployments. An empty key keeps per-user keys.
func WithSharedKey(key string) Option {
	return func(s *SnapshotStore) {
		s.sharedKey = key
	}
}

// WithBackendLabel names the backend in metrics and logs.
func WithBackendLabel(name string) Option {
	return func(s *SnapshotStore) {
		if name != "" {
			s.backend = name
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(s *SnapshotStore) {
		if l != nil {
			s.log = l
		}
	}
}
