// Package repository persists rating snapshots behind a byte-level key-value
// capability with interchangeable backends.
package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/okian/rapport/internal/domain/model"
)

// KV is the byte-level get/set capability a backend provides.
type KV interface {
	// Get returns the value under key. ok is false when nothing is stored.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key string, value []byte) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	Close() error
}

// Store loads and saves snapshots per user key.
type Store interface {
	// Load returns the persisted snapshot. ok is false when none exists.
	Load(ctx context.Context, userKey string) (snap model.Snapshot, ok bool, err error)
	// Save persists snap. Failures are *StorageError.
	Save(ctx context.Context, userKey string, snap model.Snapshot) error
	// Reset clears the user's snapshot back to defaults.
	Reset(ctx context.Context, userKey string) error
	Close() error
}

// Keyer is implemented by stores that can name the storage key a user
// maps to. Users sharing a key share one snapshot.
type Keyer interface {
	Key(userKey string) string
}

// Backend names a KV implementation.
type Backend string

// Supported backends.
const (
	BackendMemory   Backend = "memory"
	BackendSQLite   Backend = "sqlite"
	BackendPostgres Backend = "postgres"
	BackendMySQL    Backend = "mysql"
	BackendRedis    Backend = "redis"
	BackendMongo    Backend = "mongo"
)

// Backends lists every supported backend.
func Backends() []Backend {
	return []Backend{BackendMemory, BackendSQLite, BackendPostgres, BackendMySQL, BackendRedis, BackendMongo}
}

// ParseBackend maps a config value to a Backend. "postgresql" and "mongodb"
// are accepted as aliases.
func ParseBackend(s string) (Backend, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "memory":
		return BackendMemory, nil
	case "sqlite", "sqlite3":
		return BackendSQLite, nil
	case "postgres", "postgresql":
		return BackendPostgres, nil
	case "mysql":
		return BackendMySQL, nil
	case "redis":
		return BackendRedis, nil
	case "mongo", "mongodb":
		return BackendMongo, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedBackend, s)
	}
}

// IsSQL reports whether the backend is schema-managed by Migrate.
func (b Backend) IsSQL() bool {
	return b == BackendSQLite || b == BackendPostgres || b == BackendMySQL
}

// Open connects to backend using dsn. SQL backends are migrated to the
// latest schema before use.
func Open(ctx context.Context, backend Backend, dsn string) (KV, error) {
	switch backend {
	case BackendMemory:
		return NewMemoryKV(), nil
	case BackendSQLite, BackendPostgres, BackendMySQL:
		if _, err := Migrate(ctx, backend, dsn, LatestVersion); err != nil {
			return nil, err
		}
		return OpenSQL(ctx, backend, dsn)
	case BackendRedis:
		return OpenRedis(ctx, dsn)
	case BackendMongo:
		return OpenMongo(ctx, dsn)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedBackend, backend)
	}
}
