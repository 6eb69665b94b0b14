package repository

import (
	"context"
	"time"

	"github.com/okian/rapport/internal/domain/model"
	"github.com/okian/rapport/pkg/logger"
	"github.com/okian/rapport/pkg/metrics"
)

// DefaultKeyPrefix namespaces snapshot keys inside a shared KV.
const DefaultKeyPrefix = "rating:"

// SnapshotStore implements Store over any KV.
type SnapshotStore struct {
	kv        KV
	prefix    string
	sharedKey string
	backend   string
	log       logger.Logger
}

var (
	_ Store = (*SnapshotStore)(nil)
	_ Keyer = (*SnapshotStore)(nil)
)

// NewSnapshotStore wraps kv.
func NewSnapshotStore(kv KV, opts ...Option) *SnapshotStore {
	s := &SnapshotStore{
		kv:      kv,
		prefix:  DefaultKeyPrefix,
		backend: "kv",
		log:     logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Key returns the storage key for userKey.
func (s *SnapshotStore) Key(userKey string) string {
	if s.sharedKey != "" {
		return s.sharedKey
	}
	return s.prefix + userKey
}

// Load implements Store.
func (s *SnapshotStore) Load(ctx context.Context, userKey string) (model.Snapshot, bool, error) {
	key, err := s.key("load", userKey)
	if err != nil {
		return model.Snapshot{}, false, err
	}

	start := time.Now()
	b, ok, err := s.kv.Get(ctx, key)
	s.observe("load", start, err)
	if err != nil {
		return model.Snapshot{}, false, &StorageError{Op: "load", Key: key, Err: err}
	}
	if !ok {
		return model.NewSnapshot(), false, nil
	}

	snap, err := decodeSnapshot(b)
	if err != nil {
		metrics.RecordStoreError(s.backend, "decode")
		return model.Snapshot{}, false, &StorageError{Op: "load", Key: key, Err: err}
	}
	return snap, true, nil
}

// Save implements Store.
func (s *SnapshotStore) Save(ctx context.Context, userKey string, snap model.Snapshot) error {
	key, err := s.key("save", userKey)
	if err != nil {
		return err
	}
	if err := snap.Check(); err != nil {
		return &StorageError{Op: "save", Key: key, Err: err}
	}

	b, err := encodeSnapshot(snap)
	if err != nil {
		return &StorageError{Op: "save", Key: key, Err: err}
	}

	start := time.Now()
	err = s.kv.Set(ctx, key, b)
	s.observe("save", start, err)
	if err != nil {
		return &StorageError{Op: "save", Key: key, Err: err}
	}
	return nil
}

// Reset implements Store. With a shared key it clears every user.
func (s *SnapshotStore) Reset(ctx context.Context, userKey string) error {
	key, err := s.key("reset", userKey)
	if err != nil {
		return err
	}

	start := time.Now()
	err = s.kv.Delete(ctx, key)
	s.observe("reset", start, err)
	if err != nil {
		return &StorageError{Op: "reset", Key: key, Err: err}
	}
	return nil
}

// Close closes the underlying KV.
func (s *SnapshotStore) Close() error {
	return s.kv.Close()
}

func (s *SnapshotStore) key(op, userKey string) (string, error) {
	if userKey == "" && s.sharedKey == "" {
		return "", &StorageError{Op: op, Err: ErrEmptyKey}
	}
	return s.Key(userKey), nil
}

func (s *SnapshotStore) observe(op string, start time.Time, err error) {
	metrics.RecordStoreOperation(s.backend, op, float64(time.Since(start).Microseconds())/1000)
	if err != nil {
		metrics.RecordStoreError(s.backend, op)
		s.log.Warn(context.Background(), "store operation failed",
			logger.String("backend", s.backend),
			logger.String("op", op),
			logger.Error(err),
		)
	}
}
