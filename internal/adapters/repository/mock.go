package repository

import (
	"context"

	"github.com/okian/rapport/internal/domain/model"
	"github.com/stretchr/testify/mock"
)

// MockKV is a mock implementation of KV for testing.
type MockKV struct {
	mock.Mock
}

var _ KV = &MockKV{} // Compile-time check

// Get implements the KV interface.
func (m *MockKV) Get(ctx context.Context, key string) ([]byte, bool, error) {
	args := m.Called(ctx, key)
	b, _ := args.Get(0).([]byte)
	return b, args.Bool(1), args.Error(2)
}

// Set implements the KV interface.
func (m *MockKV) Set(ctx context.Context, key string, value []byte) error {
	args := m.Called(ctx, key, value)
	return args.Error(0)
}

// Delete implements the KV interface.
func (m *MockKV) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

// Close implements the KV interface.
func (m *MockKV) Close() error {
	args := m.Called()
	return args.Error(0)
}

// MockStore is a mock implementation of Store for testing.
type MockStore struct {
	mock.Mock
}

var _ Store = &MockStore{} // Compile-time check

// Load implements the Store interface.
func (m *MockStore) Load(ctx context.Context, userKey string) (model.Snapshot, bool, error) {
	args := m.Called(ctx, userKey)
	snap, _ := args.Get(0).(model.Snapshot)
	return snap, args.Bool(1), args.Error(2)
}

// Save implements the Store interface.
func (m *MockStore) Save(ctx context.Context, userKey string, snap model.Snapshot) error {
	args := m.Called(ctx, userKey, snap)
	return args.Error(0)
}

// Reset implements the Store interface.
func (m *MockStore) Reset(ctx context.Context, userKey string) error {
	args := m.Called(ctx, userKey)
	return args.Error(0)
}

// Close implements the Store interface.
func (m *MockStore) Close() error {
	args := m.Called()
	return args.Error(0)
}
