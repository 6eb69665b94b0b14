package repository

import (
	"errors"
	"fmt"
)

// Sentinel kinds for repository errors.
var (
	ErrStorage            = errors.New("storage error")
	ErrCorrupt            = errors.New("corrupted snapshot")
	ErrUnsupportedBackend = errors.New("unsupported store backend")
	ErrClosed             = errors.New("store closed")
	ErrEmptyKey           = errors.New("empty user key")
)

// StorageError reports a failed load, save or reset.
type StorageError struct {
	Op  string
	Key string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s %q: %v", e.Op, e.Key, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// Is makes every StorageError match ErrStorage.
func (e *StorageError) Is(target error) bool { return target == ErrStorage }
