package config

import "errors"

var (
	// ErrInvalidConfig wraps every failed Validate check.
	ErrInvalidConfig = errors.New("invalid config")
	// ErrLoadConfig wraps failures reading the file or the environment.
	ErrLoadConfig = errors.New("load config failed")
	// ErrResolve wraps failures turning a validated name into a policy,
	// preset or backend.
	ErrResolve = errors.New("resolve config")
)
