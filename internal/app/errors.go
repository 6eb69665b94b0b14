package service

import "errors"

var (
	// ErrBackpressure is returned when the update queue is full.
	ErrBackpressure = errors.New("update queue full")
	// ErrNotStarted is returned by operations that need running workers.
	ErrNotStarted = errors.New("service not started")
	// ErrNoEngine is returned by Start when the service has no engine.
	ErrNoEngine = errors.New("service has no rating engine")
)
