package loadtest

import "errors"

// Sentinel errors.
var (
	ErrInvalidConfig = errors.New("invalid load configuration")
	ErrUnhealthy     = errors.New("service is not healthy")
	ErrUnexpected    = errors.New("unexpected response")
)
