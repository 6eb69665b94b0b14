package policy

import "errors"

// Sentinel kinds for policy errors.
var (
	ErrUnknownPolicy = errors.New("unknown update policy")
)
