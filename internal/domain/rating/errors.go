package rating

import "errors"

// Sentinel kinds for engine errors.
var (
	ErrEmptyUserKey = errors.New("empty user key")
)
