package tier

import "errors"

// Sentinel kinds for tier errors.
var (
	ErrUnknownPreset = errors.New("unknown tier preset")
)
