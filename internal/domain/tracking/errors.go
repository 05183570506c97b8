package tracking

import "errors"

// ErrLineTooLong is the reason reported for lines above the configured limit.
var ErrLineTooLong = errors.New("line exceeds maximum length")

// ErrUnknownPolicy is returned by ParsePolicy for unsupported names.
var ErrUnknownPolicy = errors.New("unknown malformed-line policy")
