package internalerr

import "errors"

// Sentinel errors for configuration and capability failures. Per-item
// failures are never reported through these.
var (
	ErrInvalidConfig         = errors.New("invalid configuration")
	ErrUnknownStrategy       = errors.New("unknown strategy")
	ErrUnknownPolicy         = errors.New("unknown grouping policy")
	ErrUnsupportedFormat     = errors.New("unsupported file name/extension")
	ErrCapabilityUnavailable = errors.New("capability unavailable")
	ErrEmptyInput            = errors.New("empty input")
)
