package rate

import "errors"

var (
	// ErrRateLimited is returned when a counter is above its limit.
	ErrRateLimited = errors.New("rate limited")
	// ErrBackendUnavailable wraps errors reported by a counter backend.
	ErrBackendUnavailable = errors.New("rate limit backend unavailable")
)
