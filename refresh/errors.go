package refresh

import "errors"

var (
	// ErrInvalidRefreshToken covers every rejected refresh credential.
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	// ErrPersistence wraps storage failures while creating or rotating tokens.
	ErrPersistence = errors.New("refresh token persistence failure")
)

// Errors a Store reports to the manager.
var (
	ErrRecordNotFound   = errors.New("refresh token record not found")
	ErrRotationConflict = errors.New("refresh token already revoked")
)
