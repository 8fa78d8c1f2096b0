package mfa

import "errors"

var (
	// ErrPrincipalNotFound is reported by stores for unknown usernames.
	ErrPrincipalNotFound = errors.New("principal not found")
	// ErrNotEnrolled is returned when an operation needs a TOTP secret that does not exist.
	ErrNotEnrolled = errors.New("mfa not enrolled")
	// ErrInvalidCode is returned by Confirm for a wrong TOTP code.
	ErrInvalidCode = errors.New("invalid mfa code")
)
