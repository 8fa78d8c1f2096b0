package store

import "errors"

// Sentinel errors returned by repositories. Domain "not found" errors come from the
// packages that define the repository interfaces (mfa, refresh, device).
var (
	// ErrPrincipalExists is returned by CreatePrincipal for a duplicate username.
	ErrPrincipalExists = errors.New("principal already exists")
)

// Low-level database operation errors.
var (
	ErrBuildingSQLQuery      = errors.New("error building sql query")
	ErrBeginningTransaction  = errors.New("failed to begin transaction")
	ErrCommittingTransaction = errors.New("failed to commit transaction")
	ErrExecutingStatement    = errors.New("failed to execute statement")
)
