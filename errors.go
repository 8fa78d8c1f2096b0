package matchauth

import (
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/matchauth/mfa"
)

// Kind classifies every failure an Engine operation can report.
type Kind int

const (
	KindNone Kind = iota
	KindInvalidCredentials
	KindInvalidRefreshToken
	KindRateLimited
	KindCaptchaRequired
	KindMFAChallengeRequired
	KindEmailUnverified
	KindInvalidMFA
	KindUnauthorized
	KindPersistence
	KindInternal
)

var kindNames = [...]string{
	KindNone:                 "none",
	KindInvalidCredentials:   "invalid_credentials",
	KindInvalidRefreshToken:  "invalid_refresh_token",
	KindRateLimited:          "rate_limited",
	KindCaptchaRequired:      "captcha_required",
	KindMFAChallengeRequired: "mfa_challenge_required",
	KindEmailUnverified:      "email_unverified",
	KindInvalidMFA:           "invalid_mfa",
	KindUnauthorized:         "unauthorized",
	KindPersistence:          "persistence",
	KindInternal:             "internal",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("kind(%d)", int(k))
	}
	return kindNames[k]
}

// Sentinels matched by errors.Is against an *Error of the same kind.
var (
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrInvalidRefreshToken  = errors.New("invalid refresh token")
	ErrRateLimited          = errors.New("too many requests")
	ErrCaptchaRequired      = errors.New("captcha required")
	ErrMFAChallengeRequired = errors.New("mfa challenge required")
	ErrEmailUnverified      = errors.New("email not verified")
	ErrInvalidMFA           = errors.New("invalid mfa response")
	ErrUnauthorized         = errors.New("unauthorized")
	ErrPersistence          = errors.New("persistence failure")
	ErrInternal             = errors.New("internal error")

	// ErrPrincipalNotFound is what a PrincipalStore reports for unknown usernames.
	ErrPrincipalNotFound = mfa.ErrPrincipalNotFound
)

var kindSentinels = map[Kind]error{
	KindInvalidCredentials:   ErrInvalidCredentials,
	KindInvalidRefreshToken:  ErrInvalidRefreshToken,
	KindRateLimited:          ErrRateLimited,
	KindCaptchaRequired:      ErrCaptchaRequired,
	KindMFAChallengeRequired: ErrMFAChallengeRequired,
	KindEmailUnverified:      ErrEmailUnverified,
	KindInvalidMFA:           ErrInvalidMFA,
	KindUnauthorized:         ErrUnauthorized,
	KindPersistence:          ErrPersistence,
	KindInternal:             ErrInternal,
}

// Error is the error type returned by Engine methods.
type Error struct {
	Kind Kind
	// RetryAfter is set for KindRateLimited and KindCaptchaRequired.
	RetryAfter time.Duration
	// Err is the underlying cause, for logs only.
	Err error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Kind.String() + ": " + e.Err.Error()
	}
	return e.Kind.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the sentinel of e's kind.
func (e *Error) Is(target error) bool {
	s, ok := kindSentinels[e.Kind]
	return ok && s == target
}

// KindOf returns the Kind carried by err, KindNone for nil and KindInternal for
// errors that did not come from an Engine.
func KindOf(err error) Kind {
	if err == nil {
		return KindNone
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// RetryAfterOf returns the retry hint carried by err, or zero.
func RetryAfterOf(err error) time.Duration {
	var e *Error
	if errors.As(err, &e) {
		return e.RetryAfter
	}
	return 0
}

func newError(kind Kind, cause error) *Error {
	return &Error{Kind: kind, Err: cause}
}
