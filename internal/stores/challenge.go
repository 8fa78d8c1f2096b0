package stores

import (
	"context"
	"errors"
	"time"
)

var (
	ErrChallengeNotFound = errors.New("mfa challenge not found")
	ErrChallengeExpired  = errors.New("mfa challenge expired")
	ErrChallengeBackend  = errors.New("mfa challenge backend unavailable")
)

// Challenge is a pending second-factor step of a login.
type Challenge struct {
	Username string
	DeviceID string
	// Setup marks a challenge issued to a principal who must enroll TOTP first.
	Setup bool
	// ExpiresAt is Unix milliseconds.
	ExpiresAt int64
	Attempts  uint16
}

func (c *Challenge) expired(now time.Time) bool {
	return now.UnixMilli() >= c.ExpiresAt
}

// ChallengeStore persists challenges by id.
type ChallengeStore interface {
	Save(ctx context.Context, id string, c *Challenge, ttl time.Duration) error
	Get(ctx context.Context, id string) (*Challenge, error)
	// Delete removes the challenge and reports whether it existed.
	Delete(ctx context.Context, id string) (bool, error)
	// RecordFailure increments the failure counter. When maxAttempts is reached the
	// challenge is deleted and exceeded is true.
	RecordFailure(ctx context.Context, id string, maxAttempts int) (exceeded bool, err error)
}
