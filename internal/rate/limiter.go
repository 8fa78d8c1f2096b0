package rate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MrEthical07/matchauth/internal/logger"
)

// DefaultRetryAfter is the hint returned with rejected decisions when Config.RetryAfter is zero.
const DefaultRetryAfter = 10 * time.Second

// FailurePolicy decides what happens when the backend cannot be reached.
type FailurePolicy string

const (
	FailOpen   FailurePolicy = "fail_open"
	FailClosed FailurePolicy = "fail_closed"
)

// ParseFailurePolicy maps a configuration value to a FailurePolicy. Empty means FailOpen.
func ParseFailurePolicy(s string) (FailurePolicy, error) {
	switch FailurePolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", FailOpen:
		return FailOpen, nil
	case FailClosed:
		return FailClosed, nil
	default:
		return "", fmt.Errorf("unknown rate limit failure policy %q", s)
	}
}

// Config holds limiter tuning parameters.
type Config struct {
	FailurePolicy FailurePolicy
	RetryAfter    time.Duration
}

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed    bool
	Count      int64
	RetryAfter time.Duration
}

// Limiter enforces per-action, per-subject fixed-window limits on top of a Backend.
type Limiter struct {
	backend Backend
	config  Config
}

// New creates a Limiter over backend.
func New(backend Backend, cfg Config) *Limiter {
	if cfg.RetryAfter <= 0 {
		cfg.RetryAfter = DefaultRetryAfter
	}
	if cfg.FailurePolicy == "" {
		cfg.FailurePolicy = FailOpen
	}
	return &Limiter{
		backend: backend,
		config:  cfg,
	}
}

// RetryAfter reports the configured retry hint.
func (l *Limiter) RetryAfter() time.Duration {
	return l.config.RetryAfter
}

// Allow counts one attempt of action by subject and reports whether it is within limit
// attempts per window. A non-positive limit disables the check.
//
// On a backend failure the decision follows the failure policy and the backend error is
// returned alongside it so the caller can log it.
func (l *Limiter) Allow(ctx context.Context, action, subject string, limit int, window time.Duration) (Decision, error) {
	if limit <= 0 || subject == "" {
		return Decision{Allowed: true}, nil
	}

	count, err := l.backend.Increment(ctx, Key(action, subject), window)
	if err != nil {
		if !errors.Is(err, ErrBackendUnavailable) {
			err = fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
		}
		if l.config.FailurePolicy == FailClosed {
			logger.FromContext(ctx).Warn().Err(err).Str("action", action).Msg("rate limit backend unavailable, failing closed")
			return Decision{Allowed: false, RetryAfter: l.config.RetryAfter}, err
		}
		logger.FromContext(ctx).Warn().Err(err).Str("action", action).Msg("rate limit backend unavailable, failing open")
		return Decision{Allowed: true}, err
	}

	if count > int64(limit) {
		return Decision{Allowed: false, Count: count, RetryAfter: l.config.RetryAfter}, nil
	}
	return Decision{Allowed: true, Count: count}, nil
}

// Key builds the counter key for action and subject.
func Key(action, subject string) string {
	return "rl:" + action + ":" + subject
}
