package mfa

import (
	"context"
	"crypto/rand"
	"errors"
	"io"
	"time"
)

// State is the MFA view of a principal.
type State struct {
	Secret  string
	Enabled bool
}

// SecretStore persists TOTP secrets and the enabled flag.
type SecretStore interface {
	MFAState(ctx context.Context, username string) (State, error)
	// SetSecretIfEmpty stores secret only when none is set and returns the stored secret.
	SetSecretIfEmpty(ctx context.Context, username, secret string) (string, error)
	SetEnabled(ctx context.Context, username string, enabled bool) error
}

// Config tunes an Engine.
type Config struct {
	Issuer string
	TOTP   TOTP
	Rand   io.Reader
	Now    func() time.Time
}

// Engine enrolls, enables and verifies TOTP factors.
type Engine struct {
	store SecretStore
	cfg   Config
}

// NewEngine returns an Engine over store.
func NewEngine(store SecretStore, cfg Config) (*Engine, error) {
	if store == nil {
		return nil, errors.New("mfa secret store is required")
	}
	if cfg.Issuer == "" {
		cfg.Issuer = "MatchApp"
	}
	if cfg.Rand == nil {
		cfg.Rand = rand.Reader
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Engine{store: store, cfg: cfg}, nil
}

// Enroll returns the principal's TOTP secret, creating it on first call. Concurrent
// enrollments converge on the single stored secret.
func (e *Engine) Enroll(ctx context.Context, username string) (string, error) {
	st, err := e.store.MFAState(ctx, username)
	if err != nil {
		return "", err
	}
	if st.Secret != "" {
		return st.Secret, nil
	}

	secret, err := GenerateSecret(e.cfg.Rand)
	if err != nil {
		return "", err
	}
	return e.store.SetSecretIfEmpty(ctx, username, secret)
}

// Enable turns MFA on. The principal must be enrolled.
func (e *Engine) Enable(ctx context.Context, username string) error {
	st, err := e.store.MFAState(ctx, username)
	if err != nil {
		return err
	}
	if st.Secret == "" {
		return ErrNotEnrolled
	}
	return e.store.SetEnabled(ctx, username, true)
}

// Confirm verifies code against the enrolled secret and enables MFA on success.
func (e *Engine) Confirm(ctx context.Context, username, code string) error {
	ok, err := e.Verify(ctx, username, code)
	if err != nil {
		return err
	}
	if !ok {
		return ErrInvalidCode
	}
	return e.store.SetEnabled(ctx, username, true)
}

// Disable turns MFA off. The secret is kept, so a later Enroll returns the same one.
func (e *Engine) Disable(ctx context.Context, username string) error {
	return e.store.SetEnabled(ctx, username, false)
}

// Verify checks code against the principal's secret at the current time.
// A principal without a secret never verifies.
func (e *Engine) Verify(ctx context.Context, username, code string) (bool, error) {
	st, err := e.store.MFAState(ctx, username)
	if err != nil {
		return false, err
	}
	if st.Secret == "" {
		return false, ErrNotEnrolled
	}
	return e.cfg.TOTP.Verify(st.Secret, code, e.cfg.Now())
}

// ProvisioningURI renders the otpauth URI for username under the configured issuer.
func (e *Engine) ProvisioningURI(username, secret string) string {
	return ProvisioningURI(e.cfg.Issuer, username, secret)
}
