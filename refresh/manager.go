package refresh

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/MrEthical07/matchauth/internal/logger"
)

const (
	// DefaultTTL is the refresh token lifetime when Config.TTL is zero.
	DefaultTTL = 14 * 24 * time.Hour

	secretBytes = 32
)

// Record is a persisted refresh token. Token and nonce are held as hex SHA-256 digests.
type Record struct {
	ID          string
	Principal   string
	TokenHash   string
	NonceHash   string
	IssuedAt    time.Time
	ExpiresAt   time.Time
	RevokedAt   *time.Time
	RotatedFrom string
}

// Pair is the plaintext credential handed to the client.
type Pair struct {
	Token     string
	Nonce     string
	ExpiresAt time.Time
}

// Store persists refresh token records.
//
// Rotate must revoke oldID only if it is still live and insert next in the same
// transaction, returning ErrRotationConflict when oldID was already revoked.
type Store interface {
	Insert(ctx context.Context, rec Record) error
	FindByTokenHash(ctx context.Context, tokenHash string) (Record, error)
	Rotate(ctx context.Context, oldID string, revokedAt time.Time, next Record) error
	RevokeByTokenHash(ctx context.Context, tokenHash string, revokedAt time.Time) error
	RevokeAllForPrincipal(ctx context.Context, principal string, revokedAt time.Time) (int64, error)
}

// Config tunes a Manager.
type Config struct {
	TTL time.Duration
	// ReuseDetection revokes every live token of a principal when an already
	// revoked token is presented with its correct nonce.
	ReuseDetection bool
	// OnReuse is called after reuse detection revoked a principal's tokens.
	OnReuse func(ctx context.Context, principal string)
	Rand    io.Reader
	Now     func() time.Time
}

// Manager creates, validates, rotates and revokes refresh tokens.
type Manager struct {
	store Store
	cfg   Config
}

// NewManager returns a Manager over store.
func NewManager(store Store, cfg Config) (*Manager, error) {
	if store == nil {
		return nil, errors.New("refresh store is required")
	}
	if cfg.TTL == 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.TTL < 0 {
		return nil, errors.New("invalid refresh TTL")
	}
	if cfg.Rand == nil {
		cfg.Rand = rand.Reader
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Manager{store: store, cfg: cfg}, nil
}

// CreateToken issues a new token pair for principal.
func (m *Manager) CreateToken(ctx context.Context, principal string) (Pair, error) {
	if strings.TrimSpace(principal) == "" {
		return Pair{}, errors.New("empty principal")
	}
	pair, rec, err := m.mint(principal)
	if err != nil {
		return Pair{}, err
	}
	if err := m.store.Insert(ctx, rec); err != nil {
		return Pair{}, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return pair, nil
}

// Validate returns the live record matching token and nonce.
func (m *Manager) Validate(ctx context.Context, token, nonce string) (*Record, error) {
	if token == "" || nonce == "" {
		return nil, ErrInvalidRefreshToken
	}

	rec, err := m.store.FindByTokenHash(ctx, HashValue(token))
	if errors.Is(err, ErrRecordNotFound) {
		return nil, ErrInvalidRefreshToken
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	if subtle.ConstantTimeCompare([]byte(HashValue(nonce)), []byte(rec.NonceHash)) != 1 {
		return nil, ErrInvalidRefreshToken
	}
	if rec.RevokedAt != nil {
		if m.cfg.ReuseDetection {
			m.revokeChain(ctx, rec.Principal)
		}
		return nil, ErrInvalidRefreshToken
	}
	if !m.cfg.Now().Before(rec.ExpiresAt) {
		return nil, ErrInvalidRefreshToken
	}

	return &rec, nil
}

// Rotate revokes rec and issues its replacement for the same principal.
// A record that was revoked concurrently yields ErrInvalidRefreshToken.
func (m *Manager) Rotate(ctx context.Context, rec *Record) (Pair, error) {
	if rec == nil || rec.ID == "" {
		return Pair{}, ErrInvalidRefreshToken
	}

	pair, next, err := m.mint(rec.Principal)
	if err != nil {
		return Pair{}, err
	}
	next.RotatedFrom = rec.ID

	err = m.store.Rotate(ctx, rec.ID, next.IssuedAt, next)
	switch {
	case errors.Is(err, ErrRotationConflict):
		return Pair{}, ErrInvalidRefreshToken
	case err != nil:
		return Pair{}, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return pair, nil
}

// RevokeByTokenValue revokes the record for token. Blank and unknown tokens are no-ops
// and storage errors are logged, never returned.
func (m *Manager) RevokeByTokenValue(ctx context.Context, token string) {
	if token == "" {
		return
	}
	err := m.store.RevokeByTokenHash(ctx, HashValue(token), m.cfg.Now())
	if err != nil && !errors.Is(err, ErrRecordNotFound) {
		logger.FromContext(ctx).Warn().Err(err).Msg("refresh token revoke failed")
	}
}

// RevokeAllForPrincipal revokes every live token of principal.
func (m *Manager) RevokeAllForPrincipal(ctx context.Context, principal string) error {
	if _, err := m.store.RevokeAllForPrincipal(ctx, principal, m.cfg.Now()); err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return nil
}

func (m *Manager) revokeChain(ctx context.Context, principal string) {
	n, err := m.store.RevokeAllForPrincipal(ctx, principal, m.cfg.Now())
	if err != nil {
		logger.FromContext(ctx).Error().Err(err).Msg("refresh reuse revocation failed")
		return
	}
	logger.FromContext(ctx).Warn().Int64("revoked", n).Msg("refresh token reuse detected")
	if m.cfg.OnReuse != nil {
		m.cfg.OnReuse(ctx, principal)
	}
}

func (m *Manager) mint(principal string) (Pair, Record, error) {
	token, err := m.randomValue()
	if err != nil {
		return Pair{}, Record{}, err
	}
	nonce, err := m.randomValue()
	if err != nil {
		return Pair{}, Record{}, err
	}

	now := m.cfg.Now()
	rec := Record{
		ID:        uuid.NewString(),
		Principal: principal,
		TokenHash: HashValue(token),
		NonceHash: HashValue(nonce),
		IssuedAt:  now,
		ExpiresAt: now.Add(m.cfg.TTL),
	}
	return Pair{Token: token, Nonce: nonce, ExpiresAt: rec.ExpiresAt}, rec, nil
}

func (m *Manager) randomValue() (string, error) {
	buf := make([]byte, secretBytes)
	if _, err := io.ReadFull(m.cfg.Rand, buf); err != nil {
		return "", fmt.Errorf("generate refresh secret: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// HashValue returns the hex SHA-256 digest stored in place of a token or nonce.
func HashValue(v string) string {
	sum := sha256.Sum256([]byte(v))
	return hex.EncodeToString(sum[:])
}
