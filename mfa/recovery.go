package mfa

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// MinRecoveryCodes and MaxRecoveryCodes bound Regenerate's count.
	MinRecoveryCodes = 6
	MaxRecoveryCodes = 20

	recoveryCodeBytes = 9
)

// RecoveryCode is a stored recovery code. Hash is the hex SHA-256 of the plaintext.
type RecoveryCode struct {
	ID         string
	Username   string
	Hash       string
	CreatedAt  time.Time
	ConsumedAt *time.Time
}

// MaskedCode is the listing view of a recovery code.
type MaskedCode struct {
	Hint     string
	Consumed bool
}

// RecoveryStore persists recovery code digests.
type RecoveryStore interface {
	// ReplaceCodes deletes all codes of username and inserts codes in one transaction.
	ReplaceCodes(ctx context.Context, username string, codes []RecoveryCode) error
	// ConsumeCode marks an unconsumed code consumed and reports whether a row changed.
	ConsumeCode(ctx context.Context, codeHash string, at time.Time) (bool, error)
	ConsumeCodeFor(ctx context.Context, username, codeHash string, at time.Time) (bool, error)
	ListCodes(ctx context.Context, username string) ([]RecoveryCode, error)
}

// RecoveryCodes issues and redeems single-use recovery codes.
type RecoveryCodes struct {
	store RecoveryStore
	rand  io.Reader
	now   func() time.Time
}

// NewRecoveryCodes returns a RecoveryCodes over store. Nil rnd and now default to
// crypto/rand and time.Now.
func NewRecoveryCodes(store RecoveryStore, rnd io.Reader, now func() time.Time) (*RecoveryCodes, error) {
	if store == nil {
		return nil, errors.New("recovery code store is required")
	}
	if rnd == nil {
		rnd = rand.Reader
	}
	if now == nil {
		now = time.Now
	}
	return &RecoveryCodes{store: store, rand: rnd, now: now}, nil
}

// Regenerate replaces every code of username with count fresh ones, count clamped to
// [MinRecoveryCodes, MaxRecoveryCodes]. The plaintext codes are only returned here.
func (r *RecoveryCodes) Regenerate(ctx context.Context, username string, count int) ([]string, error) {
	count = min(max(count, MinRecoveryCodes), MaxRecoveryCodes)

	now := r.now()
	plain := make([]string, 0, count)
	stored := make([]RecoveryCode, 0, count)
	seen := make(map[string]struct{}, count)
	buf := make([]byte, recoveryCodeBytes)

	for len(plain) < count {
		if _, err := io.ReadFull(r.rand, buf); err != nil {
			return nil, fmt.Errorf("generate recovery code: %w", err)
		}
		code := base64.RawURLEncoding.EncodeToString(buf)
		h := hashCode(code)
		if _, dup := seen[h]; dup {
			continue
		}
		seen[h] = struct{}{}

		plain = append(plain, code)
		stored = append(stored, RecoveryCode{
			ID:        uuid.NewString(),
			Username:  username,
			Hash:      h,
			CreatedAt: now,
		})
	}

	if err := r.store.ReplaceCodes(ctx, username, stored); err != nil {
		return nil, err
	}
	return plain, nil
}

// Consume redeems code. It returns true exactly once per issued code.
func (r *RecoveryCodes) Consume(ctx context.Context, code string) (bool, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return false, nil
	}
	return r.store.ConsumeCode(ctx, hashCode(code), r.now())
}

// ConsumeFor is Consume restricted to codes issued to username.
func (r *RecoveryCodes) ConsumeFor(ctx context.Context, username, code string) (bool, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return false, nil
	}
	return r.store.ConsumeCodeFor(ctx, username, hashCode(code), r.now())
}

// ListMasked returns every stored code of username as "****" plus the last 8 hex
// characters of its digest.
func (r *RecoveryCodes) ListMasked(ctx context.Context, username string) ([]MaskedCode, error) {
	codes, err := r.store.ListCodes(ctx, username)
	if err != nil {
		return nil, err
	}
	out := make([]MaskedCode, 0, len(codes))
	for _, c := range codes {
		hint := c.Hash
		if len(hint) > 8 {
			hint = hint[len(hint)-8:]
		}
		out = append(out, MaskedCode{Hint: "****" + hint, Consumed: c.ConsumedAt != nil})
	}
	return out, nil
}

func hashCode(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}
