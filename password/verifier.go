package password

import (
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// Verifier checks a plaintext password against a stored hash, choosing the scheme from the
// hash prefix: argon2id PHC strings or bcrypt ($2a$, $2b$, $2y$).
type Verifier struct {
	argon *Argon2
	dummy string
}

// NewVerifier returns a Verifier that hashes new passwords with argon.
func NewVerifier(argon *Argon2) (*Verifier, error) {
	if argon == nil {
		return nil, errors.New("argon2 hasher is required")
	}
	dummy, err := argon.Hash("matchauth-dummy-password")
	if err != nil {
		return nil, err
	}
	return &Verifier{argon: argon, dummy: dummy}, nil
}

// Hash delegates to the argon2id hasher.
func (v *Verifier) Hash(password string) (string, error) {
	return v.argon.Hash(password)
}

// Verify reports whether password matches encodedHash.
func (v *Verifier) Verify(password, encodedHash string) (bool, error) {
	switch {
	case strings.HasPrefix(encodedHash, argon2Prefix):
		return v.argon.Verify(password, encodedHash)
	case isBcrypt(encodedHash):
		err := bcrypt.CompareHashAndPassword([]byte(encodedHash), []byte(password))
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		return true, nil
	default:
		return false, ErrMalformedHash
	}
}

// VerifyDummy burns the same work as a real argon2id check. Callers run it for unknown
// principals so response time does not reveal whether the account exists.
func (v *Verifier) VerifyDummy(password string) {
	_, _ = v.argon.Verify(password, v.dummy)
}

func isBcrypt(h string) bool {
	return strings.HasPrefix(h, "$2a$") || strings.HasPrefix(h, "$2b$") || strings.HasPrefix(h, "$2y$")
}
