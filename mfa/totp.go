package mfa

import (
	"crypto/hmac"
	"crypto/sha1"
	"crypto/subtle"
	"encoding/base32"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"
)

const (
	secretBytes   = 20
	defaultDigits = 6
	defaultPeriod = 30 * time.Second
	defaultSkew   = 1
)

var b32 = base32.StdEncoding.WithPadding(base32.NoPadding)

// TOTP computes and checks time-based one-time passwords. The zero value uses
// 6 digits, 30 second steps and a tolerance of one step.
type TOTP struct {
	Digits int
	Period time.Duration
	Skew   int
}

func (t TOTP) digits() int {
	if t.Digits <= 0 {
		return defaultDigits
	}
	return t.Digits
}

func (t TOTP) period() int64 {
	if t.Period <= 0 {
		return int64(defaultPeriod / time.Second)
	}
	return int64(t.Period / time.Second)
}

func (t TOTP) skew() int {
	if t.Skew <= 0 {
		return defaultSkew
	}
	return t.Skew
}

// GenerateSecret reads 20 bytes from r and returns them base32 encoded without padding.
func GenerateSecret(r io.Reader) (string, error) {
	raw := make([]byte, secretBytes)
	if _, err := io.ReadFull(r, raw); err != nil {
		return "", fmt.Errorf("generate totp secret: %w", err)
	}
	return b32.EncodeToString(raw), nil
}

// ProvisioningURI renders the otpauth URI consumed by authenticator apps.
func ProvisioningURI(issuer, username, secret string) string {
	label := url.PathEscape(issuer + ":" + username)

	var b strings.Builder
	b.WriteString("otpauth://totp/")
	b.WriteString(label)
	b.WriteString("?secret=")
	b.WriteString(url.QueryEscape(secret))
	b.WriteString("&issuer=")
	b.WriteString(url.QueryEscape(issuer))
	b.WriteString("&algorithm=SHA1&digits=6&period=30")
	return b.String()
}

// Code returns the password for the step containing at.
func (t TOTP) Code(secret string, at time.Time) (string, error) {
	key, err := decodeSecret(secret)
	if err != nil {
		return "", err
	}
	return hotp(key, at.Unix()/t.period(), t.digits()), nil
}

// Verify reports whether code matches the step containing at or one of its neighbours.
// Codes of the wrong length or with non-digit characters are rejected without computing.
func (t TOTP) Verify(secret, code string, at time.Time) (bool, error) {
	code = strings.TrimSpace(code)
	if len(code) != t.digits() || !isDigits(code) {
		return false, nil
	}
	key, err := decodeSecret(secret)
	if err != nil {
		return false, err
	}

	base := at.Unix() / t.period()
	matched := 0
	for step := -t.skew(); step <= t.skew(); step++ {
		counter := base + int64(step)
		if counter < 0 {
			continue
		}
		matched |= subtle.ConstantTimeCompare([]byte(hotp(key, counter, t.digits())), []byte(code))
	}
	return matched == 1, nil
}

func decodeSecret(secret string) ([]byte, error) {
	s := strings.ToUpper(strings.TrimRight(strings.TrimSpace(secret), "="))
	if s == "" {
		return nil, errors.New("empty totp secret")
	}
	key, err := b32.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decode totp secret: %w", err)
	}
	return key, nil
}

func hotp(key []byte, counter int64, digits int) string {
	var msg [8]byte
	binary.BigEndian.PutUint64(msg[:], uint64(counter))

	mac := hmac.New(sha1.New, key)
	_, _ = mac.Write(msg[:])
	sum := mac.Sum(nil)

	offset := sum[len(sum)-1] & 0x0f
	bin := (uint32(sum[offset])&0x7f)<<24 |
		uint32(sum[offset+1])<<16 |
		uint32(sum[offset+2])<<8 |
		uint32(sum[offset+3])

	mod := uint32(1)
	for i := 0; i < digits; i++ {
		mod *= 10
	}
	return fmt.Sprintf("%0*d", digits, bin%mod)
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
