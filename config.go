package matchauth

import (
	"errors"
	"time"

	"github.com/MrEthical07/matchauth/internal/rate"
)

// Config holds every tunable of an Engine.
//
// Config instances are intended to be configured during initialization and then treated as immutable.
type Config struct {
	JWT      JWTConfig
	Refresh  RefreshConfig
	MFA      MFAConfig
	Device   DeviceConfig
	Security SecurityConfig
	Audit    AuditConfig
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig configures access token signing.
type JWTConfig struct {
	AccessTTL     time.Duration
	SigningMethod string // "hs256" (default), "ed25519"
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	Audience      string
	KeyID         string
	Leeway        time.Duration
}

/*
====================================
REFRESH CONFIG
====================================
*/

// RefreshConfig configures refresh token lifetime and replay handling.
type RefreshConfig struct {
	TTL time.Duration
	// ReuseDetection revokes all of a principal's refresh tokens when a rotated-away
	// token is presented again.
	ReuseDetection bool
}

/*
====================================
MFA CONFIG
====================================
*/

// MFAConfig configures TOTP, login challenges and recovery codes.
type MFAConfig struct {
	Issuer            string
	ChallengeTTL      time.Duration
	MaxAttempts       int
	RecoveryCodeCount int
	// RequireForAdmins forces principals with RoleAdmin through MFA, enrolling them
	// on first login if needed.
	RequireForAdmins bool
}

/*
====================================
DEVICE CONFIG
====================================
*/

// DeviceConfig configures trusted-device MFA bypass.
type DeviceConfig struct {
	TrustTTL time.Duration
}

/*
====================================
SECURITY CONFIG
====================================
*/

// RatePolicy allows Limit attempts per Window. A zero Limit disables the check.
type RatePolicy struct {
	Limit  int
	Window time.Duration
}

// SecurityConfig configures login policy and the anti-abuse gate.
type SecurityConfig struct {
	RequireVerifiedEmail bool
	Login                RatePolicy
	Refresh              RatePolicy
	Velocity             RatePolicy
	RetryAfter           time.Duration
	// FailurePolicy is "fail_open" (default) or "fail_closed".
	FailurePolicy string
}

/*
====================================
AUDIT CONFIG
====================================
*/

// AuditConfig sizes the audit dispatcher buffer.
type AuditConfig struct {
	BufferSize int
}

// DefaultConfig returns the production defaults: 15 minute access tokens, 14 day refresh
// tokens with reuse detection, mandatory admin MFA and verified e-mail, and the login
// (5/min), refresh (30/min) and velocity (10/min) limits.
func DefaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			AccessTTL:     15 * time.Minute,
			SigningMethod: "hs256",
			Issuer:        "matchauth",
			Audience:      "matchapp",
		},
		Refresh: RefreshConfig{
			TTL:            14 * 24 * time.Hour,
			ReuseDetection: true,
		},
		MFA: MFAConfig{
			Issuer:            "MatchApp",
			ChallengeTTL:      5 * time.Minute,
			MaxAttempts:       5,
			RecoveryCodeCount: 10,
			RequireForAdmins:  true,
		},
		Device: DeviceConfig{
			TrustTTL: 30 * 24 * time.Hour,
		},
		Security: SecurityConfig{
			RequireVerifiedEmail: true,
			Login:                RatePolicy{Limit: 5, Window: time.Minute},
			Refresh:              RatePolicy{Limit: 30, Window: time.Minute},
			Velocity:             RatePolicy{Limit: 10, Window: time.Minute},
			RetryAfter:           rate.DefaultRetryAfter,
			FailurePolicy:        string(rate.FailOpen),
		},
		Audit: AuditConfig{
			BufferSize: 1024,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.PrivateKey = cloneBytes(cfg.JWT.PrivateKey)
	out.JWT.PublicKey = cloneBytes(cfg.JWT.PublicKey)
	return out
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	// JWT
	if c.JWT.AccessTTL <= 0 {
		return errors.New("JWT AccessTTL must be > 0")
	}
	if c.JWT.SigningMethod != "ed25519" && c.JWT.SigningMethod != "hs256" {
		return errors.New("unsupported JWT signing method")
	}
	if c.JWT.SigningMethod == "hs256" && len(c.JWT.PrivateKey) < 32 {
		return errors.New("hs256 requires a PrivateKey of at least 32 bytes")
	}
	if c.JWT.SigningMethod == "ed25519" && len(c.JWT.PrivateKey) == 0 {
		return errors.New("ed25519 requires PrivateKey")
	}
	if c.JWT.Leeway < 0 || c.JWT.Leeway > 2*time.Minute {
		return errors.New("JWT Leeway must be within [0, 2m]")
	}

	// Refresh
	if c.Refresh.TTL <= 0 {
		return errors.New("Refresh TTL must be > 0")
	}

	// MFA
	if c.MFA.ChallengeTTL <= 0 {
		return errors.New("MFA ChallengeTTL must be > 0")
	}
	if c.MFA.MaxAttempts <= 0 {
		return errors.New("MFA MaxAttempts must be > 0")
	}
	if c.MFA.RecoveryCodeCount < 0 {
		return errors.New("MFA RecoveryCodeCount must be >= 0")
	}

	// Device
	if c.Device.TrustTTL <= 0 {
		return errors.New("Device TrustTTL must be > 0")
	}

	// Security
	for name, p := range map[string]RatePolicy{
		"Login":    c.Security.Login,
		"Refresh":  c.Security.Refresh,
		"Velocity": c.Security.Velocity,
	} {
		if p.Limit < 0 {
			return errors.New("Security " + name + " limit must be >= 0")
		}
		if p.Limit > 0 && p.Window <= 0 {
			return errors.New("Security " + name + " window must be > 0")
		}
	}
	if c.Security.RetryAfter < 0 {
		return errors.New("Security RetryAfter must be >= 0")
	}
	if _, err := rate.ParseFailurePolicy(c.Security.FailurePolicy); err != nil {
		return err
	}

	// Audit
	if c.Audit.BufferSize < 0 {
		return errors.New("Audit BufferSize must be >= 0")
	}

	return nil
}
