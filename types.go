package matchauth

import (
	"slices"
	"time"
)

// RoleAdmin is the role that triggers mandatory MFA when Config.RequireMFAForAdmins is set.
const RoleAdmin = "admin"

// Principal is the authentication view of an account.
//
// Principal values are read from a PrincipalStore on every login and never cached.
type Principal struct {
	Username      string
	PasswordHash  string
	Roles         []string
	EmailVerified bool
	MFAEnabled    bool
	CreatedAt     time.Time
}

// HasRole reports whether p carries role.
func (p Principal) HasRole(role string) bool {
	return slices.Contains(p.Roles, role)
}

// LoginRequest carries one password login attempt.
type LoginRequest struct {
	Username     string
	Password     string
	DeviceID     string
	IP           string
	CaptchaToken string
}

// TokenPair is the credential set issued after a completed login or refresh.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	RefreshNonce string
	TokenType    string
	ExpiresIn    time.Duration
	RefreshUntil time.Time
}

// MFAMethod names a way to answer an MFA challenge.
type MFAMethod string

const (
	MethodTOTP         MFAMethod = "totp"
	MethodRecoveryCode MFAMethod = "recovery_code"
	// MethodTOTPSetup is offered to principals that must enroll before they can log in.
	MethodTOTPSetup MFAMethod = "totp_setup"
)

// LoginResult is either a token pair or an MFA challenge, never both.
type LoginResult struct {
	Tokens      *TokenPair
	MFARequired bool
	Methods     []MFAMethod
	Challenge   string
}

// MFARequest answers a login challenge.
type MFARequest struct {
	Challenge   string
	Code        string
	Method      MFAMethod
	TrustDevice bool
	DeviceID    string
	IP          string
}

// RefreshRequest presents a refresh credential.
type RefreshRequest struct {
	Token string
	Nonce string
	IP    string
}

// Identity is returned by token introspection.
type Identity struct {
	Username string
	Roles    []string
}

// Enrollment is a freshly provisioned (or previously provisioned) TOTP secret.
type Enrollment struct {
	Secret string
	URI    string
}

// MaskedRecoveryCode is the listing form of a recovery code.
type MaskedRecoveryCode struct {
	Hint     string
	Consumed bool
}

// TrustedDevice is a device that currently bypasses MFA.
type TrustedDevice struct {
	DeviceID     string
	TrustedUntil time.Time
}
