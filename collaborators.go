//go:generate mockgen -source=collaborators.go -destination=internal/mock/collaborators_mock.go -package=mock

package matchauth

import (
	"context"
)

// PrincipalStore loads principals by username. It reports ErrPrincipalNotFound for
// unknown usernames.
type PrincipalStore interface {
	FindPrincipal(ctx context.Context, username string) (Principal, error)
}

// PasswordVerifier checks a password against a stored hash. VerifyDummy must cost
// about as much as a real verification and is used for unknown principals.
type PasswordVerifier interface {
	Verify(password, encodedHash string) (bool, error)
	VerifyDummy(password string)
}

// Notifier delivers out-of-band security notices. Delivery is best effort and
// failures are never surfaced to the caller of the Engine.
type Notifier interface {
	RecoveryCodesRegenerated(ctx context.Context, username string, count int) error
	RecoveryCodeUsed(ctx context.Context, username string) error
	NewDeviceTrusted(ctx context.Context, username, deviceID string) error
}

// NopNotifier discards every notice.
type NopNotifier struct{}

func (NopNotifier) RecoveryCodesRegenerated(context.Context, string, int) error { return nil }
func (NopNotifier) RecoveryCodeUsed(context.Context, string) error              { return nil }
func (NopNotifier) NewDeviceTrusted(context.Context, string, string) error      { return nil }

// BypassRecorder is told when a trusted device let a principal skip an enabled MFA.
type BypassRecorder interface {
	RecordBypass(ctx context.Context, username, deviceID, ip string) error
}

// NopBypassRecorder records nothing.
type NopBypassRecorder struct{}

func (NopBypassRecorder) RecordBypass(context.Context, string, string, string) error { return nil }
