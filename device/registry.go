// Package device tracks devices that may skip the MFA challenge until their trust expires.
package device

import (
	"context"
	"errors"
	"strings"
	"time"
)

// DefaultTTL is how long a device stays trusted when Config.TTL is zero.
const DefaultTTL = 30 * 24 * time.Hour

// ErrNotFound is reported by stores for unknown (username, device) pairs.
var ErrNotFound = errors.New("trusted device not found")

// Device is a trusted (username, device) pair.
type Device struct {
	Username     string
	DeviceID     string
	TrustedUntil time.Time
	CreatedAt    time.Time
}

// Store persists trusted devices.
type Store interface {
	// Upsert inserts d or, if the pair exists, moves its TrustedUntil.
	Upsert(ctx context.Context, d Device) error
	Get(ctx context.Context, username, deviceID string) (Device, error)
	List(ctx context.Context, username string) ([]Device, error)
	Delete(ctx context.Context, username, deviceID string) error
}

// Registry answers and records device trust. Expired records are left in place and
// simply stop counting.
type Registry struct {
	store Store
	ttl   time.Duration
	now   func() time.Time
}

// NewRegistry returns a Registry. Zero ttl and nil now default to DefaultTTL and time.Now.
func NewRegistry(store Store, ttl time.Duration, now func() time.Time) (*Registry, error) {
	if store == nil {
		return nil, errors.New("trusted device store is required")
	}
	if ttl == 0 {
		ttl = DefaultTTL
	}
	if ttl < 0 {
		return nil, errors.New("invalid device trust TTL")
	}
	if now == nil {
		now = time.Now
	}
	return &Registry{store: store, ttl: ttl, now: now}, nil
}

// IsTrusted reports whether deviceID is trusted for username right now.
func (r *Registry) IsTrusted(ctx context.Context, username, deviceID string) (bool, error) {
	if strings.TrimSpace(deviceID) == "" {
		return false, nil
	}
	d, err := r.store.Get(ctx, username, deviceID)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return r.now().Before(d.TrustedUntil), nil
}

// Trust marks deviceID trusted for the configured TTL and returns the new expiry.
func (r *Registry) Trust(ctx context.Context, username, deviceID string) (time.Time, error) {
	if strings.TrimSpace(deviceID) == "" {
		return time.Time{}, errors.New("empty device id")
	}
	now := r.now()
	d := Device{
		Username:     username,
		DeviceID:     deviceID,
		TrustedUntil: now.Add(r.ttl),
		CreatedAt:    now,
	}
	if err := r.store.Upsert(ctx, d); err != nil {
		return time.Time{}, err
	}
	return d.TrustedUntil, nil
}

// List returns the devices of username that are still trusted.
func (r *Registry) List(ctx context.Context, username string) ([]Device, error) {
	all, err := r.store.List(ctx, username)
	if err != nil {
		return nil, err
	}
	now := r.now()
	out := all[:0]
	for _, d := range all {
		if now.Before(d.TrustedUntil) {
			out = append(out, d)
		}
	}
	return out, nil
}

// Revoke removes trust for deviceID. Unknown devices are not an error.
func (r *Registry) Revoke(ctx context.Context, username, deviceID string) error {
	err := r.store.Delete(ctx, username, deviceID)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	return err
}
