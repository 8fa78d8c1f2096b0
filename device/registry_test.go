package device

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	mu      sync.Mutex
	devices map[[2]string]Device
}

func (s *memStore) Upsert(_ context.Context, d Device) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := [2]string{d.Username, d.DeviceID}
	if old, ok := s.devices[k]; ok {
		d.CreatedAt = old.CreatedAt
	}
	s.devices[k] = d
	return nil
}

func (s *memStore) Get(_ context.Context, u, id string) (Device, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.devices[[2]string{u, id}]
	if !ok {
		return Device{}, ErrNotFound
	}
	return d, nil
}

func (s *memStore) List(_ context.Context, u string) ([]Device, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Device
	for k, d := range s.devices {
		if k[0] == u {
			out = append(out, d)
		}
	}
	return out, nil
}

func (s *memStore) Delete(_ context.Context, u, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := [2]string{u, id}
	if _, ok := s.devices[k]; !ok {
		return ErrNotFound
	}
	delete(s.devices, k)
	return nil
}

func TestTrustAndExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Unix(1_700_000_000, 0)
	store := &memStore{devices: map[[2]string]Device{}}
	r, err := NewRegistry(store, time.Hour, func() time.Time { return now })
	require.NoError(t, err)

	ok, err := r.IsTrusted(ctx, "alice", "phone")
	require.NoError(t, err)
	assert.False(t, ok)

	until, err := r.Trust(ctx, "alice", "phone")
	require.NoError(t, err)
	assert.Equal(t, now.Add(time.Hour), until)

	ok, err = r.IsTrusted(ctx, "alice", "phone")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = r.IsTrusted(ctx, "bob", "phone")
	require.NoError(t, err)
	assert.False(t, ok)

	now = now.Add(time.Hour)
	ok, err = r.IsTrusted(ctx, "alice", "phone")
	require.NoError(t, err)
	assert.False(t, ok, "trust must lapse at trusted_until")
	assert.Len(t, store.devices, 1, "expired record stays in place")

	devices, err := r.List(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, devices)
}

func TestTrustExtendsExisting(t *testing.T) {
	ctx := context.Background()
	now := time.Unix(1_700_000_000, 0)
	store := &memStore{devices: map[[2]string]Device{}}
	r, err := NewRegistry(store, 0, func() time.Time { return now })
	require.NoError(t, err)

	_, err = r.Trust(ctx, "alice", "laptop")
	require.NoError(t, err)
	now = now.Add(24 * time.Hour)
	until, err := r.Trust(ctx, "alice", "laptop")
	require.NoError(t, err)

	assert.Equal(t, now.Add(DefaultTTL), until)
	assert.Len(t, store.devices, 1)
}

func TestBlankDeviceAndRevoke(t *testing.T) {
	ctx := context.Background()
	store := &memStore{devices: map[[2]string]Device{}}
	r, err := NewRegistry(store, time.Hour, nil)
	require.NoError(t, err)

	ok, err := r.IsTrusted(ctx, "alice", "  ")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = r.Trust(ctx, "alice", "")
	assert.Error(t, err)

	_, err = r.Trust(ctx, "alice", "tablet")
	require.NoError(t, err)
	require.NoError(t, r.Revoke(ctx, "alice", "tablet"))
	require.NoError(t, r.Revoke(ctx, "alice", "tablet"))

	ok, err = r.IsTrusted(ctx, "alice", "tablet")
	require.NoError(t, err)
	assert.False(t, ok)
}
