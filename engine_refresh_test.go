package matchauth_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrEthical07/matchauth"
	"github.com/MrEthical07/matchauth/internal/audit"
)

func loginPair(t *testing.T, h *harness, username string) *matchauth.TokenPair {
	t.Helper()
	h.addPrincipal(t, username, true)
	res, err := h.login(username, "")
	require.NoError(t, err)
	require.NotNil(t, res.Tokens)
	return res.Tokens
}

func TestRefresh_RotatesAndDetectsReuse(t *testing.T) {
	h := newHarness(t, nil)
	first := loginPair(t, h, "alice")
	ctx := context.Background()

	h.clock.Advance(time.Minute)
	second, err := h.engine.Refresh(ctx, matchauth.RefreshRequest{Token: first.RefreshToken, Nonce: first.RefreshNonce, IP: testIP})
	require.NoError(t, err)
	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)
	assert.NotEqual(t, first.AccessToken, second.AccessToken)
	h.waitFor(t, audit.RefreshIssued)

	sub, err := h.engine.Authenticate(ctx, second.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "alice", sub)

	_, err = h.engine.Refresh(ctx, matchauth.RefreshRequest{Token: first.RefreshToken, Nonce: first.RefreshNonce, IP: testIP})
	requireKind(t, err, matchauth.KindInvalidRefreshToken)
	assert.ErrorIs(t, err, matchauth.ErrInvalidRefreshToken)
	h.waitFor(t, audit.RefreshReuseDetected)
	h.waitFor(t, audit.SuspiciousActivity)

	_, err = h.engine.Refresh(ctx, matchauth.RefreshRequest{Token: second.RefreshToken, Nonce: second.RefreshNonce, IP: testIP})
	requireKind(t, err, matchauth.KindInvalidRefreshToken)
}

func TestRefresh_ReuseDetectionDisabled(t *testing.T) {
	h := newHarness(t, func(c *matchauth.Config) { c.Refresh.ReuseDetection = false })
	first := loginPair(t, h, "alice")
	ctx := context.Background()

	second, err := h.engine.Refresh(ctx, matchauth.RefreshRequest{Token: first.RefreshToken, Nonce: first.RefreshNonce})
	require.NoError(t, err)

	_, err = h.engine.Refresh(ctx, matchauth.RefreshRequest{Token: first.RefreshToken, Nonce: first.RefreshNonce})
	requireKind(t, err, matchauth.KindInvalidRefreshToken)

	_, err = h.engine.Refresh(ctx, matchauth.RefreshRequest{Token: second.RefreshToken, Nonce: second.RefreshNonce})
	require.NoError(t, err)
}

func TestRefresh_RejectsBadInput(t *testing.T) {
	h := newHarness(t, nil)
	pair := loginPair(t, h, "alice")
	ctx := context.Background()

	cases := []matchauth.RefreshRequest{
		{Token: pair.RefreshToken, Nonce: "wrong"},
		{Token: pair.RefreshToken},
		{Token: "unknown", Nonce: pair.RefreshNonce},
		{},
	}
	for _, req := range cases {
		_, err := h.engine.Refresh(ctx, req)
		requireKind(t, err, matchauth.KindInvalidRefreshToken)
	}

	_, err := h.engine.Refresh(ctx, matchauth.RefreshRequest{Token: pair.RefreshToken, Nonce: pair.RefreshNonce})
	require.NoError(t, err, "a wrong nonce does not burn the token")
}

func TestRefresh_ExpiredToken(t *testing.T) {
	h := newHarness(t, nil)
	pair := loginPair(t, h, "alice")

	h.clock.Advance(14*24*time.Hour + time.Second)
	_, err := h.engine.Refresh(context.Background(), matchauth.RefreshRequest{Token: pair.RefreshToken, Nonce: pair.RefreshNonce})
	requireKind(t, err, matchauth.KindInvalidRefreshToken)
}

func TestRefresh_ConcurrentRotationHasOneWinner(t *testing.T) {
	h := newHarness(t, nil)
	pair := loginPair(t, h, "alice")

	const workers = 8
	var (
		wg      sync.WaitGroup
		start   = make(chan struct{})
		success atomic.Int32
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := h.engine.Refresh(context.Background(), matchauth.RefreshRequest{Token: pair.RefreshToken, Nonce: pair.RefreshNonce})
			if err == nil {
				success.Add(1)
				return
			}
			assert.Equal(t, matchauth.KindInvalidRefreshToken, matchauth.KindOf(err))
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), success.Load())
}

func TestRefresh_RateLimitedPerIP(t *testing.T) {
	h := newHarness(t, func(c *matchauth.Config) {
		c.Security.Refresh = matchauth.RatePolicy{Limit: 2, Window: time.Minute}
	})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := h.engine.Refresh(ctx, matchauth.RefreshRequest{Token: "x", Nonce: "y", IP: testIP})
		requireKind(t, err, matchauth.KindInvalidRefreshToken)
	}
	_, err := h.engine.Refresh(ctx, matchauth.RefreshRequest{Token: "x", Nonce: "y", IP: testIP})
	requireKind(t, err, matchauth.KindRateLimited)

	_, err = h.engine.Refresh(ctx, matchauth.RefreshRequest{Token: "x", Nonce: "y", IP: "198.51.100.1"})
	requireKind(t, err, matchauth.KindInvalidRefreshToken)
}

func TestLogout_RevokesRefreshToken(t *testing.T) {
	h := newHarness(t, nil)
	pair := loginPair(t, h, "alice")
	ctx := context.Background()

	h.engine.Logout(ctx, "", testIP)
	h.engine.Logout(ctx, "never-issued", testIP)
	h.engine.Logout(ctx, pair.RefreshToken, testIP)
	h.waitFor(t, audit.Logout)

	_, err := h.engine.Refresh(ctx, matchauth.RefreshRequest{Token: pair.RefreshToken, Nonce: pair.RefreshNonce})
	requireKind(t, err, matchauth.KindInvalidRefreshToken)
}
