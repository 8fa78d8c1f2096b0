package matchauth_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MrEthical07/matchauth"
	"github.com/MrEthical07/matchauth/internal/audit"
	"github.com/MrEthical07/matchauth/internal/mock"
)

func TestLogin_IssuesTokensForVerifiedPrincipal(t *testing.T) {
	h := newHarness(t, nil)
	h.addPrincipal(t, "alice", true)

	res, err := h.login("alice", "")
	require.NoError(t, err)
	require.False(t, res.MFARequired)
	require.NotNil(t, res.Tokens)

	assert.NotEmpty(t, res.Tokens.AccessToken)
	assert.NotEmpty(t, res.Tokens.RefreshToken)
	assert.NotEmpty(t, res.Tokens.RefreshNonce)
	assert.Equal(t, "Bearer", res.Tokens.TokenType)
	assert.Equal(t, 15*time.Minute, res.Tokens.ExpiresIn)
	assert.Equal(t, h.clock.Now().Add(14*24*time.Hour), res.Tokens.RefreshUntil)

	sub, err := h.engine.Authenticate(context.Background(), res.Tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "alice", sub)
	h.waitFor(t, audit.LoginSuccess)
}

func TestLogin_UnknownUserAndWrongPasswordLookAlike(t *testing.T) {
	h := newHarness(t, nil)
	h.addPrincipal(t, "alice", true)
	ctx := context.Background()

	_, errWrong := h.engine.Login(ctx, matchauth.LoginRequest{Username: "alice", Password: "nope-nope-nope", IP: testIP})
	_, errUnknown := h.engine.Login(ctx, matchauth.LoginRequest{Username: "mallory", Password: testPassword, IP: testIP})

	requireKind(t, errWrong, matchauth.KindInvalidCredentials)
	requireKind(t, errUnknown, matchauth.KindInvalidCredentials)
	assert.Equal(t, errWrong.Error(), errUnknown.Error())
	assert.ErrorIs(t, errUnknown, matchauth.ErrInvalidCredentials)

	_, err := h.engine.Login(ctx, matchauth.LoginRequest{Username: "  ", Password: "", IP: testIP})
	requireKind(t, err, matchauth.KindInvalidCredentials)
	h.waitFor(t, audit.LoginFailure)
}

func TestLogin_UnverifiedEmail(t *testing.T) {
	h := newHarness(t, nil)
	h.addPrincipal(t, "bob", false)

	_, err := h.login("bob", "")
	requireKind(t, err, matchauth.KindEmailUnverified)
	assert.ErrorIs(t, err, matchauth.ErrEmailUnverified)

	relaxed := newHarness(t, func(c *matchauth.Config) { c.Security.RequireVerifiedEmail = false })
	relaxed.addPrincipal(t, "bob", false)
	res, err := relaxed.login("bob", "")
	require.NoError(t, err)
	assert.NotNil(t, res.Tokens)
}

func TestLogin_RateLimitedAfterFourAttempts(t *testing.T) {
	h := newHarness(t, func(c *matchauth.Config) {
		c.Security.Login = matchauth.RatePolicy{Limit: 4, Window: time.Minute}
	})
	h.addPrincipal(t, "alice", true)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		_, err := h.engine.Login(ctx, matchauth.LoginRequest{Username: "alice", Password: "wrong-password", IP: testIP})
		requireKind(t, err, matchauth.KindInvalidCredentials)
	}

	_, err := h.login("alice", "")
	requireKind(t, err, matchauth.KindRateLimited)
	assert.ErrorIs(t, err, matchauth.ErrRateLimited)
	assert.Equal(t, 10*time.Second, matchauth.RetryAfterOf(err))
	h.waitFor(t, audit.LoginLocked)

	h.clock.Advance(61 * time.Second)
	res, err := h.login("alice", "")
	require.NoError(t, err)
	assert.NotNil(t, res.Tokens)
}

func TestLogin_RateLimitedWithRedisBackend(t *testing.T) {
	opt, mr := withRedis(t)
	h := newHarness(t, func(c *matchauth.Config) {
		c.Security.Login = matchauth.RatePolicy{Limit: 4, Window: time.Minute}
	}, opt)
	h.addPrincipal(t, "alice", true)

	for i := 0; i < 4; i++ {
		_, err := h.login("alice", "")
		require.NoError(t, err)
	}
	_, err := h.login("alice", "")
	requireKind(t, err, matchauth.KindRateLimited)

	mr.FastForward(61 * time.Second)
	_, err = h.login("alice", "")
	require.NoError(t, err)
}

func TestLogin_FailClosedWhenRedisIsDown(t *testing.T) {
	opt, mr := withRedis(t)
	h := newHarness(t, func(c *matchauth.Config) { c.Security.FailurePolicy = "fail_closed" }, opt)
	h.addPrincipal(t, "alice", true)

	mr.Close()
	_, err := h.login("alice", "")
	requireKind(t, err, matchauth.KindRateLimited)
}

func TestLogin_VelocityEscalatesToCaptcha(t *testing.T) {
	ctrl := gomock.NewController(t)
	verifier := mock.NewMockVerifier(ctrl)

	h := newHarness(t, func(c *matchauth.Config) {
		c.Security.Velocity = matchauth.RatePolicy{Limit: 2, Window: time.Minute}
	}, func(b *matchauth.Builder) { b.WithCaptcha(verifier) })
	h.addPrincipal(t, "carol", true)
	ctx := context.Background()

	for _, u := range []string{"u1", "u2"} {
		_, err := h.engine.Login(ctx, matchauth.LoginRequest{Username: u, Password: testPassword, IP: testIP})
		requireKind(t, err, matchauth.KindInvalidCredentials)
	}

	verifier.EXPECT().Verify(gomock.Any(), "", testIP).Return(false, nil)
	_, err := h.login("carol", "")
	requireKind(t, err, matchauth.KindCaptchaRequired)
	assert.Equal(t, 10*time.Second, matchauth.RetryAfterOf(err))
	h.waitFor(t, audit.SuspiciousActivity)

	verifier.EXPECT().Verify(gomock.Any(), "solved", testIP).Return(true, nil)
	res, err := h.engine.Login(ctx, matchauth.LoginRequest{
		Username:     "carol",
		Password:     testPassword,
		IP:           testIP,
		CaptchaToken: "solved",
	})
	require.NoError(t, err)
	assert.NotNil(t, res.Tokens)
}

func TestLogin_MFAChallengeForEnabledPrincipal(t *testing.T) {
	h := newHarness(t, nil)
	h.addPrincipal(t, "alice", true)
	secret := h.enableMFA(t, "alice")

	res, err := h.login("alice", "phone-1")
	require.NoError(t, err)
	require.True(t, res.MFARequired)
	assert.Nil(t, res.Tokens)
	assert.NotEmpty(t, res.Challenge)
	assert.Equal(t, []matchauth.MFAMethod{matchauth.MethodTOTP, matchauth.MethodRecoveryCode}, res.Methods)
	h.waitFor(t, audit.MFAChallengeIssued)

	ctx := context.Background()
	_, err = h.engine.CompleteMFA(ctx, matchauth.MFARequest{Challenge: res.Challenge, Code: "000000", IP: testIP})
	requireKind(t, err, matchauth.KindInvalidMFA)
	h.waitFor(t, audit.MFAFailed)

	pair, err := h.engine.CompleteMFA(ctx, matchauth.MFARequest{
		Challenge: res.Challenge,
		Code:      h.code(t, secret),
		Method:    matchauth.MethodTOTP,
		IP:        testIP,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)
	h.waitFor(t, audit.MFASucceeded)

	_, err = h.engine.CompleteMFA(ctx, matchauth.MFARequest{Challenge: res.Challenge, Code: h.code(t, secret), IP: testIP})
	requireKind(t, err, matchauth.KindInvalidMFA)
}

func TestLogin_TrustedDeviceBypassesMFA(t *testing.T) {
	ctrl := gomock.NewController(t)
	bypass := mock.NewMockBypassRecorder(ctrl)
	notifier := mock.NewMockNotifier(ctrl)

	h := newHarness(t, nil, func(b *matchauth.Builder) {
		b.WithBypassRecorder(bypass).WithNotifier(notifier)
	})
	h.addPrincipal(t, "alice", true)
	secret := h.enableMFA(t, "alice")
	ctx := context.Background()

	res, err := h.login("alice", "phone-1")
	require.NoError(t, err)
	require.True(t, res.MFARequired)

	notifier.EXPECT().NewDeviceTrusted(gomock.Any(), "alice", "phone-1").Return(errors.New("smtp down"))
	_, err = h.engine.CompleteMFA(ctx, matchauth.MFARequest{
		Challenge:   res.Challenge,
		Code:        h.code(t, secret),
		TrustDevice: true,
		IP:          testIP,
	})
	require.NoError(t, err, "notifier failures are not surfaced")

	devices, err := h.engine.TrustedDevices(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, devices, 1)
	assert.Equal(t, "phone-1", devices[0].DeviceID)
	assert.Equal(t, h.clock.Now().Add(30*24*time.Hour), devices[0].TrustedUntil)

	bypass.EXPECT().RecordBypass(gomock.Any(), "alice", "phone-1", testIP).Return(nil)
	res, err = h.login("alice", "phone-1")
	require.NoError(t, err)
	require.False(t, res.MFARequired)
	require.NotNil(t, res.Tokens)
	h.waitFor(t, audit.MFABypassed)

	res, err = h.login("alice", "laptop-2")
	require.NoError(t, err)
	assert.True(t, res.MFARequired, "other devices are still challenged")

	h.clock.Advance(31 * 24 * time.Hour)
	res, err = h.login("alice", "phone-1")
	require.NoError(t, err)
	assert.True(t, res.MFARequired, "expired trust no longer bypasses")
}

func TestLogin_AdminMustEnrollBeforeTokens(t *testing.T) {
	h := newHarness(t, nil)
	h.addPrincipal(t, "root", true, "player", matchauth.RoleAdmin)
	ctx := context.Background()

	res, err := h.login("root", "desk-1")
	require.NoError(t, err)
	require.True(t, res.MFARequired)
	assert.Equal(t, []matchauth.MFAMethod{matchauth.MethodTOTPSetup}, res.Methods)

	enr, err := h.engine.BeginMFASetup(ctx, res.Challenge)
	require.NoError(t, err)
	assert.Contains(t, enr.URI, "otpauth://totp/")
	again, err := h.engine.BeginMFASetup(ctx, res.Challenge)
	require.NoError(t, err)
	assert.Equal(t, enr.Secret, again.Secret)

	_, err = h.engine.CompleteMFA(ctx, matchauth.MFARequest{
		Challenge: res.Challenge,
		Code:      "some-recovery-code",
		Method:    matchauth.MethodRecoveryCode,
	})
	requireKind(t, err, matchauth.KindInvalidMFA)

	pair, err := h.engine.CompleteMFA(ctx, matchauth.MFARequest{Challenge: res.Challenge, Code: h.code(t, enr.Secret)})
	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)

	p, err := h.repos.Principals.FindPrincipal(ctx, "root")
	require.NoError(t, err)
	assert.True(t, p.MFAEnabled)
	h.waitFor(t, audit.MFAEnabled)

	res, err = h.login("root", "desk-1")
	require.NoError(t, err)
	require.True(t, res.MFARequired)
	assert.Equal(t, []matchauth.MFAMethod{matchauth.MethodTOTP, matchauth.MethodRecoveryCode}, res.Methods)

	_, err = h.engine.BeginMFASetup(ctx, res.Challenge)
	requireKind(t, err, matchauth.KindInvalidMFA)
}

func TestLogin_AdminMFAOptional(t *testing.T) {
	h := newHarness(t, func(c *matchauth.Config) { c.MFA.RequireForAdmins = false })
	h.addPrincipal(t, "root", true, matchauth.RoleAdmin)

	res, err := h.login("root", "")
	require.NoError(t, err)
	assert.False(t, res.MFARequired)
	assert.NotNil(t, res.Tokens)
}
