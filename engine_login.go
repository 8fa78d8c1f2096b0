package matchauth

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/MrEthical07/matchauth/internal/audit"
	"github.com/MrEthical07/matchauth/internal/gatekeeper"
	"github.com/MrEthical07/matchauth/internal/logger"
	"github.com/MrEthical07/matchauth/internal/stores"
	"github.com/MrEthical07/matchauth/refresh"
)

// Login runs a password login through the rate gate, credential check, e-mail
// verification and MFA gate. It returns either a token pair or an MFA challenge.
//
// Unknown usernames and wrong passwords are indistinguishable to the caller.
func (e *Engine) Login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	username := strings.TrimSpace(req.Username)

	verdict := e.gate.Check(ctx, gatekeeper.Attempt{
		Action:       gatekeeper.ActionLogin,
		Principal:    username,
		IP:           req.IP,
		CaptchaToken: req.CaptchaToken,
	})
	if !verdict.Allowed() {
		return nil, gateError(verdict)
	}

	if username == "" || req.Password == "" {
		e.loginFailed(ctx, username, req.IP, "missing_credentials")
		return nil, newError(KindInvalidCredentials, nil)
	}

	p, err := e.principals.FindPrincipal(ctx, username)
	if errors.Is(err, ErrPrincipalNotFound) {
		e.passwords.VerifyDummy(req.Password)
		e.loginFailed(ctx, username, req.IP, "invalid_credentials")
		return nil, newError(KindInvalidCredentials, nil)
	}
	if err != nil {
		logger.FromContext(ctx).Error().Err(err).Msg("principal lookup failed")
		return nil, newError(KindPersistence, err)
	}

	ok, err := e.passwords.Verify(req.Password, p.PasswordHash)
	if err != nil || !ok {
		if err != nil {
			logger.FromContext(ctx).Warn().Err(err).Msg("password verification error")
		}
		e.loginFailed(ctx, username, req.IP, "invalid_credentials")
		return nil, newError(KindInvalidCredentials, err)
	}

	if e.config.Security.RequireVerifiedEmail && !p.EmailVerified {
		e.loginFailed(ctx, username, req.IP, "email_unverified")
		return nil, newError(KindEmailUnverified, nil)
	}

	trusted := e.deviceTrusted(ctx, username, req.DeviceID)
	adminGate := e.config.MFA.RequireForAdmins && p.HasRole(RoleAdmin)
	if (adminGate && (!p.MFAEnabled || !trusted)) || (p.MFAEnabled && !trusted) {
		return e.issueChallenge(ctx, p, req)
	}

	mode := "none"
	if p.MFAEnabled {
		mode = "trusted_device"
		if err := e.bypass.RecordBypass(ctx, username, req.DeviceID, req.IP); err != nil {
			logger.FromContext(ctx).Warn().Err(err).Msg("bypass recorder failed")
		}
		e.emit(ctx, audit.MFABypassed, username, req.IP, map[string]string{"device_id": req.DeviceID})
	}

	pair, err := e.issue(ctx, username)
	if err != nil {
		return nil, err
	}
	e.emit(ctx, audit.LoginSuccess, username, req.IP, map[string]string{"mfa": mode})
	return &LoginResult{Tokens: pair}, nil
}

func (e *Engine) issueChallenge(ctx context.Context, p Principal, req LoginRequest) (*LoginResult, error) {
	ttl := e.config.MFA.ChallengeTTL
	id := uuid.NewString()
	c := &stores.Challenge{
		Username:  p.Username,
		DeviceID:  req.DeviceID,
		Setup:     !p.MFAEnabled,
		ExpiresAt: e.now().Add(ttl).UnixMilli(),
	}
	if err := e.challenges.Save(ctx, id, c, ttl); err != nil {
		logger.FromContext(ctx).Error().Err(err).Msg("mfa challenge save failed")
		return nil, newError(KindPersistence, err)
	}

	methods := []MFAMethod{MethodTOTP, MethodRecoveryCode}
	if c.Setup {
		methods = []MFAMethod{MethodTOTPSetup}
	}
	e.emit(ctx, audit.MFAChallengeIssued, p.Username, req.IP, map[string]string{"setup": strconv.FormatBool(c.Setup)})

	return &LoginResult{
		MFARequired: true,
		Methods:     methods,
		Challenge:   id,
	}, nil
}

// deviceTrusted treats lookup errors as untrusted so the principal is challenged.
func (e *Engine) deviceTrusted(ctx context.Context, username, deviceID string) bool {
	if strings.TrimSpace(deviceID) == "" {
		return false
	}
	ok, err := e.devices.IsTrusted(ctx, username, deviceID)
	if err != nil {
		logger.FromContext(ctx).Warn().Err(err).Msg("trusted device lookup failed")
		return false
	}
	return ok
}

func (e *Engine) loginFailed(ctx context.Context, username, ip, reason string) {
	e.emit(ctx, audit.LoginFailure, username, ip, map[string]string{"reason": reason})
}

// issue mints an access token and a fresh refresh credential for username.
func (e *Engine) issue(ctx context.Context, username string) (*TokenPair, error) {
	access, err := e.tokens.Generate(username)
	if err != nil {
		return nil, newError(KindInternal, err)
	}
	rp, err := e.refresh.CreateToken(ctx, username)
	if err != nil {
		logger.FromContext(ctx).Error().Err(err).Msg("refresh token issue failed")
		if errors.Is(err, refresh.ErrPersistence) {
			return nil, newError(KindPersistence, err)
		}
		return nil, newError(KindInternal, err)
	}
	return e.pair(access, rp), nil
}

func (e *Engine) pair(access string, rp refresh.Pair) *TokenPair {
	return &TokenPair{
		AccessToken:  access,
		RefreshToken: rp.Token,
		RefreshNonce: rp.Nonce,
		TokenType:    tokenTypeBearer,
		ExpiresIn:    e.tokens.TTL(),
		RefreshUntil: rp.ExpiresAt,
	}
}

func gateError(v gatekeeper.Verdict) *Error {
	kind := KindRateLimited
	if v.Outcome == gatekeeper.CaptchaRequired {
		kind = KindCaptchaRequired
	}
	return &Error{Kind: kind, RetryAfter: v.RetryAfter}
}
