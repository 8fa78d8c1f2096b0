package matchauth

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/MrEthical07/matchauth/internal/audit"
	"github.com/MrEthical07/matchauth/internal/gatekeeper"
	"github.com/MrEthical07/matchauth/internal/logger"
	"github.com/MrEthical07/matchauth/internal/stores"
	"github.com/MrEthical07/matchauth/mfa"
)

// CompleteMFA answers a login challenge with a TOTP code or a recovery code and
// issues tokens on success. A challenge is deleted after MFA.MaxAttempts failures
// and after its first successful answer.
func (e *Engine) CompleteMFA(ctx context.Context, req MFARequest) (*TokenPair, error) {
	c, err := e.loadChallenge(ctx, req.Challenge)
	if err != nil {
		return nil, err
	}

	verdict := e.gate.Check(ctx, gatekeeper.Attempt{
		Action:    gatekeeper.ActionMFA,
		Principal: c.Username,
		IP:        req.IP,
	})
	if !verdict.Allowed() {
		return nil, gateError(verdict)
	}

	method := req.Method
	if method == "" {
		method = MethodTOTP
		if c.Setup {
			method = MethodTOTPSetup
		}
	}

	// A recovery code is spent when checked, so the challenge is claimed first and only
	// one concurrent answer can consume a code.
	claimed := method == MethodRecoveryCode
	if claimed {
		if err := e.claimChallenge(ctx, req.Challenge); err != nil {
			return nil, err
		}
	}

	ok, err := e.verifyFactor(ctx, c, method, req.Code)
	if err != nil {
		if claimed {
			e.releaseChallenge(ctx, req.Challenge, c, false)
		}
		logger.FromContext(ctx).Error().Err(err).Msg("mfa factor check failed")
		return nil, newError(KindPersistence, err)
	}
	if !ok {
		var exceeded bool
		if claimed {
			exceeded = e.releaseChallenge(ctx, req.Challenge, c, true)
		} else {
			var ferr error
			exceeded, ferr = e.challenges.RecordFailure(ctx, req.Challenge, e.config.MFA.MaxAttempts)
			if ferr != nil && !errors.Is(ferr, stores.ErrChallengeNotFound) {
				logger.FromContext(ctx).Warn().Err(ferr).Msg("mfa failure not recorded")
			}
		}
		e.emit(ctx, audit.MFAFailed, c.Username, req.IP, map[string]string{
			"method":   string(method),
			"exceeded": strconv.FormatBool(exceeded),
		})
		return nil, newError(KindInvalidMFA, nil)
	}

	if !claimed {
		if err := e.claimChallenge(ctx, req.Challenge); err != nil {
			return nil, err
		}
	}

	if c.Setup {
		if err := e.mfa.Enable(ctx, c.Username); err != nil {
			return nil, newError(KindPersistence, err)
		}
		e.emit(ctx, audit.MFAEnabled, c.Username, req.IP, nil)
	}
	if method == MethodRecoveryCode {
		if err := e.notifier.RecoveryCodeUsed(ctx, c.Username); err != nil {
			logger.FromContext(ctx).Warn().Err(err).Msg("recovery code notice failed")
		}
		e.emit(ctx, audit.RecoveryCodeUsed, c.Username, req.IP, nil)
	}

	if req.TrustDevice {
		e.trustDevice(ctx, c, req)
	}
	e.emit(ctx, audit.MFASucceeded, c.Username, req.IP, map[string]string{"method": string(method)})

	pair, err := e.issue(ctx, c.Username)
	if err != nil {
		return nil, err
	}
	e.emit(ctx, audit.LoginSuccess, c.Username, req.IP, map[string]string{"mfa": "verified"})
	return pair, nil
}

// BeginMFASetup provisions the TOTP secret for a principal holding a setup
// challenge. Repeated calls return the same secret until MFA is enabled.
func (e *Engine) BeginMFASetup(ctx context.Context, challenge string) (*Enrollment, error) {
	c, err := e.loadChallenge(ctx, challenge)
	if err != nil {
		return nil, err
	}
	if !c.Setup {
		return nil, newError(KindInvalidMFA, nil)
	}
	return e.enroll(ctx, c.Username)
}

func (e *Engine) loadChallenge(ctx context.Context, id string) (*stores.Challenge, error) {
	if strings.TrimSpace(id) == "" {
		return nil, newError(KindInvalidMFA, nil)
	}
	c, err := e.challenges.Get(ctx, id)
	switch {
	case errors.Is(err, stores.ErrChallengeNotFound), errors.Is(err, stores.ErrChallengeExpired):
		return nil, newError(KindInvalidMFA, err)
	case err != nil:
		logger.FromContext(ctx).Error().Err(err).Msg("mfa challenge lookup failed")
		return nil, newError(KindPersistence, err)
	}
	return c, nil
}

// claimChallenge deletes the challenge; only the caller that removed it may go on.
func (e *Engine) claimChallenge(ctx context.Context, id string) error {
	won, err := e.challenges.Delete(ctx, id)
	if err != nil {
		return newError(KindPersistence, err)
	}
	if !won {
		return newError(KindInvalidMFA, stores.ErrChallengeNotFound)
	}
	return nil
}

// releaseChallenge puts a claimed challenge back for its remaining lifetime. With
// failed set it counts one more attempt and stays deleted once MFA.MaxAttempts is
// reached, reporting true.
func (e *Engine) releaseChallenge(ctx context.Context, id string, c *stores.Challenge, failed bool) bool {
	rec := *c
	if failed {
		rec.Attempts++
		if int(rec.Attempts) >= e.config.MFA.MaxAttempts {
			return true
		}
	}
	ttl := time.UnixMilli(rec.ExpiresAt).Sub(e.now())
	if ttl <= 0 {
		return false
	}
	if err := e.challenges.Save(ctx, id, &rec, ttl); err != nil {
		logger.FromContext(ctx).Warn().Err(err).Msg("mfa challenge not restored")
	}
	return false
}

// verifyFactor returns an error only for storage failures.
func (e *Engine) verifyFactor(ctx context.Context, c *stores.Challenge, method MFAMethod, code string) (bool, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return false, nil
	}
	switch method {
	case MethodTOTP, MethodTOTPSetup:
		if (method == MethodTOTPSetup) != c.Setup {
			return false, nil
		}
		ok, err := e.mfa.Verify(ctx, c.Username, code)
		if errors.Is(err, mfa.ErrNotEnrolled) {
			return false, nil
		}
		return ok, err
	case MethodRecoveryCode:
		if c.Setup {
			return false, nil
		}
		return e.recovery.ConsumeFor(ctx, c.Username, code)
	default:
		return false, nil
	}
}

func (e *Engine) trustDevice(ctx context.Context, c *stores.Challenge, req MFARequest) {
	deviceID := c.DeviceID
	if deviceID == "" {
		deviceID = req.DeviceID
	}
	if strings.TrimSpace(deviceID) == "" {
		return
	}
	if _, err := e.devices.Trust(ctx, c.Username, deviceID); err != nil {
		logger.FromContext(ctx).Warn().Err(err).Msg("device trust failed")
		return
	}
	if err := e.notifier.NewDeviceTrusted(ctx, c.Username, deviceID); err != nil {
		logger.FromContext(ctx).Warn().Err(err).Msg("device trust notice failed")
	}
	e.emit(ctx, audit.DeviceTrusted, c.Username, req.IP, map[string]string{"device_id": deviceID})
}

/*
====================================
MFA MANAGEMENT
====================================
*/

// EnrollMFA provisions (or returns the pending) TOTP secret of an authenticated principal.
func (e *Engine) EnrollMFA(ctx context.Context, username string) (*Enrollment, error) {
	return e.enroll(ctx, username)
}

func (e *Engine) enroll(ctx context.Context, username string) (*Enrollment, error) {
	secret, err := e.mfa.Enroll(ctx, username)
	if err != nil {
		return nil, storeError(err)
	}
	e.emit(ctx, audit.MFAEnrolled, username, "", nil)
	return &Enrollment{
		Secret: secret,
		URI:    e.mfa.ProvisioningURI(username, secret),
	}, nil
}

// ConfirmMFA enables MFA once code matches the enrolled secret.
func (e *Engine) ConfirmMFA(ctx context.Context, username, code string) error {
	err := e.mfa.Confirm(ctx, username, strings.TrimSpace(code))
	switch {
	case errors.Is(err, mfa.ErrInvalidCode), errors.Is(err, mfa.ErrNotEnrolled):
		e.emit(ctx, audit.MFAFailed, username, "", map[string]string{"method": string(MethodTOTP)})
		return newError(KindInvalidMFA, err)
	case err != nil:
		return storeError(err)
	}
	e.emit(ctx, audit.MFAEnabled, username, "", nil)
	return nil
}

// DisableMFA turns MFA off after a valid TOTP code and revokes every refresh token
// of the principal.
func (e *Engine) DisableMFA(ctx context.Context, username, code string) error {
	ok, err := e.mfa.Verify(ctx, username, strings.TrimSpace(code))
	if errors.Is(err, mfa.ErrNotEnrolled) {
		return newError(KindInvalidMFA, err)
	}
	if err != nil {
		return storeError(err)
	}
	if !ok {
		e.emit(ctx, audit.MFAFailed, username, "", map[string]string{"method": string(MethodTOTP)})
		return newError(KindInvalidMFA, nil)
	}

	if err := e.mfa.Disable(ctx, username); err != nil {
		return storeError(err)
	}
	if err := e.refresh.RevokeAllForPrincipal(ctx, username); err != nil {
		return newError(KindPersistence, err)
	}
	e.emit(ctx, audit.MFADisabled, username, "", nil)
	return nil
}

// RegenerateRecoveryCodes replaces all recovery codes of username. A zero count uses
// MFA.RecoveryCodeCount. The plaintext codes are only ever returned here.
func (e *Engine) RegenerateRecoveryCodes(ctx context.Context, username string, count int) ([]string, error) {
	if count <= 0 {
		count = e.config.MFA.RecoveryCodeCount
	}
	codes, err := e.recovery.Regenerate(ctx, username, count)
	if err != nil {
		return nil, storeError(err)
	}
	if err := e.notifier.RecoveryCodesRegenerated(ctx, username, len(codes)); err != nil {
		logger.FromContext(ctx).Warn().Err(err).Msg("recovery codes notice failed")
	}
	e.emit(ctx, audit.RecoveryCodesRegenerated, username, "", map[string]string{"count": strconv.Itoa(len(codes))})
	return codes, nil
}

// RecoveryCodes lists the recovery codes of username in masked form.
func (e *Engine) RecoveryCodes(ctx context.Context, username string) ([]MaskedRecoveryCode, error) {
	codes, err := e.recovery.ListMasked(ctx, username)
	if err != nil {
		return nil, storeError(err)
	}
	out := make([]MaskedRecoveryCode, 0, len(codes))
	for _, c := range codes {
		out = append(out, MaskedRecoveryCode{Hint: c.Hint, Consumed: c.Consumed})
	}
	return out, nil
}

// TrustedDevices lists the devices of username whose trust has not expired.
func (e *Engine) TrustedDevices(ctx context.Context, username string) ([]TrustedDevice, error) {
	devices, err := e.devices.List(ctx, username)
	if err != nil {
		return nil, storeError(err)
	}
	out := make([]TrustedDevice, 0, len(devices))
	for _, d := range devices {
		out = append(out, TrustedDevice{DeviceID: d.DeviceID, TrustedUntil: d.TrustedUntil})
	}
	return out, nil
}

// RevokeDevice removes trust for deviceID. Unknown devices succeed.
func (e *Engine) RevokeDevice(ctx context.Context, username, deviceID string) error {
	if err := e.devices.Revoke(ctx, username, deviceID); err != nil {
		return storeError(err)
	}
	e.emit(ctx, audit.DeviceRevoked, username, "", map[string]string{"device_id": deviceID})
	return nil
}

func storeError(err error) *Error {
	if errors.Is(err, ErrPrincipalNotFound) {
		return newError(KindUnauthorized, err)
	}
	return newError(KindPersistence, err)
}
