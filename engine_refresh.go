package matchauth

import (
	"context"
	"errors"

	"github.com/MrEthical07/matchauth/internal/audit"
	"github.com/MrEthical07/matchauth/internal/gatekeeper"
	"github.com/MrEthical07/matchauth/internal/logger"
	"github.com/MrEthical07/matchauth/refresh"
)

// Refresh exchanges a live refresh credential for a new access token and a rotated
// refresh credential. Presenting an already rotated token revokes every token of
// its principal when reuse detection is on.
func (e *Engine) Refresh(ctx context.Context, req RefreshRequest) (*TokenPair, error) {
	verdict := e.gate.Check(ctx, gatekeeper.Attempt{
		Action: gatekeeper.ActionRefresh,
		IP:     req.IP,
	})
	if !verdict.Allowed() {
		return nil, gateError(verdict)
	}

	rec, err := e.refresh.Validate(ctx, req.Token, req.Nonce)
	if err != nil {
		return nil, refreshError(ctx, err)
	}

	rp, err := e.refresh.Rotate(ctx, rec)
	if err != nil {
		return nil, refreshError(ctx, err)
	}

	access, err := e.tokens.Generate(rec.Principal)
	if err != nil {
		return nil, newError(KindInternal, err)
	}

	e.emit(ctx, audit.RefreshIssued, rec.Principal, req.IP, nil)
	return e.pair(access, rp), nil
}

// Logout revokes the refresh token if it is known. It never fails.
func (e *Engine) Logout(ctx context.Context, refreshToken, ip string) {
	e.refresh.RevokeByTokenValue(ctx, refreshToken)
	e.emit(ctx, audit.Logout, "", ip, nil)
}

func refreshError(ctx context.Context, err error) *Error {
	if errors.Is(err, refresh.ErrInvalidRefreshToken) {
		return newError(KindInvalidRefreshToken, err)
	}
	logger.FromContext(ctx).Error().Err(err).Msg("refresh failed")
	if errors.Is(err, refresh.ErrPersistence) {
		return newError(KindPersistence, err)
	}
	return newError(KindInternal, err)
}
