package store

import (
	"context"
	"fmt"

	"github.com/MrEthical07/matchauth/internal/logger"
)

// Repositories groups every repository over one DB.
type Repositories struct {
	Principals    *PrincipalRepository
	RefreshTokens *RefreshTokenRepository
	RecoveryCodes *RecoveryCodeRepository
	Devices       *TrustedDeviceRepository
}

// NewRepositories builds all repositories over db.
func NewRepositories(db *DB) *Repositories {
	db.logger.Debug().Msg("creating repositories")
	return &Repositories{
		Principals:    &PrincipalRepository{db: db},
		RefreshTokens: &RefreshTokenRepository{db: db},
		RecoveryCodes: &RecoveryCodeRepository{db: db},
		Devices:       &TrustedDeviceRepository{db: db},
	}
}

// dbError logs an unexpected driver error with its retry classification and wraps it.
func dbError(ctx context.Context, fn string, err error) error {
	logger.FromContext(ctx).Err(err).
		Str("func", fn).
		Bool("retryable", Classify(err) == Retryable).
		Msg("unexpected DB error")
	return fmt.Errorf("unexpected DB error: %w", err)
}
