package matchauth

import (
	"time"

	"github.com/MrEthical07/matchauth/device"
	"github.com/MrEthical07/matchauth/internal/audit"
	"github.com/MrEthical07/matchauth/internal/gatekeeper"
	"github.com/MrEthical07/matchauth/internal/logger"
	"github.com/MrEthical07/matchauth/internal/stores"
	"github.com/MrEthical07/matchauth/jwt"
	"github.com/MrEthical07/matchauth/mfa"
	"github.com/MrEthical07/matchauth/refresh"
)

const tokenTypeBearer = "Bearer"

// Engine orchestrates login, MFA, refresh and logout.
//
// Engine instances are built once by a Builder and are safe for concurrent use.
type Engine struct {
	config Config

	principals PrincipalStore
	passwords  PasswordVerifier
	notifier   Notifier
	bypass     BypassRecorder

	tokens     *jwt.Manager
	refresh    *refresh.Manager
	mfa        *mfa.Engine
	recovery   *mfa.RecoveryCodes
	devices    *device.Registry
	challenges stores.ChallengeStore
	gate       *gatekeeper.Gatekeeper
	audit      *audit.Dispatcher

	logger  *logger.Logger
	now     func() time.Time
	closers []func()
}

// Close stops background sweepers and drains the audit queue.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	for _, c := range e.closers {
		c()
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped returns how many audit events were dropped because the queue was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// Config returns a copy of the Engine configuration.
func (e *Engine) Config() Config {
	return cloneConfig(e.config)
}
