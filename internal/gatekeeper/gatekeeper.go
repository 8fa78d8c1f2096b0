// Package gatekeeper combines the rate limiter, the velocity counter and CAPTCHA
// escalation into one decision taken before credentials or refresh tokens are checked.
package gatekeeper

import (
	"context"
	"time"

	"github.com/MrEthical07/matchauth/internal/audit"
	"github.com/MrEthical07/matchauth/internal/captcha"
	"github.com/MrEthical07/matchauth/internal/logger"
	"github.com/MrEthical07/matchauth/internal/rate"
	"github.com/MrEthical07/matchauth/internal/velocity"
)

// Action names the guarded operation; it is part of every counter key.
type Action string

const (
	ActionLogin   Action = "login"
	ActionRefresh Action = "refresh"
	// ActionMFA guards challenge answers with the login policy on its own counter.
	ActionMFA Action = "mfa"
)

// Attempt describes one request reaching the gate.
type Attempt struct {
	Action       Action
	Principal    string
	IP           string
	CaptchaToken string
}

// Outcome is the gate decision.
type Outcome int

const (
	Allowed Outcome = iota
	RateLimited
	CaptchaRequired
)

func (o Outcome) String() string {
	switch o {
	case Allowed:
		return "allowed"
	case RateLimited:
		return "rate_limited"
	case CaptchaRequired:
		return "captcha_required"
	default:
		return "unknown"
	}
}

// Verdict is returned by Check. RetryAfter is set for rejections.
type Verdict struct {
	Outcome    Outcome
	RetryAfter time.Duration
}

// Allowed reports whether the request may proceed.
func (v Verdict) Allowed() bool {
	return v.Outcome == Allowed
}

// Policy is a limit per window. A non-positive Limit disables the layer.
type Policy struct {
	Limit  int
	Window time.Duration
}

// Config holds the per-action policies.
type Config struct {
	Login    Policy
	Refresh  Policy
	Velocity Policy
	Now      func() time.Time
}

// DefaultConfig returns login 5/min, refresh 30/min and velocity 10/min.
func DefaultConfig() Config {
	return Config{
		Login:    Policy{Limit: 5, Window: time.Minute},
		Refresh:  Policy{Limit: 30, Window: time.Minute},
		Velocity: Policy{Limit: 10, Window: time.Minute},
	}
}

// Emitter receives audit events; *audit.Dispatcher implements it.
type Emitter interface {
	Emit(ctx context.Context, event audit.Event)
}

// Gatekeeper evaluates attempts. It is safe for concurrent use.
type Gatekeeper struct {
	limiter  *rate.Limiter
	velocity *velocity.Counter
	captcha  captcha.Verifier
	audit    Emitter
	config   Config
}

// New assembles a Gatekeeper. A nil verifier means captcha.Disabled; a nil emitter
// discards events.
func New(limiter *rate.Limiter, vel *velocity.Counter, verifier captcha.Verifier, emitter Emitter, cfg Config) *Gatekeeper {
	if verifier == nil {
		verifier = captcha.Disabled{}
	}
	if emitter == nil {
		emitter = audit.NoOpSink{}
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Gatekeeper{
		limiter:  limiter,
		velocity: vel,
		captcha:  verifier,
		audit:    emitter,
		config:   cfg,
	}
}

// Check counts the attempt and decides whether it may proceed.
//
// The rate limit is keyed by principal, or by IP when the principal is unknown.
// Velocity is tracked per IP for logins only; once exceeded the attempt needs a
// CAPTCHA token that the verifier accepts.
func (g *Gatekeeper) Check(ctx context.Context, a Attempt) Verdict {
	policy := g.policy(a.Action)
	subject := a.Principal
	if subject == "" {
		subject = a.IP
	}

	d, err := g.limiter.Allow(ctx, string(a.Action), subject, policy.Limit, policy.Window)
	if err != nil {
		logger.FromContext(ctx).Warn().Err(err).Str("action", string(a.Action)).Msg("rate limiter degraded")
	}
	if !d.Allowed {
		eventType := audit.SuspiciousActivity
		if a.Action == ActionLogin {
			eventType = audit.LoginLocked
		}
		g.emit(ctx, eventType, a, map[string]string{"reason": "rate_limited", "action": string(a.Action)})
		return Verdict{Outcome: RateLimited, RetryAfter: d.RetryAfter}
	}

	if a.Action != ActionLogin || g.velocity == nil || g.config.Velocity.Limit <= 0 {
		return Verdict{Outcome: Allowed}
	}

	velocityKey := a.IP
	if velocityKey == "" {
		velocityKey = a.Principal
	}
	if g.velocity.IncrementAndCheck(string(a.Action)+":"+velocityKey, g.config.Velocity.Limit, g.config.Velocity.Window) {
		return Verdict{Outcome: Allowed}
	}

	ok, err := g.captcha.Verify(ctx, a.CaptchaToken, a.IP)
	if err != nil {
		logger.FromContext(ctx).Warn().Err(err).Msg("captcha verification failed")
	}
	if ok {
		return Verdict{Outcome: Allowed}
	}

	g.emit(ctx, audit.SuspiciousActivity, a, map[string]string{"reason": "velocity_exceeded", "action": string(a.Action)})
	return Verdict{Outcome: CaptchaRequired, RetryAfter: g.limiter.RetryAfter()}
}

func (g *Gatekeeper) policy(action Action) Policy {
	switch action {
	case ActionRefresh:
		return g.config.Refresh
	default:
		return g.config.Login
	}
}

func (g *Gatekeeper) emit(ctx context.Context, eventType string, a Attempt, meta map[string]string) {
	g.audit.Emit(ctx, audit.Event{
		Timestamp: g.config.Now(),
		Type:      eventType,
		Actor:     a.Principal,
		IP:        a.IP,
		Metadata:  meta,
	})
}
