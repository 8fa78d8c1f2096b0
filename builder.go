package matchauth

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/matchauth/device"
	"github.com/MrEthical07/matchauth/internal/audit"
	"github.com/MrEthical07/matchauth/internal/captcha"
	"github.com/MrEthical07/matchauth/internal/gatekeeper"
	"github.com/MrEthical07/matchauth/internal/logger"
	"github.com/MrEthical07/matchauth/internal/metrics"
	"github.com/MrEthical07/matchauth/internal/rate"
	"github.com/MrEthical07/matchauth/internal/stores"
	"github.com/MrEthical07/matchauth/internal/velocity"
	"github.com/MrEthical07/matchauth/jwt"
	"github.com/MrEthical07/matchauth/mfa"
	"github.com/MrEthical07/matchauth/refresh"
)

const sweepInterval = time.Minute

// Builder assembles an Engine from its collaborators. A Builder can be used once.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	principals    PrincipalStore
	passwords     PasswordVerifier
	refreshStore  refresh.Store
	secretStore   mfa.SecretStore
	recoveryStore mfa.RecoveryStore
	deviceStore   device.Store

	captcha   captcha.Verifier
	notifier  Notifier
	bypass    BypassRecorder
	counter   metrics.Counter
	auditSink audit.Sink
	logger    *logger.Logger
	rand      io.Reader
	now       func() time.Time

	built bool
}

// New returns a Builder seeded with DefaultConfig.
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis moves rate-limit counters and MFA challenges to Redis. Without it both
// stay in process memory.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

func (b *Builder) WithPrincipalStore(s PrincipalStore) *Builder {
	b.principals = s
	return b
}

func (b *Builder) WithPasswordVerifier(v PasswordVerifier) *Builder {
	b.passwords = v
	return b
}

func (b *Builder) WithRefreshStore(s refresh.Store) *Builder {
	b.refreshStore = s
	return b
}

func (b *Builder) WithMFAStores(secrets mfa.SecretStore, recovery mfa.RecoveryStore) *Builder {
	b.secretStore = secrets
	b.recoveryStore = recovery
	return b
}

func (b *Builder) WithDeviceStore(s device.Store) *Builder {
	b.deviceStore = s
	return b
}

// WithCaptcha sets the CAPTCHA verifier used once velocity is exceeded. The default
// rejects every token.
func (b *Builder) WithCaptcha(v captcha.Verifier) *Builder {
	b.captcha = v
	return b
}

func (b *Builder) WithNotifier(n Notifier) *Builder {
	b.notifier = n
	return b
}

func (b *Builder) WithBypassRecorder(r BypassRecorder) *Builder {
	b.bypass = r
	return b
}

// WithCounter sets the per-event counter fed by the default audit sink.
func (b *Builder) WithCounter(c metrics.Counter) *Builder {
	b.counter = c
	return b
}

// WithAuditSink replaces the default log sink.
func (b *Builder) WithAuditSink(s audit.Sink) *Builder {
	b.auditSink = s
	return b
}

func (b *Builder) WithLogger(l *logger.Logger) *Builder {
	b.logger = l
	return b
}

// WithRand replaces crypto/rand for refresh tokens, TOTP secrets and recovery codes.
func (b *Builder) WithRand(r io.Reader) *Builder {
	b.rand = r
	return b
}

// WithClock replaces time.Now everywhere in the Engine.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// Build validates the configuration and wires the Engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch {
	case b.principals == nil:
		return nil, errors.New("principal store required")
	case b.passwords == nil:
		return nil, errors.New("password verifier required")
	case b.refreshStore == nil:
		return nil, errors.New("refresh store required")
	case b.secretStore == nil || b.recoveryStore == nil:
		return nil, errors.New("mfa stores required")
	case b.deviceStore == nil:
		return nil, errors.New("device store required")
	}

	now := b.now
	if now == nil {
		now = time.Now
	}
	log := b.logger
	if log == nil {
		log = logger.Nop()
	}

	engine := &Engine{
		config:     cfg,
		principals: b.principals,
		passwords:  b.passwords,
		notifier:   b.notifier,
		bypass:     b.bypass,
		logger:     log,
		now:        now,
	}
	if engine.notifier == nil {
		engine.notifier = NopNotifier{}
	}
	if engine.bypass == nil {
		engine.bypass = NopBypassRecorder{}
	}

	// -------- AUDIT --------
	sink := b.auditSink
	if sink == nil {
		sink = audit.NewLogSink(log.GetChildLogger(), b.counter)
	}
	engine.audit = audit.NewDispatcher(audit.Config{BufferSize: cfg.Audit.BufferSize}, sink, log)

	// -------- TOKENS --------
	jm, err := jwt.NewManager(jwt.Config{
		AccessTTL:     cfg.JWT.AccessTTL,
		SigningMethod: jwt.SigningMethod(cfg.JWT.SigningMethod),
		PrivateKey:    cloneBytes(cfg.JWT.PrivateKey),
		PublicKey:     cloneBytes(cfg.JWT.PublicKey),
		Issuer:        cfg.JWT.Issuer,
		Audience:      cfg.JWT.Audience,
		Leeway:        cfg.JWT.Leeway,
		KeyID:         cfg.JWT.KeyID,
		Now:           now,
	})
	if err != nil {
		return nil, err
	}
	engine.tokens = jm

	rm, err := refresh.NewManager(b.refreshStore, refresh.Config{
		TTL:            cfg.Refresh.TTL,
		ReuseDetection: cfg.Refresh.ReuseDetection,
		OnReuse:        engine.onRefreshReuse,
		Rand:           b.rand,
		Now:            now,
	})
	if err != nil {
		return nil, err
	}
	engine.refresh = rm

	// -------- MFA --------
	me, err := mfa.NewEngine(b.secretStore, mfa.Config{
		Issuer: cfg.MFA.Issuer,
		Rand:   b.rand,
		Now:    now,
	})
	if err != nil {
		return nil, err
	}
	engine.mfa = me

	rc, err := mfa.NewRecoveryCodes(b.recoveryStore, b.rand, now)
	if err != nil {
		return nil, err
	}
	engine.recovery = rc

	dr, err := device.NewRegistry(b.deviceStore, cfg.Device.TrustTTL, now)
	if err != nil {
		return nil, err
	}
	engine.devices = dr

	// -------- ANTI-ABUSE --------
	policy, err := rate.ParseFailurePolicy(cfg.Security.FailurePolicy)
	if err != nil {
		return nil, err
	}
	var backend rate.Backend
	if b.redis != nil {
		backend = rate.NewRedisBackend(b.redis)
		engine.challenges = stores.NewRedisChallengeStore(b.redis, "", now)
	} else {
		mem := rate.NewMemoryBackend(sweepInterval, now)
		engine.closers = append(engine.closers, mem.Close)
		backend = mem
		engine.challenges = stores.NewMemoryChallengeStore(now)
	}
	limiter := rate.New(backend, rate.Config{
		FailurePolicy: policy,
		RetryAfter:    cfg.Security.RetryAfter,
	})

	vel := velocity.New(sweepInterval, 2*cfg.Security.Velocity.Window, now)
	engine.closers = append(engine.closers, vel.Close)

	engine.gate = gatekeeper.New(limiter, vel, b.captcha, engine.audit, gatekeeper.Config{
		Login:    gatekeeper.Policy(cfg.Security.Login),
		Refresh:  gatekeeper.Policy(cfg.Security.Refresh),
		Velocity: gatekeeper.Policy(cfg.Security.Velocity),
		Now:      now,
	})

	b.built = true
	return engine, nil
}

func (e *Engine) onRefreshReuse(ctx context.Context, principal string) {
	e.emit(ctx, audit.RefreshReuseDetected, principal, "", nil)
	e.emit(ctx, audit.SuspiciousActivity, principal, "", map[string]string{"reason": "refresh_token_reuse"})
}
