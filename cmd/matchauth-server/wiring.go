package main

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/MrEthical07/matchauth"
	"github.com/MrEthical07/matchauth/internal/captcha"
	"github.com/MrEthical07/matchauth/internal/config"
	"github.com/MrEthical07/matchauth/internal/logger"
	"github.com/MrEthical07/matchauth/internal/metrics"
	"github.com/MrEthical07/matchauth/internal/rate"
	"github.com/MrEthical07/matchauth/internal/store"
	"github.com/MrEthical07/matchauth/password"
)

const (
	demoUsername = "demo"
	demoPassword = "demo-password-123"
)

// engineConfig maps the process configuration onto the Engine configuration.
func engineConfig(cfg *config.StructuredConfig) (matchauth.Config, error) {
	app := cfg.App
	rl := cfg.RateLimit

	key, err := signingKey(app.SigningMethod, app.SigningKey)
	if err != nil {
		return matchauth.Config{}, err
	}

	out := matchauth.DefaultConfig()
	out.JWT.AccessTTL = app.AccessTTL.D()
	out.JWT.SigningMethod = app.SigningMethod
	out.JWT.PrivateKey = key
	out.JWT.Issuer = app.Issuer
	out.JWT.Audience = app.Audience
	out.JWT.KeyID = app.KeyID

	out.Refresh.TTL = time.Duration(app.RefreshTTLDays) * 24 * time.Hour
	out.Refresh.ReuseDetection = !app.DisableReuseDetection

	out.MFA.Issuer = app.TOTPIssuer
	out.MFA.ChallengeTTL = app.ChallengeTTL.D()
	out.MFA.MaxAttempts = app.MFAMaxAttempts
	out.MFA.RecoveryCodeCount = app.RecoveryCodeCount
	out.MFA.RequireForAdmins = !app.AdminMFAOptional

	out.Device.TrustTTL = app.DeviceTrustTTL.D()

	out.Security.RequireVerifiedEmail = !app.AllowUnverifiedEmail
	out.Security.Login = matchauth.RatePolicy{Limit: rl.LoginLimit, Window: rl.LoginWindow.D()}
	out.Security.Refresh = matchauth.RatePolicy{Limit: rl.RefreshLimit, Window: rl.RefreshWindow.D()}
	out.Security.Velocity = matchauth.RatePolicy{Limit: rl.VelocityLimit, Window: rl.VelocityWindow.D()}
	out.Security.RetryAfter = rl.RetryAfter.D()
	out.Security.FailurePolicy = rl.FailurePolicy

	if err := out.Validate(); err != nil {
		return matchauth.Config{}, fmt.Errorf("invalid engine configuration: %w", err)
	}
	return out, nil
}

// signingKey decodes the configured key. HS256 keys are used verbatim; Ed25519 keys
// are either PEM or a base64 seed.
func signingKey(method, raw string) ([]byte, error) {
	if method != "ed25519" || strings.HasPrefix(strings.TrimSpace(raw), "-----BEGIN") {
		return []byte(raw), nil
	}
	key, err := base64.StdEncoding.DecodeString(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("decode ed25519 signing key: %w", err)
	}
	return key, nil
}

// newRedis connects to the configured Redis, or starts an embedded one in dev mode.
// It returns a nil client when the memory backend is selected.
func newRedis(cfg *config.StructuredConfig) (redis.UniversalClient, func(), error) {
	if cfg.RateLimit.Backend != "redis" {
		return nil, func() {}, nil
	}

	addr := cfg.Storage.Redis.Address
	var mr *miniredis.Miniredis
	if addr == "" && cfg.Server.Dev {
		var err error
		mr, err = miniredis.Run()
		if err != nil {
			return nil, nil, fmt.Errorf("failed to start miniredis: %w", err)
		}
		addr = mr.Addr()
	}

	client := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:    []string{addr},
		Password: cfg.Storage.Redis.Password,
		DB:       cfg.Storage.Redis.DB,
	})
	cleanup := func() {
		_ = client.Close()
		if mr != nil {
			mr.Close()
		}
	}
	return client, cleanup, nil
}

// newHTTPLimiter builds the limiter behind the per-IP and per-endpoint middlewares on
// the same backend the Engine uses.
func newHTTPLimiter(cfg *config.StructuredConfig, client redis.UniversalClient) (*rate.Limiter, func()) {
	policy, _ := rate.ParseFailurePolicy(cfg.RateLimit.FailurePolicy)
	rcfg := rate.Config{FailurePolicy: policy, RetryAfter: cfg.RateLimit.RetryAfter.D()}

	if client != nil {
		return rate.New(rate.NewRedisBackend(client), rcfg), func() {}
	}
	backend := rate.NewMemoryBackend(time.Minute, time.Now)
	return rate.New(backend, rcfg), backend.Close
}

func newCaptcha(cfg config.Captcha) (captcha.Verifier, error) {
	if cfg.VerifyURL == "" {
		return captcha.Disabled{}, nil
	}
	return captcha.NewSiteVerify(captcha.Config{
		URL:     cfg.VerifyURL,
		Secret:  cfg.Secret,
		Timeout: cfg.Timeout.D(),
	})
}

// exporter is the selected metrics backend.
type exporter struct {
	counter         metrics.Counter
	handler         http.Handler
	registerDropped func(func() uint64) error
	start           func(ctx context.Context, log *logger.Logger)
	shutdown        func(ctx context.Context)
}

func newExporter(name string) (*exporter, error) {
	noop := &exporter{
		counter:         metrics.Nop{},
		registerDropped: func(func() uint64) error { return nil },
		start:           func(context.Context, *logger.Logger) {},
		shutdown:        func(context.Context) {},
	}

	switch name {
	case metrics.ExporterNone:
		return noop, nil

	case metrics.ExporterPrometheus:
		p := metrics.NewPrometheus()
		return &exporter{
			counter:         p,
			handler:         p.Handler(),
			registerDropped: p.RegisterDropped,
			start:           noop.start,
			shutdown:        noop.shutdown,
		}, nil

	case metrics.ExporterOTel:
		reader := sdkmetric.NewManualReader()
		provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
		otel.SetMeterProvider(provider)

		o, err := metrics.NewOTel(provider.Meter("github.com/MrEthical07/matchauth"))
		if err != nil {
			return nil, err
		}
		return &exporter{
			counter:         o,
			registerDropped: o.RegisterDropped,
			start: func(ctx context.Context, log *logger.Logger) {
				go logMetrics(ctx, reader, log, time.Minute)
			},
			shutdown: func(ctx context.Context) {
				_ = o.Close()
				_ = provider.Shutdown(ctx)
			},
		}, nil

	default:
		return nil, metrics.ValidateExporter(name)
	}
}

// logMetrics collects reader every interval and logs each integer sum point.
func logMetrics(ctx context.Context, reader sdkmetric.Reader, log *logger.Logger, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		var rm metricdata.ResourceMetrics
		if err := reader.Collect(ctx, &rm); err != nil {
			log.Warn().Err(err).Msg("metrics collection failed")
			continue
		}
		for _, sm := range rm.ScopeMetrics {
			for _, m := range sm.Metrics {
				sum, ok := m.Data.(metricdata.Sum[int64])
				if !ok {
					continue
				}
				for _, dp := range sum.DataPoints {
					event, _ := dp.Attributes.Value(attribute.Key("event"))
					log.Info().Str("metric", m.Name).Str("event", event.AsString()).Int64("value", dp.Value).Msg("metric")
				}
			}
		}
	}
}

// seedDemoPrincipal creates a verified demo player unless it already exists.
func seedDemoPrincipal(ctx context.Context, principals *store.PrincipalRepository, hasher *password.Verifier) error {
	existing, err := principals.FindPrincipal(ctx, demoUsername)
	if err == nil {
		if existing.EmailVerified {
			return nil
		}
		return principals.SetEmailVerified(ctx, demoUsername, true)
	}
	if !errors.Is(err, matchauth.ErrPrincipalNotFound) {
		return err
	}

	hash, err := hasher.Hash(demoPassword)
	if err != nil {
		return err
	}
	if err := principals.CreatePrincipal(ctx, matchauth.Principal{
		Username:      demoUsername,
		PasswordHash:  hash,
		Roles:         []string{"player"},
		EmailVerified: true,
		CreatedAt:     time.Now(),
	}); err != nil {
		return fmt.Errorf("seed demo principal: %w", err)
	}
	logger.FromContext(ctx).Info().Str("username", demoUsername).Msg("seeded demo principal")
	return nil
}

// sweepRefreshTokens deletes refresh tokens that expired more than a day ago.
func sweepRefreshTokens(ctx context.Context, tokens *store.RefreshTokenRepository, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		n, err := tokens.DeleteExpired(ctx, time.Now().Add(-24*time.Hour))
		if err != nil {
			logger.FromContext(ctx).Warn().Err(err).Msg("refresh token sweep failed")
			continue
		}
		if n > 0 {
			logger.FromContext(ctx).Info().Int64("deleted", n).Msg("swept expired refresh tokens")
		}
	}
}
