package config

import (
	"fmt"
	"time"
)

func (cfg *StructuredConfig) applyDefaults() {
	app := &cfg.App
	setString(&app.Issuer, "matchauth")
	setString(&app.Audience, "matchapp")
	setString(&app.SigningMethod, "hs256")
	setDuration(&app.AccessTTL, 15*time.Minute)
	setInt(&app.RefreshTTLDays, 14)
	setString(&app.TOTPIssuer, "MatchApp")
	setDuration(&app.DeviceTrustTTL, 30*24*time.Hour)
	setDuration(&app.ChallengeTTL, 5*time.Minute)
	setInt(&app.MFAMaxAttempts, 5)
	setInt(&app.RecoveryCodeCount, 10)

	setString(&cfg.Server.Address, ":8080")
	setDuration(&cfg.Server.RequestTimeout, 15*time.Second)
	setDuration(&cfg.Server.ShutdownTimeout, 10*time.Second)

	setString(&cfg.Storage.DB.Driver, "sqlite")
	if cfg.Storage.DB.Driver == "sqlite" {
		setString(&cfg.Storage.DB.DSN, "file:matchauth.db?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	}

	rl := &cfg.RateLimit
	if rl.Backend == "" {
		rl.Backend = "memory"
		if cfg.Storage.Redis.Address != "" || cfg.Server.Dev {
			rl.Backend = "redis"
		}
	}
	setString(&rl.FailurePolicy, "fail_open")
	setDuration(&rl.RetryAfter, 10*time.Second)
	setInt(&rl.LoginLimit, 5)
	setDuration(&rl.LoginWindow, time.Minute)
	setInt(&rl.RefreshLimit, 30)
	setDuration(&rl.RefreshWindow, time.Minute)
	setInt(&rl.VelocityLimit, 10)
	setDuration(&rl.VelocityWindow, time.Minute)
	setInt(&rl.IPLoginPerMinute, 20)
	setInt(&rl.EndpointPerMinute, 100)
	setInt(&rl.EndpointPerHour, 1000)

	setDuration(&cfg.Captcha.Timeout, 5*time.Second)

	ck := &cfg.Cookie
	setString(&ck.Name, "refresh_token")
	setString(&ck.Path, "/auth")
	setString(&ck.SameSite, "lax")
	setString(&ck.Secure, "auto")
	setDuration(&ck.MaxAge, time.Duration(app.RefreshTTLDays)*24*time.Hour)
	if ck.HTTPOnly == nil {
		httpOnly := true
		ck.HTTPOnly = &httpOnly
	}

	setString(&cfg.Metrics.Exporter, "prometheus")
}

// validate checks the merged, defaulted config before it is used at startup.
func (cfg *StructuredConfig) validate() error {
	switch {
	case len(cfg.App.SigningKey) == 0:
		return fmt.Errorf("%w: token signing key is required", ErrInvalidAppConfigs)
	case cfg.App.SigningMethod != "hs256" && cfg.App.SigningMethod != "ed25519":
		return fmt.Errorf("%w: unsupported signing method %q", ErrInvalidAppConfigs, cfg.App.SigningMethod)
	case cfg.App.RefreshTTLDays < 1:
		return fmt.Errorf("%w: refresh ttl must be at least one day", ErrInvalidAppConfigs)
	case cfg.App.RecoveryCodeCount < 6 || cfg.App.RecoveryCodeCount > 20:
		return fmt.Errorf("%w: recovery code count must be within [6,20]", ErrInvalidAppConfigs)
	}

	switch cfg.Storage.DB.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("%w: unsupported db driver %q", ErrInvalidStorageConfigs, cfg.Storage.DB.Driver)
	}
	if cfg.Storage.DB.DSN == "" {
		return fmt.Errorf("%w: dsn is required", ErrInvalidStorageConfigs)
	}

	rl := cfg.RateLimit
	switch {
	case rl.Backend != "memory" && rl.Backend != "redis":
		return fmt.Errorf("%w: unsupported backend %q", ErrInvalidRateLimitConfigs, rl.Backend)
	case rl.Backend == "redis" && cfg.Storage.Redis.Address == "" && !cfg.Server.Dev:
		return fmt.Errorf("%w: redis backend requires a redis address", ErrInvalidRateLimitConfigs)
	case rl.FailurePolicy != "fail_open" && rl.FailurePolicy != "fail_closed":
		return fmt.Errorf("%w: unsupported failure policy %q", ErrInvalidRateLimitConfigs, rl.FailurePolicy)
	case rl.LoginLimit < 1 || rl.RefreshLimit < 1 || rl.VelocityLimit < 1:
		return fmt.Errorf("%w: limits must be positive", ErrInvalidRateLimitConfigs)
	}

	switch cfg.Cookie.SameSite {
	case "lax", "strict", "none":
	default:
		return fmt.Errorf("%w: unsupported same_site %q", ErrInvalidCookieConfigs, cfg.Cookie.SameSite)
	}
	switch cfg.Cookie.Secure {
	case "auto", "true", "false":
	default:
		return fmt.Errorf("%w: secure must be auto, true or false", ErrInvalidCookieConfigs)
	}

	switch cfg.Metrics.Exporter {
	case "prometheus", "otel", "none":
	default:
		return fmt.Errorf("%w: unsupported exporter %q", ErrInvalidMetricsConfigs, cfg.Metrics.Exporter)
	}

	return nil
}

func setString(dst *string, v string) {
	if *dst == "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if *dst == 0 {
		*dst = v
	}
}

func setDuration(dst *Duration, v time.Duration) {
	if *dst == 0 {
		*dst = Duration(v)
	}
}
