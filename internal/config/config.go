package config

import (
	"encoding/json"
	"time"
)

// StructuredConfig is the top-level configuration container.
//
// Struct tags:
//   - envPrefix: prefix applied to nested env lookups (caarlos0/env).
//   - env: environment variable name for scalar fields.
//   - json: key in the optional JSON config file.
type StructuredConfig struct {
	App       App       `envPrefix:"APP_" json:"app"`
	Server    Server    `envPrefix:"SERVER_" json:"server"`
	Storage   Storage   `envPrefix:"STORAGE_" json:"storage"`
	RateLimit RateLimit `envPrefix:"RATE_LIMIT_" json:"rate_limit"`
	Captcha   Captcha   `envPrefix:"CAPTCHA_" json:"captcha"`
	Cookie    Cookie    `envPrefix:"COOKIE_" json:"cookie"`
	Metrics   Metrics   `envPrefix:"METRICS_" json:"metrics"`

	// JSONFilePath is the optional JSON file merged on top of env and flags.
	// Env: CONFIG, flags: -c / -config.
	JSONFilePath string `env:"CONFIG" json:"-"`
}

// App holds token, MFA and login-policy settings.
type App struct {
	// Issuer and Audience are written to and checked on every access token.
	Issuer   string `env:"TOKEN_ISSUER" json:"issuer"`
	Audience string `env:"TOKEN_AUDIENCE" json:"audience"`
	// SigningMethod is "hs256" or "ed25519".
	SigningMethod string `env:"TOKEN_SIGNING_METHOD" json:"signing_method"`
	// SigningKey is the HS256 secret, or a base64 Ed25519 seed / PEM private key.
	SigningKey string   `env:"TOKEN_SIGN_KEY" json:"signing_key"`
	KeyID      string   `env:"TOKEN_KEY_ID" json:"key_id"`
	AccessTTL  Duration `env:"ACCESS_TTL" json:"access_ttl"`

	RefreshTTLDays int `env:"REFRESH_TTL_DAYS" json:"refresh_ttl_days"`

	TOTPIssuer        string   `env:"TOTP_ISSUER" json:"totp_issuer"`
	DeviceTrustTTL    Duration `env:"DEVICE_TRUST_TTL" json:"device_trust_ttl"`
	ChallengeTTL      Duration `env:"MFA_CHALLENGE_TTL" json:"mfa_challenge_ttl"`
	MFAMaxAttempts    int      `env:"MFA_MAX_ATTEMPTS" json:"mfa_max_attempts"`
	RecoveryCodeCount int      `env:"RECOVERY_CODE_COUNT" json:"recovery_code_count"`

	// Policy switches. Zero values are the strict defaults.
	AllowUnverifiedEmail  bool `env:"ALLOW_UNVERIFIED_EMAIL" json:"allow_unverified_email"`
	AdminMFAOptional      bool `env:"ADMIN_MFA_OPTIONAL" json:"admin_mfa_optional"`
	DisableReuseDetection bool `env:"DISABLE_REFRESH_REUSE_DETECTION" json:"disable_refresh_reuse_detection"`
}

// Server holds inbound transport settings.
type Server struct {
	Address         string   `env:"ADDRESS" json:"address"`
	RequestTimeout  Duration `env:"REQUEST_TIMEOUT" json:"request_timeout"`
	ShutdownTimeout Duration `env:"SHUTDOWN_TIMEOUT" json:"shutdown_timeout"`
	// TrustProxyHeaders takes the client address from X-Forwarded-For and the scheme
	// from X-Forwarded-Proto. Enable only behind a proxy that overwrites them.
	TrustProxyHeaders bool `env:"TRUST_PROXY_HEADERS" json:"trust_proxy_headers"`
	// Dev runs Redis in process and seeds a demo principal.
	Dev bool `env:"DEV" json:"dev"`
}

// Storage groups persistence backends.
type Storage struct {
	DB    DB    `envPrefix:"DB_" json:"db"`
	Redis Redis `envPrefix:"REDIS_" json:"redis"`
}

// DB selects the SQL driver and connection string.
type DB struct {
	// Driver is "postgres" or "sqlite".
	Driver         string `env:"DRIVER" json:"driver"`
	DSN            string `env:"DATABASE_URI" json:"dsn"`
	SkipMigrations bool   `env:"SKIP_MIGRATIONS" json:"skip_migrations"`
}

// Redis configures the shared rate-limit counters and MFA challenge store.
// An empty Address keeps both in process.
type Redis struct {
	Address  string `env:"ADDRESS" json:"address"`
	Password string `env:"PASSWORD" json:"password"`
	DB       int    `env:"DB" json:"db"`
}

// RateLimit configures the anti-abuse layers.
type RateLimit struct {
	// Backend is "memory" or "redis".
	Backend string `env:"BACKEND" json:"backend"`
	// FailurePolicy is "fail_open" or "fail_closed"; applies when the backend errors.
	FailurePolicy string   `env:"FAILURE_POLICY" json:"failure_policy"`
	RetryAfter    Duration `env:"RETRY_AFTER" json:"retry_after"`

	LoginLimit     int      `env:"LOGIN_LIMIT" json:"login_limit"`
	LoginWindow    Duration `env:"LOGIN_WINDOW" json:"login_window"`
	RefreshLimit   int      `env:"REFRESH_LIMIT" json:"refresh_limit"`
	RefreshWindow  Duration `env:"REFRESH_WINDOW" json:"refresh_window"`
	VelocityLimit  int      `env:"VELOCITY_LIMIT" json:"velocity_limit"`
	VelocityWindow Duration `env:"VELOCITY_WINDOW" json:"velocity_window"`

	IPLoginPerMinute  int `env:"IP_LOGIN_PER_MINUTE" json:"ip_login_per_minute"`
	EndpointPerMinute int `env:"ENDPOINT_PER_MINUTE" json:"endpoint_per_minute"`
	EndpointPerHour   int `env:"ENDPOINT_PER_HOUR" json:"endpoint_per_hour"`
}

// Captcha configures the siteverify provider. An empty VerifyURL disables CAPTCHA
// verification, in which case escalated attempts are always refused.
type Captcha struct {
	VerifyURL string   `env:"VERIFY_URL" json:"verify_url"`
	Secret    string   `env:"SECRET" json:"secret"`
	Timeout   Duration `env:"TIMEOUT" json:"timeout"`
}

// Cookie configures the optional refresh-token cookie.
type Cookie struct {
	Enabled  bool   `env:"ENABLED" json:"enabled"`
	Name     string `env:"NAME" json:"name"`
	Path     string `env:"PATH" json:"path"`
	Domain   string `env:"DOMAIN" json:"domain"`
	SameSite string `env:"SAME_SITE" json:"same_site"`
	// Secure is "auto", "true" or "false". Auto follows the request scheme.
	Secure string   `env:"SECURE" json:"secure"`
	MaxAge Duration `env:"MAX_AGE" json:"max_age"`
	// HTTPOnly defaults to true; nil means unset.
	HTTPOnly *bool `env:"HTTP_ONLY" json:"http_only"`
}

// HTTPOnlyEnabled reports the effective HttpOnly attribute.
func (c Cookie) HTTPOnlyEnabled() bool {
	return c.HTTPOnly == nil || *c.HTTPOnly
}

// Metrics selects the counter exporter: "prometheus", "otel" or "none".
type Metrics struct {
	Exporter string `env:"EXPORTER" json:"exporter"`
}

// GetStructuredConfig loads, merges, defaults and validates the configuration.
// Priority, last wins for non-zero fields:
//  1. Environment variables
//  2. Command-line flags
//  3. JSON file (path resolved from sources 1 and 2)
func GetStructuredConfig(args []string) (*StructuredConfig, error) {
	return newConfigBuilder().
		withEnv().
		withFlags(args).
		withJSON().
		build()
}

// Duration is a time.Duration that decodes from "30s"-style strings in env and JSON.
type Duration time.Duration

// D returns the value as a time.Duration.
func (d Duration) D() time.Duration {
	return time.Duration(d)
}

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}

	switch value := v.(type) {
	case float64:
		*d = Duration(time.Duration(value))
		return nil
	case string:
		return d.UnmarshalText([]byte(value))
	default:
		return json.Unmarshal(b, (*time.Duration)(d))
	}
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}
