package config

import (
	"flag"
	"time"
)

// parseFlags parses command-line flags into a partial config.
//
// Flags:
//
//	-a server address [host]:port
//	-c/-config json file path with configs
//	-db-driver postgres or sqlite
//	-d database DSN
//	-redis redis address host:port
//	-token-sign-key token signing key
//	-token-issuer token issuer name
//	-access-ttl access token lifetime (e.g. 15m)
//	-request-timeout request timeout (e.g. 30s)
//	-rate-backend memory or redis
//	-trust-proxy trust X-Forwarded-For / X-Forwarded-Proto
//	-dev embedded redis and demo principal
func parseFlags(args []string) (*StructuredConfig, error) {
	fs := flag.NewFlagSet("matchauth", flag.ContinueOnError)

	var (
		address, jsonConfigPath, dbDriver, dsn, redisAddr string
		signKey, issuer, rateBackend                      string
		accessTTL, requestTimeout                         time.Duration
		dev, trustProxy                                   bool
	)

	fs.StringVar(&address, "a", "", "Net address host:port")
	fs.StringVar(&jsonConfigPath, "c", "", "JSON config file path")
	fs.StringVar(&jsonConfigPath, "config", "", "JSON config file path (alias)")
	fs.StringVar(&dbDriver, "db-driver", "", "Database driver: postgres or sqlite")
	fs.StringVar(&dsn, "d", "", "Database DSN")
	fs.StringVar(&redisAddr, "redis", "", "Redis address host:port")
	fs.StringVar(&signKey, "token-sign-key", "", "Token signing key")
	fs.StringVar(&issuer, "token-issuer", "", "Token issuer")
	fs.DurationVar(&accessTTL, "access-ttl", 0, "Access token lifetime (e.g. 15m)")
	fs.DurationVar(&requestTimeout, "request-timeout", 0, "Request timeout (e.g. 30s)")
	fs.StringVar(&rateBackend, "rate-backend", "", "Rate limit backend: memory or redis")
	fs.BoolVar(&trustProxy, "trust-proxy", false, "Trust X-Forwarded-For and X-Forwarded-Proto")
	fs.BoolVar(&dev, "dev", false, "Development mode: embedded redis and demo principal")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	return &StructuredConfig{
		App: App{
			Issuer:     issuer,
			SigningKey: signKey,
			AccessTTL:  Duration(accessTTL),
		},
		Server: Server{
			Address:           address,
			RequestTimeout:    Duration(requestTimeout),
			TrustProxyHeaders: trustProxy,
			Dev:               dev,
		},
		Storage: Storage{
			DB:    DB{Driver: dbDriver, DSN: dsn},
			Redis: Redis{Address: redisAddr},
		},
		RateLimit:    RateLimit{Backend: rateBackend},
		JSONFilePath: jsonConfigPath,
	}, nil
}
