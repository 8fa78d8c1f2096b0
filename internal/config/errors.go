package config

import "errors"

// Validation errors returned by [StructuredConfig.validate].
var (
	ErrInvalidAppConfigs       = errors.New("invalid app configuration")
	ErrInvalidStorageConfigs   = errors.New("invalid storage configuration")
	ErrInvalidRateLimitConfigs = errors.New("invalid rate limit configuration")
	ErrInvalidCookieConfigs    = errors.New("invalid cookie configuration")
	ErrInvalidMetricsConfigs   = errors.New("invalid metrics configuration")
)
