package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/MrEthical07/matchauth"
	"github.com/MrEthical07/matchauth/internal/config"
	"github.com/MrEthical07/matchauth/internal/logger"
	"github.com/MrEthical07/matchauth/internal/rate"
)

// Options carries the transport settings of a Handler.
type Options struct {
	RequestTimeout time.Duration
	Cookie         config.Cookie
	// TrustProxyHeaders honours X-Forwarded-For and X-Forwarded-Proto. When off the
	// client address is the connection peer.
	TrustProxyHeaders bool

	// Limiter backs the per-IP login limiter and the per-endpoint limiter.
	// Nil disables both.
	Limiter           *rate.Limiter
	IPLoginPerMinute  int
	EndpointPerMinute int
	EndpointPerHour   int

	// Metrics is mounted on GET /metrics when set.
	Metrics http.Handler
	// Health is called by GET /healthz; nil always reports healthy.
	Health func(ctx context.Context) error
}

type Handler struct {
	engine *matchauth.Engine
	opts   Options

	logger *logger.Logger
}

func NewHandler(engine *matchauth.Engine, opts Options, logger *logger.Logger) *Handler {
	logger.Info().Msg("http handler created")
	return &Handler{
		engine: engine,
		opts:   opts,
		logger: logger,
	}
}
