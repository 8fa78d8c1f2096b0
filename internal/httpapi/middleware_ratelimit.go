package httpapi

import (
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/MrEthical07/matchauth/internal/logger"
)

func (h *Handler) withIPLoginLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.opts.Limiter == nil || h.opts.IPLoginPerMinute <= 0 {
			next.ServeHTTP(w, r)
			return
		}
		d, err := h.opts.Limiter.Allow(r.Context(), "ip_login", h.clientIP(r), h.opts.IPLoginPerMinute, time.Minute)
		if err != nil {
			logger.FromRequest(r).Warn().Err(err).Msg("ip login limiter degraded")
		}
		if !d.Allowed {
			writeTooManyRequests(w, d.RetryAfter, false)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// withEndpointLimit applies the per-minute and per-hour budget of one IP on one
// method and path.
func (h *Handler) withEndpointLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.opts.Limiter == nil {
			next.ServeHTTP(w, r)
			return
		}
		subject := h.clientIP(r) + "|" + r.Method + " " + r.URL.Path
		for _, b := range []struct {
			action string
			limit  int
			window time.Duration
		}{
			{"endpoint_min", h.opts.EndpointPerMinute, time.Minute},
			{"endpoint_hour", h.opts.EndpointPerHour, time.Hour},
		} {
			d, err := h.opts.Limiter.Allow(r.Context(), b.action, subject, b.limit, b.window)
			if err != nil {
				logger.FromRequest(r).Warn().Err(err).Msg("endpoint limiter degraded")
			}
			if !d.Allowed {
				writeTooManyRequests(w, d.RetryAfter, false)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// clientIP is the first X-Forwarded-For hop when proxy headers are trusted, else the
// connection peer.
func (h *Handler) clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); h.opts.TrustProxyHeaders && fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
