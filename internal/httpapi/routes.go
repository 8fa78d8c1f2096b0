package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/MrEthical07/matchauth/middleware"
)

func (h *Handler) Init() *chi.Mux {
	router := chi.NewRouter()
	router.Use(chimw.Recoverer)
	router.Use(h.withTraceID)
	router.Use(h.withLogging)
	router.Use(withNoStore)
	if h.opts.RequestTimeout > 0 {
		router.Use(chimw.Timeout(h.opts.RequestTimeout))
	}
	router.Use(h.withEndpointLimit)

	router.Get("/healthz", h.health)
	if h.opts.Metrics != nil {
		router.Method(http.MethodGet, "/metrics", h.opts.Metrics)
	}

	// routes without authorization
	router.Group(func(r chi.Router) {
		r.With(h.withIPLoginLimit).Post("/auth/login", h.login)
		r.Post("/auth/refresh", h.refresh)
		r.Post("/auth/logout", h.logout)
		r.Post("/auth/mfa/verify", h.verifyMFA)
		r.Post("/auth/mfa/setup", h.setupMFA)
	})

	// routes with authorization
	router.Group(func(r chi.Router) {
		r.Use(middleware.RequireIdentity(h.engine))

		r.Get("/auth/me", h.me)
		r.Post("/auth/mfa/enroll", h.enrollMFA)
		r.Post("/auth/mfa/enable", h.enableMFA)
		r.Post("/auth/mfa/disable", h.disableMFA)
		r.Get("/auth/mfa/recovery-codes", h.listRecoveryCodes)
		r.Post("/auth/mfa/recovery-codes", h.regenerateRecoveryCodes)
		r.Get("/auth/devices", h.listDevices)
		r.Delete("/auth/devices/{deviceID}", h.revokeDevice)
	})

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "not_found"})
	})
	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorBody{Error: "method_not_allowed"})
	})

	return router
}
