package httpapi

import (
	"net/http"
	"strings"
)

func (h *Handler) setRefreshCookie(w http.ResponseWriter, r *http.Request, token string) {
	ck := h.opts.Cookie
	if !ck.Enabled {
		return
	}
	maxAge := int(ck.MaxAge.D().Seconds())
	http.SetCookie(w, &http.Cookie{
		Name:     ck.Name,
		Value:    token,
		Path:     ck.Path,
		Domain:   ck.Domain,
		MaxAge:   maxAge,
		HttpOnly: ck.HTTPOnlyEnabled(),
		Secure:   h.secureCookie(r),
		SameSite: sameSite(ck.SameSite),
	})
}

func (h *Handler) clearRefreshCookie(w http.ResponseWriter, r *http.Request) {
	ck := h.opts.Cookie
	if !ck.Enabled {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     ck.Name,
		Value:    "",
		Path:     ck.Path,
		Domain:   ck.Domain,
		MaxAge:   -1,
		HttpOnly: ck.HTTPOnlyEnabled(),
		Secure:   h.secureCookie(r),
		SameSite: sameSite(ck.SameSite),
	})
}

func (h *Handler) refreshCookie(r *http.Request) string {
	if !h.opts.Cookie.Enabled {
		return ""
	}
	c, err := r.Cookie(h.opts.Cookie.Name)
	if err != nil {
		return ""
	}
	return c.Value
}

func (h *Handler) secureCookie(r *http.Request) bool {
	switch h.opts.Cookie.Secure {
	case "true":
		return true
	case "false":
		return false
	}
	if r.TLS != nil {
		return true
	}
	return h.opts.TrustProxyHeaders && strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}

func sameSite(v string) http.SameSite {
	switch v {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}
