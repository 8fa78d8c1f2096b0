package httpapi

import (
	"net/http"
	"strings"

	"github.com/MrEthical07/matchauth"
	"github.com/MrEthical07/matchauth/middleware"
)

const (
	deviceIDHeader     = "X-Device-Id"
	captchaTokenHeader = "X-Captcha-Token"
	refreshNonceHeader = "X-Refresh-Nonce"
)

type loginRequest struct {
	Username     string `json:"username"`
	Password     string `json:"password"`
	DeviceID     string `json:"deviceId,omitempty"`
	CaptchaToken string `json:"captchaToken,omitempty"`
}

type tokenResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	RefreshNonce string `json:"refreshNonce"`
	TokenType    string `json:"tokenType"`
	ExpiresIn    int64  `json:"expiresIn"`
}

type mfaChallengeResponse struct {
	MFARequired bool                  `json:"mfaRequired"`
	Methods     []matchauth.MFAMethod `json:"methods"`
	Challenge   string                `json:"challenge"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
	RefreshNonce string `json:"refreshNonce"`
}

type meResponse struct {
	Username      string   `json:"username"`
	Roles         []string `json:"roles"`
	Authenticated bool     `json:"authenticated"`
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeBody(w, r, &req); err != nil {
		badRequest(w, "invalid_request")
		return
	}
	if strings.TrimSpace(req.Username) == "" || req.Password == "" {
		badRequest(w, "invalid_request")
		return
	}

	res, err := h.engine.Login(r.Context(), matchauth.LoginRequest{
		Username:     req.Username,
		Password:     req.Password,
		DeviceID:     firstNonEmpty(r.Header.Get(deviceIDHeader), req.DeviceID),
		IP:           h.clientIP(r),
		CaptchaToken: firstNonEmpty(r.Header.Get(captchaTokenHeader), req.CaptchaToken),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	if res.MFARequired {
		writeJSON(w, http.StatusOK, mfaChallengeResponse{
			MFARequired: true,
			Methods:     res.Methods,
			Challenge:   res.Challenge,
		})
		return
	}
	h.writeTokens(w, r, res.Tokens)
}

func (h *Handler) refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeBody(w, r, &req); err != nil {
		badRequest(w, "invalid_request")
		return
	}
	token := firstNonEmpty(req.RefreshToken, h.refreshCookie(r))
	nonce := firstNonEmpty(req.RefreshNonce, r.Header.Get(refreshNonceHeader))
	if token == "" || nonce == "" {
		badRequest(w, "invalid_request")
		return
	}

	pair, err := h.engine.Refresh(r.Context(), matchauth.RefreshRequest{
		Token: token,
		Nonce: nonce,
		IP:    h.clientIP(r),
	})
	if err != nil {
		if matchauth.KindOf(err) == matchauth.KindInvalidRefreshToken {
			h.clearRefreshCookie(w, r)
		}
		writeError(w, r, err)
		return
	}
	h.writeTokens(w, r, pair)
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	_ = decodeBody(w, r, &req)

	h.engine.Logout(r.Context(), firstNonEmpty(req.RefreshToken, h.refreshCookie(r)), h.clientIP(r))
	h.clearRefreshCookie(w, r)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, r, &matchauth.Error{Kind: matchauth.KindUnauthorized})
		return
	}
	roles := id.Roles
	if roles == nil {
		roles = []string{}
	}
	writeJSON(w, http.StatusOK, meResponse{
		Username:      id.Username,
		Roles:         roles,
		Authenticated: true,
	})
}

func (h *Handler) writeTokens(w http.ResponseWriter, r *http.Request, pair *matchauth.TokenPair) {
	h.setRefreshCookie(w, r, pair.RefreshToken)
	writeJSON(w, http.StatusOK, tokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		RefreshNonce: pair.RefreshNonce,
		TokenType:    pair.TokenType,
		ExpiresIn:    int64(pair.ExpiresIn.Seconds()),
	})
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
