package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/MrEthical07/matchauth"
	"github.com/MrEthical07/matchauth/middleware"
)

type mfaVerifyRequest struct {
	Challenge   string              `json:"challenge"`
	Code        string              `json:"code"`
	Method      matchauth.MFAMethod `json:"method"`
	TrustDevice bool                `json:"trustDevice"`
}

type mfaCodeRequest struct {
	Code string `json:"code"`
}

type enrollmentResponse struct {
	Secret     string `json:"secret"`
	OTPAuthURI string `json:"otpauthUri"`
}

type recoveryCodesRequest struct {
	Count int `json:"count"`
}

type maskedCode struct {
	Hint     string `json:"hint"`
	Consumed bool   `json:"consumed"`
}

type trustedDevice struct {
	DeviceID     string `json:"deviceId"`
	TrustedUntil string `json:"trustedUntil"`
}

func (h *Handler) verifyMFA(w http.ResponseWriter, r *http.Request) {
	var req mfaVerifyRequest
	if err := decodeBody(w, r, &req); err != nil || req.Challenge == "" || req.Code == "" {
		badRequest(w, "invalid_request")
		return
	}

	pair, err := h.engine.CompleteMFA(r.Context(), matchauth.MFARequest{
		Challenge:   req.Challenge,
		Code:        req.Code,
		Method:      req.Method,
		TrustDevice: req.TrustDevice,
		DeviceID:    r.Header.Get(deviceIDHeader),
		IP:          h.clientIP(r),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.writeTokens(w, r, pair)
}

func (h *Handler) setupMFA(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Challenge string `json:"challenge"`
	}
	if err := decodeBody(w, r, &req); err != nil || req.Challenge == "" {
		badRequest(w, "invalid_request")
		return
	}

	enr, err := h.engine.BeginMFASetup(r.Context(), req.Challenge)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, enrollmentResponse{Secret: enr.Secret, OTPAuthURI: enr.URI})
}

func (h *Handler) enrollMFA(w http.ResponseWriter, r *http.Request) {
	username, _ := middleware.PrincipalFromContext(r.Context())
	enr, err := h.engine.EnrollMFA(r.Context(), username)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, enrollmentResponse{Secret: enr.Secret, OTPAuthURI: enr.URI})
}

func (h *Handler) enableMFA(w http.ResponseWriter, r *http.Request) {
	username, _ := middleware.PrincipalFromContext(r.Context())
	var req mfaCodeRequest
	if err := decodeBody(w, r, &req); err != nil || req.Code == "" {
		badRequest(w, "invalid_request")
		return
	}

	if err := h.engine.ConfirmMFA(r.Context(), username, req.Code); err != nil {
		writeCodeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"mfaEnabled": true})
}

func (h *Handler) disableMFA(w http.ResponseWriter, r *http.Request) {
	username, _ := middleware.PrincipalFromContext(r.Context())
	var req mfaCodeRequest
	if err := decodeBody(w, r, &req); err != nil || req.Code == "" {
		badRequest(w, "invalid_request")
		return
	}

	if err := h.engine.DisableMFA(r.Context(), username, req.Code); err != nil {
		writeCodeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"mfaEnabled": false})
}

func (h *Handler) listRecoveryCodes(w http.ResponseWriter, r *http.Request) {
	username, _ := middleware.PrincipalFromContext(r.Context())
	codes, err := h.engine.RecoveryCodes(r.Context(), username)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]maskedCode, 0, len(codes))
	for _, c := range codes {
		out = append(out, maskedCode{Hint: c.Hint, Consumed: c.Consumed})
	}
	writeJSON(w, http.StatusOK, map[string]any{"codes": out})
}

func (h *Handler) regenerateRecoveryCodes(w http.ResponseWriter, r *http.Request) {
	username, _ := middleware.PrincipalFromContext(r.Context())
	var req recoveryCodesRequest
	if err := decodeBody(w, r, &req); err != nil || req.Count < 0 {
		badRequest(w, "invalid_request")
		return
	}

	codes, err := h.engine.RegenerateRecoveryCodes(r.Context(), username, req.Count)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"codes": codes})
}

func (h *Handler) listDevices(w http.ResponseWriter, r *http.Request) {
	username, _ := middleware.PrincipalFromContext(r.Context())
	devices, err := h.engine.TrustedDevices(r.Context(), username)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]trustedDevice, 0, len(devices))
	for _, d := range devices {
		out = append(out, trustedDevice{DeviceID: d.DeviceID, TrustedUntil: d.TrustedUntil.UTC().Format(time.RFC3339)})
	}
	writeJSON(w, http.StatusOK, map[string]any{"devices": out})
}

func (h *Handler) revokeDevice(w http.ResponseWriter, r *http.Request) {
	username, _ := middleware.PrincipalFromContext(r.Context())
	if err := h.engine.RevokeDevice(r.Context(), username, chi.URLParam(r, "deviceID")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// writeCodeError reports a rejected management code as 400 invalid_code.
func writeCodeError(w http.ResponseWriter, r *http.Request, err error) {
	if matchauth.KindOf(err) == matchauth.KindInvalidMFA {
		badRequest(w, "invalid_code")
		return
	}
	writeError(w, r, err)
}
