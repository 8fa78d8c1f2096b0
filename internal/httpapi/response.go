package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/MrEthical07/matchauth"
	"github.com/MrEthical07/matchauth/internal/logger"
)

const maxBodyBytes = 1 << 20

type errorBody struct {
	Error           string `json:"error"`
	RetryAfter      int    `json:"retryAfter,omitempty"`
	CaptchaRequired bool   `json:"captchaRequired,omitempty"`
}

type kindStatus struct {
	status int
	code   string
}

var kindStatusMap = map[matchauth.Kind]kindStatus{
	matchauth.KindInvalidCredentials:   {http.StatusUnauthorized, "invalid_grant"},
	matchauth.KindInvalidRefreshToken:  {http.StatusUnauthorized, "invalid_token"},
	matchauth.KindMFAChallengeRequired: {http.StatusUnauthorized, "mfa_required"},
	matchauth.KindEmailUnverified:      {http.StatusForbidden, "email_unverified"},
	matchauth.KindInvalidMFA:           {http.StatusUnauthorized, "invalid_mfa"},
	matchauth.KindUnauthorized:         {http.StatusUnauthorized, "unauthorized"},
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

func writeTooManyRequests(w http.ResponseWriter, retryAfter time.Duration, captcha bool) {
	secs := retrySeconds(retryAfter)
	w.Header().Set("Retry-After", strconv.Itoa(secs))
	writeJSON(w, http.StatusTooManyRequests, errorBody{
		Error:           "too_many_requests",
		RetryAfter:      secs,
		CaptchaRequired: captcha,
	})
}

func retrySeconds(d time.Duration) int {
	secs := int(math.Ceil(d.Seconds()))
	if secs < 1 {
		return 1
	}
	return secs
}

// writeError renders an Engine error. Persistence and internal failures are
// logged and reported as server_error.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := matchauth.KindOf(err)
	switch kind {
	case matchauth.KindRateLimited:
		writeTooManyRequests(w, matchauth.RetryAfterOf(err), false)
		return
	case matchauth.KindCaptchaRequired:
		writeTooManyRequests(w, matchauth.RetryAfterOf(err), true)
		return
	}

	if ks, ok := kindStatusMap[kind]; ok {
		writeJSON(w, ks.status, errorBody{Error: ks.code})
		return
	}

	logger.FromRequest(r).Error().Err(err).Str("kind", kind.String()).Msg("request failed")
	writeJSON(w, http.StatusInternalServerError, errorBody{Error: "server_error"})
}

func badRequest(w http.ResponseWriter, code string) {
	writeJSON(w, http.StatusBadRequest, errorBody{Error: code})
}

// decodeBody decodes a JSON body into dst. An empty body leaves dst untouched.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	err := json.NewDecoder(r.Body).Decode(dst)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}
