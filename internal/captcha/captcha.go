// Package captcha verifies CAPTCHA tokens against a siteverify-compatible endpoint
// (reCAPTCHA, hCaptcha and Turnstile share the same request shape).
package captcha

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

//go:generate mockgen -source=captcha.go -destination=../mock/captcha_mock.go -package=mock

// ErrUnavailable wraps transport and decoding failures of the verification endpoint.
var ErrUnavailable = errors.New("captcha verification unavailable")

// Verifier checks a CAPTCHA token solved by the client at remoteIP.
type Verifier interface {
	Verify(ctx context.Context, token, remoteIP string) (bool, error)
}

// Disabled is the verifier used when no provider is configured. It rejects every
// token, so escalated requests stay blocked until the window passes.
type Disabled struct{}

// Verify implements Verifier.
func (Disabled) Verify(context.Context, string, string) (bool, error) {
	return false, nil
}

// Config describes a siteverify provider.
type Config struct {
	URL     string
	Secret  string
	Timeout time.Duration
}

// SiteVerify posts tokens to a siteverify endpoint.
type SiteVerify struct {
	client *resty.Client
	url    string
	secret string
}

type siteVerifyResponse struct {
	Success    bool     `json:"success"`
	ErrorCodes []string `json:"error-codes"`
}

// NewSiteVerify returns a verifier for cfg. URL and Secret are required.
func NewSiteVerify(cfg Config) (*SiteVerify, error) {
	if strings.TrimSpace(cfg.URL) == "" || cfg.Secret == "" {
		return nil, errors.New("captcha provider url and secret are required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}

	cli := resty.New().SetTimeout(cfg.Timeout)
	return &SiteVerify{client: cli, url: cfg.URL, secret: cfg.Secret}, nil
}

// Verify implements Verifier. A blank token is rejected without a network call.
func (s *SiteVerify) Verify(ctx context.Context, token, remoteIP string) (bool, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return false, nil
	}

	form := map[string]string{
		"secret":   s.secret,
		"response": token,
	}
	if remoteIP != "" {
		form["remoteip"] = remoteIP
	}

	resp, err := s.client.R().
		SetContext(ctx).
		SetFormData(form).
		Post(s.url)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if resp.StatusCode() != http.StatusOK {
		return false, fmt.Errorf("%w: http %d", ErrUnavailable, resp.StatusCode())
	}

	var sr siteVerifyResponse
	if err := json.Unmarshal(resp.Body(), &sr); err != nil {
		return false, fmt.Errorf("%w: decode response: %v", ErrUnavailable, err)
	}
	return sr.Success, nil
}
