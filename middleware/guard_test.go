package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/MrEthical07/matchauth"
)

type stubAuth struct {
	token string
	user  string
}

func (s stubAuth) Authenticate(_ context.Context, token string) (string, error) {
	if token != s.token {
		return "", errors.New("bad token")
	}
	return s.user, nil
}

func (s stubAuth) Me(ctx context.Context, token string) (*matchauth.Identity, error) {
	u, err := s.Authenticate(ctx, token)
	if err != nil {
		return nil, err
	}
	return &matchauth.Identity{Username: u, Roles: []string{"player"}}, nil
}

func TestBearerToken(t *testing.T) {
	cases := map[string]struct {
		in   string
		want string
		ok   bool
	}{
		"valid":       {"Bearer abc", "abc", true},
		"lower":       {"bearer abc", "abc", true},
		"missing":     {"", "", false},
		"basic":       {"Basic abc", "", false},
		"empty token": {"Bearer   ", "", false},
	}
	for name, tc := range cases {
		got, ok := BearerToken(tc.in)
		if got != tc.want || ok != tc.ok {
			t.Fatalf("%s: got (%q,%v), want (%q,%v)", name, got, ok, tc.want, tc.ok)
		}
	}
}

func TestGuard(t *testing.T) {
	auth := stubAuth{token: "good", user: "alice"}
	var seen string
	h := Guard(auth)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = PrincipalFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.Header.Set("Authorization", "Bearer good")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || seen != "alice" {
		t.Fatalf("expected pass-through for alice, got %d %q", rec.Code, seen)
	}

	req = httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.Header.Set("Authorization", "Bearer forged")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if rec.Body.String() != "{\"error\":\"unauthorized\"}\n" {
		t.Fatalf("unexpected body %q", rec.Body.String())
	}
}

func TestRequireIdentity(t *testing.T) {
	auth := stubAuth{token: "good", user: "alice"}
	var id *matchauth.Identity
	h := RequireIdentity(auth)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, _ = IdentityFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer good")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if id == nil || id.Username != "alice" {
		t.Fatalf("expected identity for alice, got %+v", id)
	}

	rec = httptest.NewRecorder()
	RequireIdentity(nil)(http.NotFoundHandler()).ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for nil resolver, got %d", rec.Code)
	}
}
