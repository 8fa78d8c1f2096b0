package captcha

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newProvider(t *testing.T, handler http.HandlerFunc) *SiteVerify {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	v, err := NewSiteVerify(Config{URL: srv.URL, Secret: "s3cret", Timeout: time.Second})
	require.NoError(t, err)
	return v
}

func TestSiteVerifyPostsFormAndReadsSuccess(t *testing.T) {
	v := newProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "s3cret", r.PostForm.Get("secret"))
		assert.Equal(t, "10.0.0.7", r.PostForm.Get("remoteip"))

		w.Header().Set("Content-Type", "application/json")
		if r.PostForm.Get("response") == "good" {
			_, _ = w.Write([]byte(`{"success":true}`))
			return
		}
		_, _ = w.Write([]byte(`{"success":false,"error-codes":["invalid-input-response"]}`))
	})

	ok, err := v.Verify(context.Background(), "good", "10.0.0.7")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = v.Verify(context.Background(), "bad", "10.0.0.7")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSiteVerifyBlankTokenSkipsProvider(t *testing.T) {
	called := false
	v := newProvider(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	ok, err := v.Verify(context.Background(), "  ", "")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.False(t, called)
}

func TestSiteVerifyProviderFailure(t *testing.T) {
	v := newProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	ok, err := v.Verify(context.Background(), "token", "")
	assert.False(t, ok)
	assert.True(t, errors.Is(err, ErrUnavailable))
}

func TestDisabledRejectsEverything(t *testing.T) {
	ok, err := Disabled{}.Verify(context.Background(), "anything", "1.1.1.1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNewSiteVerifyRequiresURLAndSecret(t *testing.T) {
	_, err := NewSiteVerify(Config{Secret: "x"})
	assert.Error(t, err)
	_, err = NewSiteVerify(Config{URL: "https://example.test"})
	assert.Error(t, err)
}
