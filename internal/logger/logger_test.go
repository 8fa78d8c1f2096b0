package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithWriter_WritesRoleAndMessage(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, "server")

	l.Info().Str("event", "loginSuccess").Msg("audit")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "server", entry["role"])
	assert.Equal(t, "loginSuccess", entry["event"])
	assert.Equal(t, "audit", entry["message"])
}

func TestFromContext_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, "test")
	child := &Logger{l.With().Str("trace_id", "abc").Logger()}

	ctx := child.WithContext(context.Background())
	FromContext(ctx).Info().Msg("hello")

	assert.Contains(t, buf.String(), `"trace_id":"abc"`)

	r := httptest.NewRequest("GET", "/", nil).WithContext(ctx)
	FromRequest(r).Info().Msg("again")
	assert.Equal(t, 2, bytes.Count(buf.Bytes(), []byte(`"trace_id":"abc"`)))
}

func TestNop_Discards(t *testing.T) {
	l := Nop()
	l.Error().Msg("ignored")
	assert.NotNil(t, l.GetChildLogger())
}
