package log

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigure_WritesServiceAndLevelFields(t *testing.T) {
	var buf bytes.Buffer
	Configure(Config{Level: "debug", Output: &buf, Service: "test-svc", Version: "v1"})

	Base().Info().Msg("hello")

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "test-svc", line["service"])
	assert.Equal(t, "v1", line["version"])
	assert.Equal(t, "hello", line["message"])
}

func TestWithComponent_AddsComponentField(t *testing.T) {
	var buf bytes.Buffer
	Configure(Config{Output: &buf})

	WithComponent("registry").Info().Msg("tick")

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "registry", line["component"])
}

func TestContextWithRequestID_RoundTrips(t *testing.T) {
	ctx := ContextWithRequestID(context.Background(), "req-123")
	assert.Equal(t, "req-123", RequestIDFromContext(ctx))
}

func TestRequestIDFromContext_EmptyWhenAbsent(t *testing.T) {
	assert.Equal(t, "", RequestIDFromContext(context.Background()))
	assert.Equal(t, "", RequestIDFromContext(nil))
}

func TestWithContext_AddsCorrelationFieldsWhenPresent(t *testing.T) {
	var buf bytes.Buffer
	Configure(Config{Output: &buf})

	ctx := ContextWithRequestID(context.Background(), "req-1")
	ctx = ContextWithSessionID(ctx, "sess-1")
	ctx = ContextWithStreamKey(ctx, "stream-1")

	WithContext(ctx, Base()).Info().Msg("enriched")

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "req-1", line["request_id"])
	assert.Equal(t, "sess-1", line["session_id"])
	assert.Equal(t, "stream-1", line["stream_key"])
}

func TestMiddleware_StampsRequestIDHeaderAndLogsOneLine(t *testing.T) {
	var buf bytes.Buffer
	Configure(Config{Output: &buf})

	handler := Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	req := httptest.NewRequest(http.MethodGet, "/foo", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "request.handled", line["event"])
	assert.Equal(t, float64(http.StatusTeapot), line["status"])
}
