package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"

	"github.com/Zchasse63/vercelpickle-sub006/pkg/logger"
)

func newTestLogger(w *bytes.Buffer) *slog.Logger {
	return logger.NewWithWriter("cart-service", "debug", w)
}

// lastLogLine decodes the final JSON line written to buf.
func lastLogLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.NotEmpty(t, lines)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[len(lines)-1]), &entry))
	return entry
}

func TestRequestLogger_EnrichesContextLogger(t *testing.T) {
	var buf bytes.Buffer
	base := newTestLogger(&buf)

	r := chi.NewRouter()
	r.Use(RequestLogging(slog.New(slog.DiscardHandler)))
	r.With(RequireUserID, RequestLogger(base)).Get("/api/v1/cart/items", func(w http.ResponseWriter, r *http.Request) {
		logger.FromContext(r.Context()).Info("handler log")
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cart/items", nil)
	req.Header.Set(UserIDHeader, "user-42")
	req.Header.Set(CorrelationIDHeader, "corr-abc")
	r.ServeHTTP(httptest.NewRecorder(), req)

	entry := lastLogLine(t, &buf)
	assert.Equal(t, "handler log", entry["msg"])
	assert.Equal(t, "corr-abc", entry["correlation_id"])
	assert.Equal(t, "user-42", entry["user_id"])
	assert.Equal(t, "cart-service", entry["service"])
}

func TestRequestLogger_FallsBackToHeader(t *testing.T) {
	var buf bytes.Buffer
	h := RequestLogger(newTestLogger(&buf))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger.FromContext(r.Context()).Info("anon route")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/products", nil)
	req.Header.Set(UserIDHeader, "user-7")
	h.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, "user-7", lastLogLine(t, &buf)["user_id"])
}

func TestRequestLogger_IgnoresMalformedUserID(t *testing.T) {
	var buf bytes.Buffer
	h := RequestLogger(newTestLogger(&buf))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger.FromContext(r.Context()).Info("anon route")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/products", nil)
	req.Header.Set(UserIDHeader, "user 7\tinjected")
	h.ServeHTTP(httptest.NewRecorder(), req)

	_, ok := lastLogLine(t, &buf)["user_id"]
	assert.False(t, ok)
}

func TestRequestLogger_IncludesTraceContext(t *testing.T) {
	var buf bytes.Buffer
	h := RequestLogger(newTestLogger(&buf))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger.FromContext(r.Context()).Info("traced")
	}))

	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    trace.TraceID{0x4b, 0xf9},
		SpanID:     trace.SpanID{0x01},
		TraceFlags: trace.FlagsSampled,
	})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil).WithContext(ctx))

	entry := lastLogLine(t, &buf)
	assert.Equal(t, sc.TraceID().String(), entry["trace_id"])
	assert.Equal(t, sc.SpanID().String(), entry["span_id"])
}

func TestRequestLogging(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		wantLevel string
	}{
		{"ok", http.StatusOK, "INFO"},
		{"client error", http.StatusNotFound, "WARN"},
		{"server error", http.StatusBadGateway, "ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			h := RequestLogging(newTestLogger(&buf))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.NotEmpty(t, logger.CorrelationIDFromContext(r.Context()))
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte("body"))
			}))

			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/cart/items", nil))

			entry := lastLogLine(t, &buf)
			assert.Equal(t, tt.wantLevel, entry["level"])
			assert.Equal(t, float64(tt.status), entry["status"])
			assert.Equal(t, float64(4), entry["bytes"])
			assert.Equal(t, rec.Header().Get(CorrelationIDHeader), entry["correlation_id"])
		})
	}
}

func TestCorrelationID(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	req.Header.Set(CorrelationIDHeader, "abc-123")
	assert.Equal(t, "abc-123", correlationID(req))

	req.Header.Set(CorrelationIDHeader, "bad id\nwith newline")
	assert.NotEqual(t, "bad id\nwith newline", correlationID(req))

	req.Header.Set(CorrelationIDHeader, strings.Repeat("x", maxCorrelationIDLen+1))
	assert.Len(t, correlationID(req), 36)

	req.Header.Del(CorrelationIDHeader)
	assert.Len(t, correlationID(req), 36)
}
