package trace

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	applog "socios/internal/log"
)

func newTestMiddleware(buf *bytes.Buffer) *Middleware {
	logger := applog.New(applog.Config{
		Level:     slog.LevelDebug,
		Component: applog.ComponentHTTP,
		Handler:   slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}),
	})
	return NewMiddleware(logger, func(*http.Request) string { return "10.0.0.1" })
}

func TestMiddleware_AssignsRequestID(t *testing.T) {
	var buf bytes.Buffer
	var seen string
	var ctxLogger *applog.Logger
	h := newTestMiddleware(&buf).Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
		ctxLogger = applog.FromContext(r.Context())
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ui/members?q=x", nil))

	if !strings.HasPrefix(seen, "req_") {
		t.Fatalf("request id = %q", seen)
	}
	if rec.Header().Get(HeaderRequestID) != seen {
		t.Errorf("response header = %q, want %q", rec.Header().Get(HeaderRequestID), seen)
	}
	if ctxLogger == nil || ctxLogger.Component() != applog.ComponentHTTP {
		t.Error("request-scoped logger missing from context")
	}

	out := buf.String()
	for _, want := range []string{"HTTP request started", "HTTP request completed", "status_code=418", "client_ip=10.0.0.1", "request_id=" + seen} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q:\n%s", want, out)
		}
	}
}

func TestMiddleware_KeepsValidIncomingID(t *testing.T) {
	tests := []struct {
		in   string
		keep bool
	}{
		{"abc-123_DEF", true},
		{"", false},
		{"bad id", false},
		{strings.Repeat("a", 65), false},
	}
	for _, tt := range tests {
		var buf bytes.Buffer
		h := newTestMiddleware(&buf).Middleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		if tt.in != "" {
			r.Header.Set(HeaderRequestID, tt.in)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, r)

		got := rec.Header().Get(HeaderRequestID)
		if (got == tt.in) != tt.keep {
			t.Errorf("incoming %q: response id %q, keep=%v", tt.in, got, tt.keep)
		}
	}
}

func TestResponseWriter_FirstStatusWins(t *testing.T) {
	rec := httptest.NewRecorder()
	rw := &responseWriter{ResponseWriter: rec, statusCode: http.StatusOK}
	_, _ = rw.Write([]byte("ok"))
	rw.WriteHeader(http.StatusInternalServerError)
	if rw.statusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", rw.statusCode)
	}
}
