package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestRequestLoggingMiddleware_LogsBasicInfo(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	mw := NewRequestLoggingMiddleware(logger)
	wrapped := mw.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	req := httptest.NewRequest("POST", "/listings", nil)
	req.RemoteAddr = "192.168.1.1:12345"
	wrapped.ServeHTTP(httptest.NewRecorder(), req)

	out := buf.String()
	for _, want := range []string{"POST", "/listings", "201", "duration_ms", "192.168.1.1"} {
		if !strings.Contains(out, want) {
			t.Errorf("log should contain %q, got: %s", want, out)
		}
	}
}

func TestRequestLoggingMiddleware_WarnsOnServerError(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	mw := NewRequestLoggingMiddleware(logger)
	wrapped := mw.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))

	wrapped.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/feed", nil))

	if !strings.Contains(buf.String(), "WARN") {
		t.Errorf("5xx responses should log at warn level, got: %s", buf.String())
	}
}

func TestRequestLoggingMiddleware_SkipsNoisyPaths(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	mw := NewRequestLoggingMiddleware(logger)
	wrapped := mw.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for _, path := range []string{"/healthz", "/metrics"} {
		wrapped.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", path, nil))
	}

	if buf.Len() != 0 {
		t.Errorf("noisy paths should not be logged, got: %s", buf.String())
	}
}

func TestSanitizePath(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		rawQuery string
		want     string
	}{
		{"no query", "/feed", "", "/feed"},
		{"benign query", "/feed", "category=bikes", "/feed?category=bikes"},
		{"token redacted", "/feed", "token=abc123", "/feed?token=[REDACTED]"},
		{
			"mixed query",
			"/feed",
			"category=bikes&api_key=secret",
			"/feed?category=bikes&api_key=[REDACTED]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sanitizePath(tt.path, tt.rawQuery); got != tt.want {
				t.Errorf("sanitizePath = %q, want %q", got, tt.want)
			}
		})
	}
}
