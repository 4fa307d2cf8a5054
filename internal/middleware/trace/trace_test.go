package trace

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"ecotrack/internal/log"
)

func TestMiddleware_AssignsRequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := log.New(log.Config{Handler: slog.NewTextHandler(&buf, nil)})
	m := NewMiddleware(func(*http.Request) string { return "198.51.100.1" }, logger)

	var seen string
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
		if log.FromContext(r.Context()).Component() != log.ComponentTrace {
			t.Errorf("request logger not stored on context")
		}
		w.WriteHeader(http.StatusTeapot)
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/dashboard", nil))

	if !strings.HasPrefix(seen, "req_") {
		t.Fatalf("request id = %q", seen)
	}
	if rr.Header().Get(RequestIDHeader) != seen {
		t.Errorf("response header %q, want %q", rr.Header().Get(RequestIDHeader), seen)
	}
	out := buf.String()
	for _, want := range []string{"HTTP request started", "HTTP request completed", "status_code=418", "client_ip=198.51.100.1"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q:\n%s", want, out)
		}
	}
	if m.Stats().TotalRequests != 1 {
		t.Errorf("TotalRequests = %d", m.Stats().TotalRequests)
	}
}

func TestMiddleware_ReusesValidIncomingID(t *testing.T) {
	m := NewMiddleware(nil, log.New(log.Config{Handler: slog.NewTextHandler(&bytes.Buffer{}, nil)}))
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	tests := []struct {
		incoming string
		reused   bool
	}{
		{"upstream-1234abcd", true},
		{"short", false},
		{"bad id with spaces!", false},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(RequestIDHeader, tt.incoming)
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		if got := rr.Header().Get(RequestIDHeader) == tt.incoming; got != tt.reused {
			t.Errorf("incoming %q reused=%v, want %v", tt.incoming, got, tt.reused)
		}
	}
}

func TestNewRequestID(t *testing.T) {
	a, b := NewRequestID(), NewRequestID()
	if a == b {
		t.Fatal("request IDs should be unique")
	}
	if len(a) != len("req_")+32 || !validRequestID.MatchString(a) {
		t.Errorf("NewRequestID() = %q", a)
	}
}
