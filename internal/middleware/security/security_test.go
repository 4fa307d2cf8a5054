package security

import (
	"crypto/tls"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"ecotrack/internal/log"
)

func quietDetector() *Detector {
	return NewDetector(log.New(log.Config{Handler: slog.NewTextHandler(io.Discard, nil)}))
}

func TestDetectSuspiciousRequest(t *testing.T) {
	tests := []struct {
		name   string
		method string
		target string
		agent  string
		want   bool
	}{
		{"plain api call", http.MethodGet, "/api/dashboard", "Mozilla/5.0", false},
		{"curl is fine", http.MethodPost, "/api/activities", "curl/8.5.0", false},
		{"path traversal", http.MethodGet, "/static/../../etc/passwd", "", true},
		{"dotenv scan", http.MethodGet, "/.env", "", true},
		{"sql injection in query", http.MethodGet, "/api/activities?q=1+union+select", "", true},
		{"scanner agent", http.MethodGet, "/", "sqlmap/1.7", true},
		{"trace method", "TRACE", "/", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := quietDetector()
			req := httptest.NewRequest(tt.method, tt.target, nil)
			req.Header.Set("User-Agent", tt.agent)
			if got := d.DetectSuspiciousRequest(req); got != tt.want {
				t.Errorf("DetectSuspiciousRequest() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestExtractClientIP(t *testing.T) {
	d := quietDetector()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "203.0.113.9:4000"
	req.Header.Set("X-Forwarded-For", "198.51.100.1")
	if got := d.ExtractClientIP(req); got != "203.0.113.9" {
		t.Errorf("untrusted peer must not set forwarding headers, got %s", got)
	}

	req.RemoteAddr = "10.0.0.2:4000"
	req.Header.Set("X-Forwarded-For", "198.51.100.1, 10.0.0.1")
	if got := d.ExtractClientIP(req); got != "198.51.100.1" {
		t.Errorf("trusted proxy XFF ignored, got %s", got)
	}

	req.Header.Del("X-Forwarded-For")
	req.Header.Set("X-Real-IP", "198.51.100.7")
	if got := d.ExtractClientIP(req); got != "198.51.100.7" {
		t.Errorf("trusted proxy X-Real-IP ignored, got %s", got)
	}
}

func TestDetectorMiddleware(t *testing.T) {
	d := quietDetector()
	h := d.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	for _, tc := range []struct {
		method, target string
		want           int
	}{
		{http.MethodGet, "/api/factors", http.StatusNoContent},
		{http.MethodGet, "/.env", http.StatusNoContent},
		{"TRACE", "/", http.StatusMethodNotAllowed},
	} {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(tc.method, tc.target, nil))
		if rr.Code != tc.want {
			t.Errorf("%s %s = %d, want %d", tc.method, tc.target, rr.Code, tc.want)
		}
	}
	if got := d.Stats(); got.SuspiciousRequests != 2 || got.BlockedRequests != 1 {
		t.Errorf("Stats() = %+v", got)
	}
}

func TestAddTrustedProxy(t *testing.T) {
	d := quietDetector()
	if err := d.AddTrustedProxy("not-a-cidr"); err == nil {
		t.Error("expected error for invalid CIDR")
	}
	if err := d.AddTrustedProxy("203.0.113.0/24"); err != nil {
		t.Fatalf("AddTrustedProxy() error = %v", err)
	}
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "203.0.113.9:4000"
	req.Header.Set("X-Forwarded-For", "198.51.100.1")
	if got := d.ExtractClientIP(req); got != "198.51.100.1" {
		t.Errorf("ExtractClientIP() = %s", got)
	}
}

func TestHeadersMiddleware(t *testing.T) {
	h := NewHeadersMiddleware(DefaultHeadersConfig()).Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Header().Get("Strict-Transport-Security") != "" {
		t.Error("HSTS must only be sent over TLS")
	}
	if got := rr.Header().Get("Permissions-Policy"); got != "camera=(), geolocation=(), microphone=(self), payment=()" {
		t.Errorf("Permissions-Policy = %q", got)
	}
	if got := rr.Header().Get("Content-Security-Policy"); !strings.HasPrefix(got, "default-src 'self'; script-src 'self' https://unpkg.com;") {
		t.Errorf("Content-Security-Policy = %q", got)
	}
	if rr.Header().Get("X-Frame-Options") != "DENY" {
		t.Error("X-Frame-Options missing")
	}

	rr = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.TLS = &tls.ConnectionState{}
	h.ServeHTTP(rr, req)
	if got := rr.Header().Get("Strict-Transport-Security"); got != "max-age=31536000; includeSubDomains" {
		t.Errorf("Strict-Transport-Security = %q", got)
	}
}
