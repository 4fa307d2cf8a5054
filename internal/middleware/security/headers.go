package security

import (
	"maps"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Directive is one Content-Security-Policy directive.
type Directive struct {
	Name    string
	Sources []string
}

// HeadersConfig is the header policy applied to every response.
type HeadersConfig struct {
	CSP []Directive
	// Permissions maps a browser feature to its allowlist, "()" denies it.
	Permissions map[string]string
	// HSTS is sent over TLS only; zero disables it.
	HSTSMaxAge time.Duration
	// Fixed holds headers sent verbatim.
	Fixed map[string]string
}

// DefaultHeadersConfig returns the dashboard's policy. The page loads htmx
// from unpkg and needs the microphone for voice logging.
func DefaultHeadersConfig() HeadersConfig {
	return HeadersConfig{
		CSP: []Directive{
			{"default-src", []string{"'self'"}},
			{"script-src", []string{"'self'", "https://unpkg.com"}},
			{"style-src", []string{"'self'", "'unsafe-inline'"}},
			{"img-src", []string{"'self'", "data:"}},
			{"connect-src", []string{"'self'"}},
			{"object-src", []string{"'none'"}},
			{"frame-ancestors", []string{"'none'"}},
			{"base-uri", []string{"'self'"}},
			{"form-action", []string{"'self'"}},
		},
		Permissions: map[string]string{
			"camera":      "()",
			"geolocation": "()",
			"payment":     "()",
			"microphone":  "(self)",
		},
		HSTSMaxAge: 365 * 24 * time.Hour,
		Fixed: map[string]string{
			"X-Content-Type-Options":       "nosniff",
			"X-Frame-Options":              "DENY",
			"Referrer-Policy":              "strict-origin-when-cross-origin",
			"Cross-Origin-Opener-Policy":   "same-origin",
			"Cross-Origin-Resource-Policy": "same-origin",
		},
	}
}

// HeadersMiddleware renders the policy once and copies it onto responses.
type HeadersMiddleware struct {
	headers http.Header
	hsts    string
}

func NewHeadersMiddleware(cfg HeadersConfig) *HeadersMiddleware {
	h := make(http.Header, len(cfg.Fixed)+2)
	for name, value := range cfg.Fixed {
		h.Set(name, value)
	}
	if len(cfg.CSP) > 0 {
		parts := make([]string, 0, len(cfg.CSP))
		for _, d := range cfg.CSP {
			parts = append(parts, strings.Join(append([]string{d.Name}, d.Sources...), " "))
		}
		h.Set("Content-Security-Policy", strings.Join(parts, "; "))
	}
	if len(cfg.Permissions) > 0 {
		features := make([]string, 0, len(cfg.Permissions))
		for _, f := range slices.Sorted(maps.Keys(cfg.Permissions)) {
			features = append(features, f+"="+cfg.Permissions[f])
		}
		h.Set("Permissions-Policy", strings.Join(features, ", "))
	}

	m := &HeadersMiddleware{headers: h}
	if cfg.HSTSMaxAge > 0 {
		m.hsts = "max-age=" + strconv.Itoa(int(cfg.HSTSMaxAge.Seconds())) + "; includeSubDomains"
	}
	return m
}

func (m *HeadersMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		dst := w.Header()
		for name, values := range m.headers {
			dst[name] = slices.Clone(values)
		}
		if r.TLS != nil && m.hsts != "" {
			dst.Set("Strict-Transport-Security", m.hsts)
		}
		next.ServeHTTP(w, r)
	})
}

// StaticAssetMiddleware lets browsers cache static assets for maxAge.
func StaticAssetMiddleware(maxAge time.Duration) func(http.Handler) http.Handler {
	value := "public, max-age=" + strconv.Itoa(int(maxAge.Seconds()))
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if maxAge > 0 {
				w.Header().Set("Cache-Control", value)
			}
			next.ServeHTTP(w, r)
		})
	}
}
