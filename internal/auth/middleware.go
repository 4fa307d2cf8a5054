package auth

import (
	"net/http"
	"strings"
)

// UserHeader names the caller when token verification is disabled.
const UserHeader = "X-User-ID"

// Skipper allows callers to bypass authentication for specific requests.
type Skipper func(r *http.Request) bool

// Middleware resolves the user of each request. With verification enabled a
// valid bearer token is required; otherwise the UserHeader (or LocalUser)
// names the user.
type Middleware struct {
	Config  Config
	Skipper Skipper
}

func NewMiddleware(cfg Config, skipper Skipper) Middleware {
	return Middleware{Config: cfg, Skipper: skipper}
}

func (m Middleware) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.Skipper != nil && m.Skipper(r) {
			next.ServeHTTP(w, r)
			return
		}

		var claims *Claims
		if m.Config.Enabled() {
			c, err := m.parseRequest(r)
			if err != nil {
				http.Error(w, err.Error(), http.StatusUnauthorized)
				return
			}
			claims = c
		} else {
			claims = &Claims{Subject: headerUser(r)}
		}
		next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
	})
}

func (m Middleware) parseRequest(r *http.Request) (*Claims, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return nil, ErrMissingToken
	}
	if !strings.HasPrefix(strings.ToLower(header), "bearer ") {
		return nil, ErrInvalidToken
	}
	token := strings.TrimSpace(header[len("Bearer "):])
	return Parse(token, m.Config)
}

func headerUser(r *http.Request) string {
	u := strings.TrimSpace(r.Header.Get(UserHeader))
	if u == "" || len(u) > 128 || strings.ContainsAny(u, "/\\") {
		return LocalUser
	}
	return u
}
