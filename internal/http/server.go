package http

import (
	"context"
	"html/template"
	"io/fs"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"ecotrack/internal/auth"
	"ecotrack/internal/log"
	"ecotrack/internal/middleware/ratelimit"
	"ecotrack/internal/middleware/security"
	"ecotrack/internal/middleware/trace"
	"ecotrack/internal/services"
	appweb "ecotrack/web"
)

// Deps are the collaborators the HTTP layer serves.
type Deps struct {
	Activities *services.ActivityService
	Challenges *services.ChallengeService
	Inquiries  *services.InquiryService

	Auth auth.Config
	// Ready reports whether the storage backend can serve requests.
	Ready func(ctx context.Context) error

	RateLimitPerMinute int
	Logger             *log.Logger
}

// Server wraps http.Server with the ecotrack routes and middleware.
type Server struct {
	http.Server
	deps      Deps
	templates *template.Template
	logger    *log.Logger
	started   time.Time

	rateLimiter *ratelimit.Limiter
	detector    *security.Detector
	tracer      *trace.Middleware

	shutdownOnce sync.Once
}

// NewServer builds the mux and the middleware chain. Outermost first:
// tracing, security headers, scan detection, rate limiting, authentication.
func NewServer(addr string, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}

	s := &Server{
		deps:    deps,
		logger:  logger.WithComponent(log.ComponentHTTP),
		started: time.Now(),
		rateLimiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: deps.RateLimitPerMinute,
			Methods:           []string{http.MethodPost, http.MethodPut, http.MethodDelete},
		}),
		detector: security.NewDetector(logger),
	}
	s.tracer = trace.NewMiddleware(s.detector.ExtractClientIP, logger)

	t, err := template.New("").Funcs(templateFuncs).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		s.logger.Warn("Failed parsing templates", log.FieldError, err)
	}
	s.templates = t

	mux := http.NewServeMux()
	s.routes(mux)

	authn := auth.NewMiddleware(deps.Auth, func(r *http.Request) bool {
		return !strings.HasPrefix(r.URL.Path, "/api/")
	})
	limited := s.rateLimiter.Middleware(s.detector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
		ErrorResponse(http.StatusTooManyRequests, "Too many requests, please slow down").Write(w)
	})

	var h http.Handler = mux
	h = authn.Wrap(h)
	h = limited(h)
	h = s.detector.Middleware(h)
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
	h = s.tracer.Middleware(h)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) routes(mux *http.ServeMux) {
	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("GET /static/", security.StaticAssetMiddleware(time.Hour)(static))
	} else {
		s.logger.Warn("Failed to mount embedded static FS", log.FieldError, err)
	}

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /api/activities", s.handleListActivities)
	mux.HandleFunc("POST /api/activities", s.handleCreateActivity)
	mux.HandleFunc("GET /api/factors", s.handleFactors)
	mux.HandleFunc("GET /api/dashboard", s.handleDashboard)
	mux.HandleFunc("GET /api/goal", s.handleGetGoal)
	mux.HandleFunc("PUT /api/goal", s.handleSetGoal)
	mux.HandleFunc("POST /api/voice", s.handleVoice)

	mux.HandleFunc("GET /api/challenges", s.handleChallenges)
	mux.HandleFunc("POST /api/challenges/{id}/start", s.handleStartChallenge)
	mux.HandleFunc("POST /api/challenges/{id}/complete", s.handleCompleteChallenge)
	mux.HandleFunc("GET /api/leaderboard", s.handleLeaderboard)
	mux.HandleFunc("PUT /api/profile", s.handleUpdateProfile)
	mux.HandleFunc("POST /api/inquiries", s.handleCreateInquiry)
}

// Shutdown stops background goroutines and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
