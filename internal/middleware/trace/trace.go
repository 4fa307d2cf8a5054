// Package trace tags every request with an ID, hangs a request-scoped logger
// on its context and records latency.
package trace

import (
	"context"
	"net/http"
	"regexp"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"ecotrack/internal/log"
	"ecotrack/internal/observability"
)

// RequestIDHeader carries the request ID in and out of the service.
const RequestIDHeader = "X-Request-ID"

type requestIDKey struct{}

// Incoming IDs are reused only when they look like something we would issue.
var validRequestID = regexp.MustCompile(`^[A-Za-z0-9_-]{8,64}$`)

type Middleware struct {
	clientIP func(*http.Request) string
	logger   *log.Logger
	events   *log.StructuredLogger

	served      atomic.Int64
	lastLatency atomic.Int64 // microseconds
}

// Stats is a snapshot of what the middleware has seen.
type Stats struct {
	TotalRequests    int64
	LastResponseTime time.Duration
}

// NewMiddleware logs requests with the IP resolved by clientIP, which may be nil.
func NewMiddleware(clientIP func(*http.Request) string, logger *log.Logger) *Middleware {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	logger = logger.WithComponent(log.ComponentTrace)
	return &Middleware{
		clientIP: clientIP,
		logger:   logger,
		events:   log.NewStructuredLogger(logger),
	}
}

func (m *Middleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		id := r.Header.Get(RequestIDHeader)
		if !validRequestID.MatchString(id) {
			id = NewRequestID()
		}
		w.Header().Set(RequestIDHeader, id)

		ctx := context.WithValue(r.Context(), requestIDKey{}, id)
		ctx = log.IntoContext(ctx, m.logger.With(log.FieldRequestID, id))
		r = r.WithContext(ctx)

		var ip string
		if m.clientIP != nil {
			ip = m.clientIP(r)
		}
		m.events.LogHTTPStart(ctx, r, ip)
		m.served.Add(1)

		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)

		elapsed := time.Since(start)
		m.lastLatency.Store(elapsed.Microseconds())
		observability.RecordHTTPRequest(r.Method, r.Pattern, sw.status, elapsed)
		m.events.LogHTTPEnd(ctx, r, sw.status, elapsed.Milliseconds(), ip)
	})
}

func (m *Middleware) Stats() Stats {
	return Stats{
		TotalRequests:    m.served.Load(),
		LastResponseTime: time.Duration(m.lastLatency.Load()) * time.Microsecond,
	}
}

// statusWriter remembers the first status code written.
type statusWriter struct {
	http.ResponseWriter
	status  int
	written bool
}

func (w *statusWriter) WriteHeader(code int) {
	if !w.written {
		w.status = code
		w.written = true
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	w.written = true
	return w.ResponseWriter.Write(b)
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

// NewRequestID returns "req_" followed by 32 hex digits.
func NewRequestID() string {
	return "req_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// GetRequestID returns the ID assigned by the middleware, or "".
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
