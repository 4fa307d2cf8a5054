// Package ratelimit throttles clients with one token bucket per client IP.
package ratelimit

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"ecotrack/internal/observability"
)

type Config struct {
	// RequestsPerMinute is both the refill rate and the burst size.
	RequestsPerMinute int
	// IdleTimeout drops buckets of clients not seen for this long.
	IdleTimeout     time.Duration
	CleanupInterval time.Duration
	// Methods restricts limiting to these HTTP methods. Empty limits all.
	Methods []string
}

// DefaultConfig limits mutating requests to 60 per minute per client.
func DefaultConfig() Config {
	return Config{
		RequestsPerMinute: 60,
		IdleTimeout:       10 * time.Minute,
		CleanupInterval:   5 * time.Minute,
		Methods:           []string{http.MethodPost, http.MethodPut, http.MethodDelete},
	}
}

type bucket struct {
	tokens   *rate.Limiter
	lastSeen time.Time
}

type Limiter struct {
	limit   rate.Limit
	burst   int
	idle    time.Duration
	methods map[string]bool

	mu      sync.Mutex
	now     func() time.Time
	buckets map[string]*bucket

	rejected atomic.Int64
	stop     chan struct{}
	stopOnce sync.Once
}

// NewLimiter starts the idle-bucket janitor; call Stop to end it. Zero
// fields of cfg take their DefaultConfig values.
func NewLimiter(cfg Config) *Limiter {
	def := DefaultConfig()
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = def.RequestsPerMinute
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = def.IdleTimeout
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = def.CleanupInterval
	}

	l := &Limiter{
		limit:   rate.Limit(float64(cfg.RequestsPerMinute) / 60),
		burst:   cfg.RequestsPerMinute,
		idle:    cfg.IdleTimeout,
		now:     time.Now,
		buckets: make(map[string]*bucket),
		stop:    make(chan struct{}),
	}
	if len(cfg.Methods) > 0 {
		l.methods = make(map[string]bool, len(cfg.Methods))
		for _, m := range cfg.Methods {
			l.methods[m] = true
		}
	}
	go l.janitor(cfg.CleanupInterval)
	return l
}

// WithClock replaces the time source.
func (l *Limiter) WithClock(now func() time.Time) *Limiter {
	l.mu.Lock()
	l.now = now
	l.mu.Unlock()
	return l
}

func (l *Limiter) bucketFor(client string, now time.Time) *bucket {
	b, ok := l.buckets[client]
	if !ok {
		b = &bucket{tokens: rate.NewLimiter(l.limit, l.burst)}
		l.buckets[client] = b
	}
	b.lastSeen = now
	return b
}

// Allow takes one token from the client's bucket.
func (l *Limiter) Allow(client string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	return l.bucketFor(client, now).tokens.AllowN(now, 1)
}

// RetryAfter is the number of whole seconds until the client has a token
// again, at least one.
func (l *Limiter) RetryAfter(client string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	missing := 1 - l.bucketFor(client, now).tokens.TokensAt(now)
	if missing <= 0 {
		return 1
	}
	return max(1, int(math.Ceil(missing/float64(l.limit))))
}

func (l *Limiter) applies(method string) bool {
	return l.methods == nil || l.methods[method]
}

func (l *Limiter) janitor(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			l.dropIdle()
		case <-l.stop:
			return
		}
	}
}

func (l *Limiter) dropIdle() {
	l.mu.Lock()
	defer l.mu.Unlock()
	cutoff := l.now().Add(-l.idle)
	for client, b := range l.buckets {
		if b.lastSeen.Before(cutoff) {
			delete(l.buckets, client)
		}
	}
}

// ActiveClients is the number of clients with a live bucket.
func (l *Limiter) ActiveClients() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

// Stop ends the janitor. It may be called more than once.
func (l *Limiter) Stop() {
	l.stopOnce.Do(func() { close(l.stop) })
}

type Metrics struct {
	Rejected      int64 `json:"rejected"`
	ActiveClients int   `json:"active_clients"`
}

func (l *Limiter) GetMetrics() Metrics {
	return Metrics{Rejected: l.rejected.Load(), ActiveClients: l.ActiveClients()}
}

// Middleware rejects over-limit requests with 429 and a Retry-After header.
// onLimit writes the body; nil writes a plain-text one.
func (l *Limiter) Middleware(clientOf func(*http.Request) string, onLimit func(http.ResponseWriter, *http.Request)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !l.applies(r.Method) {
				next.ServeHTTP(w, r)
				return
			}
			client := clientOf(r)
			if l.Allow(client) {
				next.ServeHTTP(w, r)
				return
			}
			l.rejected.Add(1)
			observability.RecordRateLimited()
			w.Header().Set("Retry-After", strconv.Itoa(l.RetryAfter(client)))
			if onLimit != nil {
				onLimit(w, r)
				return
			}
			http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
		})
	}
}
