package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"slices"
	"testing"
	"time"
)

func TestLimiter_BucketRefills(t *testing.T) {
	now := time.Date(2025, 6, 11, 12, 0, 0, 0, time.UTC)
	rl := NewLimiter(Config{RequestsPerMinute: 2}).WithClock(func() time.Time { return now })
	defer rl.Stop()

	if !rl.Allow("1.2.3.4") || !rl.Allow("1.2.3.4") {
		t.Fatal("the burst should cover the first two requests")
	}
	if rl.Allow("1.2.3.4") {
		t.Fatal("third request should be limited")
	}
	if got := rl.RetryAfter("1.2.3.4"); got != 30 {
		t.Errorf("RetryAfter() = %d, want 30", got)
	}
	if !rl.Allow("5.6.7.8") {
		t.Fatal("other clients have their own bucket")
	}

	now = now.Add(30 * time.Second)
	if !rl.Allow("1.2.3.4") {
		t.Fatal("one token should have refilled after 30s")
	}
	if rl.ActiveClients() != 2 {
		t.Errorf("ActiveClients() = %d, want 2", rl.ActiveClients())
	}

	now = now.Add(11 * time.Minute)
	rl.dropIdle()
	if rl.ActiveClients() != 0 {
		t.Errorf("idle clients should be dropped, have %d", rl.ActiveClients())
	}
}

func TestLimiter_MiddlewareOnlyLimitsConfiguredMethods(t *testing.T) {
	rl := NewLimiter(Config{RequestsPerMinute: 1, Methods: []string{http.MethodPost}})
	defer rl.Stop()

	h := rl.Middleware(func(*http.Request) string { return "ip" }, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	var codes []int
	var retry string
	for _, m := range []string{http.MethodPost, http.MethodPost, http.MethodGet, http.MethodGet} {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(m, "/", nil))
		codes = append(codes, rr.Code)
		if rr.Code == http.StatusTooManyRequests {
			retry = rr.Header().Get("Retry-After")
		}
	}
	if want := []int{204, 429, 204, 204}; !slices.Equal(codes, want) {
		t.Fatalf("codes = %v, want %v", codes, want)
	}
	if retry == "" || retry == "0" {
		t.Errorf("Retry-After = %q", retry)
	}
	if m := rl.GetMetrics(); m.Rejected != 1 || m.ActiveClients != 1 {
		t.Errorf("GetMetrics() = %+v", m)
	}
}

func TestStopIsIdempotent(t *testing.T) {
	rl := NewLimiter(DefaultConfig())
	rl.Stop()
	rl.Stop()
}
