package ratelimit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func TestAllowWindow(t *testing.T) {
	c := &clock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	rl := NewLimiter(Config{RequestsPerMinute: 2}).WithClock(c.now)

	if !rl.Allow("a") || !rl.Allow("a") {
		t.Fatalf("first two requests must pass")
	}
	if rl.Allow("a") {
		t.Fatalf("third request in the window must be rejected")
	}
	if !rl.Allow("b") {
		t.Fatalf("keys are counted separately")
	}
	if got := rl.RetryAfter("a"); got != time.Minute {
		t.Fatalf("retry after %v", got)
	}

	c.t = c.t.Add(time.Minute)
	if !rl.Allow("a") {
		t.Fatalf("new window must reset the count")
	}
	if rl.GetMetrics().TotalHits != 1 {
		t.Fatalf("expected one rejected request, got %+v", rl.GetMetrics())
	}
}

func TestCleanupEvictsIdleClients(t *testing.T) {
	c := &clock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	rl := NewLimiter(Config{}).WithClock(c.now)
	rl.Allow("old")
	c.t = c.t.Add(11 * time.Minute)
	rl.Allow("new")

	rl.cleanupStaleEntries()
	if rl.ActiveClients() != 1 {
		t.Fatalf("expected only the recent client, got %d", rl.ActiveClients())
	}
}

func TestRunStopsWithContext(t *testing.T) {
	rl := NewLimiter(Config{CleanupInterval: time.Millisecond})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		rl.Run(ctx)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("Run did not return after cancel")
	}
}

func TestMiddlewareRejects(t *testing.T) {
	rl := NewLimiter(Config{RequestsPerMinute: 1})
	h := rl.Middleware(func(*http.Request) string { return "ip" }, nil)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("first request: %d", rec.Code)
	}
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusTooManyRequests || rec.Header().Get("Retry-After") == "" {
		t.Fatalf("second request: %d %q", rec.Code, rec.Header().Get("Retry-After"))
	}
}
