package redis

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func newTestRateLimiter(t *testing.T, limit int, now *time.Time) *RedisRateLimiter {
	t.Helper()

	_, rdb := newTestMiniRedis(t)
	limiter, err := NewRedisRateLimiter(rdb, limit)
	if err != nil {
		t.Fatalf("NewRedisRateLimiter() error = %v", err)
	}
	limiter.now = func() time.Time { return *now }

	seq := 0
	limiter.newMember = func() string {
		seq++
		return fmt.Sprintf("call-%d", seq)
	}
	return limiter
}

func mustAllow(t *testing.T, limiter *RedisRateLimiter, scope string) bool {
	t.Helper()

	allowed, err := limiter.Allow(context.Background(), scope)
	if err != nil {
		t.Fatalf("Allow(%s) error = %v", scope, err)
	}
	return allowed
}

func TestRedisRateLimiterRollingWindow(t *testing.T) {
	t.Parallel()

	now := time.UnixMilli(1_700_000_000_000)
	limiter := newTestRateLimiter(t, 2, &now)

	if !mustAllow(t, limiter, ScopeJobQueue) {
		t.Fatal("first call should be admitted")
	}
	now = now.Add(600 * time.Millisecond)
	if !mustAllow(t, limiter, ScopeJobQueue) {
		t.Fatal("second call should be admitted")
	}
	if mustAllow(t, limiter, ScopeJobQueue) {
		t.Fatal("third call inside the window should be rejected")
	}

	// The first call leaves the window; the second is still inside it.
	now = now.Add(400 * time.Millisecond)
	if !mustAllow(t, limiter, ScopeJobQueue) {
		t.Fatal("call after the oldest entry expired should be admitted")
	}
	if mustAllow(t, limiter, ScopeJobQueue) {
		t.Fatal("window is full again")
	}
}

func TestRedisRateLimiterScopesAreIndependent(t *testing.T) {
	t.Parallel()

	now := time.UnixMilli(1_700_000_100_000)
	limiter := newTestRateLimiter(t, 1, &now)

	if !mustAllow(t, limiter, ScopeJobQueue) {
		t.Fatal("jobqueue should be admitted")
	}
	if !mustAllow(t, limiter, "contacts") {
		t.Fatal("contacts should be admitted")
	}
	if mustAllow(t, limiter, " JOBQUEUE ") {
		t.Fatal("scope is case and space insensitive, jobqueue is full")
	}
}

func TestRedisRateLimiterWaitSleepsUntilSlotFrees(t *testing.T) {
	t.Parallel()

	now := time.UnixMilli(1_700_000_200_000)
	limiter := newTestRateLimiter(t, 1, &now)

	var slept []time.Duration
	limiter.sleep = func(ctx context.Context, d time.Duration) error {
		slept = append(slept, d)
		now = now.Add(d)
		return nil
	}
	var throttled []string
	limiter.OnThrottle(func(scope string) { throttled = append(throttled, scope) })

	if !mustAllow(t, limiter, ScopeJobQueue) {
		t.Fatal("first call should be admitted")
	}
	now = now.Add(100 * time.Millisecond)

	if err := limiter.Wait(context.Background(), ScopeJobQueue); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}

	// 900ms remain in the window, served in capped back-offs.
	want := []time.Duration{250 * time.Millisecond, 250 * time.Millisecond, 250 * time.Millisecond, 150 * time.Millisecond}
	if len(slept) != len(want) {
		t.Fatalf("sleeps = %v, want %v", slept, want)
	}
	for i := range want {
		if slept[i] != want[i] {
			t.Fatalf("sleeps = %v, want %v", slept, want)
		}
	}
	if len(throttled) != len(want) || throttled[0] != ScopeJobQueue {
		t.Fatalf("throttle hook calls = %v, want %d for %s", throttled, len(want), ScopeJobQueue)
	}
}

func TestRedisRateLimiterWaitHonoursContext(t *testing.T) {
	t.Parallel()

	now := time.UnixMilli(1_700_000_300_000)
	limiter := newTestRateLimiter(t, 1, &now)

	if !mustAllow(t, limiter, ScopeJobQueue) {
		t.Fatal("first call should be admitted")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 25*time.Millisecond)
	defer cancel()

	if err := limiter.Wait(ctx, ScopeJobQueue); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Wait() error = %v, want %v", err, context.DeadlineExceeded)
	}
}

func TestNewRedisRateLimiter(t *testing.T) {
	t.Parallel()

	if _, err := NewRedisRateLimiter(nil, 5); err == nil {
		t.Fatal("expected error without redis client")
	}

	_, rdb := newTestMiniRedis(t)
	limiter, err := NewRedisRateLimiter(rdb, 0)
	if err != nil {
		t.Fatalf("NewRedisRateLimiter() error = %v", err)
	}
	if limiter.limit != defaultLimitPerSec {
		t.Fatalf("limit = %d, want default %d", limiter.limit, defaultLimitPerSec)
	}
	if _, err := limiter.Allow(context.Background(), "  "); err == nil {
		t.Fatal("expected error for blank scope")
	}
}
