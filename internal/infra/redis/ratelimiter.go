package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Gattoajatooo/back-sparta-sub007/internal/ratelimit"
	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

// ScopeJobQueue throttles chunk calls to the external job queue.
const ScopeJobQueue = ratelimit.ScopeJobQueue

const (
	defaultLimitPerSec = 20
	limiterWindow      = time.Second
	// maxThrottleSleep bounds one back-off so a cancelled request is noticed quickly.
	maxThrottleSleep = 250 * time.Millisecond
	limiterKeyPrefix = "ratelimit:"
)

// admitScript keeps one sorted-set entry per admitted call, scored by its time
// in milliseconds. It returns 0 when the call is admitted, otherwise the
// milliseconds until the oldest entry leaves the window.
var admitScript = goredis.NewScript(`
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
redis.call("ZREMRANGEBYSCORE", KEYS[1], "-inf", now - window)
if redis.call("ZCARD", KEYS[1]) < limit then
  redis.call("ZADD", KEYS[1], ARGV[1], ARGV[4])
  redis.call("PEXPIRE", KEYS[1], window)
  return 0
end
local oldest = redis.call("ZRANGE", KEYS[1], 0, 0, "WITHSCORES")
local retry = tonumber(oldest[2]) + window - now
if retry < 1 then
  retry = 1
end
return retry
`)

var _ ratelimit.RateLimiter = (*RedisRateLimiter)(nil)

// RedisRateLimiter admits at most limit calls per scope in any rolling second,
// shared by every API instance.
type RedisRateLimiter struct {
	client     *goredis.Client
	limit      int
	now        func() time.Time
	sleep      func(ctx context.Context, d time.Duration) error
	newMember  func() string
	onThrottle func(scope string)
}

func NewRedisRateLimiter(client *goredis.Client, limitPerSec int) (*RedisRateLimiter, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if limitPerSec <= 0 {
		limitPerSec = defaultLimitPerSec
	}

	return &RedisRateLimiter{
		client:    client,
		limit:     limitPerSec,
		now:       time.Now,
		sleep:     sleepContext,
		newMember: uuid.NewString,
	}, nil
}

// OnThrottle registers a hook invoked each time Wait has to back off.
func (r *RedisRateLimiter) OnThrottle(fn func(scope string)) *RedisRateLimiter {
	r.onThrottle = fn
	return r
}

// Allow admits one call if the scope has room right now.
func (r *RedisRateLimiter) Allow(ctx context.Context, scope string) (bool, error) {
	retry, err := r.reserve(ctx, scope)
	if err != nil {
		return false, err
	}
	return retry == 0, nil
}

// Wait blocks until a call is admitted for scope or ctx ends. It sleeps for the
// time the window needs to free a slot, capped at maxThrottleSleep.
func (r *RedisRateLimiter) Wait(ctx context.Context, scope string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	for {
		retry, err := r.reserve(ctx, scope)
		if err != nil {
			return err
		}
		if retry == 0 {
			return nil
		}
		if r.onThrottle != nil {
			r.onThrottle(scope)
		}
		if err := r.sleep(ctx, min(retry, maxThrottleSleep)); err != nil {
			return err
		}
	}
}

func (r *RedisRateLimiter) reserve(ctx context.Context, scope string) (time.Duration, error) {
	if r == nil || r.client == nil {
		return 0, fmt.Errorf("rate limiter is not initialized")
	}
	scope = strings.ToLower(strings.TrimSpace(scope))
	if scope == "" {
		return 0, fmt.Errorf("rate limit scope is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	retryMs, err := admitScript.Run(ctx, r.client,
		[]string{limiterKeyPrefix + scope},
		r.now().UnixMilli(), limiterWindow.Milliseconds(), r.limit, r.newMember(),
	).Int64()
	if err != nil {
		return 0, fmt.Errorf("evaluate rate limit for %s: %w", scope, err)
	}
	return time.Duration(retryMs) * time.Millisecond, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
