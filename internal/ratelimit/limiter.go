package ratelimit

import "context"

// ScopeJobQueue throttles chunk calls to the external job queue.
const ScopeJobQueue = "jobqueue"

// RateLimiter bounds calls per second within a named scope.
type RateLimiter interface {
	Allow(ctx context.Context, scope string) (bool, error)
	Wait(ctx context.Context, scope string) error
}

// Unlimited never blocks. It stands in when throttling is disabled.
type Unlimited struct{}

func (Unlimited) Allow(context.Context, string) (bool, error) { return true, nil }

func (Unlimited) Wait(ctx context.Context, _ string) error {
	if ctx == nil {
		return nil
	}
	return ctx.Err()
}
