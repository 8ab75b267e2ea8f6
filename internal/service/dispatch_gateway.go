package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Gattoajatooo/back-sparta-sub007/internal/domain"
	"github.com/Gattoajatooo/back-sparta-sub007/internal/observability"
	"github.com/Gattoajatooo/back-sparta-sub007/internal/provider"
	"github.com/Gattoajatooo/back-sparta-sub007/internal/ratelimit"
	"go.uber.org/zap"
)

const (
	DefaultDispatchChunkSize = 100

	missingJobResult = "missing job result"
)

// DispatchGateway submits payloads to the job queue chunk by chunk. Failures are
// folded into per-payload outcomes; only cancellation stops the loop.
type DispatchGateway struct {
	jobs        provider.JobQueue
	rateLimiter ratelimit.RateLimiter
	chunkSize   int
	logger      *zap.Logger
	metrics     *observability.Metrics
	now         func() time.Time
}

func NewDispatchGateway(
	jobs provider.JobQueue,
	rateLimiter ratelimit.RateLimiter,
	chunkSize int,
	logger *zap.Logger,
	metrics *observability.Metrics,
) (*DispatchGateway, error) {
	if jobs == nil {
		return nil, fmt.Errorf("job queue is required")
	}
	if rateLimiter == nil {
		rateLimiter = ratelimit.Unlimited{}
	}
	if chunkSize <= 0 {
		chunkSize = DefaultDispatchChunkSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &DispatchGateway{
		jobs:        jobs,
		rateLimiter: rateLimiter,
		chunkSize:   chunkSize,
		logger:      logger,
		metrics:     metrics,
		now:         time.Now,
	}, nil
}

// Dispatch returns one outcome per payload, in submission order. When ctx is
// done between chunks it returns the outcomes of the chunks already submitted
// together with the context error.
func (g *DispatchGateway) Dispatch(ctx context.Context, payloads []domain.DispatchPayload) ([]domain.DispatchOutcome, error) {
	outcomes := make([]domain.DispatchOutcome, 0, len(payloads))
	logger := observability.WithContextLogger(g.logger, ctx)

	for start, chunkIndex := 0, 0; start < len(payloads); start, chunkIndex = start+g.chunkSize, chunkIndex+1 {
		if err := ctx.Err(); err != nil {
			return outcomes, err
		}

		end := start + g.chunkSize
		if end > len(payloads) {
			end = len(payloads)
		}
		chunk := payloads[start:end]

		if err := g.rateLimiter.Wait(ctx, ratelimit.ScopeJobQueue); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return outcomes, ctxErr
			}
			logger.Warn("rate limiter unavailable, dispatching without throttle",
				zap.Int("chunk", chunkIndex),
				zap.Error(err),
			)
		}

		outcomes = append(outcomes, g.dispatchChunk(ctx, logger, chunkIndex, chunk)...)
	}

	return outcomes, nil
}

func (g *DispatchGateway) dispatchChunk(ctx context.Context, logger *zap.Logger, chunkIndex int, chunk []domain.DispatchPayload) []domain.DispatchOutcome {
	started := g.now()
	results, err := g.jobs.SubmitBatch(ctx, chunk)
	g.metrics.ObserveDispatchChunk(err == nil, g.now().Sub(started))

	outcomes := make([]domain.DispatchOutcome, len(chunk))
	if err != nil {
		detail := provider.ErrorDetail(err)
		logger.Error("job queue chunk failed",
			zap.Int("chunk", chunkIndex),
			zap.Int("size", len(chunk)),
			zap.Bool("transient", provider.IsTransient(err)),
			zap.Bool("canceled", errors.Is(err, context.Canceled)),
			zap.Error(err),
		)
		for i, p := range chunk {
			outcomes[i] = domain.DispatchOutcome{Payload: p, Error: detail}
		}
		g.metrics.AddDispatchItems(0, len(chunk))
		return outcomes
	}

	if len(results) != len(chunk) {
		logger.Warn("job queue response not aligned with chunk",
			zap.Int("chunk", chunkIndex),
			zap.Int("size", len(chunk)),
			zap.Int("results", len(results)),
		)
	}

	scheduled := 0
	for i, p := range chunk {
		outcome := domain.DispatchOutcome{Payload: p}
		switch {
		case i >= len(results):
			outcome.Error = missingJobResult
		case results[i].OK && strings.TrimSpace(results[i].JobID) != "":
			jobID := results[i].JobID
			outcome.JobID = &jobID
			scheduled++
		default:
			outcome.Error = strings.TrimSpace(results[i].Error)
			if outcome.Error == "" {
				outcome.Error = "job queue rejected payload"
			}
		}
		outcomes[i] = outcome
	}

	g.metrics.AddDispatchItems(scheduled, len(chunk)-scheduled)
	return outcomes
}
