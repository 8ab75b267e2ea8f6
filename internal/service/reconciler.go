package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Gattoajatooo/back-sparta-sub007/internal/domain"
	"github.com/Gattoajatooo/back-sparta-sub007/internal/observability"
	"github.com/Gattoajatooo/back-sparta-sub007/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const DefaultPersistChunkSize = 200

// PersistResult reports how many message records were written.
type PersistResult struct {
	Created int
	Failed  int
}

// Reconciler turns dispatch outcomes into message records. It is best effort:
// a failed chunk is logged and the remaining chunks are still written.
type Reconciler struct {
	messages  repository.MessageRepository
	chunkSize int
	logger    *zap.Logger
	metrics   *observability.Metrics
	now       func() time.Time
	newID     func() string
}

func NewReconciler(
	messages repository.MessageRepository,
	chunkSize int,
	logger *zap.Logger,
	metrics *observability.Metrics,
) (*Reconciler, error) {
	if messages == nil {
		return nil, fmt.Errorf("message repository is required")
	}
	if chunkSize <= 0 {
		chunkSize = DefaultPersistChunkSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Reconciler{
		messages:  messages,
		chunkSize: chunkSize,
		logger:    logger,
		metrics:   metrics,
		now:       time.Now,
		newID:     uuid.NewString,
	}, nil
}

// Persist writes one message per outcome. Scheduled outcomes become pending
// messages carrying the job id; everything else is recorded as failed.
func (r *Reconciler) Persist(ctx context.Context, batch *domain.BatchSchedule, outcomes []domain.DispatchOutcome) PersistResult {
	var result PersistResult
	if batch == nil || len(outcomes) == 0 {
		return result
	}

	logger := observability.BatchLogger(r.logger, ctx, batch.ID, batch.CampaignID)
	now := r.now().UTC()

	for start, chunkIndex := 0, 0; start < len(outcomes); start, chunkIndex = start+r.chunkSize, chunkIndex+1 {
		end := start + r.chunkSize
		if end > len(outcomes) {
			end = len(outcomes)
		}

		records := make([]*domain.Message, 0, end-start)
		for _, outcome := range outcomes[start:end] {
			records = append(records, r.messageFromOutcome(batch, outcome, now))
		}

		if err := r.messages.CreateMany(ctx, records); err != nil {
			result.Failed += len(records)
			logger.Error("message chunk persistence failed",
				zap.Int("chunk", chunkIndex),
				zap.Int("size", len(records)),
				zap.Error(err),
			)
			continue
		}
		result.Created += len(records)
	}

	r.metrics.AddMessagesPersisted(result.Created, result.Failed)
	return result
}

func (r *Reconciler) messageFromOutcome(batch *domain.BatchSchedule, outcome domain.DispatchOutcome, now time.Time) *domain.Message {
	p := outcome.Payload
	msg := &domain.Message{
		ID:          r.newID(),
		CompanyID:   firstNonEmpty(p.CompanyID, batch.CompanyID),
		CampaignID:  firstNonEmpty(p.Metadata.CampaignID, batch.CampaignID),
		BatchID:     batch.ID,
		ContactID:   p.Metadata.ContactID,
		TemplateID:  p.Metadata.TemplateID,
		SessionID:   p.SessionID,
		ChatID:      p.ChatID,
		ContentType: p.ContentType,
		Content:     p.Content,
		RunAt:       p.RunAt,
		Metadata:    p.Metadata,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if p.Media != nil && strings.TrimSpace(p.Media.URL) != "" {
		mediaURL := p.Media.URL
		msg.MediaURL = &mediaURL
		if msg.Content == "" {
			msg.Content = p.Media.Caption
		}
	}

	if outcome.Succeeded() {
		jobID := *outcome.JobID
		msg.Status = domain.MessageStatusPending
		msg.SchedulerJobID = &jobID
		return msg
	}

	detail := strings.TrimSpace(outcome.Error)
	if detail == "" {
		detail = "dispatch failed"
	}
	msg.Status = domain.MessageStatusFailed
	msg.ErrorDetails = &detail
	return msg
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
