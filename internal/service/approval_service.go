package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Gattoajatooo/back-sparta-sub007/internal/domain"
	"github.com/Gattoajatooo/back-sparta-sub007/internal/observability"
	"github.com/Gattoajatooo/back-sparta-sub007/internal/payload"
	"github.com/Gattoajatooo/back-sparta-sub007/internal/queue"
	"github.com/Gattoajatooo/back-sparta-sub007/internal/repository"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	maxConcurrentLookups = 32
	millisPerDay         = int64(24 * time.Hour / time.Millisecond)
	detachedWorkTimeout  = 30 * time.Second
)

// ApprovalLocker leases a batch id for the duration of one approval.
type ApprovalLocker interface {
	Acquire(ctx context.Context, batchID string) (string, error)
	Release(ctx context.Context, batchID, token string) error
}

// ApprovalDependencies groups the collaborators of ApprovalService.
type ApprovalDependencies struct {
	Batches    repository.BatchRepository
	Campaigns  repository.CampaignRepository
	Templates  repository.TemplateRepository
	Contacts   repository.ContactRepository
	Companies  repository.CompanyRepository
	Users      repository.UserRepository
	Resolver   *AudienceResolver
	Builder    *payload.Builder
	Gateway    *DispatchGateway
	Reconciler *Reconciler
	Locker     ApprovalLocker
	Publisher  queue.Publisher
}

// ApprovalResult reports aggregate counts of one approval. Per-recipient
// outcomes live on the created message records.
type ApprovalResult struct {
	BatchID         string
	Expired         bool
	RecipientsCount int
	MessagesCreated int
	DispatchedCount int
	ScheduledCount  int
	FailedCount     int
	SkippedCount    int
}

// BatchError is a per-batch failure of a future approval run.
type BatchError struct {
	BatchID string `json:"batch_id"`
	Error   string `json:"error"`
}

// FutureApprovalResult summarizes ApproveFutureBatches.
type FutureApprovalResult struct {
	ApprovedCount  int
	TotalAttempted int
	Errors         []BatchError
	DaysWindow     int
}

// ApprovalService drives a batch from pending to a terminal state:
// resolve, build, dispatch, persist, then transition.
type ApprovalService struct {
	batches    repository.BatchRepository
	campaigns  repository.CampaignRepository
	templates  repository.TemplateRepository
	contacts   repository.ContactRepository
	companies  repository.CompanyRepository
	users      repository.UserRepository
	resolver   *AudienceResolver
	builder    *payload.Builder
	gateway    *DispatchGateway
	reconciler *Reconciler
	locker     ApprovalLocker
	publisher  queue.Publisher
	logger     *zap.Logger
	metrics    *observability.Metrics
	now        func() time.Time
}

func NewApprovalService(deps ApprovalDependencies, logger *zap.Logger, metrics *observability.Metrics) (*ApprovalService, error) {
	switch {
	case deps.Batches == nil:
		return nil, fmt.Errorf("batch repository is required")
	case deps.Templates == nil:
		return nil, fmt.Errorf("template repository is required")
	case deps.Contacts == nil:
		return nil, fmt.Errorf("contact repository is required")
	case deps.Resolver == nil:
		return nil, fmt.Errorf("audience resolver is required")
	case deps.Gateway == nil:
		return nil, fmt.Errorf("dispatch gateway is required")
	case deps.Reconciler == nil:
		return nil, fmt.Errorf("reconciler is required")
	}
	if deps.Builder == nil {
		deps.Builder = payload.NewBuilder(payload.DefaultChatIDSuffix, nil)
	}
	if deps.Publisher == nil {
		deps.Publisher = queue.NoopPublisher{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &ApprovalService{
		batches:    deps.Batches,
		campaigns:  deps.Campaigns,
		templates:  deps.Templates,
		contacts:   deps.Contacts,
		companies:  deps.Companies,
		users:      deps.Users,
		resolver:   deps.Resolver,
		builder:    deps.Builder,
		gateway:    deps.Gateway,
		reconciler: deps.Reconciler,
		locker:     deps.Locker,
		publisher:  deps.Publisher,
		logger:     logger,
		metrics:    metrics,
		now:        time.Now,
	}, nil
}

// ApproveBatch approves one pending batch. A batch past its run window is moved
// to expired instead, and the result is returned together with ErrBatchExpired.
func (s *ApprovalService) ApproveBatch(ctx context.Context, caller domain.Caller, batchID string) (*ApprovalResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if strings.TrimSpace(caller.CompanyID) == "" {
		return nil, fmt.Errorf("%w: caller has no company", domain.ErrUnauthorized)
	}
	batchID = strings.TrimSpace(batchID)
	if batchID == "" {
		return nil, fmt.Errorf("%w: batch_id is required", domain.ErrValidation)
	}

	result, err := s.approveLocked(ctx, caller, batchID)
	if err != nil && !errors.Is(err, domain.ErrBatchExpired) {
		s.metrics.IncBatch(failureOutcome(err))
	}
	return result, err
}

func (s *ApprovalService) approveLocked(ctx context.Context, caller domain.Caller, batchID string) (*ApprovalResult, error) {
	if s.locker != nil {
		token, err := s.locker.Acquire(ctx, batchID)
		if err != nil {
			if errors.Is(err, domain.ErrConflict) {
				observability.BatchLogger(s.logger, ctx, batchID, "").Info("batch approval already in progress")
			}
			return nil, err
		}
		defer func() {
			releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), detachedWorkTimeout)
			defer cancel()
			if err := s.locker.Release(releaseCtx, batchID, token); err != nil {
				observability.BatchLogger(s.logger, ctx, batchID, "").Warn("failed to release approval lock", zap.Error(err))
			}
		}()
	}

	batch, err := s.batches.GetByID(ctx, batchID)
	if err != nil {
		return nil, err
	}
	if batch.CompanyID != caller.CompanyID {
		return nil, fmt.Errorf("%w: batch %s not found", domain.ErrNotFound, batchID)
	}

	if err := batch.CheckApprovable(s.now()); err != nil {
		if errors.Is(err, domain.ErrBatchExpired) {
			return s.expire(ctx, batch)
		}
		return nil, err
	}

	return s.approve(ctx, caller, batch)
}

func (s *ApprovalService) expire(ctx context.Context, batch *domain.BatchSchedule) (*ApprovalResult, error) {
	logger := observability.BatchLogger(s.logger, ctx, batch.ID, batch.CampaignID)
	if err := s.batches.TransitionStatus(ctx, batch.ID, domain.BatchStatusPending, domain.BatchStatusExpired); err != nil {
		return nil, err
	}

	logger.Info("batch expired before approval", zap.Int64("runAt", batch.RunAt))
	s.metrics.IncBatch(observability.OutcomeExpired)
	s.publish(ctx, logger, queue.EventBatchExpired, batch, 0, 0)

	return &ApprovalResult{BatchID: batch.ID, Expired: true}, domain.ErrBatchExpired
}

func (s *ApprovalService) approve(ctx context.Context, caller domain.Caller, batch *domain.BatchSchedule) (*ApprovalResult, error) {
	logger := observability.BatchLogger(s.logger, ctx, batch.ID, batch.CampaignID)

	recipients, err := s.recipients(ctx, batch)
	if err != nil {
		return nil, err
	}
	if len(recipients) == 0 {
		return nil, fmt.Errorf("%w: batch has no recipients", domain.ErrValidation)
	}

	input, err := s.buildInput(ctx, caller, batch)
	if err != nil {
		return nil, err
	}
	input.Recipients = recipients

	built, err := s.builder.Build(input)
	if err != nil {
		return nil, err
	}
	for _, skip := range built.Skipped {
		s.metrics.IncPayloadSkipped(skip.Reason)
	}
	if len(built.Skipped) > 0 {
		logger.Info("recipients skipped while building payloads", zap.Int("skipped", len(built.Skipped)))
	}

	outcomes, dispatchErr := s.gateway.Dispatch(ctx, built.Payloads)

	// Jobs already scheduled must be recorded even when the request is gone.
	detached, cancel := context.WithTimeout(context.WithoutCancel(ctx), detachedWorkTimeout)
	defer cancel()

	persisted := s.reconciler.Persist(detached, batch, outcomes)
	if dispatchErr != nil {
		logger.Error("dispatch interrupted, batch left pending",
			zap.Int("dispatched", len(outcomes)),
			zap.Int("payloads", len(built.Payloads)),
			zap.Int("messagesCreated", persisted.Created),
			zap.Error(dispatchErr),
		)
		return nil, fmt.Errorf("dispatch interrupted: %w", dispatchErr)
	}

	if err := s.batches.TransitionStatus(detached, batch.ID, domain.BatchStatusPending, domain.BatchStatusApproved); err != nil {
		logger.Error("final batch transition failed", zap.Int("messagesCreated", persisted.Created), zap.Error(err))
		return nil, err
	}

	result := &ApprovalResult{
		BatchID:         batch.ID,
		RecipientsCount: len(recipients),
		MessagesCreated: persisted.Created,
		DispatchedCount: len(outcomes),
		SkippedCount:    len(built.Skipped),
	}
	for _, outcome := range outcomes {
		if outcome.Succeeded() {
			result.ScheduledCount++
		} else {
			result.FailedCount++
		}
	}

	logger.Info("batch approved",
		zap.Int("recipients", result.RecipientsCount),
		zap.Int("scheduled", result.ScheduledCount),
		zap.Int("failed", result.FailedCount),
		zap.Int("skipped", result.SkippedCount),
		zap.Int("messagesCreated", result.MessagesCreated),
	)
	s.metrics.IncBatch(observability.OutcomeApproved)
	s.metrics.ObserveAudienceSize(result.RecipientsCount)
	s.publish(detached, logger, queue.EventBatchApproved, batch, result.MessagesCreated, result.RecipientsCount)

	return result, nil
}

// recipients resolves the audience of dynamic batches at the batch anchor and
// refreshes stored snapshots with live contact records when they still exist.
func (s *ApprovalService) recipients(ctx context.Context, batch *domain.BatchSchedule) ([]payload.Recipient, error) {
	if batch.IsDynamic {
		audience, err := s.resolver.Resolve(ctx, AudienceQuery{
			CompanyID: batch.CompanyID,
			Filters:   batch.ContactFilters,
			Logic:     batch.FilterLogic,
			Reference: batch.RunAtTime(),
		})
		if err != nil {
			return nil, err
		}
		out := make([]payload.Recipient, 0, len(audience.Contacts))
		for _, c := range audience.Contacts {
			out = append(out, payload.RecipientFromContact(c))
		}
		return out, nil
	}

	live := make([]*domain.Contact, len(batch.Recipients))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentLookups)
	for i, r := range batch.Recipients {
		i := i
		contactID := strings.TrimSpace(r.ContactID)
		if contactID == "" {
			continue
		}
		g.Go(func() error {
			c, err := s.contacts.GetByID(gctx, contactID)
			if err != nil {
				if errors.Is(err, domain.ErrNotFound) {
					return nil
				}
				return fmt.Errorf("load contact %s: %w", contactID, err)
			}
			if c.CompanyID == batch.CompanyID {
				live[i] = c
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]payload.Recipient, 0, len(batch.Recipients))
	for i, r := range batch.Recipients {
		c := live[i]
		switch {
		case c == nil:
			out = append(out, payload.Recipient{ContactID: r.ContactID, Phone: r.Phone, Name: r.Name})
		case c.Deleted:
			continue
		default:
			recipient := payload.RecipientFromContact(c)
			if strings.TrimSpace(recipient.Phone) == "" {
				recipient.Phone = r.Phone
			}
			out = append(out, recipient)
		}
	}
	return out, nil
}

// buildInput loads templates, campaign and caller profiles concurrently.
// Template order follows the batch so round-robin selection is stable.
func (s *ApprovalService) buildInput(ctx context.Context, caller domain.Caller, batch *domain.BatchSchedule) (payload.Input, error) {
	input := payload.Input{Batch: batch}
	if len(batch.TemplateIDs) == 0 {
		return input, fmt.Errorf("%w: batch has no templates", domain.ErrValidation)
	}

	templates := make([]*domain.MessageTemplate, len(batch.TemplateIDs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentLookups)

	for i, id := range batch.TemplateIDs {
		i := i
		templateID := strings.TrimSpace(id)
		if templateID == "" {
			continue
		}
		g.Go(func() error {
			tpl, err := s.templates.GetByID(gctx, templateID)
			if err != nil {
				if errors.Is(err, domain.ErrNotFound) {
					return nil
				}
				return fmt.Errorf("load template %s: %w", templateID, err)
			}
			if tpl.CompanyID == batch.CompanyID {
				templates[i] = tpl
			}
			return nil
		})
	}

	if s.campaigns != nil {
		g.Go(func() error {
			campaign, err := optional(s.campaigns.GetByID(gctx, batch.CampaignID))
			input.Campaign = campaign
			return err
		})
	}
	if s.companies != nil {
		g.Go(func() error {
			company, err := optional(s.companies.GetByID(gctx, batch.CompanyID))
			input.Company = company
			return err
		})
	}
	if s.users != nil && strings.TrimSpace(caller.UserID) != "" {
		g.Go(func() error {
			user, err := optional(s.users.GetByID(gctx, caller.UserID))
			input.User = user
			return err
		})
	}

	if err := g.Wait(); err != nil {
		return input, err
	}

	input.Templates = make([]*domain.MessageTemplate, 0, len(templates))
	for _, tpl := range templates {
		if tpl != nil {
			input.Templates = append(input.Templates, tpl)
		}
	}
	if len(input.Templates) == 0 {
		return input, fmt.Errorf("%w: batch has no templates", domain.ErrValidation)
	}
	if len(input.Templates) < len(batch.TemplateIDs) {
		observability.BatchLogger(s.logger, ctx, batch.ID, batch.CampaignID).Warn("batch references missing templates",
			zap.Int("configured", len(batch.TemplateIDs)),
			zap.Int("loaded", len(input.Templates)),
		)
	}
	return input, nil
}

// ApproveFutureBatches approves the named batch and every pending batch of the
// same campaign whose run_at falls within the next days. Per-batch failures
// are collected and never abort the run.
func (s *ApprovalService) ApproveFutureBatches(ctx context.Context, caller domain.Caller, batchID string, days int) (*FutureApprovalResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if strings.TrimSpace(caller.CompanyID) == "" {
		return nil, fmt.Errorf("%w: caller has no company", domain.ErrUnauthorized)
	}
	batchID = strings.TrimSpace(batchID)
	if batchID == "" {
		return nil, fmt.Errorf("%w: batch_id is required", domain.ErrValidation)
	}
	if days < 0 {
		return nil, fmt.Errorf("%w: days_to_approve must not be negative", domain.ErrValidation)
	}

	named, err := s.batches.GetByID(ctx, batchID)
	if err != nil {
		return nil, err
	}
	if named.CompanyID != caller.CompanyID {
		return nil, fmt.Errorf("%w: batch %s not found", domain.ErrNotFound, batchID)
	}

	campaignID := named.CampaignID
	if s.campaigns != nil {
		campaign, err := s.campaigns.GetByID(ctx, named.CampaignID)
		if err != nil {
			return nil, err
		}
		campaignID = campaign.ID
	}

	from := s.now().UnixMilli()
	window, err := s.batches.ListPendingInWindow(ctx, campaignID, from, from+int64(days)*millisPerDay)
	if err != nil {
		return nil, fmt.Errorf("list pending batches: %w", err)
	}

	targets := []string{named.ID}
	seen := map[string]struct{}{named.ID: {}}
	for _, b := range window {
		if b == nil || b.CompanyID != caller.CompanyID {
			continue
		}
		if _, dup := seen[b.ID]; dup {
			continue
		}
		seen[b.ID] = struct{}{}
		targets = append(targets, b.ID)
	}

	result := &FutureApprovalResult{TotalAttempted: len(targets), Errors: []BatchError{}, DaysWindow: days}
	logger := observability.BatchLogger(s.logger, ctx, named.ID, campaignID)
	for _, id := range targets {
		if err := s.approveIsolated(ctx, caller, id); err != nil {
			logger.Warn("future batch approval failed", zap.String("targetBatchId", id), zap.Error(err))
			result.Errors = append(result.Errors, BatchError{BatchID: id, Error: err.Error()})
			continue
		}
		result.ApprovedCount++
	}

	logger.Info("future batches processed",
		zap.Int("approved", result.ApprovedCount),
		zap.Int("attempted", result.TotalAttempted),
		zap.Int("daysWindow", days),
	)
	return result, nil
}

// approveIsolated turns a panic in one batch into that batch's error.
func (s *ApprovalService) approveIsolated(ctx context.Context, caller domain.Caller, batchID string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("unexpected failure approving batch: %v", r)
			s.metrics.IncBatch(observability.OutcomeFailed)
		}
	}()
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err = s.ApproveBatch(ctx, caller, batchID)
	return err
}

func (s *ApprovalService) publish(ctx context.Context, logger *zap.Logger, eventType queue.EventType, batch *domain.BatchSchedule, created, recipients int) {
	correlationID, _ := observability.CorrelationIDFromContext(ctx)
	event := queue.BatchEvent{
		Type:            eventType,
		BatchID:         batch.ID,
		CampaignID:      batch.CampaignID,
		CompanyID:       batch.CompanyID,
		CorrelationID:   correlationID,
		MessagesCreated: created,
		RecipientsCount: recipients,
		OccurredAt:      s.now().UTC(),
	}
	if err := s.publisher.PublishBatchEvent(ctx, event); err != nil {
		logger.Warn("failed to publish batch event", zap.String("event", string(eventType)), zap.Error(err))
	}
}

func failureOutcome(err error) string {
	switch {
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInvalidState),
		errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrConflict),
		errors.Is(err, domain.ErrUnauthorized):
		return observability.OutcomeRejected
	}
	return observability.OutcomeFailed
}

// optional maps ErrNotFound to a nil value.
func optional[T any](v *T, err error) (*T, error) {
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	return v, err
}
