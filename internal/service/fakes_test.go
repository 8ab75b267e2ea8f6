package service

import (
	"context"
	"sync"

	"github.com/Gattoajatooo/back-sparta-sub007/internal/domain"
	"github.com/Gattoajatooo/back-sparta-sub007/internal/provider"
	"github.com/Gattoajatooo/back-sparta-sub007/internal/queue"
)

type fakeContactRepo struct {
	listFn func(ctx context.Context, companyID string) ([]*domain.Contact, error)
	getFn  func(ctx context.Context, id string) (*domain.Contact, error)
}

func (f *fakeContactRepo) ListActiveByCompany(ctx context.Context, companyID string) ([]*domain.Contact, error) {
	if f.listFn != nil {
		return f.listFn(ctx, companyID)
	}
	return nil, nil
}

func (f *fakeContactRepo) GetByID(ctx context.Context, id string) (*domain.Contact, error) {
	if f.getFn != nil {
		return f.getFn(ctx, id)
	}
	return nil, domain.ErrNotFound
}

type fakeTagCatalog struct {
	invalidFn func(ctx context.Context, companyID string) ([]string, error)
	namesFn   func(ctx context.Context, companyID string) (map[string]string, error)
}

func (f *fakeTagCatalog) InvalidSystemTagIDs(ctx context.Context, companyID string) ([]string, error) {
	if f.invalidFn != nil {
		return f.invalidFn(ctx, companyID)
	}
	return nil, nil
}

func (f *fakeTagCatalog) TagNames(ctx context.Context, companyID string) (map[string]string, error) {
	if f.namesFn != nil {
		return f.namesFn(ctx, companyID)
	}
	return nil, nil
}

type fakeMessageRepo struct {
	mu           sync.Mutex
	created      []*domain.Message
	createManyFn func(ctx context.Context, messages []*domain.Message) error
	membersFn    func(ctx context.Context, campaignID string, statuses []domain.MessageStatus) ([]string, error)
}

func (f *fakeMessageRepo) CreateMany(ctx context.Context, messages []*domain.Message) error {
	if f.createManyFn != nil {
		if err := f.createManyFn(ctx, messages); err != nil {
			return err
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, messages...)
	return nil
}

func (f *fakeMessageRepo) ContactIDsForCampaign(ctx context.Context, campaignID string, statuses []domain.MessageStatus) ([]string, error) {
	if f.membersFn != nil {
		return f.membersFn(ctx, campaignID, statuses)
	}
	return nil, nil
}

func (f *fakeMessageRepo) records() []*domain.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*domain.Message(nil), f.created...)
}

type fakeBatchRepo struct {
	getFn        func(ctx context.Context, id string) (*domain.BatchSchedule, error)
	transitionFn func(ctx context.Context, id string, from, to domain.BatchStatus) error
	listFn       func(ctx context.Context, campaignID string, fromMillis, toMillis int64) ([]*domain.BatchSchedule, error)
}

func (f *fakeBatchRepo) GetByID(ctx context.Context, id string) (*domain.BatchSchedule, error) {
	if f.getFn != nil {
		return f.getFn(ctx, id)
	}
	return nil, domain.ErrNotFound
}

func (f *fakeBatchRepo) TransitionStatus(ctx context.Context, id string, from, to domain.BatchStatus) error {
	if f.transitionFn != nil {
		return f.transitionFn(ctx, id, from, to)
	}
	return nil
}

func (f *fakeBatchRepo) ListPendingInWindow(ctx context.Context, campaignID string, fromMillis, toMillis int64) ([]*domain.BatchSchedule, error) {
	if f.listFn != nil {
		return f.listFn(ctx, campaignID, fromMillis, toMillis)
	}
	return nil, nil
}

type fakeTemplateRepo struct {
	getFn func(ctx context.Context, id string) (*domain.MessageTemplate, error)
}

func (f *fakeTemplateRepo) GetByID(ctx context.Context, id string) (*domain.MessageTemplate, error) {
	if f.getFn != nil {
		return f.getFn(ctx, id)
	}
	return nil, domain.ErrNotFound
}

type fakeCampaignRepo struct {
	getFn func(ctx context.Context, id string) (*domain.Campaign, error)
}

func (f *fakeCampaignRepo) GetByID(ctx context.Context, id string) (*domain.Campaign, error) {
	if f.getFn != nil {
		return f.getFn(ctx, id)
	}
	return nil, domain.ErrNotFound
}

type fakeCompanyRepo struct {
	getFn func(ctx context.Context, id string) (*domain.Company, error)
}

func (f *fakeCompanyRepo) GetByID(ctx context.Context, id string) (*domain.Company, error) {
	if f.getFn != nil {
		return f.getFn(ctx, id)
	}
	return nil, domain.ErrNotFound
}

type fakeUserRepo struct {
	getFn func(ctx context.Context, id string) (*domain.User, error)
}

func (f *fakeUserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	if f.getFn != nil {
		return f.getFn(ctx, id)
	}
	return nil, domain.ErrNotFound
}

type fakeJobQueue struct {
	mu       sync.Mutex
	calls    [][]domain.DispatchPayload
	submitFn func(ctx context.Context, payloads []domain.DispatchPayload) ([]provider.JobResult, error)
}

func (f *fakeJobQueue) SubmitBatch(ctx context.Context, payloads []domain.DispatchPayload) ([]provider.JobResult, error) {
	f.mu.Lock()
	f.calls = append(f.calls, payloads)
	f.mu.Unlock()

	if f.submitFn != nil {
		return f.submitFn(ctx, payloads)
	}
	results := make([]provider.JobResult, len(payloads))
	for i := range payloads {
		results[i] = provider.JobResult{OK: true, JobID: "job-" + payloads[i].Metadata.ContactID}
	}
	return results, nil
}

func (f *fakeJobQueue) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeLocker struct {
	acquireFn func(ctx context.Context, batchID string) (string, error)
	released  []string
}

func (f *fakeLocker) Acquire(ctx context.Context, batchID string) (string, error) {
	if f.acquireFn != nil {
		return f.acquireFn(ctx, batchID)
	}
	return "token-" + batchID, nil
}

func (f *fakeLocker) Release(_ context.Context, batchID, _ string) error {
	f.released = append(f.released, batchID)
	return nil
}

type fakePublisher struct {
	mu        sync.Mutex
	events    []queue.BatchEvent
	publishFn func(ctx context.Context, event queue.BatchEvent) error
}

func (f *fakePublisher) PublishBatchEvent(ctx context.Context, event queue.BatchEvent) error {
	f.mu.Lock()
	f.events = append(f.events, event)
	f.mu.Unlock()

	if f.publishFn != nil {
		return f.publishFn(ctx, event)
	}
	return nil
}

func (f *fakePublisher) Close() error { return nil }

type fakeRateLimiter struct {
	waits  int
	waitFn func(ctx context.Context, scope string) error
}

func (f *fakeRateLimiter) Allow(context.Context, string) (bool, error) { return true, nil }

func (f *fakeRateLimiter) Wait(ctx context.Context, scope string) error {
	f.waits++
	if f.waitFn != nil {
		return f.waitFn(ctx, scope)
	}
	return nil
}
