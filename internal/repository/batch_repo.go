package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/Gattoajatooo/back-sparta-sub007/internal/domain"
	"gorm.io/gorm"
)

type BatchRepository interface {
	GetByID(ctx context.Context, id string) (*domain.BatchSchedule, error)
	TransitionStatus(ctx context.Context, id string, from, to domain.BatchStatus) error
	ListPendingInWindow(ctx context.Context, campaignID string, fromMillis, toMillis int64) ([]*domain.BatchSchedule, error)
}

type GormBatchRepo struct {
	db *gorm.DB
}

func NewGormBatchRepo(db *gorm.DB) *GormBatchRepo {
	return &GormBatchRepo{db: db}
}

func (r *GormBatchRepo) GetByID(ctx context.Context, id string) (*domain.BatchSchedule, error) {
	var model BatchScheduleModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	batch, err := batchModelToDomain(&model)
	if err != nil {
		return nil, fmt.Errorf("decode batch %s: %w", id, err)
	}
	return batch, nil
}

// TransitionStatus moves the batch only if it is still in from. A lost race and a
// missing batch both report ErrConflict.
func (r *GormBatchRepo) TransitionStatus(ctx context.Context, id string, from, to domain.BatchStatus) error {
	if !from.CanTransitionTo(to) {
		return fmt.Errorf("%w: cannot transition batch from %s to %s", domain.ErrInvalidState, from, to)
	}

	result := r.db.WithContext(ctx).
		Model(&BatchScheduleModel{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]any{"status": to, "updated_at": gorm.Expr("NOW()")})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: batch %s is no longer %s", domain.ErrConflict, id, from)
	}
	return nil
}

func (r *GormBatchRepo) ListPendingInWindow(ctx context.Context, campaignID string, fromMillis, toMillis int64) ([]*domain.BatchSchedule, error) {
	var models []BatchScheduleModel
	err := r.db.WithContext(ctx).
		Where("campaign_id = ? AND status = ? AND run_at BETWEEN ? AND ?", campaignID, domain.BatchStatusPending, fromMillis, toMillis).
		Order("run_at ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	batches := make([]*domain.BatchSchedule, 0, len(models))
	for i := range models {
		b, err := batchModelToDomain(&models[i])
		if err != nil {
			return nil, fmt.Errorf("decode batch %s: %w", models[i].ID, err)
		}
		batches = append(batches, b)
	}
	return batches, nil
}
