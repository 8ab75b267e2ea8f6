package repository

import (
	"context"
	"fmt"

	"github.com/Gattoajatooo/back-sparta-sub007/internal/domain"
	"gorm.io/gorm"
)

type MessageRepository interface {
	CreateMany(ctx context.Context, messages []*domain.Message) error
	ContactIDsForCampaign(ctx context.Context, campaignID string, statuses []domain.MessageStatus) ([]string, error)
}

type GormMessageRepo struct {
	db *gorm.DB
}

func NewGormMessageRepo(db *gorm.DB) *GormMessageRepo {
	return &GormMessageRepo{db: db}
}

// CreateMany inserts the messages in one statement. Callers chunk the input.
func (r *GormMessageRepo) CreateMany(ctx context.Context, messages []*domain.Message) error {
	models := make([]MessageModel, 0, len(messages))
	for _, msg := range messages {
		model, err := messageModelFromDomain(msg)
		if err != nil {
			return fmt.Errorf("encode message %s: %w", msg.ID, err)
		}
		if model != nil {
			models = append(models, *model)
		}
	}

	if len(models) == 0 {
		return nil
	}

	return r.db.WithContext(ctx).Create(&models).Error
}

// ContactIDsForCampaign lists distinct contacts referenced by the campaign's
// messages. An empty status list selects messages in any state.
func (r *GormMessageRepo) ContactIDsForCampaign(ctx context.Context, campaignID string, statuses []domain.MessageStatus) ([]string, error) {
	query := r.db.WithContext(ctx).
		Model(&MessageModel{}).
		Distinct("contact_id").
		Where("campaign_id = ? AND contact_id IS NOT NULL AND contact_id <> ''", campaignID)
	if len(statuses) > 0 {
		query = query.Where("status IN ?", statuses)
	}

	var ids []string
	if err := query.Pluck("contact_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}
