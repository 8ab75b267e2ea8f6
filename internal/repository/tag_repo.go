package repository

import (
	"context"

	"github.com/Gattoajatooo/back-sparta-sub007/internal/domain"
	"gorm.io/gorm"
)

// TagCatalog is the read view of a company's tags used during audience resolution.
type TagCatalog interface {
	// InvalidSystemTagIDs lists system tags whose carriers must not be messaged.
	InvalidSystemTagIDs(ctx context.Context, companyID string) ([]string, error)
	// TagNames maps tag ids to display names.
	TagNames(ctx context.Context, companyID string) (map[string]string, error)
}

type TagRepository interface {
	TagCatalog
	ListTags(ctx context.Context, companyID string) ([]domain.Tag, error)
	ListSystemTags(ctx context.Context, companyID string) ([]domain.SystemTag, error)
}

type GormTagRepo struct {
	db *gorm.DB
}

func NewGormTagRepo(db *gorm.DB) *GormTagRepo {
	return &GormTagRepo{db: db}
}

func (r *GormTagRepo) ListTags(ctx context.Context, companyID string) ([]domain.Tag, error) {
	var models []TagModel
	if err := r.db.WithContext(ctx).Where("company_id = ?", companyID).Find(&models).Error; err != nil {
		return nil, err
	}

	tags := make([]domain.Tag, 0, len(models))
	for _, m := range models {
		tags = append(tags, domain.Tag{ID: m.ID, CompanyID: m.CompanyID, Name: m.Name})
	}
	return tags, nil
}

func (r *GormTagRepo) ListSystemTags(ctx context.Context, companyID string) ([]domain.SystemTag, error) {
	var models []SystemTagModel
	if err := r.db.WithContext(ctx).Where("company_id = ?", companyID).Find(&models).Error; err != nil {
		return nil, err
	}

	tags := make([]domain.SystemTag, 0, len(models))
	for _, m := range models {
		tags = append(tags, domain.SystemTag{ID: m.ID, CompanyID: m.CompanyID, Name: m.Name, Flag: m.Flag})
	}
	return tags, nil
}

func (r *GormTagRepo) InvalidSystemTagIDs(ctx context.Context, companyID string) ([]string, error) {
	tags, err := r.ListSystemTags(ctx, companyID)
	if err != nil {
		return nil, err
	}
	return InvalidSystemTagIDs(tags), nil
}

func (r *GormTagRepo) TagNames(ctx context.Context, companyID string) (map[string]string, error) {
	tags, err := r.ListTags(ctx, companyID)
	if err != nil {
		return nil, err
	}

	names := make(map[string]string, len(tags))
	for _, t := range tags {
		names[t.ID] = t.Name
	}
	return names, nil
}

// InvalidSystemTagIDs keeps ids of tags flagged invalid_number or number_not_exists.
func InvalidSystemTagIDs(tags []domain.SystemTag) []string {
	ids := make([]string, 0)
	for _, t := range tags {
		if t.Flag.MarksUnreachable() {
			ids = append(ids, t.ID)
		}
	}
	return ids
}
