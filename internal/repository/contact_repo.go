package repository

import (
	"context"
	"errors"

	"github.com/Gattoajatooo/back-sparta-sub007/internal/domain"
	"gorm.io/gorm"
)

type ContactRepository interface {
	ListActiveByCompany(ctx context.Context, companyID string) ([]*domain.Contact, error)
	GetByID(ctx context.Context, id string) (*domain.Contact, error)
}

type GormContactRepo struct {
	db *gorm.DB
}

func NewGormContactRepo(db *gorm.DB) *GormContactRepo {
	return &GormContactRepo{db: db}
}

// ListActiveByCompany returns every contact of the company that is not soft-deleted.
func (r *GormContactRepo) ListActiveByCompany(ctx context.Context, companyID string) ([]*domain.Contact, error) {
	var models []ContactModel
	err := r.db.WithContext(ctx).
		Preload("Addresses").
		Where("company_id = ? AND deleted = ?", companyID, false).
		Order("created_at ASC, id ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	contacts := make([]*domain.Contact, 0, len(models))
	for i := range models {
		contacts = append(contacts, contactModelToDomain(&models[i]))
	}
	return contacts, nil
}

func (r *GormContactRepo) GetByID(ctx context.Context, id string) (*domain.Contact, error) {
	var model ContactModel
	err := r.db.WithContext(ctx).Preload("Addresses").First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return contactModelToDomain(&model), nil
}
