package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/Gattoajatooo/back-sparta-sub007/internal/domain"
	"gorm.io/gorm"
)

type TemplateRepository interface {
	GetByID(ctx context.Context, id string) (*domain.MessageTemplate, error)
}

type GormTemplateRepo struct {
	db *gorm.DB
}

func NewGormTemplateRepo(db *gorm.DB) *GormTemplateRepo {
	return &GormTemplateRepo{db: db}
}

func (r *GormTemplateRepo) GetByID(ctx context.Context, id string) (*domain.MessageTemplate, error) {
	var model MessageTemplateModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: template %s", domain.ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	tpl, err := templateModelToDomain(&model)
	if err != nil {
		return nil, fmt.Errorf("decode template %s: %w", id, err)
	}
	return tpl, nil
}
