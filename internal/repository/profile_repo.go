package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/Gattoajatooo/back-sparta-sub007/internal/domain"
	"gorm.io/gorm"
)

type CampaignRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Campaign, error)
}

type CompanyRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Company, error)
}

type UserRepository interface {
	GetByID(ctx context.Context, id string) (*domain.User, error)
}

type GormCampaignRepo struct {
	db *gorm.DB
}

func NewGormCampaignRepo(db *gorm.DB) *GormCampaignRepo {
	return &GormCampaignRepo{db: db}
}

func (r *GormCampaignRepo) GetByID(ctx context.Context, id string) (*domain.Campaign, error) {
	var model CampaignModel
	if err := first(ctx, r.db, &model, "campaign", id); err != nil {
		return nil, err
	}
	return &domain.Campaign{ID: model.ID, CompanyID: model.CompanyID, Name: model.Name}, nil
}

type GormCompanyRepo struct {
	db *gorm.DB
}

func NewGormCompanyRepo(db *gorm.DB) *GormCompanyRepo {
	return &GormCompanyRepo{db: db}
}

func (r *GormCompanyRepo) GetByID(ctx context.Context, id string) (*domain.Company, error) {
	var model CompanyModel
	if err := first(ctx, r.db, &model, "company", id); err != nil {
		return nil, err
	}
	return companyModelToDomain(&model), nil
}

type GormUserRepo struct {
	db *gorm.DB
}

func NewGormUserRepo(db *gorm.DB) *GormUserRepo {
	return &GormUserRepo{db: db}
}

func (r *GormUserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	var model UserModel
	if err := first(ctx, r.db, &model, "user", id); err != nil {
		return nil, err
	}
	return userModelToDomain(&model), nil
}

func first(ctx context.Context, db *gorm.DB, dst any, kind, id string) error {
	err := db.WithContext(ctx).First(dst, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %s %s", domain.ErrNotFound, kind, id)
	}
	return err
}
