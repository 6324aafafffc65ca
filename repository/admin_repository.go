package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/Hephaestack/pnoh-eshop/models"
)

type AdminRepository interface {
	FindByUsername(ctx context.Context, username string) (*models.Admin, error)
}

type GormAdminRepository struct {
	db *gorm.DB
}

func NewGormAdminRepository(db *gorm.DB) AdminRepository {
	return &GormAdminRepository{db: db}
}

func (r *GormAdminRepository) FindByUsername(ctx context.Context, username string) (*models.Admin, error) {
	var admin models.Admin
	if err := r.db.WithContext(ctx).Where("username = ?", username).First(&admin).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &admin, nil
}
