package auth

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/dialadrink/backend/pkg/db/models"
)

// Repository looks up staff accounts.
type Repository interface {
	FindByPhone(ctx context.Context, phone string) (*models.User, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a users repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

// FindByPhone returns (nil, nil) when no account exists for the phone.
func (r *repository) FindByPhone(ctx context.Context, phone string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where("phone = ?", phone).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}
