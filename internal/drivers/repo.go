package drivers

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dialadrink/backend/pkg/db/models"
)

// Repository looks up delivery drivers.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByID(ctx context.Context, driverID uuid.UUID) (*models.Driver, error)
	UpdateFCMToken(ctx context.Context, driverID uuid.UUID, token string) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a drivers repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// FindByID returns (nil, nil) when no such driver exists; an order pointing
// at a missing driver is treated as having no driver rather than an error.
func (r *repository) FindByID(ctx context.Context, driverID uuid.UUID) (*models.Driver, error) {
	var driver models.Driver
	err := r.db.WithContext(ctx).Where("id = ?", driverID).First(&driver).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &driver, nil
}

func (r *repository) UpdateFCMToken(ctx context.Context, driverID uuid.UUID, token string) error {
	return r.db.WithContext(ctx).
		Model(&models.Driver{}).
		Where("id = ?", driverID).
		Update("fcm_token", token).Error
}
