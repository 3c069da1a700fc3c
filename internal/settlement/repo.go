package settlement

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dialadrink/backend/pkg/db/models"
)

// Repository is the settlement coordinator's own view of the orders table.
// It exists separately from the orders repository because settlement needs
// pessimistic locking primitives nothing else should reach for.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	AcquireOrderLock(ctx context.Context, orderID uuid.UUID) (bool, error)
	FindOrderForUpdate(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	MarkSettled(ctx context.Context, orderID uuid.UUID) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a settlement repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// AcquireOrderLock takes a transaction-scoped advisory lock keyed on the
// order id. It never blocks; false means another transaction is settling the
// same order right now. The lock is released automatically on commit or
// rollback.
func (r *repository) AcquireOrderLock(ctx context.Context, orderID uuid.UUID) (bool, error) {
	var acquired bool
	err := r.db.WithContext(ctx).
		Raw(`SELECT pg_try_advisory_xact_lock(hashtextextended(?, 0))`, orderID.String()).
		Scan(&acquired).Error
	if err != nil {
		return false, err
	}
	return acquired, nil
}

// FindOrderForUpdate loads the order under a row lock so payment and status
// fields cannot shift while the split is computed. Items are loaded after the
// lock is held. Returns (nil, nil) when the order does not exist.
func (r *repository) FindOrderForUpdate(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Raw(`SELECT * FROM orders WHERE id = ? FOR UPDATE`, orderID).
		Scan(&order).Error
	if err != nil {
		return nil, err
	}
	if order.ID == uuid.Nil {
		return nil, nil
	}

	if err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&order.Items).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// MarkSettled stamps the order once every applicable wallet movement has
// landed.
func (r *repository) MarkSettled(ctx context.Context, orderID uuid.UUID) error {
	return r.db.WithContext(ctx).Exec(`
		UPDATE orders
		SET settled_at = CURRENT_TIMESTAMP,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND settled_at IS NULL
	`, orderID).Error
}
