package settings

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/dialadrink/backend/pkg/config"
	"github.com/dialadrink/backend/pkg/db/models"
)

// DriverPayConfig is the driver-pay-per-delivery switch the split calculator
// consumes.
type DriverPayConfig struct {
	Enabled bool
	Amount  decimal.Decimal
}

// Repository reads admin-editable settings, falling back to the environment
// defaults when a key has never been written.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	DriverPayConfig(ctx context.Context) (DriverPayConfig, error)
}

type repository struct {
	db       *gorm.DB
	defaults config.SettlementConfig
}

// NewRepository returns a settings repository bound to the provided database.
func NewRepository(db *gorm.DB, defaults config.SettlementConfig) Repository {
	return &repository{db: db, defaults: defaults}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx, defaults: r.defaults}
}

func (r *repository) Get(ctx context.Context, key string) (string, bool, error) {
	var setting models.Setting
	err := r.db.WithContext(ctx).Where("key = ?", key).First(&setting).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", false, nil
		}
		return "", false, err
	}
	return setting.Value, true, nil
}

func (r *repository) Set(ctx context.Context, key, value string) error {
	return r.db.WithContext(ctx).
		Where("key = ?", key).
		Assign(models.Setting{Key: key, Value: value}).
		FirstOrCreate(&models.Setting{}).Error
}

func (r *repository) DriverPayConfig(ctx context.Context) (DriverPayConfig, error) {
	cfg := DriverPayConfig{
		Enabled: r.defaults.DriverPayPerDeliveryEnabled,
		Amount:  r.defaults.DriverPayAmount(),
	}

	if raw, ok, err := r.Get(ctx, models.SettingDriverPayPerDeliveryEnabled); err != nil {
		return DriverPayConfig{}, err
	} else if ok {
		if enabled, parseErr := strconv.ParseBool(strings.TrimSpace(raw)); parseErr == nil {
			cfg.Enabled = enabled
		}
	}

	if raw, ok, err := r.Get(ctx, models.SettingDriverPayPerDeliveryAmount); err != nil {
		return DriverPayConfig{}, err
	} else if ok {
		if amount, parseErr := decimal.NewFromString(strings.TrimSpace(raw)); parseErr == nil {
			cfg.Amount = amount
		}
	}

	return cfg, nil
}
