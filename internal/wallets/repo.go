package wallets

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/dialadrink/backend/pkg/db/models"
)

// Repository manages the merchant wallet singleton and per-driver wallets.
// All crediting in the system funnels through these methods; no other
// subsystem writes wallet balances.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	GetMerchantWallet(ctx context.Context) (*models.MerchantWallet, error)
	CreditMerchant(ctx context.Context, amount decimal.Decimal) (*models.MerchantWallet, error)
	GetOrCreateDriverWallet(ctx context.Context, driverID uuid.UUID) (*models.DriverWallet, error)
	CreditDriverDelivery(ctx context.Context, driverID uuid.UUID, amount decimal.Decimal) (*models.DriverWallet, error)
	CreditDriverTip(ctx context.Context, driverID uuid.UUID, amount decimal.Decimal) (*models.DriverWallet, error)
	FindDriverWallet(ctx context.Context, driverID uuid.UUID) (*models.DriverWallet, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a wallets repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// GetMerchantWallet loads the singleton wallet, creating it on first use.
func (r *repository) GetMerchantWallet(ctx context.Context) (*models.MerchantWallet, error) {
	var wallet models.MerchantWallet
	err := r.db.WithContext(ctx).Where("id = ?", models.MerchantWalletID).First(&wallet).Error
	if err == nil {
		return &wallet, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	wallet = models.MerchantWallet{
		ID:           models.MerchantWalletID,
		Balance:      decimal.Zero,
		TotalRevenue: decimal.Zero,
	}
	if err := r.db.WithContext(ctx).Create(&wallet).Error; err != nil {
		return nil, err
	}
	return &wallet, nil
}

// CreditMerchant applies one settlement's worth of revenue: balance and
// total revenue grow by amount, the order counter by one.
func (r *repository) CreditMerchant(ctx context.Context, amount decimal.Decimal) (*models.MerchantWallet, error) {
	if _, err := r.GetMerchantWallet(ctx); err != nil {
		return nil, err
	}

	res := r.db.WithContext(ctx).Exec(`
		UPDATE merchant_wallets
		SET balance = balance + ?,
			total_revenue = total_revenue + ?,
			total_orders = total_orders + 1,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, amount, amount, models.MerchantWalletID)
	if res.Error != nil {
		return nil, res.Error
	}

	var wallet models.MerchantWallet
	if err := r.db.WithContext(ctx).Where("id = ?", models.MerchantWalletID).First(&wallet).Error; err != nil {
		return nil, err
	}
	return &wallet, nil
}

// GetOrCreateDriverWallet lazily creates the driver's wallet on first credit.
func (r *repository) GetOrCreateDriverWallet(ctx context.Context, driverID uuid.UUID) (*models.DriverWallet, error) {
	var wallet models.DriverWallet
	err := r.db.WithContext(ctx).Where("driver_id = ?", driverID).First(&wallet).Error
	if err == nil {
		return &wallet, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	wallet = models.DriverWallet{
		ID:                uuid.New(),
		DriverID:          driverID,
		Balance:           decimal.Zero,
		TotalTipsReceived: decimal.Zero,
		TotalDeliveryPay:  decimal.Zero,
	}
	if err := r.db.WithContext(ctx).Create(&wallet).Error; err != nil {
		return nil, err
	}
	return &wallet, nil
}

// CreditDriverDelivery adds delivery pay to the driver wallet and bumps the
// delivery counters.
func (r *repository) CreditDriverDelivery(ctx context.Context, driverID uuid.UUID, amount decimal.Decimal) (*models.DriverWallet, error) {
	if _, err := r.GetOrCreateDriverWallet(ctx, driverID); err != nil {
		return nil, err
	}

	res := r.db.WithContext(ctx).Exec(`
		UPDATE driver_wallets
		SET balance = balance + ?,
			total_delivery_pay = total_delivery_pay + ?,
			total_delivery_pay_count = total_delivery_pay_count + 1,
			updated_at = CURRENT_TIMESTAMP
		WHERE driver_id = ?
	`, amount, amount, driverID)
	if res.Error != nil {
		return nil, res.Error
	}
	return r.FindDriverWallet(ctx, driverID)
}

// CreditDriverTip adds a tip to the driver wallet and bumps the tip counters.
func (r *repository) CreditDriverTip(ctx context.Context, driverID uuid.UUID, amount decimal.Decimal) (*models.DriverWallet, error) {
	if _, err := r.GetOrCreateDriverWallet(ctx, driverID); err != nil {
		return nil, err
	}

	res := r.db.WithContext(ctx).Exec(`
		UPDATE driver_wallets
		SET balance = balance + ?,
			total_tips_received = total_tips_received + ?,
			total_tips_count = total_tips_count + 1,
			updated_at = CURRENT_TIMESTAMP
		WHERE driver_id = ?
	`, amount, amount, driverID)
	if res.Error != nil {
		return nil, res.Error
	}
	return r.FindDriverWallet(ctx, driverID)
}

// FindDriverWallet reloads the wallet row; (nil, nil) when the driver has
// never been credited.
func (r *repository) FindDriverWallet(ctx context.Context, driverID uuid.UUID) (*models.DriverWallet, error) {
	var wallet models.DriverWallet
	err := r.db.WithContext(ctx).Where("driver_id = ?", driverID).First(&wallet).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &wallet, nil
}
