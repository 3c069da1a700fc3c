package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MerchantWalletID is the fixed primary key of the singleton merchant wallet.
const MerchantWalletID uint = 1

// MerchantWallet is the single business wallet. Balance can be debited by
// payout flows elsewhere; the revenue and order counters only grow.
type MerchantWallet struct {
	ID           uint            `gorm:"column:id;primaryKey"`
	Balance      decimal.Decimal `gorm:"column:balance;type:numeric(14,2);not null;default:0"`
	TotalRevenue decimal.Decimal `gorm:"column:total_revenue;type:numeric(14,2);not null;default:0"`
	TotalOrders  int64           `gorm:"column:total_orders;not null;default:0"`
	CreatedAt    time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// DriverWallet accumulates a driver's delivery pay and tips. Created lazily
// on the first credit for that driver.
type DriverWallet struct {
	ID                    uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	DriverID              uuid.UUID       `gorm:"column:driver_id;type:uuid;not null;uniqueIndex"`
	Balance               decimal.Decimal `gorm:"column:balance;type:numeric(14,2);not null;default:0"`
	TotalTipsReceived     decimal.Decimal `gorm:"column:total_tips_received;type:numeric(14,2);not null;default:0"`
	TotalTipsCount        int64           `gorm:"column:total_tips_count;not null;default:0"`
	TotalDeliveryPay      decimal.Decimal `gorm:"column:total_delivery_pay;type:numeric(14,2);not null;default:0"`
	TotalDeliveryPayCount int64           `gorm:"column:total_delivery_pay_count;not null;default:0"`
	CreatedAt             time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt             time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
