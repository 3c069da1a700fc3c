package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dialadrink/backend/pkg/enums"
)

// LedgerTransaction is one audit row per monetary movement tied to an order.
// A null DriverID marks the merchant-side entry; DriverWalletID is set only
// once the amount has actually been credited to a driver wallet. Rows are
// mutated in place on re-settlement and cancelled rather than deleted.
//
// At most one non-cancelled row may exist per (order, type, driver side);
// the ledger_transactions_order_type_driver_uniq partial index enforces it.
type LedgerTransaction struct {
	ID                uuid.UUID                      `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID           uuid.UUID                      `gorm:"column:order_id;type:uuid;not null;index"`
	TransactionType   enums.TransactionType          `gorm:"column:transaction_type;type:text;not null"`
	Status            enums.TransactionStatus        `gorm:"column:status;type:text;not null;default:'pending'"`
	PaymentStatus     enums.TransactionPaymentStatus `gorm:"column:payment_status;type:text;not null;default:'pending'"`
	Amount            decimal.Decimal                `gorm:"column:amount;type:numeric(12,2);not null"`
	DriverID          *uuid.UUID                     `gorm:"column:driver_id;type:uuid"`
	DriverWalletID    *uuid.UUID                     `gorm:"column:driver_wallet_id;type:uuid"`
	ReceiptNumber     string                         `gorm:"column:receipt_number"`
	CheckoutRequestID string                         `gorm:"column:checkout_request_id"`
	MerchantRequestID string                         `gorm:"column:merchant_request_id"`
	PhoneNumber       string                         `gorm:"column:phone_number"`
	Notes             string                         `gorm:"column:notes"`
	TransactionDate   time.Time                      `gorm:"column:transaction_date;not null"`
	CreatedAt         time.Time                      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time                      `gorm:"column:updated_at;autoUpdateTime"`
}

// FullyCredited reports whether this row represents money that has completely
// landed: completed, paid, and (for driver-side rows) credited to a wallet.
// Anything less is a partial state a retry is allowed to repair.
func (t *LedgerTransaction) FullyCredited() bool {
	if t == nil {
		return false
	}
	if t.Status != enums.TransactionStatusCompleted || t.PaymentStatus != enums.TransactionPaymentStatusPaid {
		return false
	}
	if t.DriverID != nil && t.DriverWalletID == nil {
		return false
	}
	return true
}
