package settlement

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dialadrink/backend/pkg/db/models"
)

// Skip reasons reported when a run ends without touching wallets.
const (
	SkipReasonInFlight = "settlement already in flight"
	SkipReasonRowLock  = "order locked by another settlement"
)

// Result describes what one settlement run did. It is safe to show to staff:
// amounts are the resolved split, flags say which wallets actually moved.
type Result struct {
	OrderID     uuid.UUID `json:"order_id"`
	OrderNumber int64     `json:"order_number"`

	ItemsTotal  decimal.Decimal `json:"items_total"`
	DeliveryFee decimal.Decimal `json:"delivery_fee"`
	// MerchantDeliveryAmount is the fee share that went to the merchant: on
	// cash-handled orders the driver amounts are zeroed, so this is the full
	// fee even when a driver pay amount is configured.
	MerchantDeliveryAmount decimal.Decimal `json:"merchant_delivery_amount"`
	DriverPayAmount        decimal.Decimal `json:"driver_pay_amount"`
	TipAmount              decimal.Decimal `json:"tip_amount"`

	MerchantCredited bool `json:"merchant_credited"`
	DriverCredited   bool `json:"driver_credited"`
	IsPOSOrder       bool `json:"is_pos_order"`
	AlreadyCredited  bool `json:"already_credited"`

	Skipped    bool   `json:"skipped"`
	SkipReason string `json:"skip_reason,omitempty"`

	// DriverCreditError carries a driver-side failure that was absorbed so
	// the merchant credit could still commit. A later run repairs it.
	DriverCreditError string `json:"driver_credit_error,omitempty"`
}

// DriverCreditedEvent is handed to the notifier after a commit that moved
// money into a driver wallet.
type DriverCreditedEvent struct {
	OrderID     uuid.UUID
	OrderNumber int64
	Driver      models.Driver
	DeliveryPay decimal.Decimal
	Tip         decimal.Decimal
	NewBalance  decimal.Decimal
}

// Notifier delivers post-commit driver notifications. Implementations must
// be best effort; settlement never fails on notification errors.
type Notifier interface {
	DriverCredited(ctx context.Context, event DriverCreditedEvent)
}
