package settlement

import (
	"github.com/shopspring/decimal"

	"github.com/dialadrink/backend/internal/settings"
	"github.com/dialadrink/backend/pkg/db/models"
	"github.com/dialadrink/backend/pkg/enums"
)

// minPayable is the floor under which an amount is treated as zero. Guards
// against crediting rounding dust.
var minPayable = decimal.NewFromFloat(0.009)

// payable reports whether the amount is large enough to move into a wallet.
func payable(amount decimal.Decimal) bool {
	return amount.GreaterThan(minPayable)
}

// Split is the resolved division of the delivery fee and tip. The raw
// amounts describe what the order promises on paper; the effective amounts
// are what actually moves through the wallets after payment-method rules.
type Split struct {
	DriverPayAmount        decimal.Decimal
	MerchantDeliveryAmount decimal.Decimal
	TipAmount              decimal.Decimal

	EffectiveDriverPay        decimal.Decimal
	EffectiveTip              decimal.Decimal
	EffectiveMerchantDelivery decimal.Decimal
}

// ComputeSplit resolves the driver/merchant division for a delivery order.
//
// Driver pay comes from a per-order override when one is set to a payable
// amount, otherwise from the pay-per-delivery setting when enabled. It never
// exceeds the delivery fee; the merchant keeps the remainder of the fee.
// The tip is the larger of the derived leftover and the amount recorded on
// the order.
//
// Cash-handled orders (cash method, cash in hand, or manual driver M-Pesa)
// zero the effective driver amounts: the driver already holds the money, so
// the merchant's effective share grows back to the full fee.
func ComputeSplit(order *models.Order, b Breakdown, cfg settings.DriverPayConfig) Split {
	tip := b.TipAmount
	if order.TipAmount.GreaterThan(tip) {
		tip = order.TipAmount
	}

	driverPay := decimal.Zero
	switch {
	case order.DriverPayAmount != nil && payable(*order.DriverPayAmount):
		driverPay = *order.DriverPayAmount
	case cfg.Enabled && payable(cfg.Amount):
		driverPay = cfg.Amount
	}
	if driverPay.GreaterThan(b.DeliveryFee) {
		driverPay = b.DeliveryFee
	}
	if driverPay.IsNegative() {
		driverPay = decimal.Zero
	}

	merchant := b.DeliveryFee.Sub(driverPay)
	if merchant.IsNegative() {
		merchant = decimal.Zero
	}

	split := Split{
		DriverPayAmount:        driverPay,
		MerchantDeliveryAmount: merchant,
		TipAmount:              tip,
		EffectiveDriverPay:     driverPay,
		EffectiveTip:           tip,
	}

	if cashHandled(order) {
		split.EffectiveDriverPay = decimal.Zero
		split.EffectiveTip = decimal.Zero
	}

	// Whatever the driver does not take out of the fee stays with the
	// merchant, so fee = effective driver pay + effective merchant share.
	split.EffectiveMerchantDelivery = b.DeliveryFee.Sub(split.EffectiveDriverPay)
	if split.EffectiveMerchantDelivery.IsNegative() {
		split.EffectiveMerchantDelivery = decimal.Zero
	}
	return split
}

// cashHandled reports whether the driver collected the money in person, in
// which case no wallet credit is owed to them.
func cashHandled(order *models.Order) bool {
	if order.PaymentMethod == enums.PaymentMethodCash {
		return true
	}
	return order.PaymentProvider.IsCashLike()
}
