package settlement

import (
	"github.com/shopspring/decimal"

	"github.com/dialadrink/backend/pkg/db/models"
)

// Breakdown is the money decomposition of an order before any payment-method
// rules apply: what the drinks cost, what the delivery cost, and what is
// left over as tip.
type Breakdown struct {
	ItemsTotal  decimal.Decimal
	DeliveryFee decimal.Decimal
	TipAmount   decimal.Decimal
}

// ResolveBreakdown decomposes the order total. Item lines are authoritative
// for the goods portion; when an order carries no item rows the goods portion
// falls back to total minus fee minus the recorded tip. POS orders have no
// delivery component at all.
func ResolveBreakdown(order *models.Order) Breakdown {
	fee := order.DeliveryFee
	if order.IsPOS() {
		fee = decimal.Zero
	}

	var items decimal.Decimal
	if len(order.Items) > 0 {
		for _, item := range order.Items {
			items = items.Add(item.Total)
		}
	} else {
		items = order.TotalAmount.Sub(fee).Sub(order.TipAmount)
		if items.IsNegative() {
			items = decimal.Zero
		}
	}

	// Whatever the total holds beyond goods and delivery is treated as tip.
	tip := order.TotalAmount.Sub(items).Sub(fee)
	if tip.IsNegative() {
		tip = decimal.Zero
	}

	return Breakdown{
		ItemsTotal:  items,
		DeliveryFee: fee,
		TipAmount:   tip,
	}
}
