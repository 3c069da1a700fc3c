package settlement

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/dialadrink/backend/pkg/db/models"
)

func dec(value string) decimal.Decimal {
	return decimal.RequireFromString(value)
}

func TestResolveBreakdownFromItems(t *testing.T) {
	order := &models.Order{
		TotalAmount: dec("1250.00"),
		DeliveryFee: dec("150.00"),
		DeliveryAddress: "12 Riverside Drive",
		Items: []models.OrderItem{
			{Name: "Gin 750ml", Quantity: 1, Total: dec("700.00")},
			{Name: "Tonic 6pk", Quantity: 2, Total: dec("300.00")},
		},
	}

	b := ResolveBreakdown(order)

	assert.True(t, b.ItemsTotal.Equal(dec("1000.00")), "items total %s", b.ItemsTotal)
	assert.True(t, b.DeliveryFee.Equal(dec("150.00")))
	// 1250 - 1000 - 150 leaves 100 as tip
	assert.True(t, b.TipAmount.Equal(dec("100.00")), "tip %s", b.TipAmount)
}

func TestResolveBreakdownWithoutItemsFallsBackToTotals(t *testing.T) {
	order := &models.Order{
		TotalAmount:     dec("1150.00"),
		DeliveryFee:     dec("150.00"),
		TipAmount:       dec("50.00"),
		DeliveryAddress: "12 Riverside Drive",
	}

	b := ResolveBreakdown(order)

	assert.True(t, b.ItemsTotal.Equal(dec("950.00")), "items total %s", b.ItemsTotal)
	assert.True(t, b.TipAmount.Equal(dec("50.00")))
}

func TestResolveBreakdownPOSHasNoDeliveryFee(t *testing.T) {
	order := &models.Order{
		TotalAmount:     dec("500.00"),
		DeliveryFee:     dec("150.00"),
		DeliveryAddress: models.POSDeliveryAddress,
		Items: []models.OrderItem{
			{Name: "Whisky 350ml", Quantity: 1, Total: dec("500.00")},
		},
	}

	b := ResolveBreakdown(order)

	assert.True(t, b.DeliveryFee.IsZero())
	assert.True(t, b.ItemsTotal.Equal(dec("500.00")))
	assert.True(t, b.TipAmount.IsZero())
}

func TestResolveBreakdownNeverGoesNegative(t *testing.T) {
	order := &models.Order{
		TotalAmount:     dec("100.00"),
		DeliveryFee:     dec("150.00"),
		DeliveryAddress: "12 Riverside Drive",
		Items: []models.OrderItem{
			{Name: "Beer 6pk", Quantity: 1, Total: dec("100.00")},
		},
	}

	b := ResolveBreakdown(order)

	assert.False(t, b.TipAmount.IsNegative())
}
