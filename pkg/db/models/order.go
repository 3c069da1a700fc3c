package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dialadrink/backend/pkg/enums"
)

// POSDeliveryAddress is the sentinel delivery address marking an in-person
// point-of-sale order. POS orders never carry a delivery fee.
const POSDeliveryAddress = "Walk-in Customer"

// Order is the customer order. Created on checkout, mutated by status and
// payment transitions, never deleted.
type Order struct {
	ID              uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderNumber     int64                 `gorm:"column:order_number;autoIncrement;uniqueIndex"`
	CustomerName    string                `gorm:"column:customer_name;not null"`
	CustomerPhone   string                `gorm:"column:customer_phone;not null"`
	Status          enums.OrderStatus     `gorm:"column:status;type:text;not null;default:'pending'"`
	PaymentStatus   enums.PaymentStatus   `gorm:"column:payment_status;type:text;not null;default:'unpaid'"`
	PaymentMethod   enums.PaymentMethod   `gorm:"column:payment_method;type:text;not null;default:'mobile_money'"`
	PaymentProvider enums.PaymentProvider `gorm:"column:payment_provider;type:text"`
	TotalAmount     decimal.Decimal       `gorm:"column:total_amount;type:numeric(12,2);not null"`
	DeliveryFee     decimal.Decimal       `gorm:"column:delivery_fee;type:numeric(12,2);not null;default:0"`
	TipAmount       decimal.Decimal       `gorm:"column:tip_amount;type:numeric(12,2);not null;default:0"`
	DriverPayAmount *decimal.Decimal      `gorm:"column:driver_pay_amount;type:numeric(12,2)"`
	DriverID        *uuid.UUID            `gorm:"column:driver_id;type:uuid"`
	Driver          *Driver               `gorm:"foreignKey:DriverID"`
	DeliveryAddress string                `gorm:"column:delivery_address;not null"`
	Items           []OrderItem           `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CompletedAt     *time.Time            `gorm:"column:completed_at"`
	SettledAt       *time.Time            `gorm:"column:settled_at"`
	CreatedAt       time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}

// IsPOS reports whether the order was placed in person at the counter.
func (o *Order) IsPOS() bool {
	return o.DeliveryAddress == POSDeliveryAddress
}

// OrderItem is one drink line on an order.
type OrderItem struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID   uuid.UUID       `gorm:"column:order_id;type:uuid;not null;index"`
	Name      string          `gorm:"column:name;not null"`
	Quantity  int             `gorm:"column:quantity;not null"`
	UnitPrice decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2);not null"`
	Total     decimal.Decimal `gorm:"column:total;type:numeric(12,2);not null"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
}
