package models

import (
	"time"

	"github.com/google/uuid"
)

// Driver is a delivery rider. Orders reference drivers through a nullable
// foreign key; "no driver yet" is a null reference, not a sentinel row.
type Driver struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name      string    `gorm:"column:name;not null"`
	Phone     string    `gorm:"column:phone;not null;uniqueIndex"`
	FCMToken  string    `gorm:"column:fcm_token"`
	Active    bool      `gorm:"column:active;not null;default:true"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// CanDeliver reports whether the driver is eligible to be paid for
// deliveries.
func (d *Driver) CanDeliver() bool {
	return d != nil && d.Active
}
