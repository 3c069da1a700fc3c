package models

import "time"

// Setting is one key/value configuration row editable from the admin side.
type Setting struct {
	Key       string    `gorm:"column:key;primaryKey"`
	Value     string    `gorm:"column:value;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// Setting keys read by the settlement engine.
const (
	SettingDriverPayPerDeliveryEnabled = "driver_pay_per_delivery_enabled"
	SettingDriverPayPerDeliveryAmount  = "driver_pay_per_delivery_amount"
)
