package models

import (
	"time"

	"github.com/google/uuid"
)

// OrderAddress is a shipping destination. Addresses are deduplicated by
// exact field match, so a row may be shared by many orders.
type OrderAddress struct {
	ID       uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name     string    `gorm:"column:name;not null"`
	Address1 string    `gorm:"column:address1;not null"`
	Address2 string    `gorm:"column:address2;not null;default:''"`
	City     string    `gorm:"column:city;not null"`
	State    string    `gorm:"column:state;not null"`
	ZipCode  string    `gorm:"column:zipcode;not null"`
	Country  string    `gorm:"column:country;not null"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (OrderAddress) TableName() string { return "order_addresses" }
