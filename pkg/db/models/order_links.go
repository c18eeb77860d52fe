package models

import (
	"time"

	"github.com/google/uuid"
)

// Link rows are the sole record of an order's relationships. Each table
// carries a unique order_id so an order can hold at most one of each.

type OrderAddressLink struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID   uuid.UUID `gorm:"column:order_id;type:uuid;not null;uniqueIndex"`
	AddressID uuid.UUID `gorm:"column:address_id;type:uuid;not null"`

	Address OrderAddress `gorm:"foreignKey:AddressID;constraint:OnDelete:RESTRICT"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (OrderAddressLink) TableName() string { return "order_address_links" }

type OrderCustomerLink struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID    uuid.UUID `gorm:"column:order_id;type:uuid;not null;uniqueIndex"`
	CustomerID uuid.UUID `gorm:"column:customer_id;type:uuid;not null"`

	Customer User `gorm:"foreignKey:CustomerID;constraint:OnDelete:RESTRICT"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (OrderCustomerLink) TableName() string { return "order_customer_links" }

type OrderPaymentLink struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID   uuid.UUID `gorm:"column:order_id;type:uuid;not null;uniqueIndex"`
	PaymentID uuid.UUID `gorm:"column:payment_id;type:uuid;not null"`

	Payment OrderPayment `gorm:"foreignKey:PaymentID;constraint:OnDelete:RESTRICT"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (OrderPaymentLink) TableName() string { return "order_payment_links" }

type OrderIntermediaryLink struct {
	ID             uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID        uuid.UUID `gorm:"column:order_id;type:uuid;not null;uniqueIndex"`
	IntermediaryID uuid.UUID `gorm:"column:intermediary_id;type:uuid;not null"`

	Intermediary User `gorm:"foreignKey:IntermediaryID;constraint:OnDelete:RESTRICT"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (OrderIntermediaryLink) TableName() string { return "order_intermediary_links" }
