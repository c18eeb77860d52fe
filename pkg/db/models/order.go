package models

import (
	"time"

	"github.com/google/uuid"
)

// Order is the root aggregate of the marketplace. Relationships to the
// customer, intermediary, address and payment live exclusively in the link
// rows; the order row itself only carries status and free-form text.
type Order struct {
	ID                uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	URLID             uuid.UUID `gorm:"column:url_id;type:uuid;not null;uniqueIndex"`
	StatusID          uuid.UUID `gorm:"column:status_id;type:uuid;not null"`
	AdditionalRequest string    `gorm:"column:additional_request;not null;default:''"`

	Status           OrderStatus                  `gorm:"foreignKey:StatusID;constraint:OnDelete:RESTRICT"`
	Items            []OrderItem                  `gorm:"foreignKey:OrderID"`
	AddressLink      *OrderAddressLink            `gorm:"foreignKey:OrderID"`
	CustomerLink     *OrderCustomerLink           `gorm:"foreignKey:OrderID"`
	PaymentLink      *OrderPaymentLink            `gorm:"foreignKey:OrderID"`
	IntermediaryLink *OrderIntermediaryLink       `gorm:"foreignKey:OrderID"`
	Candidates       []OrderIntermediaryCandidate `gorm:"foreignKey:OrderID"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (Order) TableName() string { return "orders" }
