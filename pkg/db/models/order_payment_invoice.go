package models

import (
	"time"

	"github.com/google/uuid"
)

// OrderPaymentInvoice is an append-only record of every invoice issued or
// fetched from the payment provider for an order payment.
type OrderPaymentInvoice struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	PaymentID uuid.UUID `gorm:"column:payment_id;type:uuid;not null;index"`
	InvoiceID string    `gorm:"column:invoice_id;not null"`
	// OrderURLID is denormalized so provider metadata lookups don't need a
	// join through the link tables.
	OrderURLID uuid.UUID `gorm:"column:order_url_id;type:uuid;not null;index"`

	Payment OrderPayment `gorm:"foreignKey:PaymentID;constraint:OnDelete:RESTRICT"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (OrderPaymentInvoice) TableName() string { return "order_payment_invoices" }
