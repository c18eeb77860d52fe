package payments

import "github.com/google/uuid"

// InvoiceDetails is the payload published to the customer's order channel
// and returned from the invoice endpoints.
type InvoiceDetails struct {
	InvoiceID        string         `json:"invoice_id"`
	TotalCost        string         `json:"total_cost"`
	Currency         string         `json:"currency"`
	InvoiceCreatedAt int64          `json:"invoice_created_at"`
	InvoiceExpiresAt int64          `json:"invoice_expires_at"`
	PaymentStatus    string         `json:"payment_status"`
	PaymentMethod    map[string]any `json:"payment_method"`
}

// SettlementCandidate is one order eligible for the settlement poll: still
// waiting at the first step, recently created, intermediary assigned and at
// least one invoice issued.
type SettlementCandidate struct {
	OrderID   uuid.UUID `gorm:"column:order_id"`
	URLID     uuid.UUID `gorm:"column:url_id"`
	InvoiceID string    `gorm:"column:invoice_id"`
}
