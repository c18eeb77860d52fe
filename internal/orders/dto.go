package orders

import (
	"time"

	"github.com/google/uuid"

	"github.com/middlemart/middlemart-backend/pkg/types"
)

// AddressInput carries the shipping destination submitted with a new order.
type AddressInput struct {
	RecipientName  string `json:"recipient_name" validate:"required"`
	StreetAddress1 string `json:"street_address1" validate:"required"`
	StreetAddress2 string `json:"street_address2"`
	City           string `json:"city" validate:"required"`
	State          string `json:"state" validate:"required"`
	ZipCode        string `json:"zipcode" validate:"required"`
	Country        string `json:"country" validate:"required"`
}

// CreateOrderInput is the full cart submission driving the creation workflow.
type CreateOrderInput struct {
	Username          string
	AdditionalCost    string
	AdditionalRequest string
	ShippingAddress   AddressInput
	Items             []types.JSONMap
}

// ListScope selects which side of the marketplace an order list covers.
type ListScope string

const (
	ListScopeAll          ListScope = "all"
	ListScopeCustomer     ListScope = "customer"
	ListScopeIntermediary ListScope = "intermediary"
)

// OrderSummary is the aggregated row returned by order lists.
type OrderSummary struct {
	URLID      uuid.UUID `json:"url_id"`
	Status     string    `json:"status"`
	Step       int16     `json:"step"`
	ItemCount  int       `json:"item_count"`
	TotalPrice string    `json:"total_price"`
	CreatedAt  time.Time `json:"created_at"`
}

// OrderList wraps the paginated orders plus the next page cursor.
type OrderList struct {
	Orders     []OrderSummary `json:"orders"`
	NextCursor string         `json:"next_cursor,omitempty"`
}

// OrderItemDetail is one cart line in the order detail payload.
type OrderItemDetail struct {
	Name     string        `json:"name"`
	ImageURL string        `json:"image_url"`
	URL      string        `json:"url"`
	Options  types.JSONMap `json:"options,omitempty"`
	Quantity int           `json:"quantity"`
	Currency string        `json:"currency"`
	Price    string        `json:"price"`
	Retailer string        `json:"retailer"`
	Seller   string        `json:"seller"`
}

// AddressDetail mirrors the persisted shipping destination.
type AddressDetail struct {
	RecipientName  string `json:"recipient_name"`
	StreetAddress1 string `json:"street_address1"`
	StreetAddress2 string `json:"street_address2,omitempty"`
	City           string `json:"city"`
	State          string `json:"state"`
	ZipCode        string `json:"zipcode"`
	Country        string `json:"country"`
}

// PaymentDetail summarizes the pricing terms of an order.
type PaymentDetail struct {
	FiatCurrency   string   `json:"fiat_currency"`
	AdditionalCost string   `json:"additional_cost"`
	Discount       string   `json:"discount"`
	PaymentMethods []string `json:"payment_methods"`
}

// OrderDetail is the step-aware payload for a single order.
type OrderDetail struct {
	URLID             uuid.UUID         `json:"url_id"`
	Status            string            `json:"status"`
	Step              int16             `json:"step"`
	AdditionalRequest string            `json:"additional_request,omitempty"`
	Customer          string            `json:"customer"`
	Intermediary      *string           `json:"intermediary,omitempty"`
	CandidateCount    int               `json:"candidate_count"`
	Items             []OrderItemDetail `json:"items"`
	Address           *AddressDetail    `json:"address,omitempty"`
	Payment           *PaymentDetail    `json:"payment,omitempty"`
	CreatedAt         time.Time         `json:"created_at"`
}
