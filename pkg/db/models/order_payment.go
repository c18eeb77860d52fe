package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderPayment holds the fiat pricing terms of an order and the crypto
// payment methods the customer may settle with.
type OrderPayment struct {
	ID             uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	FiatCurrencyID uuid.UUID       `gorm:"column:fiat_currency_id;type:uuid;not null"`
	AdditionalCost decimal.Decimal `gorm:"column:additional_cost;type:numeric(10,2);not null;default:0"`
	Discount       decimal.Decimal `gorm:"column:discount;type:numeric(5,2);not null;default:0"`

	FiatCurrency   FiatCurrency     `gorm:"foreignKey:FiatCurrencyID;constraint:OnDelete:RESTRICT"`
	PaymentMethods []CryptoCurrency `gorm:"many2many:order_payment_methods"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (OrderPayment) TableName() string { return "order_payments" }
