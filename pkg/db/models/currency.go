package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// FiatCurrency is ticker reference data seeded by migration (USD).
type FiatCurrency struct {
	ID     uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Ticker string    `gorm:"column:ticker;not null;uniqueIndex"`
	Name   string    `gorm:"column:name;not null"`
	Symbol string    `gorm:"column:symbol;not null;default:''"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (FiatCurrency) TableName() string { return "fiat_currencies" }

// CryptoCurrency is ticker reference data seeded by migration (BTC).
type CryptoCurrency struct {
	ID     uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Ticker string    `gorm:"column:ticker;not null;uniqueIndex"`
	Name   string    `gorm:"column:name;not null"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (CryptoCurrency) TableName() string { return "crypto_currencies" }

// FiatCurrencyRate is an append-only exchange rate against USD. The newest
// row per currency wins.
type FiatCurrencyRate struct {
	ID             uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	FiatCurrencyID uuid.UUID       `gorm:"column:fiat_currency_id;type:uuid;not null;index"`
	Rate           decimal.Decimal `gorm:"column:rate;type:numeric(14,6);not null"`

	FiatCurrency FiatCurrency `gorm:"foreignKey:FiatCurrencyID;constraint:OnDelete:CASCADE"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (FiatCurrencyRate) TableName() string { return "fiat_currency_rates" }
