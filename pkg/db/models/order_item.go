package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/middlemart/middlemart-backend/pkg/types"
)

// OrderItem is one ingested cart line. Rows are immutable after ingestion.
type OrderItem struct {
	ID         uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID    uuid.UUID       `gorm:"column:order_id;type:uuid;not null;index"`
	BusinessID uuid.UUID       `gorm:"column:business_id;type:uuid;not null"`
	SellerID   uuid.UUID       `gorm:"column:seller_id;type:uuid;not null"`
	CurrencyID uuid.UUID       `gorm:"column:currency_id;type:uuid;not null"`
	Name       string          `gorm:"column:name;not null"`
	ImageURL   string          `gorm:"column:image_url;not null;default:''"`
	SourceURL  string          `gorm:"column:source_url;not null"`
	Options    types.JSONMap   `gorm:"column:options;type:jsonb;serializer:json"`
	Quantity   int             `gorm:"column:quantity;not null"`
	Price      decimal.Decimal `gorm:"column:price;type:numeric(10,2);not null"`

	Business Business        `gorm:"foreignKey:BusinessID;constraint:OnDelete:RESTRICT"`
	Seller   OrderItemSeller `gorm:"foreignKey:SellerID;constraint:OnDelete:RESTRICT"`
	Currency FiatCurrency    `gorm:"foreignKey:CurrencyID;constraint:OnDelete:RESTRICT"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (OrderItem) TableName() string { return "order_items" }
