package models

import (
	"time"

	"github.com/google/uuid"
)

// OrderItemSeller is a third-party storefront selling through a retailer,
// created lazily the first time a brand name is seen.
type OrderItemSeller struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name        string    `gorm:"column:name;not null;uniqueIndex"`
	Description string    `gorm:"column:description;not null;default:''"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (OrderItemSeller) TableName() string { return "order_item_sellers" }
