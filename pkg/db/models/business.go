package models

import (
	"time"

	"github.com/google/uuid"
)

// BusinessIndustry groups registered retailers by sector.
type BusinessIndustry struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name        string    `gorm:"column:name;not null;uniqueIndex"`
	Description string    `gorm:"column:description;not null;default:''"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (BusinessIndustry) TableName() string { return "business_industries" }

// Business is a registered retailer items may be sourced from. Only items
// from registered retailers are accepted at ingestion.
type Business struct {
	ID          uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Ticker      string     `gorm:"column:ticker;not null;uniqueIndex"`
	IndustryID  *uuid.UUID `gorm:"column:industry_id;type:uuid"`
	Name        string     `gorm:"column:name;not null"`
	Description string     `gorm:"column:description;not null;default:''"`

	Industry *BusinessIndustry `gorm:"foreignKey:IndustryID;constraint:OnDelete:SET NULL"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (Business) TableName() string { return "businesses" }
