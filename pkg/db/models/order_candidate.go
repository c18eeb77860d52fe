package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderIntermediaryCandidate is a bid on an open order. The rate is stored
// as a fraction of the order total (input percent divided by 100) at three
// decimal places. Rows are created once and never mutated.
type OrderIntermediaryCandidate struct {
	ID      uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID uuid.UUID       `gorm:"column:order_id;type:uuid;not null;uniqueIndex:idx_candidates_order_user"`
	UserID  uuid.UUID       `gorm:"column:user_id;type:uuid;not null;uniqueIndex:idx_candidates_order_user"`
	Rate    decimal.Decimal `gorm:"column:rate;type:numeric(4,3);not null"`

	User User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (OrderIntermediaryCandidate) TableName() string { return "order_intermediary_candidates" }
