package models

import (
	"time"

	"github.com/google/uuid"
)

// OrderStatus is a fixed reference row describing one step of the order
// lifecycle. Rows are seeded by migration and never written at runtime.
type OrderStatus struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name        string    `gorm:"column:name;not null;uniqueIndex"`
	Step        int16     `gorm:"column:step;not null;uniqueIndex"`
	Description string    `gorm:"column:description;not null;default:''"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (OrderStatus) TableName() string { return "order_statuses" }

const (
	StepFindingIntermediary int16 = 1
	StepDepositPayment      int16 = 2
	StepPurchasing          int16 = 3
	StepShipping            int16 = 4
	StepConfirmation        int16 = 5
	StepFinished            int16 = 6
)
