package models

import (
	"time"

	"github.com/google/uuid"
)

// User is the minimal identity row this service reads. Account management
// lives elsewhere; tokens carry the username and this table anchors FKs.
type User struct {
	ID       uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Username string    `gorm:"column:username;not null;uniqueIndex"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (User) TableName() string { return "users" }
