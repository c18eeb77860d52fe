package models

import (
	"time"

	"github.com/google/uuid"
)

// OrderReview is written by one party of a finished order about the other.
// Candidate listings aggregate these into an average rating per user.
type OrderReview struct {
	ID       uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID  *uuid.UUID `gorm:"column:order_id;type:uuid"`
	UserID   uuid.UUID  `gorm:"column:user_id;type:uuid;not null;index"`
	AuthorID *uuid.UUID `gorm:"column:author_id;type:uuid"`
	Title    string     `gorm:"column:title;not null;default:''"`
	Content  string     `gorm:"column:content;not null;default:''"`
	Rating   float64    `gorm:"column:rating;not null"`
	Upvote   int        `gorm:"column:upvote;not null;default:0"`
	Downvote int        `gorm:"column:downvote;not null;default:0"`

	User   User  `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	Author *User `gorm:"foreignKey:AuthorID;constraint:OnDelete:SET NULL"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (OrderReview) TableName() string { return "order_reviews" }
