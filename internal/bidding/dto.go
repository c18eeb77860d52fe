package bidding

import (
	"time"

	"github.com/google/uuid"
)

// CandidateRow is the aggregated candidate record scanned from the DB.
type CandidateRow struct {
	UserID        uuid.UUID `gorm:"column:user_id"`
	Username      string    `gorm:"column:username"`
	Rate          string    `gorm:"column:rate"`
	AverageRating float64   `gorm:"column:average_rating"`
	ReviewCount   int       `gorm:"column:review_count"`
	CreatedAt     time.Time `gorm:"column:created_at"`
}

// CandidateView is one ranked bid in the candidate listing.
type CandidateView struct {
	Username      string    `json:"username"`
	Rate          string    `json:"rate"`
	AverageRating float64   `json:"average_rating"`
	ReviewCount   int       `json:"review_count"`
	AppliedAt     time.Time `json:"applied_at"`
}

// SelectionResult summarizes the order after an intermediary is assigned.
type SelectionResult struct {
	URLID        uuid.UUID `json:"url_id"`
	Status       string    `json:"status"`
	Step         int16     `json:"step"`
	Customer     string    `json:"customer"`
	Intermediary string    `json:"intermediary"`
}

// RequestSummary is one open order in the intermediary request marketplace.
type RequestSummary struct {
	URLID             uuid.UUID `json:"url_id"`
	Customer          string    `json:"customer"`
	CustomerRating    float64   `json:"customer_rating"`
	ItemCount         int       `json:"item_count"`
	TotalPrice        string    `json:"total_price"`
	AdditionalRequest string    `json:"additional_request,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}

// RequestList wraps paginated open requests plus the next cursor.
type RequestList struct {
	Requests   []RequestSummary `json:"requests"`
	NextCursor string           `json:"next_cursor,omitempty"`
}
