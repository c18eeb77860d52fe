package bidding

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/middlemart/middlemart-backend/pkg/db/models"
	"github.com/middlemart/middlemart-backend/pkg/pagination"
)

// Repository defines persistence operations for intermediary bidding.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindOrderByURLID(ctx context.Context, urlID uuid.UUID) (*models.Order, error)
	FindUserByUsername(ctx context.Context, username string) (*models.User, error)
	CreateCandidate(ctx context.Context, candidate *models.OrderIntermediaryCandidate) error
	FindCandidate(ctx context.Context, orderID, userID uuid.UUID) (*models.OrderIntermediaryCandidate, error)
	ListCandidates(ctx context.Context, orderID uuid.UUID) ([]CandidateRow, error)
	CreateIntermediaryLink(ctx context.Context, link *models.OrderIntermediaryLink) error
	ListOpenRequests(ctx context.Context, params pagination.Params) (*RequestList, error)
}

// StatusAdvancer moves an order to its next lifecycle step inside the
// caller's transaction.
type StatusAdvancer interface {
	AdvanceTx(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) error
}
