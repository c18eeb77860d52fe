package bidding

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/middlemart/middlemart-backend/pkg/db/models"
	"github.com/middlemart/middlemart-backend/pkg/pagination"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a bidding repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindOrderByURLID(ctx context.Context, urlID uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Status").
		Preload("CustomerLink.Customer").
		Preload("IntermediaryLink").
		Where("url_id = ?", urlID).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).
		Where("username = ?", username).
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *repository) CreateCandidate(ctx context.Context, candidate *models.OrderIntermediaryCandidate) error {
	return r.db.WithContext(ctx).Create(candidate).Error
}

func (r *repository) FindCandidate(ctx context.Context, orderID, userID uuid.UUID) (*models.OrderIntermediaryCandidate, error) {
	var candidate models.OrderIntermediaryCandidate
	err := r.db.WithContext(ctx).
		Where("order_id = ? AND user_id = ?", orderID, userID).
		First(&candidate).Error
	if err != nil {
		return nil, err
	}
	return &candidate, nil
}

func (r *repository) ListCandidates(ctx context.Context, orderID uuid.UUID) ([]CandidateRow, error) {
	var rows []CandidateRow
	err := r.db.WithContext(ctx).
		Table("order_intermediary_candidates oic").
		Select(`oic.user_id, users.username, oic.rate,
			COALESCE(AVG(order_reviews.rating), 0) AS average_rating,
			COUNT(order_reviews.id) AS review_count,
			oic.created_at`).
		Joins("JOIN users ON users.id = oic.user_id").
		Joins("LEFT JOIN order_reviews ON order_reviews.user_id = oic.user_id").
		Where("oic.order_id = ?", orderID).
		Group("oic.user_id, users.username, oic.rate, oic.created_at").
		Order("oic.created_at ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) CreateIntermediaryLink(ctx context.Context, link *models.OrderIntermediaryLink) error {
	return r.db.WithContext(ctx).Create(link).Error
}

type requestRow struct {
	ID                uuid.UUID
	URLID             uuid.UUID `gorm:"column:url_id"`
	Customer          string
	CustomerRating    float64 `gorm:"column:customer_rating"`
	ItemCount         int     `gorm:"column:item_count"`
	TotalPrice        string  `gorm:"column:total_price"`
	AdditionalRequest string  `gorm:"column:additional_request"`
	CreatedAt         time.Time
}

func (r *repository) ListOpenRequests(ctx context.Context, params pagination.Params) (*RequestList, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}
	limit := pagination.LimitWithBuffer(params.Limit)

	query := r.db.WithContext(ctx).
		Table("orders").
		Select(`orders.id, orders.url_id, users.username AS customer,
			COALESCE((SELECT AVG(rating) FROM order_reviews WHERE order_reviews.user_id = users.id), 0) AS customer_rating,
			COUNT(order_items.id) AS item_count,
			COALESCE(SUM(order_items.price * order_items.quantity), 0) AS total_price,
			orders.additional_request,
			orders.created_at`).
		Joins("JOIN order_statuses ON order_statuses.id = orders.status_id AND order_statuses.step = ?", models.StepFindingIntermediary).
		Joins("JOIN order_customer_links ocl ON ocl.order_id = orders.id").
		Joins("JOIN users ON users.id = ocl.customer_id").
		Joins("LEFT JOIN order_items ON order_items.order_id = orders.id").
		Group("orders.id, orders.url_id, users.id, users.username, orders.additional_request, orders.created_at").
		Order("orders.created_at DESC, orders.id DESC").
		Limit(limit)

	if cursor != nil {
		query = query.Where(
			"(orders.created_at < ?) OR (orders.created_at = ? AND orders.id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}

	var rows []requestRow
	if err := query.Scan(&rows).Error; err != nil {
		return nil, err
	}

	pageSize := pagination.NormalizeLimit(params.Limit)
	nextCursor := ""
	if len(rows) > pageSize {
		last := rows[pageSize-1]
		nextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
		rows = rows[:pageSize]
	}

	requests := make([]RequestSummary, 0, len(rows))
	for _, row := range rows {
		requests = append(requests, RequestSummary{
			URLID:             row.URLID,
			Customer:          row.Customer,
			CustomerRating:    row.CustomerRating,
			ItemCount:         row.ItemCount,
			TotalPrice:        row.TotalPrice,
			AdditionalRequest: row.AdditionalRequest,
			CreatedAt:         row.CreatedAt,
		})
	}

	return &RequestList{Requests: requests, NextCursor: nextCursor}, nil
}
