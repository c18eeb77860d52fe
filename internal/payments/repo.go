package payments

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/middlemart/middlemart-backend/pkg/db/models"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a payments repository bound to the provided DB.
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
		Preload("Items").
		Preload("CustomerLink.Customer").
		Preload("PaymentLink.Payment").
		Preload("PaymentLink.Payment.FiatCurrency").
		Preload("PaymentLink.Payment.PaymentMethods").
		Where("url_id = ?", urlID).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindOrderByID(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Status").
		Where("id = ?", orderID).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) CreateInvoiceRecord(ctx context.Context, record *models.OrderPaymentInvoice) error {
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *repository) FindLatestInvoice(ctx context.Context, paymentID uuid.UUID) (*models.OrderPaymentInvoice, error) {
	var record models.OrderPaymentInvoice
	err := r.db.WithContext(ctx).
		Where("payment_id = ?", paymentID).
		Order("created_at DESC").
		First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// ListSettlementCandidates selects orders still at the first step, created
// after the cutoff, carrying an intermediary link and at least one invoice.
// The newest invoice per payment wins.
func (r *repository) ListSettlementCandidates(ctx context.Context, cutoff time.Time) ([]SettlementCandidate, error) {
	var candidates []SettlementCandidate
	err := r.db.WithContext(ctx).
		Table("orders").
		Select(`orders.id AS order_id, orders.url_id, opi.invoice_id`).
		Joins("JOIN order_statuses ON order_statuses.id = orders.status_id AND order_statuses.step = ?", models.StepFindingIntermediary).
		Joins("JOIN order_intermediary_links oil ON oil.order_id = orders.id").
		Joins("JOIN order_payment_links opl ON opl.order_id = orders.id").
		Joins(`JOIN LATERAL (
			SELECT invoice_id FROM order_payment_invoices
			WHERE order_payment_invoices.payment_id = opl.payment_id
			ORDER BY created_at DESC LIMIT 1
		) opi ON true`).
		Where("orders.created_at >= ?", cutoff).
		Order("orders.created_at ASC").
		Scan(&candidates).Error
	if err != nil {
		return nil, err
	}
	return candidates, nil
}
