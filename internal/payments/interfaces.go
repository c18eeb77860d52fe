package payments

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/middlemart/middlemart-backend/pkg/btcpay"
	"github.com/middlemart/middlemart-backend/pkg/db/models"
)

// Repository defines persistence operations for payment invoicing.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindOrderByURLID(ctx context.Context, urlID uuid.UUID) (*models.Order, error)
	FindOrderByID(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	CreateInvoiceRecord(ctx context.Context, record *models.OrderPaymentInvoice) error
	FindLatestInvoice(ctx context.Context, paymentID uuid.UUID) (*models.OrderPaymentInvoice, error)
	ListSettlementCandidates(ctx context.Context, cutoff time.Time) ([]SettlementCandidate, error)
}

// ProviderClient is the payment gateway surface this service consumes.
type ProviderClient interface {
	ListInvoices(ctx context.Context, orderID string) ([]btcpay.Invoice, error)
	CreateInvoice(ctx context.Context, req btcpay.CreateInvoiceRequest) (*btcpay.Invoice, error)
	GetInvoice(ctx context.Context, invoiceID string) (*btcpay.Invoice, error)
	GetPaymentMethods(ctx context.Context, invoiceID string) ([]btcpay.PaymentMethod, error)
}

// StatusAdvancer moves an order to its next lifecycle step inside the
// caller's transaction.
type StatusAdvancer interface {
	AdvanceTx(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) error
}
