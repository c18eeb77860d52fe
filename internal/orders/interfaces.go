package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/middlemart/middlemart-backend/pkg/db/models"
	"github.com/middlemart/middlemart-backend/pkg/pagination"
)

// Repository defines persistence operations for the order aggregate.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindStatusByStep(ctx context.Context, step int16) (*models.OrderStatus, error)
	CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error)
	UpdateOrderStatus(ctx context.Context, orderID, statusID uuid.UUID) error
	FindOrderByURLID(ctx context.Context, urlID uuid.UUID) (*models.Order, error)
	FindOrderByID(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	GetOrCreateAddress(ctx context.Context, address models.OrderAddress) (*models.OrderAddress, error)
	CreatePayment(ctx context.Context, payment *models.OrderPayment, methods []models.CryptoCurrency) (*models.OrderPayment, error)
	CreateAddressLink(ctx context.Context, link *models.OrderAddressLink) error
	CreateCustomerLink(ctx context.Context, link *models.OrderCustomerLink) error
	CreatePaymentLink(ctx context.Context, link *models.OrderPaymentLink) error
	FindUserByUsername(ctx context.Context, username string) (*models.User, error)
	FindFiatCurrencyByTicker(ctx context.Context, ticker string) (*models.FiatCurrency, error)
	FindCryptoCurrencyByTicker(ctx context.Context, ticker string) (*models.CryptoCurrency, error)
	ListOrdersByCustomer(ctx context.Context, customerID uuid.UUID, params pagination.Params) (*OrderList, error)
	ListOrdersByIntermediary(ctx context.Context, intermediaryID uuid.UUID, params pagination.Params) (*OrderList, error)
	ListOrdersForUser(ctx context.Context, userID uuid.UUID, params pagination.Params) (*OrderList, error)
}
