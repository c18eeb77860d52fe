package orders

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

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindStatusByStep(ctx context.Context, step int16) (*models.OrderStatus, error) {
	var status models.OrderStatus
	err := r.db.WithContext(ctx).
		Where("step = ?", step).
		First(&status).Error
	if err != nil {
		return nil, err
	}
	return &status, nil
}

func (r *repository) CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error) {
	if err := r.db.WithContext(ctx).Create(order).Error; err != nil {
		return nil, err
	}
	return order, nil
}

func (r *repository) UpdateOrderStatus(ctx context.Context, orderID, statusID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", orderID).
		Update("status_id", statusID).Error
}

func (r *repository) FindOrderByURLID(ctx context.Context, urlID uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Status").
		Preload("Items").
		Preload("Items.Business").
		Preload("Items.Seller").
		Preload("Items.Currency").
		Preload("AddressLink.Address").
		Preload("CustomerLink.Customer").
		Preload("PaymentLink.Payment").
		Preload("PaymentLink.Payment.FiatCurrency").
		Preload("PaymentLink.Payment.PaymentMethods").
		Preload("IntermediaryLink.Intermediary").
		Preload("Candidates").
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

func (r *repository) GetOrCreateAddress(ctx context.Context, address models.OrderAddress) (*models.OrderAddress, error) {
	var existing models.OrderAddress
	err := r.db.WithContext(ctx).
		Where("name = ? AND address1 = ? AND address2 = ? AND city = ? AND state = ? AND zipcode = ? AND country = ?",
			address.Name, address.Address1, address.Address2,
			address.City, address.State, address.ZipCode, address.Country).
		First(&existing).Error
	if err == nil {
		return &existing, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, err
	}
	if err := r.db.WithContext(ctx).Create(&address).Error; err != nil {
		return nil, err
	}
	return &address, nil
}

func (r *repository) CreatePayment(ctx context.Context, payment *models.OrderPayment, methods []models.CryptoCurrency) (*models.OrderPayment, error) {
	if err := r.db.WithContext(ctx).Create(payment).Error; err != nil {
		return nil, err
	}
	if len(methods) > 0 {
		if err := r.db.WithContext(ctx).Model(payment).Association("PaymentMethods").Append(&methods); err != nil {
			return nil, err
		}
	}
	return payment, nil
}

func (r *repository) CreateAddressLink(ctx context.Context, link *models.OrderAddressLink) error {
	return r.db.WithContext(ctx).Create(link).Error
}

func (r *repository) CreateCustomerLink(ctx context.Context, link *models.OrderCustomerLink) error {
	return r.db.WithContext(ctx).Create(link).Error
}

func (r *repository) CreatePaymentLink(ctx context.Context, link *models.OrderPaymentLink) error {
	return r.db.WithContext(ctx).Create(link).Error
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

func (r *repository) FindFiatCurrencyByTicker(ctx context.Context, ticker string) (*models.FiatCurrency, error) {
	var currency models.FiatCurrency
	err := r.db.WithContext(ctx).
		Where("ticker = ?", ticker).
		First(&currency).Error
	if err != nil {
		return nil, err
	}
	return &currency, nil
}

func (r *repository) FindCryptoCurrencyByTicker(ctx context.Context, ticker string) (*models.CryptoCurrency, error) {
	var currency models.CryptoCurrency
	err := r.db.WithContext(ctx).
		Where("ticker = ?", ticker).
		First(&currency).Error
	if err != nil {
		return nil, err
	}
	return &currency, nil
}

func (r *repository) ListOrdersByCustomer(ctx context.Context, customerID uuid.UUID, params pagination.Params) (*OrderList, error) {
	return r.listOrders(ctx, params, func(q *gorm.DB) *gorm.DB {
		return q.Where("EXISTS (SELECT 1 FROM order_customer_links ocl WHERE ocl.order_id = orders.id AND ocl.customer_id = ?)", customerID)
	})
}

func (r *repository) ListOrdersByIntermediary(ctx context.Context, intermediaryID uuid.UUID, params pagination.Params) (*OrderList, error) {
	return r.listOrders(ctx, params, func(q *gorm.DB) *gorm.DB {
		return q.Where("EXISTS (SELECT 1 FROM order_intermediary_links oil WHERE oil.order_id = orders.id AND oil.intermediary_id = ?)", intermediaryID)
	})
}

func (r *repository) ListOrdersForUser(ctx context.Context, userID uuid.UUID, params pagination.Params) (*OrderList, error) {
	return r.listOrders(ctx, params, func(q *gorm.DB) *gorm.DB {
		return q.Where(
			`EXISTS (SELECT 1 FROM order_customer_links ocl WHERE ocl.order_id = orders.id AND ocl.customer_id = ?)
			OR EXISTS (SELECT 1 FROM order_intermediary_links oil WHERE oil.order_id = orders.id AND oil.intermediary_id = ?)`,
			userID, userID,
		)
	})
}

type orderListRow struct {
	ID         uuid.UUID
	URLID      uuid.UUID `gorm:"column:url_id"`
	Status     string
	Step       int16
	ItemCount  int    `gorm:"column:item_count"`
	TotalPrice string `gorm:"column:total_price"`
	CreatedAt  time.Time
}

func (r *repository) listOrders(ctx context.Context, params pagination.Params, scope func(*gorm.DB) *gorm.DB) (*OrderList, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}
	limit := pagination.LimitWithBuffer(params.Limit)

	query := r.db.WithContext(ctx).
		Table("orders").
		Select(`orders.id, orders.url_id, order_statuses.name AS status, order_statuses.step,
			COUNT(order_items.id) AS item_count,
			COALESCE(SUM(order_items.price * order_items.quantity), 0) AS total_price,
			orders.created_at`).
		Joins("JOIN order_statuses ON order_statuses.id = orders.status_id").
		Joins("LEFT JOIN order_items ON order_items.order_id = orders.id").
		Group("orders.id, orders.url_id, order_statuses.name, order_statuses.step, orders.created_at").
		Order("orders.created_at DESC, orders.id DESC").
		Limit(limit)

	query = scope(query)

	if cursor != nil {
		query = query.Where(
			"(orders.created_at < ?) OR (orders.created_at = ? AND orders.id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}

	var rows []orderListRow
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

	summaries := make([]OrderSummary, 0, len(rows))
	for _, row := range rows {
		summaries = append(summaries, OrderSummary{
			URLID:      row.URLID,
			Status:     row.Status,
			Step:       row.Step,
			ItemCount:  row.ItemCount,
			TotalPrice: row.TotalPrice,
			CreatedAt:  row.CreatedAt,
		})
	}

	return &OrderList{Orders: summaries, NextCursor: nextCursor}, nil
}
