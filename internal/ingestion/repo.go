package ingestion

import (
	"context"

	"gorm.io/gorm"

	"github.com/middlemart/middlemart-backend/pkg/db/models"
)

// Repository defines the reference-data and item writes ingestion performs.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindBusinessByName(ctx context.Context, name string) (*models.Business, error)
	GetOrCreateSeller(ctx context.Context, name string) (*models.OrderItemSeller, error)
	FindFiatCurrencyByTicker(ctx context.Context, ticker string) (*models.FiatCurrency, error)
	FindLatestRateBySymbol(ctx context.Context, symbol string) (*models.FiatCurrencyRate, error)
	CreateOrderItem(ctx context.Context, item *models.OrderItem) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an ingestion repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindBusinessByName(ctx context.Context, name string) (*models.Business, error) {
	var business models.Business
	err := r.db.WithContext(ctx).
		Where("name = ?", name).
		First(&business).Error
	if err != nil {
		return nil, err
	}
	return &business, nil
}

func (r *repository) GetOrCreateSeller(ctx context.Context, name string) (*models.OrderItemSeller, error) {
	var seller models.OrderItemSeller
	err := r.db.WithContext(ctx).
		Where("name = ?", name).
		First(&seller).Error
	if err == nil {
		return &seller, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, err
	}
	seller = models.OrderItemSeller{Name: name}
	if err := r.db.WithContext(ctx).Create(&seller).Error; err != nil {
		return nil, err
	}
	return &seller, nil
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

func (r *repository) FindLatestRateBySymbol(ctx context.Context, symbol string) (*models.FiatCurrencyRate, error) {
	var rate models.FiatCurrencyRate
	err := r.db.WithContext(ctx).
		Joins("JOIN fiat_currencies ON fiat_currencies.id = fiat_currency_rates.fiat_currency_id").
		Where("fiat_currencies.symbol = ?", symbol).
		Order("fiat_currency_rates.created_at DESC").
		First(&rate).Error
	if err != nil {
		return nil, err
	}
	return &rate, nil
}

func (r *repository) CreateOrderItem(ctx context.Context, item *models.OrderItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}
