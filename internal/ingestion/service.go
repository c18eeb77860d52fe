package ingestion

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/middlemart/middlemart-backend/pkg/centrifugo"
	"github.com/middlemart/middlemart-backend/pkg/db/models"
	pkgerrors "github.com/middlemart/middlemart-backend/pkg/errors"
	"github.com/middlemart/middlemart-backend/pkg/logger"
	"github.com/middlemart/middlemart-backend/pkg/scraper"
	"github.com/middlemart/middlemart-backend/pkg/types"
)

const (
	fiatTickerUSD   = "USD"
	dollarSymbol    = "$"
	undefinedPrice  = "undefined"
	defaultQuantity = 1
)

type scraperClient interface {
	Parse(ctx context.Context, productURL string) (*scraper.Product, error)
}

type publisher interface {
	Publish(ctx context.Context, channel string, data any) error
}

// Service validates, enriches and persists scraped items.
type Service interface {
	Verify(item types.JSONMap) error
	Ingest(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, item types.JSONMap) error
	RequestItemInfo(ctx context.Context, productURL, username string) error
}

type service struct {
	repo    Repository
	hasher  *Hasher
	scraper scraperClient
	bus     publisher
	logg    *logger.Logger
}

// NewService builds the ingestion service with the required dependencies.
func NewService(repo Repository, hasher *Hasher, scraperClient scraperClient, bus publisher, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("ingestion repository required")
	}
	if hasher == nil {
		return nil, fmt.Errorf("hasher required")
	}
	if scraperClient == nil {
		return nil, fmt.Errorf("scraper client required")
	}
	if bus == nil {
		return nil, fmt.Errorf("notification publisher required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:    repo,
		hasher:  hasher,
		scraper: scraperClient,
		bus:     bus,
		logg:    logg,
	}, nil
}

// Verify checks the keyed hash embedded in a submitted item. A mismatch is
// security relevant and aborts the enclosing order transaction.
func (s *service) Verify(item types.JSONMap) error {
	return s.hasher.VerifyPayload(item)
}

// Ingest persists one verified cart item inside the caller's transaction.
func (s *service) Ingest(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, item types.JSONMap) error {
	repo := s.repo.WithTx(tx)

	domain := stringField(item, "domain")
	retailerName, ok := ResolveRetailer(domain)
	if !ok {
		return pkgerrors.New(pkgerrors.CodeNotFound, "unregistered retailer")
	}

	business, err := repo.FindBusinessByName(ctx, retailerName)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return pkgerrors.New(pkgerrors.CodeNotFound, "unregistered retailer")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load retailer")
	}

	seller, err := repo.GetOrCreateSeller(ctx, stringField(item, "brand"))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve seller")
	}

	currency, err := repo.FindFiatCurrencyByTicker(ctx, fiatTickerUSD)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load fiat currency")
	}

	price, err := itemPrice(item)
	if err != nil {
		return err
	}

	quantity := intField(item, "amount", defaultQuantity)
	if quantity <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "item quantity must be positive")
	}

	orderItem := &models.OrderItem{
		OrderID:    orderID,
		BusinessID: business.ID,
		SellerID:   seller.ID,
		CurrencyID: currency.ID,
		Name:       stringField(item, "productName"),
		ImageURL:   stringField(item, "imageurl"),
		SourceURL:  stringField(item, "url"),
		Options:    extractSelectedOptions(item["options"]),
		Quantity:   quantity,
		Price:      price,
	}
	if err := repo.CreateOrderItem(ctx, orderItem); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order item")
	}
	return nil
}

// RequestItemInfo scrapes a product page, normalizes the payload, signs it and
// streams it back to the requester.
func (s *service) RequestItemInfo(ctx context.Context, productURL, username string) error {
	if username == "" {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	ctx = s.logg.WithUsername(ctx, username)

	product, err := s.scraper.Parse(ctx, productURL)
	if err != nil {
		return err
	}
	if product.Price == undefinedPrice {
		return pkgerrors.New(pkgerrors.CodeValidation, "product price unavailable")
	}

	symbol := ExtractCurrencySymbol(product.Price)
	price, err := ParsePrice(product.Price)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unparsable product price")
	}

	payload := types.JSONMap{
		"productName": product.ProductName,
		"brand":       product.Brand,
		"price":       price.String(),
		"imageurl":    product.ImageURL,
		"domain":      product.Domain,
		"currency":    symbol,
		"url":         ExtractProductRef(productURL),
		"options":     nonEmptyOptionGroups(product.Options),
	}

	if symbol != dollarSymbol {
		converted, err := s.convertToDollar(ctx, symbol, price)
		if err != nil {
			return err
		}
		payload["price_in_dollar"] = converted.String()
	}

	hash, err := s.hasher.SumPayload(payload)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "sign item payload")
	}
	payload["hash"] = hash
	payload["amount"] = defaultQuantity

	channel := centrifugo.PersonalChannel(username, username)
	if err := s.bus.Publish(ctx, channel, map[string]any{"item": payload}); err != nil {
		s.logg.Warn(ctx, "item publish failed")
		return err
	}

	s.logg.Info(ctx, "item payload published")
	return nil
}

// convertToDollar resolves a non-dollar price against the freshest stored
// exchange rate. Missing rates fail the request; the item cannot be priced.
func (s *service) convertToDollar(ctx context.Context, symbol string, price decimal.Decimal) (decimal.Decimal, error) {
	rate, err := s.repo.FindLatestRateBySymbol(ctx, symbol)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "no dollar conversion for currency")
		}
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load exchange rate")
	}
	if rate.Rate.IsZero() {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "no dollar conversion for currency")
	}
	return price.DivRound(rate.Rate, 2), nil
}

func itemPrice(item types.JSONMap) (decimal.Decimal, error) {
	raw := stringField(item, "price_in_dollar")
	if raw == "" {
		raw = stringField(item, "price")
	}
	if raw == "" {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "item price missing")
	}
	price, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "invalid item price")
	}
	return price.Round(2), nil
}

// extractSelectedOptions keeps only the chosen variant of each option group.
func extractSelectedOptions(raw any) types.JSONMap {
	groups, ok := raw.(map[string]any)
	if !ok {
		if typed, isTyped := raw.(types.JSONMap); isTyped {
			groups = typed
		} else {
			return types.JSONMap{}
		}
	}

	selected := types.JSONMap{}
	for group, options := range groups {
		entries, ok := options.([]any)
		if !ok {
			continue
		}
		for _, entry := range entries {
			option, ok := entry.(map[string]any)
			if !ok {
				continue
			}
			if _, chosen := option["selectedOption"]; chosen {
				selected[group] = option
				break
			}
		}
	}
	return selected
}

func nonEmptyOptionGroups(options map[string][]map[string]any) map[string][]map[string]any {
	kept := make(map[string][]map[string]any, len(options))
	for group, entries := range options {
		if len(entries) == 0 {
			continue
		}
		kept[group] = entries
	}
	return kept
}

func stringField(item types.JSONMap, key string) string {
	value, _ := item[key].(string)
	return value
}

func intField(item types.JSONMap, key string, fallback int) int {
	switch value := item[key].(type) {
	case int:
		return value
	case int64:
		return int(value)
	case float64:
		return int(value)
	default:
		return fallback
	}
}
