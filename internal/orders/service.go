package orders

import (
	"context"
	"fmt"
	"html"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/middlemart/middlemart-backend/pkg/centrifugo"
	"github.com/middlemart/middlemart-backend/pkg/db/models"
	"github.com/middlemart/middlemart-backend/pkg/enums"
	pkgerrors "github.com/middlemart/middlemart-backend/pkg/errors"
	"github.com/middlemart/middlemart-backend/pkg/logger"
	"github.com/middlemart/middlemart-backend/pkg/pagination"
	"github.com/middlemart/middlemart-backend/pkg/types"
)

const (
	fiatTickerUSD   = "USD"
	cryptoTickerBTC = "BTC"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type publisher interface {
	Publish(ctx context.Context, channel string, data any) error
}

// ItemIngestor validates and persists one scraped cart item.
type ItemIngestor interface {
	Verify(item types.JSONMap) error
	Ingest(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, item types.JSONMap) error
}

// Service defines the order lifecycle operations.
type Service interface {
	Create(ctx context.Context, input CreateOrderInput) error
	GetByURLID(ctx context.Context, urlID uuid.UUID, username string) (*OrderDetail, error)
	List(ctx context.Context, username string, scope ListScope, params pagination.Params) (*OrderList, error)
	UpdateAdditionalRequest(ctx context.Context, urlID uuid.UUID, username, text string) error
	Advance(ctx context.Context, orderID uuid.UUID) error
	AdvanceTx(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) error
}

type service struct {
	repo     Repository
	tx       txRunner
	ingestor ItemIngestor
	bus      publisher
	logg     *logger.Logger
}

// NewService builds the order service with the required dependencies.
func NewService(repo Repository, tx txRunner, ingestor ItemIngestor, bus publisher, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if ingestor == nil {
		return nil, fmt.Errorf("item ingestor required")
	}
	if bus == nil {
		return nil, fmt.Errorf("notification publisher required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:     repo,
		tx:       tx,
		ingestor: ingestor,
		bus:      bus,
		logg:     logg,
	}, nil
}

// Create runs the full order creation workflow. All writes happen inside one
// transaction; progress markers stream to the customer's personal channel and
// are never allowed to fail the workflow.
func (s *service) Create(ctx context.Context, input CreateOrderInput) error {
	if input.Username == "" {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	ctx = s.logg.WithUsername(ctx, input.Username)
	channel := centrifugo.PersonalChannel(input.Username, input.Username)

	s.publishStage(ctx, channel, enums.CreationStageStarted)

	if len(input.Items) == 0 {
		s.publishStage(ctx, channel, enums.CreationStageFailed)
		return pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}

	additionalCost, err := parseMoney(input.AdditionalCost)
	if err != nil {
		s.publishStage(ctx, channel, enums.CreationStageFailed)
		return err
	}

	var urlID uuid.UUID
	txErr := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		fiat, err := repo.FindFiatCurrencyByTicker(ctx, fiatTickerUSD)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load fiat currency")
		}
		btc, err := repo.FindCryptoCurrencyByTicker(ctx, cryptoTickerBTC)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load crypto currency")
		}

		payment, err := repo.CreatePayment(ctx, &models.OrderPayment{
			FiatCurrencyID: fiat.ID,
			AdditionalCost: additionalCost,
		}, []models.CryptoCurrency{*btc})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order payment")
		}

		address, err := repo.GetOrCreateAddress(ctx, models.OrderAddress{
			Name:     input.ShippingAddress.RecipientName,
			Address1: input.ShippingAddress.StreetAddress1,
			Address2: input.ShippingAddress.StreetAddress2,
			City:     input.ShippingAddress.City,
			State:    input.ShippingAddress.State,
			ZipCode:  input.ShippingAddress.ZipCode,
			Country:  input.ShippingAddress.Country,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve shipping address")
		}

		customer, err := repo.FindUserByUsername(ctx, input.Username)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "customer not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load customer")
		}

		initial, err := repo.FindStatusByStep(ctx, models.StepFindingIntermediary)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load initial status")
		}

		order, err := repo.CreateOrder(ctx, &models.Order{
			URLID:             uuid.New(),
			StatusID:          initial.ID,
			AdditionalRequest: html.EscapeString(input.AdditionalRequest),
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}
		urlID = order.URLID

		if err := repo.CreateAddressLink(ctx, &models.OrderAddressLink{OrderID: order.ID, AddressID: address.ID}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "link address")
		}
		if err := repo.CreateCustomerLink(ctx, &models.OrderCustomerLink{OrderID: order.ID, CustomerID: customer.ID}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "link customer")
		}
		if err := repo.CreatePaymentLink(ctx, &models.OrderPaymentLink{OrderID: order.ID, PaymentID: payment.ID}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "link payment")
		}

		s.publishStage(ctx, channel, enums.CreationStageLinksPersisted)

		for _, item := range input.Items {
			if err := s.ingestor.Verify(item); err != nil {
				return err
			}
			if err := s.ingestor.Ingest(ctx, tx, order.ID, item); err != nil {
				return err
			}
		}

		return nil
	})
	if txErr != nil {
		s.logg.Error(ctx, "order creation failed", txErr)
		s.publishStage(ctx, channel, enums.CreationStageFailed)
		return txErr
	}

	ctx = s.logg.WithOrderID(ctx, urlID.String())
	s.logg.Info(ctx, "order created")
	s.publishStage(ctx, channel, enums.CreationStageCompleted)
	return nil
}

func (s *service) GetByURLID(ctx context.Context, urlID uuid.UUID, username string) (*OrderDetail, error) {
	order, err := s.findOrder(ctx, urlID)
	if err != nil {
		return nil, err
	}

	detail := buildDetail(order)
	if detail.Customer == username {
		return detail, nil
	}
	if detail.Intermediary != nil && *detail.Intermediary == username {
		return detail, nil
	}
	// open requests are visible to prospective intermediaries
	if order.Status.Step == models.StepFindingIntermediary {
		return detail, nil
	}
	return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to user")
}

func (s *service) List(ctx context.Context, username string, scope ListScope, params pagination.Params) (*OrderList, error) {
	user, err := s.repo.FindUserByUsername(ctx, username)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}

	switch scope {
	case ListScopeCustomer:
		list, err := s.repo.ListOrdersByCustomer(ctx, user.ID, params)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list customer orders")
		}
		return list, nil
	case ListScopeIntermediary:
		list, err := s.repo.ListOrdersByIntermediary(ctx, user.ID, params)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list intermediary orders")
		}
		return list, nil
	case ListScopeAll, "":
		list, err := s.repo.ListOrdersForUser(ctx, user.ID, params)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
		}
		return list, nil
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "scope must be all, customer or intermediary")
	}
}

// UpdateAdditionalRequest replaces the customer's note. Legal only while the
// order is still waiting for an intermediary.
func (s *service) UpdateAdditionalRequest(ctx context.Context, urlID uuid.UUID, username, text string) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := repo.FindOrderByURLID(ctx, urlID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if order.CustomerLink == nil || order.CustomerLink.Customer.Username != username {
			return pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to user")
		}
		if order.Status.Step != models.StepFindingIntermediary {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "additional request is locked after intermediary selection")
		}

		return tx.WithContext(ctx).
			Model(&models.Order{}).
			Where("id = ?", order.ID).
			Update("additional_request", html.EscapeString(text)).Error
	})
}

// Advance moves the order one step forward in its own transaction.
func (s *service) Advance(ctx context.Context, orderID uuid.UUID) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.AdvanceTx(ctx, tx, orderID)
	})
}

// AdvanceTx moves the order to the next step inside the caller's transaction.
// A missing successor step is a state conflict, never a skip.
func (s *service) AdvanceTx(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) error {
	repo := s.repo.WithTx(tx)

	order, err := repo.FindOrderByID(ctx, orderID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}

	next, err := repo.FindStatusByStep(ctx, order.Status.Step+1)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order has no further step")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load next status")
	}

	if err := repo.UpdateOrderStatus(ctx, order.ID, next.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
	}
	return nil
}

func (s *service) findOrder(ctx context.Context, urlID uuid.UUID) (*models.Order, error) {
	order, err := s.repo.FindOrderByURLID(ctx, urlID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

func (s *service) publishStage(ctx context.Context, channel string, stage enums.CreationStage) {
	if err := s.bus.Publish(ctx, channel, map[string]any{"current_status": stage.String()}); err != nil {
		s.logg.Warn(ctx, fmt.Sprintf("progress publish failed at stage %s", stage))
	}
}

func parseMoney(value string) (decimal.Decimal, error) {
	if value == "" {
		return decimal.Zero, nil
	}
	parsed, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "invalid money amount")
	}
	if parsed.IsNegative() {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "money amount cannot be negative")
	}
	return parsed.Round(2), nil
}

func buildDetail(order *models.Order) *OrderDetail {
	detail := &OrderDetail{
		URLID:             order.URLID,
		Status:            order.Status.Name,
		Step:              order.Status.Step,
		AdditionalRequest: order.AdditionalRequest,
		CandidateCount:    len(order.Candidates),
		CreatedAt:         order.CreatedAt,
	}

	if order.CustomerLink != nil {
		detail.Customer = order.CustomerLink.Customer.Username
	}
	if order.IntermediaryLink != nil {
		name := order.IntermediaryLink.Intermediary.Username
		detail.Intermediary = &name
	}

	items := make([]OrderItemDetail, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, OrderItemDetail{
			Name:     item.Name,
			ImageURL: item.ImageURL,
			URL:      item.SourceURL,
			Options:  item.Options,
			Quantity: item.Quantity,
			Currency: item.Currency.Ticker,
			Price:    item.Price.StringFixed(2),
			Retailer: item.Business.Name,
			Seller:   item.Seller.Name,
		})
	}
	detail.Items = items

	if order.AddressLink != nil {
		addr := order.AddressLink.Address
		detail.Address = &AddressDetail{
			RecipientName:  addr.Name,
			StreetAddress1: addr.Address1,
			StreetAddress2: addr.Address2,
			City:           addr.City,
			State:          addr.State,
			ZipCode:        addr.ZipCode,
			Country:        addr.Country,
		}
	}

	if order.PaymentLink != nil {
		payment := order.PaymentLink.Payment
		methods := make([]string, 0, len(payment.PaymentMethods))
		for _, method := range payment.PaymentMethods {
			methods = append(methods, method.Ticker)
		}
		detail.Payment = &PaymentDetail{
			FiatCurrency:   payment.FiatCurrency.Ticker,
			AdditionalCost: payment.AdditionalCost.StringFixed(2),
			Discount:       payment.Discount.StringFixed(2),
			PaymentMethods: methods,
		}
	}

	return detail
}
