package payments

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/middlemart/middlemart-backend/pkg/btcpay"
	"github.com/middlemart/middlemart-backend/pkg/centrifugo"
	"github.com/middlemart/middlemart-backend/pkg/db/models"
	"github.com/middlemart/middlemart-backend/pkg/enums"
	pkgerrors "github.com/middlemart/middlemart-backend/pkg/errors"
	"github.com/middlemart/middlemart-backend/pkg/logger"
)

const invoiceCurrency = "USD"

// payment method keys forwarded to the customer payload
var forwardedMethodKeys = []string{"cryptoCode", "rate", "due", "payments", "amount", "totalPaid"}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type publisher interface {
	Publish(ctx context.Context, channel string, data any) error
}

// Service defines invoice generation, retrieval and settlement polling.
type Service interface {
	GenerateInvoice(ctx context.Context, urlID uuid.UUID, username string) (*InvoiceDetails, error)
	GetInvoice(ctx context.Context, urlID uuid.UUID, username string) (*InvoiceDetails, error)
	SettleDueInvoices(ctx context.Context, window time.Duration) error
}

type service struct {
	repo     Repository
	tx       txRunner
	provider ProviderClient
	advancer StatusAdvancer
	bus      publisher
	logg     *logger.Logger
}

// NewService builds the payments service with the required dependencies.
func NewService(repo Repository, tx txRunner, provider ProviderClient, advancer StatusAdvancer, bus publisher, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("payments repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if provider == nil {
		return nil, fmt.Errorf("payment provider client required")
	}
	if advancer == nil {
		return nil, fmt.Errorf("status advancer required")
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
		provider: provider,
		advancer: advancer,
		bus:      bus,
		logg:     logg,
	}, nil
}

// GenerateInvoice issues a new provider invoice for the order total unless a
// live invoice already exists.
func (s *service) GenerateInvoice(ctx context.Context, urlID uuid.UUID, username string) (*InvoiceDetails, error) {
	order, err := s.loadOrder(ctx, urlID, username)
	if err != nil {
		return nil, err
	}

	ctx = s.logg.WithOrderID(ctx, urlID.String())
	channel := centrifugo.PersonalChannel(urlID.String(), username)

	existing, err := s.provider.ListInvoices(ctx, urlID.String())
	if err != nil {
		s.publishFailure(ctx, channel, "Invoice data retrieval failed")
		return nil, err
	}
	for _, invoice := range existing {
		status, parseErr := enums.ParseInvoiceStatus(invoice.Status)
		if parseErr != nil || !status.AllowsReissue() {
			s.publishFailure(ctx, channel, "Valid invoice already exists")
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "active invoice exists")
		}
	}

	payment := order.PaymentLink.Payment
	total := orderTotal(order)

	methods := make([]string, 0, len(payment.PaymentMethods))
	for _, method := range payment.PaymentMethods {
		methods = append(methods, method.Ticker)
	}

	invoice, err := s.provider.CreateInvoice(ctx, btcpay.CreateInvoiceRequest{
		Amount:   total.StringFixed(2),
		Currency: invoiceCurrency,
		Metadata: map[string]any{"orderId": urlID.String()},
		Checkout: btcpay.InvoiceCheckout{
			SpeedPolicy:    btcpay.SpeedPolicyHighSpeed,
			PaymentMethods: methods,
		},
	})
	if err != nil {
		s.publishFailure(ctx, channel, "Invoice creation failed")
		return nil, err
	}

	details, err := s.recordAndDescribe(ctx, channel, payment.ID, urlID, invoice, "Invoice creation failed")
	if err != nil {
		return nil, err
	}

	s.logg.Info(ctx, "invoice generated")
	return details, nil
}

// GetInvoice fetches the order's latest invoice from the provider and logs
// the fetch as a fresh invoice record.
func (s *service) GetInvoice(ctx context.Context, urlID uuid.UUID, username string) (*InvoiceDetails, error) {
	order, err := s.loadOrder(ctx, urlID, username)
	if err != nil {
		return nil, err
	}

	ctx = s.logg.WithOrderID(ctx, urlID.String())
	channel := centrifugo.PersonalChannel(urlID.String(), username)

	payment := order.PaymentLink.Payment
	latest, err := s.repo.FindLatestInvoice(ctx, payment.ID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no invoice issued for order")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load latest invoice")
	}

	invoice, err := s.provider.GetInvoice(ctx, latest.InvoiceID)
	if err != nil {
		s.publishFailure(ctx, channel, "Invoice data retrieval failed")
		return nil, err
	}

	return s.recordAndDescribe(ctx, channel, payment.ID, urlID, invoice, "Invoice data retrieval failed")
}

// SettleDueInvoices polls recent intermediary-assigned orders still waiting
// on deposit and advances any whose invoice the provider reports settled.
// One order's failure never aborts the rest.
func (s *service) SettleDueInvoices(ctx context.Context, window time.Duration) error {
	cutoff := time.Now().Add(-window)

	candidates, err := s.repo.ListSettlementCandidates(ctx, cutoff)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list settlement candidates")
	}
	if len(candidates) == 0 {
		s.logg.Info(ctx, "no orders awaiting settlement")
		return nil
	}

	var errs error
	settled := 0
	for _, candidate := range candidates {
		orderCtx := s.logg.WithOrderID(ctx, candidate.URLID.String())

		invoice, err := s.provider.GetInvoice(orderCtx, candidate.InvoiceID)
		if err != nil {
			s.logg.Error(orderCtx, "settlement status fetch failed", err)
			errs = multierr.Append(errs, err)
			continue
		}
		if invoice.Status != enums.InvoiceStatusSettled.String() {
			continue
		}

		if err := s.settleOrder(orderCtx, candidate.OrderID); err != nil {
			s.logg.Error(orderCtx, "settlement advance failed", err)
			errs = multierr.Append(errs, err)
			continue
		}
		settled++
	}

	s.logg.Info(ctx, fmt.Sprintf("settlement poll finished: %d/%d advanced", settled, len(candidates)))
	return errs
}

// settleOrder advances an order in its own transaction, rechecking the step
// so a concurrently-advanced order is not pushed twice.
func (s *service) settleOrder(ctx context.Context, orderID uuid.UUID) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := repo.FindOrderByID(ctx, orderID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload order")
		}
		if order.Status.Step != models.StepFindingIntermediary {
			return nil
		}
		return s.advancer.AdvanceTx(ctx, tx, orderID)
	})
}

func (s *service) loadOrder(ctx context.Context, urlID uuid.UUID, username string) (*models.Order, error) {
	order, err := s.repo.FindOrderByURLID(ctx, urlID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order.CustomerLink == nil || order.CustomerLink.Customer.Username != username {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to user")
	}
	if order.PaymentLink == nil {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order has no payment terms")
	}
	return order, nil
}

// recordAndDescribe persists the invoice reference, assembles the customer
// payload and publishes it to the order channel.
func (s *service) recordAndDescribe(ctx context.Context, channel string, paymentID, urlID uuid.UUID, invoice *btcpay.Invoice, failureReason string) (*InvoiceDetails, error) {
	methods, err := s.provider.GetPaymentMethods(ctx, invoice.ID)
	if err != nil {
		s.publishFailure(ctx, channel, failureReason)
		return nil, err
	}
	if len(methods) == 0 {
		s.publishFailure(ctx, channel, failureReason)
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "invoice has no payment methods")
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.repo.WithTx(tx).CreateInvoiceRecord(ctx, &models.OrderPaymentInvoice{
			PaymentID:  paymentID,
			InvoiceID:  invoice.ID,
			OrderURLID: urlID,
		})
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record invoice")
	}

	details := &InvoiceDetails{
		InvoiceID:        invoice.ID,
		TotalCost:        invoice.Amount,
		Currency:         invoice.Currency,
		InvoiceCreatedAt: invoice.CreatedTime,
		InvoiceExpiresAt: invoice.ExpirationTime,
		PaymentStatus:    invoice.Status,
		PaymentMethod:    forwardMethod(methods[0]),
	}

	if err := s.bus.Publish(ctx, channel, map[string]any{"status_code": 201, "data": details}); err != nil {
		s.logg.Warn(ctx, "invoice publish failed")
	}
	return details, nil
}

func (s *service) publishFailure(ctx context.Context, channel, reason string) {
	if err := s.bus.Publish(ctx, channel, map[string]any{"status_code": 400, "reason": reason}); err != nil {
		s.logg.Warn(ctx, "failure publish failed")
	}
}

func orderTotal(order *models.Order) decimal.Decimal {
	total := order.PaymentLink.Payment.AdditionalCost
	for _, item := range order.Items {
		total = total.Add(item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return total
}

func forwardMethod(method btcpay.PaymentMethod) map[string]any {
	full := map[string]any{
		"cryptoCode": method.CryptoCode,
		"rate":       method.Rate,
		"due":        method.Due,
		"amount":     method.Amount,
		"totalPaid":  method.TotalPaid,
		"payments":   method.Payments,
	}
	kept := make(map[string]any, len(forwardedMethodKeys))
	for _, key := range forwardedMethodKeys {
		kept[key] = full[key]
	}
	return kept
}
