package payments

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/middlemart/middlemart-backend/pkg/btcpay"
	"github.com/middlemart/middlemart-backend/pkg/db/models"
	"github.com/middlemart/middlemart-backend/pkg/enums"
	pkgerrors "github.com/middlemart/middlemart-backend/pkg/errors"
	"github.com/middlemart/middlemart-backend/pkg/logger"
)

type fakePaymentsRepo struct {
	order         *models.Order
	latestInvoice *models.OrderPaymentInvoice
	candidates    []SettlementCandidate

	recorded []*models.OrderPaymentInvoice
}

func (f *fakePaymentsRepo) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakePaymentsRepo) FindOrderByURLID(ctx context.Context, urlID uuid.UUID) (*models.Order, error) {
	if f.order == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return f.order, nil
}

func (f *fakePaymentsRepo) FindOrderByID(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	if f.order == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return f.order, nil
}

func (f *fakePaymentsRepo) CreateInvoiceRecord(ctx context.Context, record *models.OrderPaymentInvoice) error {
	f.recorded = append(f.recorded, record)
	return nil
}

func (f *fakePaymentsRepo) FindLatestInvoice(ctx context.Context, paymentID uuid.UUID) (*models.OrderPaymentInvoice, error) {
	if f.latestInvoice == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return f.latestInvoice, nil
}

func (f *fakePaymentsRepo) ListSettlementCandidates(ctx context.Context, cutoff time.Time) ([]SettlementCandidate, error) {
	return f.candidates, nil
}

type fakeProvider struct {
	existing  []btcpay.Invoice
	created   *btcpay.Invoice
	invoices  map[string]*btcpay.Invoice
	methods   []btcpay.PaymentMethod
	createErr error
	getErr    error

	lastCreate btcpay.CreateInvoiceRequest
}

func (f *fakeProvider) ListInvoices(ctx context.Context, orderID string) ([]btcpay.Invoice, error) {
	return f.existing, nil
}

func (f *fakeProvider) CreateInvoice(ctx context.Context, req btcpay.CreateInvoiceRequest) (*btcpay.Invoice, error) {
	f.lastCreate = req
	if f.createErr != nil {
		return nil, f.createErr
	}
	return f.created, nil
}

func (f *fakeProvider) GetInvoice(ctx context.Context, invoiceID string) (*btcpay.Invoice, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	invoice, ok := f.invoices[invoiceID]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "invoice not found")
	}
	return invoice, nil
}

func (f *fakeProvider) GetPaymentMethods(ctx context.Context, invoiceID string) ([]btcpay.PaymentMethod, error) {
	return f.methods, nil
}

type fakeTxRunner struct{}

func (fakeTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type fakeAdvancer struct {
	advanced []uuid.UUID
	err      error
}

func (f *fakeAdvancer) AdvanceTx(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) error {
	if f.err != nil {
		return f.err
	}
	f.advanced = append(f.advanced, orderID)
	return nil
}

type fakePublisher struct {
	channel  string
	payloads []map[string]any
}

func (f *fakePublisher) Publish(ctx context.Context, channel string, data any) error {
	f.channel = channel
	if payload, ok := data.(map[string]any); ok {
		f.payloads = append(f.payloads, payload)
	}
	return nil
}

func payableOrder(step int16) *models.Order {
	payment := models.OrderPayment{
		ID:             uuid.New(),
		AdditionalCost: decimal.RequireFromString("15.00"),
		PaymentMethods: []models.CryptoCurrency{{ID: uuid.New(), Ticker: "BTC"}},
	}
	return &models.Order{
		ID:           uuid.New(),
		URLID:        uuid.New(),
		Status:       models.OrderStatus{ID: uuid.New(), Step: step},
		CustomerLink: &models.OrderCustomerLink{
			Customer: models.User{ID: uuid.New(), Username: "alice"},
		},
		PaymentLink: &models.OrderPaymentLink{Payment: payment},
		Items: []models.OrderItem{
			{Price: decimal.RequireFromString("59.99"), Quantity: 2},
			{Price: decimal.RequireFromString("10.00"), Quantity: 1},
		},
	}
}

func settledInvoice(id string) *btcpay.Invoice {
	return &btcpay.Invoice{
		ID:             id,
		Status:         enums.InvoiceStatusSettled.String(),
		Amount:         "144.98",
		Currency:       "USD",
		CreatedTime:    1700000000,
		ExpirationTime: 1700003600,
	}
}

func btcMethod() btcpay.PaymentMethod {
	return btcpay.PaymentMethod{
		CryptoCode: "BTC",
		Rate:       "64000.00",
		Due:        "0.00226",
		Amount:     "0.00226",
		TotalPaid:  "0",
	}
}

func newPaymentsService(t *testing.T, repo *fakePaymentsRepo, provider *fakeProvider, advancer *fakeAdvancer, bus *fakePublisher) Service {
	t.Helper()
	svc, err := NewService(repo, fakeTxRunner{}, provider, advancer, bus, logger.New(logger.Options{ServiceName: "test"}))
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func TestGenerateInvoiceIssuesForOrderTotal(t *testing.T) {
	order := payableOrder(models.StepFindingIntermediary)
	repo := &fakePaymentsRepo{order: order}
	invoice := settledInvoice("inv-1")
	invoice.Status = enums.InvoiceStatusNew.String()
	provider := &fakeProvider{created: invoice, methods: []btcpay.PaymentMethod{btcMethod()}}
	bus := &fakePublisher{}
	svc := newPaymentsService(t, repo, provider, &fakeAdvancer{}, bus)

	details, err := svc.GenerateInvoice(context.Background(), order.URLID, "alice")
	if err != nil {
		t.Fatalf("GenerateInvoice: %v", err)
	}

	// 15.00 + 59.99*2 + 10.00
	if provider.lastCreate.Amount != "144.98" {
		t.Fatalf("expected invoice amount 144.98, got %s", provider.lastCreate.Amount)
	}
	if provider.lastCreate.Currency != "USD" {
		t.Fatalf("expected USD invoice, got %s", provider.lastCreate.Currency)
	}
	if len(provider.lastCreate.Checkout.PaymentMethods) != 1 || provider.lastCreate.Checkout.PaymentMethods[0] != "BTC" {
		t.Fatal("expected BTC payment method forwarded")
	}
	if provider.lastCreate.Metadata["orderId"] != order.URLID.String() {
		t.Fatal("expected order id in invoice metadata")
	}

	if details.InvoiceID != "inv-1" {
		t.Fatalf("unexpected invoice id %s", details.InvoiceID)
	}
	if details.PaymentMethod["cryptoCode"] != "BTC" {
		t.Fatalf("expected BTC method payload, got %v", details.PaymentMethod)
	}

	if len(repo.recorded) != 1 || repo.recorded[0].InvoiceID != "inv-1" {
		t.Fatal("invoice reference not persisted")
	}
	if repo.recorded[0].OrderURLID != order.URLID {
		t.Fatal("invoice record missing order url id")
	}

	if len(bus.payloads) != 1 || bus.payloads[0]["status_code"] != 201 {
		t.Fatalf("expected success publish, got %v", bus.payloads)
	}
}

func TestGenerateInvoiceRejectsWhileActiveInvoiceExists(t *testing.T) {
	order := payableOrder(models.StepFindingIntermediary)
	repo := &fakePaymentsRepo{order: order}
	provider := &fakeProvider{existing: []btcpay.Invoice{{ID: "inv-0", Status: enums.InvoiceStatusNew.String()}}}
	bus := &fakePublisher{}
	svc := newPaymentsService(t, repo, provider, &fakeAdvancer{}, bus)

	_, err := svc.GenerateInvoice(context.Background(), order.URLID, "alice")
	if !pkgerrors.HasCode(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("expected state conflict, got %v", err)
	}
	if len(bus.payloads) != 1 || bus.payloads[0]["reason"] != "Valid invoice already exists" {
		t.Fatalf("expected failure publish, got %v", bus.payloads)
	}
}

func TestGenerateInvoiceReissuesAfterExpiry(t *testing.T) {
	order := payableOrder(models.StepFindingIntermediary)
	repo := &fakePaymentsRepo{order: order}
	invoice := settledInvoice("inv-2")
	invoice.Status = enums.InvoiceStatusNew.String()
	provider := &fakeProvider{
		existing: []btcpay.Invoice{{ID: "inv-0", Status: enums.InvoiceStatusExpired.String()}},
		created:  invoice,
		methods:  []btcpay.PaymentMethod{btcMethod()},
	}
	svc := newPaymentsService(t, repo, provider, &fakeAdvancer{}, &fakePublisher{})

	if _, err := svc.GenerateInvoice(context.Background(), order.URLID, "alice"); err != nil {
		t.Fatalf("GenerateInvoice: %v", err)
	}
}

func TestGenerateInvoiceRequiresOwnership(t *testing.T) {
	order := payableOrder(models.StepFindingIntermediary)
	repo := &fakePaymentsRepo{order: order}
	svc := newPaymentsService(t, repo, &fakeProvider{}, &fakeAdvancer{}, &fakePublisher{})

	_, err := svc.GenerateInvoice(context.Background(), order.URLID, "mallory")
	if !pkgerrors.HasCode(err, pkgerrors.CodeForbidden) {
		t.Fatalf("expected forbidden error, got %v", err)
	}
}

func TestGetInvoiceWithoutIssuedInvoice(t *testing.T) {
	order := payableOrder(models.StepFindingIntermediary)
	repo := &fakePaymentsRepo{order: order}
	svc := newPaymentsService(t, repo, &fakeProvider{}, &fakeAdvancer{}, &fakePublisher{})

	_, err := svc.GetInvoice(context.Background(), order.URLID, "alice")
	if !pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found error, got %v", err)
	}
}

func TestGetInvoiceFetchesLatestRecord(t *testing.T) {
	order := payableOrder(models.StepFindingIntermediary)
	repo := &fakePaymentsRepo{
		order:         order,
		latestInvoice: &models.OrderPaymentInvoice{InvoiceID: "inv-3"},
	}
	provider := &fakeProvider{
		invoices: map[string]*btcpay.Invoice{"inv-3": settledInvoice("inv-3")},
		methods:  []btcpay.PaymentMethod{btcMethod()},
	}
	svc := newPaymentsService(t, repo, provider, &fakeAdvancer{}, &fakePublisher{})

	details, err := svc.GetInvoice(context.Background(), order.URLID, "alice")
	if err != nil {
		t.Fatalf("GetInvoice: %v", err)
	}
	if details.InvoiceID != "inv-3" {
		t.Fatalf("unexpected invoice id %s", details.InvoiceID)
	}
	if details.PaymentStatus != enums.InvoiceStatusSettled.String() {
		t.Fatalf("unexpected status %s", details.PaymentStatus)
	}
	if len(repo.recorded) != 1 {
		t.Fatal("fetch must append a fresh invoice record")
	}
}

func TestSettleDueInvoicesAdvancesSettledOrders(t *testing.T) {
	order := payableOrder(models.StepFindingIntermediary)
	repo := &fakePaymentsRepo{
		order: order,
		candidates: []SettlementCandidate{
			{OrderID: order.ID, URLID: order.URLID, InvoiceID: "inv-settled"},
			{OrderID: uuid.New(), URLID: uuid.New(), InvoiceID: "inv-open"},
		},
	}
	open := settledInvoice("inv-open")
	open.Status = enums.InvoiceStatusNew.String()
	provider := &fakeProvider{invoices: map[string]*btcpay.Invoice{
		"inv-settled": settledInvoice("inv-settled"),
		"inv-open":    open,
	}}
	advancer := &fakeAdvancer{}
	svc := newPaymentsService(t, repo, provider, advancer, &fakePublisher{})

	if err := svc.SettleDueInvoices(context.Background(), 24*time.Hour); err != nil {
		t.Fatalf("SettleDueInvoices: %v", err)
	}
	if len(advancer.advanced) != 1 || advancer.advanced[0] != order.ID {
		t.Fatalf("expected only the settled order to advance, got %v", advancer.advanced)
	}
}

func TestSettleDueInvoicesSkipsAlreadyAdvancedOrder(t *testing.T) {
	order := payableOrder(models.StepDepositPayment)
	repo := &fakePaymentsRepo{
		order: order,
		candidates: []SettlementCandidate{
			{OrderID: order.ID, URLID: order.URLID, InvoiceID: "inv-settled"},
		},
	}
	provider := &fakeProvider{invoices: map[string]*btcpay.Invoice{
		"inv-settled": settledInvoice("inv-settled"),
	}}
	advancer := &fakeAdvancer{}
	svc := newPaymentsService(t, repo, provider, advancer, &fakePublisher{})

	if err := svc.SettleDueInvoices(context.Background(), 24*time.Hour); err != nil {
		t.Fatalf("SettleDueInvoices: %v", err)
	}
	if len(advancer.advanced) != 0 {
		t.Fatal("order past the deposit gate must not advance again")
	}
}

func TestSettleDueInvoicesCollectsFailuresAndContinues(t *testing.T) {
	order := payableOrder(models.StepFindingIntermediary)
	repo := &fakePaymentsRepo{
		order: order,
		candidates: []SettlementCandidate{
			{OrderID: uuid.New(), URLID: uuid.New(), InvoiceID: "inv-missing"},
			{OrderID: order.ID, URLID: order.URLID, InvoiceID: "inv-settled"},
		},
	}
	provider := &fakeProvider{invoices: map[string]*btcpay.Invoice{
		"inv-settled": settledInvoice("inv-settled"),
	}}
	advancer := &fakeAdvancer{}
	svc := newPaymentsService(t, repo, provider, advancer, &fakePublisher{})

	err := svc.SettleDueInvoices(context.Background(), 24*time.Hour)
	if err == nil {
		t.Fatal("expected aggregated error for the missing invoice")
	}
	if len(advancer.advanced) != 1 || advancer.advanced[0] != order.ID {
		t.Fatal("settled order must still advance despite the earlier failure")
	}
}

func TestSettleDueInvoicesNoCandidates(t *testing.T) {
	repo := &fakePaymentsRepo{}
	svc := newPaymentsService(t, repo, &fakeProvider{}, &fakeAdvancer{}, &fakePublisher{})

	if err := svc.SettleDueInvoices(context.Background(), 24*time.Hour); err != nil {
		t.Fatalf("SettleDueInvoices: %v", err)
	}
}

func TestGenerateInvoicePropagatesProviderFailure(t *testing.T) {
	order := payableOrder(models.StepFindingIntermediary)
	repo := &fakePaymentsRepo{order: order}
	provider := &fakeProvider{createErr: stderrors.New("gateway unreachable")}
	bus := &fakePublisher{}
	svc := newPaymentsService(t, repo, provider, &fakeAdvancer{}, bus)

	if _, err := svc.GenerateInvoice(context.Background(), order.URLID, "alice"); err == nil {
		t.Fatal("expected provider error to surface")
	}
	if len(bus.payloads) != 1 || bus.payloads[0]["reason"] != "Invoice creation failed" {
		t.Fatalf("expected failure publish, got %v", bus.payloads)
	}
}
