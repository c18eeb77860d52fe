package orders

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/middlemart/middlemart-backend/pkg/db/models"
	pkgerrors "github.com/middlemart/middlemart-backend/pkg/errors"
	"github.com/middlemart/middlemart-backend/pkg/logger"
	"github.com/middlemart/middlemart-backend/pkg/pagination"
	"github.com/middlemart/middlemart-backend/pkg/types"
)

type fakeOrdersRepo struct {
	statuses map[int16]*models.OrderStatus
	user     *models.User
	fiat     *models.FiatCurrency
	crypto   *models.CryptoCurrency
	order    *models.Order

	createdOrder    *models.Order
	createdPayment  *models.OrderPayment
	paymentMethods  []models.CryptoCurrency
	addressLink     *models.OrderAddressLink
	customerLink    *models.OrderCustomerLink
	paymentLink     *models.OrderPaymentLink
	statusUpdatedTo uuid.UUID

	listScope string
}

func (f *fakeOrdersRepo) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeOrdersRepo) FindStatusByStep(ctx context.Context, step int16) (*models.OrderStatus, error) {
	status, ok := f.statuses[step]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return status, nil
}

func (f *fakeOrdersRepo) CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error) {
	order.ID = uuid.New()
	f.createdOrder = order
	return order, nil
}

func (f *fakeOrdersRepo) UpdateOrderStatus(ctx context.Context, orderID, statusID uuid.UUID) error {
	f.statusUpdatedTo = statusID
	return nil
}

func (f *fakeOrdersRepo) FindOrderByURLID(ctx context.Context, urlID uuid.UUID) (*models.Order, error) {
	if f.order == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return f.order, nil
}

func (f *fakeOrdersRepo) FindOrderByID(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	if f.order == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return f.order, nil
}

func (f *fakeOrdersRepo) GetOrCreateAddress(ctx context.Context, address models.OrderAddress) (*models.OrderAddress, error) {
	address.ID = uuid.New()
	return &address, nil
}

func (f *fakeOrdersRepo) CreatePayment(ctx context.Context, payment *models.OrderPayment, methods []models.CryptoCurrency) (*models.OrderPayment, error) {
	payment.ID = uuid.New()
	f.createdPayment = payment
	f.paymentMethods = methods
	return payment, nil
}

func (f *fakeOrdersRepo) CreateAddressLink(ctx context.Context, link *models.OrderAddressLink) error {
	f.addressLink = link
	return nil
}

func (f *fakeOrdersRepo) CreateCustomerLink(ctx context.Context, link *models.OrderCustomerLink) error {
	f.customerLink = link
	return nil
}

func (f *fakeOrdersRepo) CreatePaymentLink(ctx context.Context, link *models.OrderPaymentLink) error {
	f.paymentLink = link
	return nil
}

func (f *fakeOrdersRepo) FindUserByUsername(ctx context.Context, username string) (*models.User, error) {
	if f.user == nil || f.user.Username != username {
		return nil, gorm.ErrRecordNotFound
	}
	return f.user, nil
}

func (f *fakeOrdersRepo) FindFiatCurrencyByTicker(ctx context.Context, ticker string) (*models.FiatCurrency, error) {
	if f.fiat == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return f.fiat, nil
}

func (f *fakeOrdersRepo) FindCryptoCurrencyByTicker(ctx context.Context, ticker string) (*models.CryptoCurrency, error) {
	if f.crypto == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return f.crypto, nil
}

func (f *fakeOrdersRepo) ListOrdersByCustomer(ctx context.Context, customerID uuid.UUID, params pagination.Params) (*OrderList, error) {
	f.listScope = "customer"
	return &OrderList{Orders: []OrderSummary{}}, nil
}

func (f *fakeOrdersRepo) ListOrdersByIntermediary(ctx context.Context, intermediaryID uuid.UUID, params pagination.Params) (*OrderList, error) {
	f.listScope = "intermediary"
	return &OrderList{Orders: []OrderSummary{}}, nil
}

func (f *fakeOrdersRepo) ListOrdersForUser(ctx context.Context, userID uuid.UUID, params pagination.Params) (*OrderList, error) {
	f.listScope = "all"
	return &OrderList{Orders: []OrderSummary{}}, nil
}

type fakeTxRunner struct{}

func (fakeTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type fakeIngestor struct {
	verifyErr error
	ingestErr error
	ingested  []types.JSONMap
}

func (f *fakeIngestor) Verify(item types.JSONMap) error { return f.verifyErr }

func (f *fakeIngestor) Ingest(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, item types.JSONMap) error {
	if f.ingestErr != nil {
		return f.ingestErr
	}
	f.ingested = append(f.ingested, item)
	return nil
}

type stagePublisher struct {
	channel string
	stages  []string
}

func (p *stagePublisher) Publish(ctx context.Context, channel string, data any) error {
	p.channel = channel
	if envelope, ok := data.(map[string]any); ok {
		if stage, ok := envelope["current_status"].(string); ok {
			p.stages = append(p.stages, stage)
		}
	}
	return nil
}

func seededOrdersRepo() *fakeOrdersRepo {
	repo := &fakeOrdersRepo{statuses: map[int16]*models.OrderStatus{}}
	for step := models.StepFindingIntermediary; step <= models.StepFinished; step++ {
		repo.statuses[step] = &models.OrderStatus{ID: uuid.New(), Step: step}
	}
	repo.user = &models.User{ID: uuid.New(), Username: "alice"}
	repo.fiat = &models.FiatCurrency{ID: uuid.New(), Ticker: "USD"}
	repo.crypto = &models.CryptoCurrency{ID: uuid.New(), Ticker: "BTC"}
	return repo
}

func newOrdersService(t *testing.T, repo *fakeOrdersRepo, ingestor *fakeIngestor, bus *stagePublisher) Service {
	t.Helper()
	svc, err := NewService(repo, fakeTxRunner{}, ingestor, bus, logger.New(logger.Options{ServiceName: "test"}))
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func cartItem() types.JSONMap {
	return types.JSONMap{
		"productName": "Mechanical Keyboard",
		"price":       "59.99",
		"domain":      "https://www.amazon.com/",
		"hash":        "deadbeef",
	}
}

func validCreateInput() CreateOrderInput {
	return CreateOrderInput{
		Username:          "alice",
		AdditionalCost:    "15.00",
		AdditionalRequest: "please gift wrap <3",
		ShippingAddress: AddressInput{
			RecipientName:  "Alice Example",
			StreetAddress1: "1 Main St",
			City:           "Springfield",
			State:          "IL",
			ZipCode:        "62701",
			Country:        "US",
		},
		Items: []types.JSONMap{cartItem()},
	}
}

func TestCreatePersistsAggregateAndStreamsProgress(t *testing.T) {
	repo := seededOrdersRepo()
	ingestor := &fakeIngestor{}
	bus := &stagePublisher{}
	svc := newOrdersService(t, repo, ingestor, bus)

	if err := svc.Create(context.Background(), validCreateInput()); err != nil {
		t.Fatalf("Create: %v", err)
	}

	if bus.channel != "alice#alice" {
		t.Fatalf("expected personal channel, got %s", bus.channel)
	}
	wantStages := []string{"0", "1", "2"}
	if len(bus.stages) != len(wantStages) {
		t.Fatalf("expected stages %v, got %v", wantStages, bus.stages)
	}
	for i, stage := range wantStages {
		if bus.stages[i] != stage {
			t.Fatalf("expected stages %v, got %v", wantStages, bus.stages)
		}
	}

	order := repo.createdOrder
	if order == nil {
		t.Fatal("expected order to be created")
	}
	if order.StatusID != repo.statuses[models.StepFindingIntermediary].ID {
		t.Fatal("new order must start at the finding-intermediary step")
	}
	if order.AdditionalRequest != "please gift wrap &lt;3" {
		t.Fatalf("expected escaped request, got %q", order.AdditionalRequest)
	}

	if repo.addressLink == nil || repo.addressLink.OrderID != order.ID {
		t.Fatal("address link missing")
	}
	if repo.customerLink == nil || repo.customerLink.CustomerID != repo.user.ID {
		t.Fatal("customer link missing")
	}
	if repo.paymentLink == nil || repo.paymentLink.PaymentID != repo.createdPayment.ID {
		t.Fatal("payment link missing")
	}
	if !repo.createdPayment.AdditionalCost.Equal(decimal.RequireFromString("15.00")) {
		t.Fatalf("expected additional cost 15.00, got %s", repo.createdPayment.AdditionalCost)
	}
	if len(repo.paymentMethods) != 1 || repo.paymentMethods[0].Ticker != "BTC" {
		t.Fatal("expected BTC payment method")
	}
	if len(ingestor.ingested) != 1 {
		t.Fatalf("expected 1 ingested item, got %d", len(ingestor.ingested))
	}
}

func TestCreateRejectsEmptyCart(t *testing.T) {
	bus := &stagePublisher{}
	svc := newOrdersService(t, seededOrdersRepo(), &fakeIngestor{}, bus)

	input := validCreateInput()
	input.Items = nil

	err := svc.Create(context.Background(), input)
	if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(bus.stages) != 2 || bus.stages[0] != "0" || bus.stages[1] != "-1" {
		t.Fatalf("expected start then failure marker, got %v", bus.stages)
	}
}

func TestCreateRejectsMalformedCost(t *testing.T) {
	svc := newOrdersService(t, seededOrdersRepo(), &fakeIngestor{}, &stagePublisher{})

	input := validCreateInput()
	input.AdditionalCost = "fifteen"

	err := svc.Create(context.Background(), input)
	if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCreateRollsBackOnIngestFailure(t *testing.T) {
	repo := seededOrdersRepo()
	ingestor := &fakeIngestor{verifyErr: pkgerrors.New(pkgerrors.CodeIntegrity, "item hash mismatch")}
	bus := &stagePublisher{}
	svc := newOrdersService(t, repo, ingestor, bus)

	err := svc.Create(context.Background(), validCreateInput())
	if !pkgerrors.HasCode(err, pkgerrors.CodeIntegrity) {
		t.Fatalf("expected integrity error, got %v", err)
	}
	last := bus.stages[len(bus.stages)-1]
	if last != "-1" {
		t.Fatalf("expected failure marker last, got %v", bus.stages)
	}
}

func TestCreateRequiresUsername(t *testing.T) {
	svc := newOrdersService(t, seededOrdersRepo(), &fakeIngestor{}, &stagePublisher{})

	input := validCreateInput()
	input.Username = ""

	err := svc.Create(context.Background(), input)
	if !pkgerrors.HasCode(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected unauthorized error, got %v", err)
	}
}

func openOrder(repo *fakeOrdersRepo, step int16) *models.Order {
	order := &models.Order{
		ID:           uuid.New(),
		URLID:        uuid.New(),
		StatusID:     repo.statuses[step].ID,
		Status:       *repo.statuses[step],
		CustomerLink: &models.OrderCustomerLink{
			CustomerID: repo.user.ID,
			Customer:   *repo.user,
		},
	}
	repo.order = order
	return order
}

func TestGetByURLIDAccessRules(t *testing.T) {
	cases := []struct {
		name     string
		step     int16
		assigned bool
		username string
		wantErr  bool
	}{
		{"customer sees own order", models.StepDepositPayment, true, "alice", false},
		{"intermediary sees assigned order", models.StepDepositPayment, true, "bob", false},
		{"stranger sees open request", models.StepFindingIntermediary, false, "carol", false},
		{"stranger blocked after selection", models.StepDepositPayment, true, "carol", true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo := seededOrdersRepo()
			order := openOrder(repo, tc.step)
			if tc.assigned {
				order.IntermediaryLink = &models.OrderIntermediaryLink{
					Intermediary: models.User{ID: uuid.New(), Username: "bob"},
				}
			}
			svc := newOrdersService(t, repo, &fakeIngestor{}, &stagePublisher{})

			detail, err := svc.GetByURLID(context.Background(), order.URLID, tc.username)
			if tc.wantErr {
				if !pkgerrors.HasCode(err, pkgerrors.CodeForbidden) {
					t.Fatalf("expected forbidden error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("GetByURLID: %v", err)
			}
			if detail.Customer != "alice" {
				t.Fatalf("expected customer alice, got %s", detail.Customer)
			}
		})
	}
}

func TestGetByURLIDMissingOrder(t *testing.T) {
	svc := newOrdersService(t, seededOrdersRepo(), &fakeIngestor{}, &stagePublisher{})

	_, err := svc.GetByURLID(context.Background(), uuid.New(), "alice")
	if !pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found error, got %v", err)
	}
}

func TestListDispatchesByScope(t *testing.T) {
	cases := []struct {
		scope ListScope
		want  string
	}{
		{ListScopeCustomer, "customer"},
		{ListScopeIntermediary, "intermediary"},
		{ListScopeAll, "all"},
		{ListScope(""), "all"},
	}

	for _, tc := range cases {
		repo := seededOrdersRepo()
		svc := newOrdersService(t, repo, &fakeIngestor{}, &stagePublisher{})

		if _, err := svc.List(context.Background(), "alice", tc.scope, pagination.Params{Limit: 10}); err != nil {
			t.Fatalf("List(%q): %v", tc.scope, err)
		}
		if repo.listScope != tc.want {
			t.Fatalf("List(%q) hit %s listing", tc.scope, repo.listScope)
		}
	}
}

func TestListRejectsUnknownScope(t *testing.T) {
	svc := newOrdersService(t, seededOrdersRepo(), &fakeIngestor{}, &stagePublisher{})

	_, err := svc.List(context.Background(), "alice", ListScope("seller"), pagination.Params{Limit: 10})
	if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestAdvanceTxStopsAtFinalStep(t *testing.T) {
	repo := seededOrdersRepo()
	openOrder(repo, models.StepFinished)
	svc := newOrdersService(t, repo, &fakeIngestor{}, &stagePublisher{})

	err := svc.Advance(context.Background(), repo.order.ID)
	if !pkgerrors.HasCode(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestAdvanceMovesOrderOneStep(t *testing.T) {
	repo := seededOrdersRepo()
	openOrder(repo, models.StepDepositPayment)
	svc := newOrdersService(t, repo, &fakeIngestor{}, &stagePublisher{})

	if err := svc.Advance(context.Background(), repo.order.ID); err != nil {
		t.Fatalf("Advance: %v", err)
	}
	if repo.statusUpdatedTo != repo.statuses[models.StepPurchasing].ID {
		t.Fatal("order did not move to the purchasing step")
	}
}

func TestParseMoney(t *testing.T) {
	if v, err := parseMoney(""); err != nil || !v.IsZero() {
		t.Fatalf("empty amount should be zero, got %v %v", v, err)
	}
	if v, err := parseMoney("12.345"); err != nil || v.String() != "12.35" {
		t.Fatalf("expected rounding to 12.35, got %v %v", v, err)
	}
	if _, err := parseMoney("-1.00"); !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for negative amount, got %v", err)
	}
	if _, err := parseMoney("abc"); !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for garbage, got %v", err)
	}
}
