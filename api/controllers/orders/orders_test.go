package orders

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/middlemart/middlemart-backend/api/middleware"
	internalorders "github.com/middlemart/middlemart-backend/internal/orders"
	pkgerrors "github.com/middlemart/middlemart-backend/pkg/errors"
	"github.com/middlemart/middlemart-backend/pkg/pagination"
)

type stubOrdersService struct {
	create func(ctx context.Context, input internalorders.CreateOrderInput) error
	detail func(ctx context.Context, urlID uuid.UUID, username string) (*internalorders.OrderDetail, error)
	list   func(ctx context.Context, username string, scope internalorders.ListScope, params pagination.Params) (*internalorders.OrderList, error)
	update func(ctx context.Context, urlID uuid.UUID, username, text string) error
}

func (s *stubOrdersService) Create(ctx context.Context, input internalorders.CreateOrderInput) error {
	if s.create != nil {
		return s.create(ctx, input)
	}
	return nil
}

func (s *stubOrdersService) GetByURLID(ctx context.Context, urlID uuid.UUID, username string) (*internalorders.OrderDetail, error) {
	if s.detail != nil {
		return s.detail(ctx, urlID, username)
	}
	return &internalorders.OrderDetail{}, nil
}

func (s *stubOrdersService) List(ctx context.Context, username string, scope internalorders.ListScope, params pagination.Params) (*internalorders.OrderList, error) {
	if s.list != nil {
		return s.list(ctx, username, scope, params)
	}
	return &internalorders.OrderList{}, nil
}

func (s *stubOrdersService) UpdateAdditionalRequest(ctx context.Context, urlID uuid.UUID, username, text string) error {
	if s.update != nil {
		return s.update(ctx, urlID, username, text)
	}
	return nil
}

func (s *stubOrdersService) Advance(ctx context.Context, orderID uuid.UUID) error {
	return nil
}

func (s *stubOrdersService) AdvanceTx(ctx context.Context, tx *gorm.DB, orderID uuid.UUID) error {
	return nil
}

func authedRequest(method, target, body, username string) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if username != "" {
		req = req.WithContext(middleware.WithUsername(req.Context(), username))
	}
	return req
}

func withPathID(req *http.Request, urlID string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("urlId", urlID)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func TestCreateSubmitsCart(t *testing.T) {
	var captured internalorders.CreateOrderInput
	svc := &stubOrdersService{
		create: func(ctx context.Context, input internalorders.CreateOrderInput) error {
			captured = input
			return nil
		},
	}

	body := `{
		"additional_cost": "15.00",
		"additional_request": "gift wrap",
		"shipping_address": {
			"recipient_name": "Alice Example",
			"street_address1": "1 Main St",
			"city": "Springfield",
			"state": "IL",
			"zipcode": "62701",
			"country": "US"
		},
		"items": [{"productName": "Keyboard", "hash": "abc"}]
	}`
	req := authedRequest(http.MethodPost, "/api/v1/orders", body, "alice")

	resp := httptest.NewRecorder()
	Create(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
	if captured.Username != "alice" {
		t.Fatalf("unexpected username %q", captured.Username)
	}
	if captured.AdditionalCost != "15.00" {
		t.Fatalf("unexpected additional cost %q", captured.AdditionalCost)
	}
	if captured.ShippingAddress.City != "Springfield" {
		t.Fatalf("address not forwarded: %+v", captured.ShippingAddress)
	}
	if len(captured.Items) != 1 || captured.Items[0]["productName"] != "Keyboard" {
		t.Fatalf("items not forwarded: %+v", captured.Items)
	}
}

func TestCreateRequiresAuth(t *testing.T) {
	req := authedRequest(http.MethodPost, "/api/v1/orders", `{}`, "")

	resp := httptest.NewRecorder()
	Create(&stubOrdersService{}, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestCreateRejectsEmptyItems(t *testing.T) {
	body := `{
		"additional_cost": "15.00",
		"shipping_address": {
			"recipient_name": "Alice Example",
			"street_address1": "1 Main St",
			"city": "Springfield",
			"state": "IL",
			"zipcode": "62701",
			"country": "US"
		},
		"items": []
	}`
	req := authedRequest(http.MethodPost, "/api/v1/orders", body, "alice")

	resp := httptest.NewRecorder()
	Create(&stubOrdersService{}, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestListForwardsScopeAndPaging(t *testing.T) {
	svc := &stubOrdersService{
		list: func(ctx context.Context, username string, scope internalorders.ListScope, params pagination.Params) (*internalorders.OrderList, error) {
			if username != "alice" {
				t.Fatalf("unexpected username %q", username)
			}
			if scope != internalorders.ListScopeCustomer {
				t.Fatalf("unexpected scope %q", scope)
			}
			if params.Limit != 5 || params.Cursor != "abc" {
				t.Fatalf("unexpected params %+v", params)
			}
			return &internalorders.OrderList{Orders: []internalorders.OrderSummary{{Status: "finding_intermediary"}}}, nil
		},
	}

	req := authedRequest(http.MethodGet, "/api/v1/orders?for=customer&limit=5&cursor=abc", "", "alice")
	resp := httptest.NewRecorder()
	List(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}

	var envelope struct {
		Data internalorders.OrderList `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(envelope.Data.Orders) != 1 || envelope.Data.Orders[0].Status != "finding_intermediary" {
		t.Fatalf("unexpected orders in response")
	}
}

func TestListRejectsUnknownScope(t *testing.T) {
	req := authedRequest(http.MethodGet, "/api/v1/orders?for=seller", "", "alice")
	resp := httptest.NewRecorder()
	List(&stubOrdersService{}, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestDetailRejectsMalformedID(t *testing.T) {
	req := withPathID(authedRequest(http.MethodGet, "/api/v1/orders/nope", "", "alice"), "nope")
	resp := httptest.NewRecorder()
	Detail(&stubOrdersService{}, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestDetailReturnsOrder(t *testing.T) {
	urlID := uuid.New()
	svc := &stubOrdersService{
		detail: func(ctx context.Context, gotID uuid.UUID, username string) (*internalorders.OrderDetail, error) {
			if gotID != urlID {
				t.Fatalf("unexpected url id %s", gotID)
			}
			return &internalorders.OrderDetail{URLID: gotID, Customer: username}, nil
		},
	}

	req := withPathID(authedRequest(http.MethodGet, "/api/v1/orders/"+urlID.String(), "", "alice"), urlID.String())
	resp := httptest.NewRecorder()
	Detail(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}

	var envelope struct {
		Data internalorders.OrderDetail `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.Customer != "alice" {
		t.Fatalf("unexpected customer %q", envelope.Data.Customer)
	}
}

func TestUpdateAdditionalRequestMapsStateConflict(t *testing.T) {
	urlID := uuid.New()
	svc := &stubOrdersService{
		update: func(ctx context.Context, gotID uuid.UUID, username, text string) error {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "additional request is locked after intermediary selection")
		},
	}

	req := withPathID(authedRequest(http.MethodPatch, "/api/v1/orders/"+urlID.String()+"/additional-request", `{"additional_request": "still there?"}`, "alice"), urlID.String())
	resp := httptest.NewRecorder()
	UpdateAdditionalRequest(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 got %d", resp.Code)
	}
}
