package bids

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/middlemart/middlemart-backend/api/middleware"
	"github.com/middlemart/middlemart-backend/internal/bidding"
	pkgerrors "github.com/middlemart/middlemart-backend/pkg/errors"
	"github.com/middlemart/middlemart-backend/pkg/pagination"
)

type stubBiddingService struct {
	apply          func(ctx context.Context, urlID uuid.UUID, username, ratePercent string) error
	listCandidates func(ctx context.Context, urlID uuid.UUID, username string) ([]bidding.CandidateView, error)
	selectFn       func(ctx context.Context, urlID uuid.UUID, callerUsername, chosenUsername string) (*bidding.SelectionResult, error)
	listRequests   func(ctx context.Context, params pagination.Params) (*bidding.RequestList, error)
}

func (s *stubBiddingService) Apply(ctx context.Context, urlID uuid.UUID, username, ratePercent string) error {
	if s.apply != nil {
		return s.apply(ctx, urlID, username, ratePercent)
	}
	return nil
}

func (s *stubBiddingService) ListCandidates(ctx context.Context, urlID uuid.UUID, username string) ([]bidding.CandidateView, error) {
	if s.listCandidates != nil {
		return s.listCandidates(ctx, urlID, username)
	}
	return nil, nil
}

func (s *stubBiddingService) Select(ctx context.Context, urlID uuid.UUID, callerUsername, chosenUsername string) (*bidding.SelectionResult, error) {
	if s.selectFn != nil {
		return s.selectFn(ctx, urlID, callerUsername, chosenUsername)
	}
	return &bidding.SelectionResult{}, nil
}

func (s *stubBiddingService) ListOpenRequests(ctx context.Context, params pagination.Params) (*bidding.RequestList, error) {
	if s.listRequests != nil {
		return s.listRequests(ctx, params)
	}
	return &bidding.RequestList{}, nil
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

func TestApplyForwardsRate(t *testing.T) {
	urlID := uuid.New()
	svc := &stubBiddingService{
		apply: func(ctx context.Context, gotID uuid.UUID, username, ratePercent string) error {
			if gotID != urlID {
				t.Fatalf("unexpected url id %s", gotID)
			}
			if username != "bob" {
				t.Fatalf("unexpected username %q", username)
			}
			if ratePercent != "12.5" {
				t.Fatalf("unexpected rate %q", ratePercent)
			}
			return nil
		},
	}

	req := withPathID(authedRequest(http.MethodPost, "/api/v1/requests/"+urlID.String()+"/candidates", `{"rate": "12.5"}`, "bob"), urlID.String())
	resp := httptest.NewRecorder()
	Apply(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestApplyMapsForbidden(t *testing.T) {
	urlID := uuid.New()
	svc := &stubBiddingService{
		apply: func(ctx context.Context, gotID uuid.UUID, username, ratePercent string) error {
			return pkgerrors.New(pkgerrors.CodeForbidden, "customers cannot bid on their own orders")
		},
	}

	req := withPathID(authedRequest(http.MethodPost, "/api/v1/requests/"+urlID.String()+"/candidates", `{"rate": "12.5"}`, "alice"), urlID.String())
	resp := httptest.NewRecorder()
	Apply(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", resp.Code)
	}
}

func TestApplyRequiresRate(t *testing.T) {
	urlID := uuid.New()
	req := withPathID(authedRequest(http.MethodPost, "/api/v1/requests/"+urlID.String()+"/candidates", `{}`, "bob"), urlID.String())
	resp := httptest.NewRecorder()
	Apply(&stubBiddingService{}, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestListRequestsForwardsPaging(t *testing.T) {
	svc := &stubBiddingService{
		listRequests: func(ctx context.Context, params pagination.Params) (*bidding.RequestList, error) {
			if params.Limit != 5 || params.Cursor != "abc" {
				t.Fatalf("unexpected params %+v", params)
			}
			return &bidding.RequestList{Requests: []bidding.RequestSummary{{Customer: "alice"}}}, nil
		},
	}

	req := authedRequest(http.MethodGet, "/api/v1/requests?limit=5&cursor=abc", "", "bob")
	resp := httptest.NewRecorder()
	ListRequests(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}

	var envelope struct {
		Data bidding.RequestList `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(envelope.Data.Requests) != 1 || envelope.Data.Requests[0].Customer != "alice" {
		t.Fatalf("unexpected requests in response")
	}
}

func TestListCandidatesRequiresAuth(t *testing.T) {
	urlID := uuid.New()
	req := withPathID(authedRequest(http.MethodGet, "/api/v1/requests/"+urlID.String()+"/candidates", "", ""), urlID.String())
	resp := httptest.NewRecorder()
	ListCandidates(&stubBiddingService{}, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestSelectReturnsAssignment(t *testing.T) {
	urlID := uuid.New()
	svc := &stubBiddingService{
		selectFn: func(ctx context.Context, gotID uuid.UUID, callerUsername, chosenUsername string) (*bidding.SelectionResult, error) {
			if callerUsername != "alice" || chosenUsername != "bob" {
				t.Fatalf("unexpected selection %q -> %q", callerUsername, chosenUsername)
			}
			return &bidding.SelectionResult{URLID: gotID, Customer: callerUsername, Intermediary: chosenUsername, Step: 2}, nil
		},
	}

	req := withPathID(authedRequest(http.MethodPost, "/api/v1/orders/"+urlID.String()+"/intermediary", `{"username": "bob"}`, "alice"), urlID.String())
	resp := httptest.NewRecorder()
	Select(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}

	var envelope struct {
		Data bidding.SelectionResult `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.Intermediary != "bob" || envelope.Data.Step != 2 {
		t.Fatalf("unexpected result %+v", envelope.Data)
	}
}
