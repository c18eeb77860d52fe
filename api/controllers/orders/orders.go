package orders

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/middlemart/middlemart-backend/api/middleware"
	"github.com/middlemart/middlemart-backend/api/responses"
	"github.com/middlemart/middlemart-backend/api/validators"
	internalorders "github.com/middlemart/middlemart-backend/internal/orders"
	pkgerrors "github.com/middlemart/middlemart-backend/pkg/errors"
	"github.com/middlemart/middlemart-backend/pkg/logger"
	"github.com/middlemart/middlemart-backend/pkg/pagination"
	"github.com/middlemart/middlemart-backend/pkg/types"
)

type createOrderRequest struct {
	AdditionalCost    string                      `json:"additional_cost" validate:"required"`
	AdditionalRequest string                      `json:"additional_request"`
	ShippingAddress   internalorders.AddressInput `json:"shipping_address" validate:"required"`
	Items             []types.JSONMap             `json:"items" validate:"required,min=1"`
}

// Create runs the cart submission workflow. Progress streams to the caller's
// personal channel while the request itself returns once the workflow ends.
func Create(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		username := middleware.UsernameFromContext(r.Context())
		if username == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing"))
			return
		}

		var payload createOrderRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := internalorders.CreateOrderInput{
			Username:          username,
			AdditionalCost:    payload.AdditionalCost,
			AdditionalRequest: payload.AdditionalRequest,
			ShippingAddress:   payload.ShippingAddress,
			Items:             payload.Items,
		}

		if err := svc.Create(r.Context(), input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, nil)
	}
}

// List returns the caller's orders, scoped to either marketplace side.
func List(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		username := middleware.UsernameFromContext(r.Context())
		if username == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing"))
			return
		}

		scope, err := parseListScope(r.URL.Query().Get("for"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		cursor := strings.TrimSpace(r.URL.Query().Get("cursor"))

		list, err := svc.List(r.Context(), username, scope, pagination.Params{Limit: limit, Cursor: cursor})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, list)
	}
}

// Detail returns the step-aware order payload.
func Detail(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		username := middleware.UsernameFromContext(r.Context())
		if username == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing"))
			return
		}

		urlID, err := validators.ParsePathUUID(chi.URLParam(r, "urlId"), "url_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		detail, err := svc.GetByURLID(r.Context(), urlID, username)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, detail)
	}
}

type additionalRequestBody struct {
	AdditionalRequest string `json:"additional_request" validate:"required,max=2000"`
}

// UpdateAdditionalRequest lets the customer amend the free-text request while
// the order is still open.
func UpdateAdditionalRequest(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		username := middleware.UsernameFromContext(r.Context())
		if username == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing"))
			return
		}

		urlID, err := validators.ParsePathUUID(chi.URLParam(r, "urlId"), "url_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload additionalRequestBody
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.UpdateAdditionalRequest(r.Context(), urlID, username, payload.AdditionalRequest); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, nil)
	}
}

func parseListScope(raw string) (internalorders.ListScope, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "all":
		return internalorders.ListScopeAll, nil
	case "customer":
		return internalorders.ListScopeCustomer, nil
	case "intermediary":
		return internalorders.ListScopeIntermediary, nil
	default:
		return "", pkgerrors.New(pkgerrors.CodeValidation, "for must be all, customer or intermediary")
	}
}
