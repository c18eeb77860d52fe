package bids

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/middlemart/middlemart-backend/api/middleware"
	"github.com/middlemart/middlemart-backend/api/responses"
	"github.com/middlemart/middlemart-backend/api/validators"
	"github.com/middlemart/middlemart-backend/internal/bidding"
	pkgerrors "github.com/middlemart/middlemart-backend/pkg/errors"
	"github.com/middlemart/middlemart-backend/pkg/logger"
	"github.com/middlemart/middlemart-backend/pkg/pagination"
)

// ListRequests pages through open orders awaiting an intermediary.
func ListRequests(svc bidding.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "bidding service unavailable"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		cursor := strings.TrimSpace(r.URL.Query().Get("cursor"))

		list, err := svc.ListOpenRequests(r.Context(), pagination.Params{Limit: limit, Cursor: cursor})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, list)
	}
}

type applyRequest struct {
	Rate string `json:"rate" validate:"required"`
}

// Apply places a bid on an open order.
func Apply(svc bidding.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "bidding service unavailable"))
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

		var payload applyRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Apply(r.Context(), urlID, username, payload.Rate); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, nil)
	}
}

// ListCandidates returns the bids on the caller's order.
func ListCandidates(svc bidding.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "bidding service unavailable"))
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

		candidates, err := svc.ListCandidates(r.Context(), urlID, username)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, candidates)
	}
}

type selectRequest struct {
	Username string `json:"username" validate:"required"`
}

// Select assigns the chosen candidate as the order's intermediary.
func Select(svc bidding.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "bidding service unavailable"))
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

		var payload selectRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Select(r.Context(), urlID, username, payload.Username)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}
