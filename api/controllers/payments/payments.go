package payments

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/middlemart/middlemart-backend/api/middleware"
	"github.com/middlemart/middlemart-backend/api/responses"
	"github.com/middlemart/middlemart-backend/api/validators"
	internalpayments "github.com/middlemart/middlemart-backend/internal/payments"
	pkgerrors "github.com/middlemart/middlemart-backend/pkg/errors"
	"github.com/middlemart/middlemart-backend/pkg/logger"
)

// GenerateInvoice issues a new crypto invoice for the order total.
func GenerateInvoice(svc internalpayments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments service unavailable"))
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

		details, err := svc.GenerateInvoice(r.Context(), urlID, username)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, details)
	}
}

// GetInvoice returns the order's latest invoice as the provider reports it.
func GetInvoice(svc internalpayments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments service unavailable"))
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

		details, err := svc.GetInvoice(r.Context(), urlID, username)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, details)
	}
}
