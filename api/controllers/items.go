package controllers

import (
	"net/http"

	"github.com/middlemart/middlemart-backend/api/middleware"
	"github.com/middlemart/middlemart-backend/api/responses"
	"github.com/middlemart/middlemart-backend/api/validators"
	"github.com/middlemart/middlemart-backend/internal/ingestion"
	pkgerrors "github.com/middlemart/middlemart-backend/pkg/errors"
	"github.com/middlemart/middlemart-backend/pkg/logger"
)

type parseItemRequest struct {
	URL string `json:"url" validate:"required,url"`
}

// ParseItem requests a scrape of a retailer product page. The hashed payload
// is streamed to the caller's personal channel, not returned inline.
func ParseItem(svc ingestion.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ingestion service unavailable"))
			return
		}

		username := middleware.UsernameFromContext(r.Context())
		if username == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing"))
			return
		}

		var payload parseItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.RequestItemInfo(r.Context(), payload.URL, username); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusAccepted, nil)
	}
}
