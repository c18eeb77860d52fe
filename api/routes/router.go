package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/middlemart/middlemart-backend/api/controllers"
	bidcontrollers "github.com/middlemart/middlemart-backend/api/controllers/bids"
	ordercontrollers "github.com/middlemart/middlemart-backend/api/controllers/orders"
	paymentcontrollers "github.com/middlemart/middlemart-backend/api/controllers/payments"
	"github.com/middlemart/middlemart-backend/api/middleware"
	"github.com/middlemart/middlemart-backend/internal/bidding"
	"github.com/middlemart/middlemart-backend/internal/ingestion"
	"github.com/middlemart/middlemart-backend/internal/orders"
	"github.com/middlemart/middlemart-backend/internal/payments"
	"github.com/middlemart/middlemart-backend/pkg/config"
	"github.com/middlemart/middlemart-backend/pkg/db"
	"github.com/middlemart/middlemart-backend/pkg/logger"
	"github.com/middlemart/middlemart-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisP redis.Pinger,
	ingestionSvc ingestion.Service,
	ordersSvc orders.Service,
	biddingSvc bidding.Service,
	paymentsSvc payments.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Get("/healthz", controllers.Healthz(cfg, logg, dbP, redisP))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Post("/items/parse", controllers.ParseItem(ingestionSvc, logg))

		r.Route("/orders", func(r chi.Router) {
			r.Post("/", ordercontrollers.Create(ordersSvc, logg))
			r.Get("/", ordercontrollers.List(ordersSvc, logg))
			r.Route("/{urlId}", func(r chi.Router) {
				r.Get("/", ordercontrollers.Detail(ordersSvc, logg))
				r.Patch("/additional-request", ordercontrollers.UpdateAdditionalRequest(ordersSvc, logg))
				r.Post("/intermediary", bidcontrollers.Select(biddingSvc, logg))
				r.Post("/invoice", paymentcontrollers.GenerateInvoice(paymentsSvc, logg))
				r.Get("/invoice", paymentcontrollers.GetInvoice(paymentsSvc, logg))
			})
		})

		r.Route("/requests", func(r chi.Router) {
			r.Get("/", bidcontrollers.ListRequests(biddingSvc, logg))
			r.Route("/{urlId}/candidates", func(r chi.Router) {
				r.Post("/", bidcontrollers.Apply(biddingSvc, logg))
				r.Get("/", bidcontrollers.ListCandidates(biddingSvc, logg))
			})
		})
	})

	return r
}
