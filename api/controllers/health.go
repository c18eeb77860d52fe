package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/middlemart/middlemart-backend/api/responses"
	"github.com/middlemart/middlemart-backend/pkg/config"
	"github.com/middlemart/middlemart-backend/pkg/db"
	"github.com/middlemart/middlemart-backend/pkg/logger"
	"github.com/middlemart/middlemart-backend/pkg/redis"
)

const healthCheckTimeout = 2 * time.Second

// Healthz reports liveness plus the state of the hard dependencies.
func Healthz(cfg *config.Config, logg *logger.Logger, dbP db.Pinger, redisP redis.Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-MiddleMart-Env", cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		defer cancel()

		checks := map[string]string{}
		healthy := true

		checks["database"] = pingStatus(ctx, logg, "database", func(ctx context.Context) error {
			if dbP == nil {
				return nil
			}
			return dbP.Ping(ctx)
		}, &healthy)
		checks["redis"] = pingStatus(ctx, logg, "redis", func(ctx context.Context) error {
			if redisP == nil {
				return nil
			}
			return redisP.Ping(ctx)
		}, &healthy)

		status := "ok"
		httpStatus := http.StatusOK
		if !healthy {
			status = "degraded"
			httpStatus = http.StatusServiceUnavailable
		}

		responses.WriteSuccessStatus(w, httpStatus, map[string]any{
			"status": status,
			"checks": checks,
		})
	}
}

func pingStatus(ctx context.Context, logg *logger.Logger, name string, ping func(context.Context) error, healthy *bool) string {
	if err := ping(ctx); err != nil {
		*healthy = false
		if logg != nil {
			logg.Error(logg.WithField(ctx, "dependency", name), "health check failed", err)
		}
		return "unavailable"
	}
	return "ok"
}
