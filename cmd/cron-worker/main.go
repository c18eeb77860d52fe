package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/middlemart/middlemart-backend/internal/cron"
	"github.com/middlemart/middlemart-backend/internal/ingestion"
	"github.com/middlemart/middlemart-backend/internal/orders"
	"github.com/middlemart/middlemart-backend/internal/payments"
	"github.com/middlemart/middlemart-backend/pkg/btcpay"
	"github.com/middlemart/middlemart-backend/pkg/centrifugo"
	"github.com/middlemart/middlemart-backend/pkg/config"
	"github.com/middlemart/middlemart-backend/pkg/db"
	"github.com/middlemart/middlemart-backend/pkg/logger"
	"github.com/middlemart/middlemart-backend/pkg/metrics"
	"github.com/middlemart/middlemart-backend/pkg/migrate"
	"github.com/middlemart/middlemart-backend/pkg/redis"
	"github.com/middlemart/middlemart-backend/pkg/scraper"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	bus, err := centrifugo.NewClient(
		cfg.Centrifugo.APIKey,
		centrifugo.WithAPIURL(cfg.Centrifugo.APIURL),
		centrifugo.WithHTTPClient(&http.Client{Timeout: cfg.Centrifugo.Timeout}),
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create centrifugo client", err)
		os.Exit(1)
	}

	scraperClient, err := scraper.NewClient(
		cfg.Scraper.BaseURL,
		scraper.WithHTTPClient(&http.Client{Timeout: cfg.Scraper.Timeout}),
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create scraper client", err)
		os.Exit(1)
	}

	btcpayClient, err := btcpay.NewClient(
		cfg.BTCPay.BaseURL,
		cfg.BTCPay.StoreID,
		cfg.BTCPay.Token,
		btcpay.WithHTTPClient(&http.Client{Timeout: cfg.BTCPay.Timeout}),
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create btcpay client", err)
		os.Exit(1)
	}

	hasher, err := ingestion.NewHasher(cfg.Items.HashSecret)
	if err != nil {
		logg.Error(context.Background(), "failed to create item hasher", err)
		os.Exit(1)
	}

	ingestionSvc, err := ingestion.NewService(ingestion.NewRepository(dbClient.DB()), hasher, scraperClient, bus, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create ingestion service", err)
		os.Exit(1)
	}

	ordersSvc, err := orders.NewService(orders.NewRepository(dbClient.DB()), dbClient, ingestionSvc, bus, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	paymentsSvc, err := payments.NewService(payments.NewRepository(dbClient.DB()), dbClient, btcpayClient, ordersSvc, bus, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create payments service", err)
		os.Exit(1)
	}

	settlementJob, err := cron.NewSettlementJob(cron.SettlementJobParams{
		Logger:   logg,
		Payments: paymentsSvc,
		Window:   cfg.Cron.SettlementWindow,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create settlement job", err)
		os.Exit(1)
	}

	metricsCollector := metrics.NewCronJobMetrics(prometheus.DefaultRegisterer)
	lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey("cron-worker"), 0)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: cron.NewRegistry(settlementJob),
		Lock:     lock,
		Metrics:  metricsCollector,
		Interval: cfg.Cron.Interval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}
