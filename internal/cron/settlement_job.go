package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/middlemart/middlemart-backend/pkg/logger"
)

const defaultSettlementWindow = 24 * time.Hour

type invoiceSettler interface {
	SettleDueInvoices(ctx context.Context, window time.Duration) error
}

// SettlementJobParams configure the invoice settlement job.
type SettlementJobParams struct {
	Logger   *logger.Logger
	Payments invoiceSettler
	Window   time.Duration
}

// NewSettlementJob builds the job that polls the payment provider for
// settled deposits and advances the matching orders.
func NewSettlementJob(params SettlementJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Payments == nil {
		return nil, fmt.Errorf("payments service required")
	}
	window := params.Window
	if window <= 0 {
		window = defaultSettlementWindow
	}
	return &settlementJob{
		logg:     params.Logger,
		payments: params.Payments,
		window:   window,
	}, nil
}

type settlementJob struct {
	logg     *logger.Logger
	payments invoiceSettler
	window   time.Duration
}

func (j *settlementJob) Name() string { return "invoice-settlement" }

func (j *settlementJob) Run(ctx context.Context) error {
	if err := j.payments.SettleDueInvoices(ctx, j.window); err != nil {
		return fmt.Errorf("invoice settlement: %w", err)
	}
	return nil
}
