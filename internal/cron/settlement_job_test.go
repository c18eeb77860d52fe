package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/middlemart/middlemart-backend/pkg/logger"
)

type fakeSettler struct {
	lastWindow time.Duration
	err        error
	called     int
}

func (f *fakeSettler) SettleDueInvoices(ctx context.Context, window time.Duration) error {
	f.called++
	f.lastWindow = window
	return f.err
}

func TestSettlementJobPassesConfiguredWindow(t *testing.T) {
	settler := &fakeSettler{}
	job, err := NewSettlementJob(SettlementJobParams{
		Logger:   logger.New(logger.Options{ServiceName: "test"}),
		Payments: settler,
		Window:   6 * time.Hour,
	})
	if err != nil {
		t.Fatalf("NewSettlementJob: %v", err)
	}

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if settler.called != 1 {
		t.Fatalf("expected settler called once, got %d", settler.called)
	}
	if settler.lastWindow != 6*time.Hour {
		t.Fatalf("expected window 6h, got %s", settler.lastWindow)
	}
}

func TestSettlementJobDefaultsWindow(t *testing.T) {
	settler := &fakeSettler{}
	job, err := NewSettlementJob(SettlementJobParams{
		Logger:   logger.New(logger.Options{ServiceName: "test"}),
		Payments: settler,
	})
	if err != nil {
		t.Fatalf("NewSettlementJob: %v", err)
	}

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if settler.lastWindow != defaultSettlementWindow {
		t.Fatalf("expected default window, got %s", settler.lastWindow)
	}
}

func TestSettlementJobPropagatesErrors(t *testing.T) {
	settler := &fakeSettler{err: errors.New("boom")}
	job, err := NewSettlementJob(SettlementJobParams{
		Logger:   logger.New(logger.Options{ServiceName: "test"}),
		Payments: settler,
	})
	if err != nil {
		t.Fatalf("NewSettlementJob: %v", err)
	}

	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}
