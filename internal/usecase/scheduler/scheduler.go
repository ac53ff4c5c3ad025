// Package scheduler runs the background revaluation job: a cron-driven sweep
// that marks every product to its latest worst-of performance.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/simaogato/noteval-backend/internal/domain"
	"github.com/simaogato/noteval-backend/internal/usecase/evaluation"
)

// Scheduler drives the periodic revaluation sweep.
type Scheduler struct {
	products domain.ProductRepository
	prices   evaluation.PriceSource
	cron     *cron.Cron
	logger   *slog.Logger
	now      func() time.Time
}

// New creates a scheduler over the given product repository and price source.
func New(products domain.ProductRepository, prices evaluation.PriceSource) *Scheduler {
	return &Scheduler{
		products: products,
		prices:   prices,
		cron:     cron.New(),
		logger:   slog.Default(),
		now:      time.Now,
	}
}

// Start registers the revaluation sweep under the given cron spec and starts
// the cron loop. An empty spec disables the job.
func (s *Scheduler) Start(spec string) error {
	if spec == "" {
		s.logger.Info("revaluation job disabled")
		return nil
	}

	if _, err := s.cron.AddFunc(spec, func() { s.RunSweep(context.Background()) }); err != nil {
		return fmt.Errorf("register revaluation job: %w", err)
	}
	s.cron.Start()
	s.logger.Info("revaluation job scheduled", "spec", spec)
	return nil
}

// Stop stops the cron loop and waits for a running sweep to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// RunSweep marks every product once. Per-product failures are logged and do
// not stop the sweep; the sweep itself only fails when the product list cannot
// be loaded.
func (s *Scheduler) RunSweep(ctx context.Context) error {
	products, err := s.products.List(ctx)
	if err != nil {
		s.logger.Error("revaluation sweep failed to list products", "error", err)
		return err
	}

	today := s.now()
	for _, product := range products {
		s.markProduct(ctx, product, today)
	}
	s.logger.Info("revaluation sweep finished", "products", len(products))
	return nil
}

func (s *Scheduler) markProduct(ctx context.Context, product *domain.Product, date time.Time) {
	c := evaluation.NewContext(product, s.prices, evaluation.WithCurrentDate(date))
	c.Initialize(ctx)

	performance := c.UnderlyingPerformance(ctx, date)
	summary := c.Summary()
	s.logger.Info("product marked",
		"isin", product.ISIN,
		"date", date.Format("2006-01-02"),
		"worst_of_performance", performance.String(),
		"days_to_maturity", summary.DaysToMaturity,
		"errors", summary.ErrorCount)
}
