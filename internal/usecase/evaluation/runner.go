package evaluation

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/simaogato/noteval-backend/internal/domain"
)

// Runner walks a product's observation schedule and evaluates the configured
// conditions per date. It is the in-process evaluation driver behind the HTTP
// API and the revaluation job.
type Runner struct {
	prices PriceSource
	logger *slog.Logger
}

// NewRunner creates a runner over the given price source.
func NewRunner(prices PriceSource) *Runner {
	return &Runner{prices: prices, logger: slog.Default()}
}

// Run evaluates the product over its observation schedule, in date order, and
// returns the full report. The run stops early when an autocall triggers:
// later observations never happen for an autocalled product. Only an invalid
// product or schedule fails the run; missing market data degrades per the
// context's fail-open rules and surfaces in the report's error counts.
func (r *Runner) Run(ctx context.Context, product *domain.Product, schedule []domain.Observation) (*domain.RunReport, error) {
	if err := product.Validate(); err != nil {
		return nil, fmt.Errorf("invalid product: %w", err)
	}
	for i := range schedule {
		for j := range schedule[i].Conditions {
			if err := schedule[i].Conditions[j].Validate(); err != nil {
				return nil, fmt.Errorf("invalid condition on observation %s: %w",
					schedule[i].Date.Format("2006-01-02"), err)
			}
		}
	}

	ordered := make([]domain.Observation, len(schedule))
	copy(ordered, schedule)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Date.Before(ordered[j].Date) })

	c := NewContext(product, r.prices)
	c.Initialize(ctx)

	report := &domain.RunReport{
		ProductISIN:  product.ISIN,
		TotalCoupons: decimal.Zero,
	}

	for _, obs := range ordered {
		c.SetObservation(obs.Date, map[string]any{"conditions": len(obs.Conditions)})

		outcome := domain.ObservationOutcome{Date: obs.Date}
		for _, cond := range obs.Conditions {
			result := EvaluateCondition(ctx, c, cond)
			outcome.Results = append(outcome.Results, result)

			switch cond.Type {
			case domain.ConditionMemoryCouponBarrier:
				if result.Triggered {
					report.TotalCoupons = report.TotalCoupons.Add(result.Amount)
				}
			case domain.ConditionAutocallLevel, domain.ConditionMemoryAutocallLevel:
				if result.Triggered {
					outcome.Autocalled = true
					report.TotalCoupons = report.TotalCoupons.Add(result.Amount)
				}
			case domain.ConditionLowStrikeRedemption:
				amount := result.Amount
				report.FinalRedemption = &amount
			}
		}

		report.Observations = append(report.Observations, outcome)

		if outcome.Autocalled {
			date := obs.Date
			report.Autocalled = true
			report.AutocallDate = &date
			r.logger.Info("product autocalled",
				"isin", product.ISIN, "date", obs.Date.Format("2006-01-02"))
			break
		}
	}

	report.Summary = c.Summary()
	r.logger.Info("evaluation run finished",
		"isin", product.ISIN,
		"run", c.RunID(),
		"observations", len(report.Observations),
		"autocalled", report.Autocalled,
		"errors", report.Summary.ErrorCount)
	return report, nil
}
