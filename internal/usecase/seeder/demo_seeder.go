package seeder

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/simaogato/noteval-backend/internal/domain"
)

// DemoProductID is the fixed UUID of the seeded demo note so repeated starts
// never create duplicates.
var DemoProductID = uuid.MustParse("00000000-0000-0000-0000-000000000001")

// DemoProductISIN identifies the seeded demo note.
const DemoProductISIN = "XS0000000001"

// DemoSeeder seeds a demo autocallable note plus its trade-date strike prices
// so a fresh install has something to evaluate.
type DemoSeeder struct {
	products domain.ProductRepository
	prices   domain.PriceWriter
}

// NewDemoSeeder creates a new DemoSeeder instance
func NewDemoSeeder(products domain.ProductRepository, prices domain.PriceWriter) *DemoSeeder {
	return &DemoSeeder{
		products: products,
		prices:   prices,
	}
}

// Seed ensures the demo product and its strike prices exist.
// If the product is already present, no action is taken.
func (s *DemoSeeder) Seed(ctx context.Context) error {
	if _, err := s.products.GetByISIN(ctx, DemoProductISIN); err == nil {
		return nil
	}

	tradeDate := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	maturity := time.Date(2027, 1, 15, 0, 0, 0, 0, time.UTC)
	finalObs := time.Date(2027, 1, 8, 0, 0, 0, 0, time.UTC)

	product := &domain.Product{
		ID:               DemoProductID,
		ISIN:             DemoProductISIN,
		Name:             "Demo Worst-Of Autocall Note",
		TradeDate:        tradeDate,
		MaturityDate:     maturity,
		FinalObservation: &finalObs,
		Underlyings: []domain.Underlying{
			{Ticker: "AAPL.US", InternalID: "demo-aapl", Symbol: "AAPL", Name: "Apple Inc"},
			{Ticker: "MSFT.US", InternalID: "demo-msft", Symbol: "MSFT", Name: "Microsoft Corp"},
		},
	}

	if err := product.Validate(); err != nil {
		return err
	}
	if err := s.products.Create(ctx, product); err != nil {
		return err
	}

	strikes := []*domain.PricePoint{
		{Ticker: "AAPL.US", Date: tradeDate, Close: decimal.NewFromFloat(185.92), Currency: "USD", Exchange: "US"},
		{Ticker: "MSFT.US", Date: tradeDate, Close: decimal.NewFromFloat(388.47), Currency: "USD", Exchange: "US"},
	}
	for _, point := range strikes {
		if err := s.prices.Add(ctx, point); err != nil {
			return err
		}
	}
	return nil
}
