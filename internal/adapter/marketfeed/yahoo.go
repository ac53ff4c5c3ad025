// Package marketfeed provides remote quote stores used as lowest-priority
// backing stores behind the local databases.
package marketfeed

import (
	"context"
	"fmt"
	"strings"
	"time"

	finance "github.com/piquette/finance-go"
	"github.com/piquette/finance-go/chart"
	"github.com/piquette/finance-go/datetime"

	"github.com/simaogato/noteval-backend/internal/domain"
)

// YahooStore implements domain.PriceStore over the Yahoo Finance chart API.
// It is read-only and intended as the last store in the probe order: anything
// the local stores already hold never reaches it.
type YahooStore struct {
	// SymbolMap maps internal tickers to Yahoo symbols for instruments whose
	// Yahoo notation differs from the upload convention (mostly indexes).
	SymbolMap map[string]string
}

// NewYahooStore creates a Yahoo-backed price store.
func NewYahooStore() *YahooStore {
	return &YahooStore{
		SymbolMap: map[string]string{
			"SPX":  "^GSPC",
			"SX5E": "^STOXX50E",
			"NDX":  "^NDX",
			"NKY":  "^N225",
			"UKX":  "^FTSE",
		},
	}
}

// Name identifies the store in quotes and logs
func (s *YahooStore) Name() string { return "yahoo" }

// yahooSymbol translates an internal ticker to Yahoo notation: mapped symbols
// win, the upload-convention ".US" suffix is dropped, other exchange suffixes
// pass through unchanged (Yahoo uses the same notation for most of them).
func (s *YahooStore) yahooSymbol(ticker string) string {
	if mapped, ok := s.SymbolMap[ticker]; ok {
		return mapped
	}
	return strings.TrimSuffix(ticker, ".US")
}

// FindOne retrieves the latest bar for ticker within [from, to], or nil when
// Yahoo has none.
func (s *YahooStore) FindOne(ctx context.Context, ticker string, from, to time.Time) (*domain.PricePoint, error) {
	points, err := s.Find(ctx, ticker, from, to)
	if err != nil {
		return nil, err
	}
	if len(points) == 0 {
		return nil, nil
	}
	return points[len(points)-1], nil
}

// Find retrieves the daily bars for ticker within [from, to], ordered by date
// ascending.
func (s *YahooStore) Find(ctx context.Context, ticker string, from, to time.Time) ([]*domain.PricePoint, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// The chart API end bound is exclusive, so widen it by a day.
	endExclusive := to.AddDate(0, 0, 1)
	params := &chart.Params{
		Symbol:   s.yahooSymbol(ticker),
		Start:    datetime.New(&from),
		End:      datetime.New(&endExclusive),
		Interval: datetime.OneDay,
	}

	iter := chart.Get(params)

	var points []*domain.PricePoint
	for iter.Next() {
		points = append(points, s.toPricePoint(ticker, iter.Bar(), iter.Meta()))
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("yahoo chart query for %s: %w", ticker, err)
	}

	// Bars outside [from, to] can slip in around the widened end bound.
	filtered := points[:0]
	for _, p := range points {
		if !p.Date.Before(from) && !p.Date.After(to) {
			filtered = append(filtered, p)
		}
	}
	return filtered, nil
}

func (s *YahooStore) toPricePoint(ticker string, bar *finance.ChartBar, meta finance.ChartMeta) *domain.PricePoint {
	return &domain.PricePoint{
		Ticker:   ticker,
		Date:     time.Unix(int64(bar.Timestamp), 0).UTC().Truncate(24 * time.Hour),
		Open:     bar.Open,
		High:     bar.High,
		Low:      bar.Low,
		Close:    bar.Close,
		Volume:   int64(bar.Volume),
		Currency: meta.Currency,
		Exchange: meta.ExchangeName,
	}
}
