package marketdata

import (
	"context"
	"log/slog"
	"time"

	"github.com/simaogato/noteval-backend/internal/domain"
)

const (
	// defaultMaxDaysBack bounds the nearby-price fallback: market-holiday and
	// missing-print gaps are absorbed, arbitrary drift from the requested date
	// is not.
	defaultMaxDaysBack = 5

	// defaultQueryTimeout bounds every individual backing-store call so a hung
	// store cannot block an evaluation run indefinitely.
	defaultQueryTimeout = 10 * time.Second
)

// Service is the market data access layer: it resolves a logical ticker, date
// and price type to a concrete price, absorbing exchange-suffix ambiguity and
// short data gaps. Backing stores are probed in the fixed order they were
// passed in; the first store returning data wins and no merging occurs.
//
// Absence of data is reported as (nil, nil), never as an error.
type Service struct {
	stores       []domain.PriceStore
	maxDaysBack  int
	queryTimeout time.Duration
	now          func() time.Time
	logger       *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithMaxDaysBack overrides the nearby-price fallback window.
func WithMaxDaysBack(days int) Option {
	return func(s *Service) { s.maxDaysBack = days }
}

// WithQueryTimeout overrides the per-store-call timeout.
func WithQueryTimeout(d time.Duration) Option {
	return func(s *Service) { s.queryTimeout = d }
}

// WithClock overrides the wall clock used for the future-date guard.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a market data service over the given stores, probed in
// the given priority order.
func NewService(stores []domain.PriceStore, opts ...Option) *Service {
	s := &Service{
		stores:       stores,
		maxDaysBack:  defaultMaxDaysBack,
		queryTimeout: defaultQueryTimeout,
		now:          time.Now,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetPrice resolves ticker/date/priceType to a price quote.
// Returns (nil, nil) when the ticker is empty, the date is in the future, or
// no store has data for any ticker variant at the date or within the nearby
// fallback window. Each store is exhausted (exact date, then nearby fallback)
// before the next store is probed.
func (s *Service) GetPrice(ctx context.Context, ticker string, date time.Time, priceType domain.PriceType) (*domain.PriceQuote, error) {
	variants := TickerVariants(ticker)
	if len(variants) == 0 {
		return nil, nil
	}

	day := normalizeDay(date)
	if day.After(normalizeDay(s.now())) {
		// Never return look-ahead prices.
		return nil, nil
	}

	for _, store := range s.stores {
		if quote := s.findExact(ctx, store, variants, day, priceType); quote != nil {
			return quote, nil
		}
		if quote := s.findNearby(ctx, store, variants, day, priceType, s.maxDaysBack); quote != nil {
			return quote, nil
		}
	}
	return nil, nil
}

// FindNearbyPrice walks backward from targetDate up to maxDaysBack business
// days (weekends are skipped, not counted) and retries every ticker variant at
// each candidate date. The returned quote records how many days back the match
// was and the date actually used. Returns (nil, nil) when the window is
// exhausted.
func (s *Service) FindNearbyPrice(ctx context.Context, ticker string, targetDate time.Time, priceType domain.PriceType, maxDaysBack int) (*domain.PriceQuote, error) {
	variants := TickerVariants(ticker)
	if len(variants) == 0 {
		return nil, nil
	}

	day := normalizeDay(targetDate)
	for _, store := range s.stores {
		if quote := s.findNearby(ctx, store, variants, day, priceType, maxDaysBack); quote != nil {
			return quote, nil
		}
	}
	return nil, nil
}

// GetPriceRange returns the ordered daily series for [startDate, endDate] from
// the first store/variant combination that has any data in range. Series from
// different variants or stores are never merged.
func (s *Service) GetPriceRange(ctx context.Context, ticker string, startDate, endDate time.Time) ([]*domain.PricePoint, error) {
	variants := TickerVariants(ticker)
	if len(variants) == 0 {
		return nil, nil
	}

	from := normalizeDay(startDate)
	to := endOfDay(endDate)

	for _, store := range s.stores {
		for _, variant := range variants {
			points, err := s.find(ctx, store, variant, from, to)
			if err != nil {
				s.logger.Debug("price range query failed",
					"store", store.Name(), "ticker", variant, "error", err)
				continue
			}
			if len(points) > 0 {
				return points, nil
			}
		}
	}
	return nil, nil
}

// findExact probes every variant at exactly day against one store.
func (s *Service) findExact(ctx context.Context, store domain.PriceStore, variants []string, day time.Time, priceType domain.PriceType) *domain.PriceQuote {
	for _, variant := range variants {
		point, err := s.findOne(ctx, store, variant, day, endOfDay(day))
		if err != nil {
			s.logger.Debug("price query failed",
				"store", store.Name(), "ticker", variant, "date", day, "error", err)
			continue
		}
		if point == nil {
			continue
		}
		value, ok := point.Value(priceType)
		if !ok {
			continue
		}
		return &domain.PriceQuote{
			Ticker: variant,
			Value:  value,
			Date:   day,
			Source: store.Name(),
		}
	}
	return nil
}

// findNearby walks backward business days within one store, retrying every
// variant per candidate date. Candidate dates are tried strictly in order so
// the closest available print always wins.
func (s *Service) findNearby(ctx context.Context, store domain.PriceStore, variants []string, day time.Time, priceType domain.PriceType, maxDaysBack int) *domain.PriceQuote {
	candidate := day
	for back := 1; back <= maxDaysBack; back++ {
		candidate = PreviousBusinessDay(candidate)
		for _, variant := range variants {
			point, err := s.findOne(ctx, store, variant, candidate, endOfDay(candidate))
			if err != nil {
				s.logger.Debug("nearby price query failed",
					"store", store.Name(), "ticker", variant, "date", candidate, "error", err)
				continue
			}
			if point == nil {
				continue
			}
			value, ok := point.Value(priceType)
			if !ok {
				continue
			}
			return &domain.PriceQuote{
				Ticker:   variant,
				Value:    value,
				Date:     candidate,
				DaysBack: back,
				Source:   store.Name(),
			}
		}
	}
	return nil
}

func (s *Service) findOne(ctx context.Context, store domain.PriceStore, ticker string, from, to time.Time) (*domain.PricePoint, error) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()
	return store.FindOne(ctx, ticker, from, to)
}

func (s *Service) find(ctx context.Context, store domain.PriceStore, ticker string, from, to time.Time) ([]*domain.PricePoint, error) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()
	return store.Find(ctx, ticker, from, to)
}

func endOfDay(t time.Time) time.Time {
	return normalizeDay(t).Add(24*time.Hour - time.Nanosecond)
}
