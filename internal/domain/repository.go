package domain

import (
	"context"
	"time"
)

// PriceStore defines the interface for one backing store of daily price
// records. The market data layer probes multiple stores in a fixed priority
// order; absence of data is reported as nil/empty, never as an error, so that
// callers can fall through to the next store.
type PriceStore interface {
	// Name identifies the store in quotes and logs (e.g. "postgres", "archive")
	Name() string

	// FindOne retrieves the single price record for ticker within [from, to],
	// or nil if the store has none. The range normally bounds one trading day.
	FindOne(ctx context.Context, ticker string, from, to time.Time) (*PricePoint, error)

	// Find retrieves all price records for ticker within [from, to], ordered
	// by date ascending. An empty slice means the store has no data in range.
	Find(ctx context.Context, ticker string, from, to time.Time) ([]*PricePoint, error)
}

// ProductRepository defines the interface for product definition persistence.
// The evaluation core reads products only; Create exists for seeding.
type ProductRepository interface {
	// GetByISIN retrieves a product with its underlyings by ISIN
	GetByISIN(ctx context.Context, isin string) (*Product, error)

	// List retrieves all products with their underlyings
	List(ctx context.Context) ([]*Product, error)

	// Create persists a new product and its underlyings
	Create(ctx context.Context, product *Product) error
}

// PriceWriter is implemented by stores that accept new price records; used by
// the seeder and upload tooling, never by the evaluation core.
type PriceWriter interface {
	// Add persists one price record. Re-adding the same ticker/date replaces it.
	Add(ctx context.Context, point *PricePoint) error
}
