package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/simaogato/noteval-backend/internal/domain"
)

// PriceRepository implements domain.PriceStore and domain.PriceWriter over the
// daily_prices table, the primary (cache-like) price store.
type PriceRepository struct {
	db *DB
}

// NewPriceRepository creates the primary price store
func NewPriceRepository(db *DB) *PriceRepository {
	return &PriceRepository{db: db}
}

// Name identifies the store in quotes and logs
func (r *PriceRepository) Name() string { return "postgres" }

const priceColumns = `ticker, date, open, high, low, close, volume, currency, exchange`

// FindOne retrieves the single price record for ticker within [from, to].
// Returns nil when the store has no record in range; absence is not an error.
func (r *PriceRepository) FindOne(ctx context.Context, ticker string, from, to time.Time) (*domain.PricePoint, error) {
	query := `
		SELECT ` + priceColumns + `
		FROM daily_prices
		WHERE ticker = $1 AND date >= $2 AND date <= $3
		ORDER BY date DESC
		LIMIT 1
	`

	point, err := scanPricePoint(r.db.QueryRowContext(ctx, query, ticker, from, to))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query price for %s: %w", ticker, err)
	}
	return point, nil
}

// Find retrieves all price records for ticker within [from, to], ordered by
// date ascending.
func (r *PriceRepository) Find(ctx context.Context, ticker string, from, to time.Time) ([]*domain.PricePoint, error) {
	query := `
		SELECT ` + priceColumns + `
		FROM daily_prices
		WHERE ticker = $1 AND date >= $2 AND date <= $3
		ORDER BY date ASC
	`

	rows, err := r.db.QueryContext(ctx, query, ticker, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query price range for %s: %w", ticker, err)
	}
	defer rows.Close()

	var points []*domain.PricePoint
	for rows.Next() {
		point, err := scanPricePoint(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan price row for %s: %w", ticker, err)
		}
		points = append(points, point)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate price rows for %s: %w", ticker, err)
	}
	return points, nil
}

// Add persists one price record; re-adding the same ticker/date replaces it
func (r *PriceRepository) Add(ctx context.Context, point *domain.PricePoint) error {
	query := `
		INSERT INTO daily_prices (` + priceColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (ticker, date) DO UPDATE SET
			open = EXCLUDED.open,
			high = EXCLUDED.high,
			low = EXCLUDED.low,
			close = EXCLUDED.close,
			volume = EXCLUDED.volume,
			currency = EXCLUDED.currency,
			exchange = EXCLUDED.exchange
	`

	_, err := r.db.ExecContext(ctx, query,
		point.Ticker,
		point.Date,
		point.Open.String(),
		point.High.String(),
		point.Low.String(),
		point.Close.String(),
		point.Volume,
		point.Currency,
		point.Exchange,
	)
	if err != nil {
		return fmt.Errorf("failed to insert price for %s: %w", point.Ticker, err)
	}
	return nil
}

// rowScanner abstracts *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...any) error
}

func scanPricePoint(row rowScanner) (*domain.PricePoint, error) {
	var point domain.PricePoint
	var openStr, highStr, lowStr, closeStr string

	err := row.Scan(
		&point.Ticker,
		&point.Date,
		&openStr,
		&highStr,
		&lowStr,
		&closeStr,
		&point.Volume,
		&point.Currency,
		&point.Exchange,
	)
	if err != nil {
		return nil, err
	}

	// Prices are stored as DECIMAL and scanned as strings
	for _, field := range []struct {
		dst *decimal.Decimal
		src string
	}{
		{&point.Open, openStr},
		{&point.High, highStr},
		{&point.Low, lowStr},
		{&point.Close, closeStr},
	} {
		value, err := decimal.NewFromString(field.src)
		if err != nil {
			return nil, fmt.Errorf("failed to parse stored price %q: %w", field.src, err)
		}
		*field.dst = value
	}

	return &point, nil
}
