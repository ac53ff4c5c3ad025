// Package sqlite provides the secondary historical price store: a local
// archive of daily prices kept alongside the primary database, typically
// filled by bulk imports of vendor history files.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"github.com/simaogato/noteval-backend/internal/domain"
)

// Archive implements domain.PriceStore and domain.PriceWriter over a SQLite
// database file.
type Archive struct {
	db *sql.DB
	mu sync.Mutex
}

// NewArchive opens (or creates) the archive database and runs migrations.
func NewArchive(dbPath string) (*Archive, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL mode so evaluation reads are not blocked by history imports.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	a := &Archive{db: db}
	if err := a.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return a, nil
}

func (a *Archive) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS price_history (
			ticker   TEXT NOT NULL,
			date     INTEGER NOT NULL,
			open     REAL,
			high     REAL,
			low      REAL,
			close    REAL,
			volume   INTEGER,
			currency TEXT,
			exchange TEXT,
			PRIMARY KEY (ticker, date)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_history_ticker_date ON price_history(ticker, date)`,
	}

	for _, stmt := range stmts {
		if _, err := a.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Name identifies the store in quotes and logs
func (a *Archive) Name() string { return "archive" }

// FindOne retrieves the single price record for ticker within [from, to], or
// nil when the archive has none.
func (a *Archive) FindOne(ctx context.Context, ticker string, from, to time.Time) (*domain.PricePoint, error) {
	query := `
		SELECT ticker, date, open, high, low, close, volume, currency, exchange
		FROM price_history
		WHERE ticker = ? AND date >= ? AND date <= ?
		ORDER BY date DESC
		LIMIT 1
	`

	row := a.db.QueryRowContext(ctx, query, ticker, from.Unix(), to.Unix())
	point, err := scanArchiveRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("query archive price for %s: %w", ticker, err)
	}
	return point, nil
}

// Find retrieves all price records for ticker within [from, to], ordered by
// date ascending.
func (a *Archive) Find(ctx context.Context, ticker string, from, to time.Time) ([]*domain.PricePoint, error) {
	query := `
		SELECT ticker, date, open, high, low, close, volume, currency, exchange
		FROM price_history
		WHERE ticker = ? AND date >= ? AND date <= ?
		ORDER BY date ASC
	`

	rows, err := a.db.QueryContext(ctx, query, ticker, from.Unix(), to.Unix())
	if err != nil {
		return nil, fmt.Errorf("query archive range for %s: %w", ticker, err)
	}
	defer rows.Close()

	var points []*domain.PricePoint
	for rows.Next() {
		point, err := scanArchiveRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan archive row for %s: %w", ticker, err)
		}
		points = append(points, point)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate archive rows for %s: %w", ticker, err)
	}
	return points, nil
}

// Add persists one price record; re-adding the same ticker/date replaces it.
func (a *Archive) Add(ctx context.Context, point *domain.PricePoint) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	open, _ := point.Open.Float64()
	high, _ := point.High.Float64()
	low, _ := point.Low.Float64()
	closePrice, _ := point.Close.Float64()

	_, err := a.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO price_history
			(ticker, date, open, high, low, close, volume, currency, exchange)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		point.Ticker,
		point.Date.Unix(),
		open,
		high,
		low,
		closePrice,
		point.Volume,
		point.Currency,
		point.Exchange,
	)
	if err != nil {
		return fmt.Errorf("insert archive price for %s: %w", point.Ticker, err)
	}
	return nil
}

// Close closes the archive database.
func (a *Archive) Close() error {
	return a.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanArchiveRow(row rowScanner) (*domain.PricePoint, error) {
	var point domain.PricePoint
	var date int64
	var open, high, low, closePrice sql.NullFloat64
	var volume sql.NullInt64
	var currency, exchange sql.NullString

	err := row.Scan(&point.Ticker, &date, &open, &high, &low, &closePrice, &volume, &currency, &exchange)
	if err != nil {
		return nil, err
	}

	point.Date = time.Unix(date, 0).UTC()
	point.Open = decimal.NewFromFloat(open.Float64)
	point.High = decimal.NewFromFloat(high.Float64)
	point.Low = decimal.NewFromFloat(low.Float64)
	point.Close = decimal.NewFromFloat(closePrice.Float64)
	point.Volume = volume.Int64
	point.Currency = currency.String
	point.Exchange = exchange.String

	return &point, nil
}
