package postgres

import (
	"context"
	"fmt"
)

// Migrate creates the schema when it does not exist yet. Statements are
// idempotent so the server can run it on every start.
func (db *DB) Migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS products (
			id                UUID PRIMARY KEY,
			isin              TEXT NOT NULL UNIQUE,
			name              TEXT NOT NULL DEFAULT '',
			trade_date        TIMESTAMPTZ NOT NULL,
			maturity_date     TIMESTAMPTZ NOT NULL,
			final_observation TIMESTAMPTZ
		)`,
		`CREATE TABLE IF NOT EXISTS underlyings (
			id          UUID PRIMARY KEY,
			product_id  UUID NOT NULL REFERENCES products(id) ON DELETE CASCADE,
			position    INT NOT NULL,
			ticker      TEXT NOT NULL DEFAULT '',
			internal_id TEXT NOT NULL DEFAULT '',
			symbol      TEXT NOT NULL DEFAULT '',
			name        TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS idx_underlyings_product ON underlyings(product_id)`,
		`CREATE TABLE IF NOT EXISTS daily_prices (
			ticker   TEXT NOT NULL,
			date     TIMESTAMPTZ NOT NULL,
			open     DECIMAL NOT NULL DEFAULT 0,
			high     DECIMAL NOT NULL DEFAULT 0,
			low      DECIMAL NOT NULL DEFAULT 0,
			close    DECIMAL NOT NULL DEFAULT 0,
			volume   BIGINT NOT NULL DEFAULT 0,
			currency TEXT NOT NULL DEFAULT '',
			exchange TEXT NOT NULL DEFAULT '',
			PRIMARY KEY (ticker, date)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_daily_prices_date ON daily_prices(date)`,
	}

	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to run migration: %w", err)
		}
	}
	return nil
}
