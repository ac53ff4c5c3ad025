package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/simaogato/noteval-backend/internal/domain"
)

// productRepository implements domain.ProductRepository
type productRepository struct {
	db *DB
}

// NewProductRepository creates a new product repository
func NewProductRepository(db *DB) domain.ProductRepository {
	return &productRepository{db: db}
}

// GetByISIN retrieves a product with its underlyings by ISIN
func (r *productRepository) GetByISIN(ctx context.Context, isin string) (*domain.Product, error) {
	query := `
		SELECT id, isin, name, trade_date, maturity_date, final_observation
		FROM products
		WHERE isin = $1
	`

	var product domain.Product
	var finalObservation sql.NullTime

	err := r.db.QueryRowContext(ctx, query, isin).Scan(
		&product.ID,
		&product.ISIN,
		&product.Name,
		&product.TradeDate,
		&product.MaturityDate,
		&finalObservation,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("product %s not found: %w", isin, err)
		}
		return nil, fmt.Errorf("failed to get product %s: %w", isin, err)
	}
	if finalObservation.Valid {
		product.FinalObservation = &finalObservation.Time
	}

	underlyings, err := r.underlyingsFor(ctx, product.ID)
	if err != nil {
		return nil, err
	}
	product.Underlyings = underlyings

	return &product, nil
}

// List retrieves all products with their underlyings
func (r *productRepository) List(ctx context.Context) ([]*domain.Product, error) {
	query := `
		SELECT id, isin, name, trade_date, maturity_date, final_observation
		FROM products
		ORDER BY isin
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	var products []*domain.Product
	for rows.Next() {
		var product domain.Product
		var finalObservation sql.NullTime

		if err := rows.Scan(
			&product.ID,
			&product.ISIN,
			&product.Name,
			&product.TradeDate,
			&product.MaturityDate,
			&finalObservation,
		); err != nil {
			return nil, fmt.Errorf("failed to scan product row: %w", err)
		}
		if finalObservation.Valid {
			product.FinalObservation = &finalObservation.Time
		}
		products = append(products, &product)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate product rows: %w", err)
	}

	for _, product := range products {
		underlyings, err := r.underlyingsFor(ctx, product.ID)
		if err != nil {
			return nil, err
		}
		product.Underlyings = underlyings
	}

	return products, nil
}

// Create persists a new product and its underlyings in one transaction
func (r *productRepository) Create(ctx context.Context, product *domain.Product) error {
	if err := product.Validate(); err != nil {
		return err
	}
	if product.ID == uuid.Nil {
		product.ID = uuid.New()
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var finalObservation sql.NullTime
	if product.FinalObservation != nil {
		finalObservation = sql.NullTime{Time: *product.FinalObservation, Valid: true}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO products (id, isin, name, trade_date, maturity_date, final_observation)
		VALUES ($1, $2, $3, $4, $5, $6)
	`,
		product.ID,
		product.ISIN,
		product.Name,
		product.TradeDate,
		product.MaturityDate,
		finalObservation,
	)
	if err != nil {
		return fmt.Errorf("failed to insert product %s: %w", product.ISIN, err)
	}

	for position, underlying := range product.Underlyings {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO underlyings (id, product_id, position, ticker, internal_id, symbol, name)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`,
			uuid.New(),
			product.ID,
			position,
			underlying.Ticker,
			underlying.InternalID,
			underlying.Symbol,
			underlying.Name,
		)
		if err != nil {
			return fmt.Errorf("failed to insert underlying for %s: %w", product.ISIN, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit product %s: %w", product.ISIN, err)
	}
	return nil
}

// underlyingsFor loads a product's underlyings in their recorded order.
// Order matters: performance arrays are reported in product order.
func (r *productRepository) underlyingsFor(ctx context.Context, productID uuid.UUID) ([]domain.Underlying, error) {
	query := `
		SELECT ticker, internal_id, symbol, name
		FROM underlyings
		WHERE product_id = $1
		ORDER BY position ASC
	`

	rows, err := r.db.QueryContext(ctx, query, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to query underlyings: %w", err)
	}
	defer rows.Close()

	var underlyings []domain.Underlying
	for rows.Next() {
		var u domain.Underlying
		if err := rows.Scan(&u.Ticker, &u.InternalID, &u.Symbol, &u.Name); err != nil {
			return nil, fmt.Errorf("failed to scan underlying row: %w", err)
		}
		underlyings = append(underlyings, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate underlying rows: %w", err)
	}
	return underlyings, nil
}
