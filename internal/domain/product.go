package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Underlying represents one tradable asset referenced by a structured product.
// There is no single canonical identifier: any of Ticker, InternalID, Symbol or
// Name may be used by callers interchangeably, so lookups must tolerate all of
// them.
type Underlying struct {
	Ticker     string
	InternalID string
	Symbol     string
	Name       string
}

// Identifiers returns the non-empty identifiers of the underlying in lookup
// priority order: ticker, internal id, symbol, name.
func (u Underlying) Identifiers() []string {
	ids := make([]string, 0, 4)
	for _, id := range []string{u.Ticker, u.InternalID, u.Symbol, u.Name} {
		if id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

// Product represents a structured financial product (autocallable note,
// barrier product, capital-protection note) in the domain layer.
// The evaluation core treats products as read-only.
type Product struct {
	ID               uuid.UUID
	ISIN             string
	Name             string
	TradeDate        time.Time
	MaturityDate     time.Time
	FinalObservation *time.Time // last scheduled observation; nil if not configured
	Underlyings      []Underlying
}

// Validate ensures the product adheres to domain rules
// Returns an error if validation fails
func (p *Product) Validate() error {
	if p.ISIN == "" {
		return errors.New("product ISIN cannot be empty")
	}
	if p.TradeDate.IsZero() {
		return errors.New("product trade date cannot be empty")
	}
	if !p.MaturityDate.IsZero() && p.MaturityDate.Before(p.TradeDate) {
		return errors.New("product maturity date cannot precede trade date")
	}
	for _, u := range p.Underlyings {
		if len(u.Identifiers()) == 0 {
			return errors.New("underlying must carry at least one identifier")
		}
	}
	return nil
}
