package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PriceType selects which field of an OHLC record a lookup resolves to.
type PriceType string

const (
	PriceTypeOpen   PriceType = "open"
	PriceTypeHigh   PriceType = "high"
	PriceTypeLow    PriceType = "low"
	PriceTypeClose  PriceType = "close"
	PriceTypeVolume PriceType = "volume"
)

// PricePoint represents one ticker's OHLC record for one trading day.
// Immutable once stored.
type PricePoint struct {
	Ticker   string
	Date     time.Time
	Open     decimal.Decimal
	High     decimal.Decimal
	Low      decimal.Decimal
	Close    decimal.Decimal
	Volume   int64
	Currency string
	Exchange string
}

// Value returns the field selected by priceType and whether the point carries
// a usable value for it. Zero prices are treated as missing data: stores that
// have no print for a field persist it as zero.
func (p *PricePoint) Value(priceType PriceType) (decimal.Decimal, bool) {
	var v decimal.Decimal
	switch priceType {
	case PriceTypeOpen:
		v = p.Open
	case PriceTypeHigh:
		v = p.High
	case PriceTypeLow:
		v = p.Low
	case PriceTypeClose, "":
		// Close is the default price type for barrier observation.
		v = p.Close
	case PriceTypeVolume:
		v = decimal.NewFromInt(p.Volume)
	default:
		return decimal.Zero, false
	}
	if v.IsZero() {
		return decimal.Zero, false
	}
	return v, true
}

// PriceQuote is a resolved price: the value plus where and when it was found.
// DaysBack is non-zero when the quote came from a nearby-date fallback.
type PriceQuote struct {
	Ticker   string
	Value    decimal.Decimal
	Date     time.Time
	DaysBack int
	Source   string
}
