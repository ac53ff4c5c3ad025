package domain

import (
	"errors"

	"github.com/shopspring/decimal"
)

// ConditionType identifies which barrier/payoff rule an observation condition
// configures.
type ConditionType string

const (
	ConditionMemoryCouponBarrier      ConditionType = "MEMORY_COUPON_BARRIER"
	ConditionAutocallLevel            ConditionType = "AUTOCALL_LEVEL"
	ConditionMemoryAutocallLevel      ConditionType = "MEMORY_AUTOCALL_LEVEL"
	ConditionCapitalProtectionBarrier ConditionType = "CAPITAL_PROTECTION_BARRIER"
	ConditionLowStrikeRedemption      ConditionType = "LOW_STRIKE_REDEMPTION"
)

// ObservationCondition is one configured rule to evaluate on an observation
// date. Level and Coupon are label text in the product's restricted value
// language (e.g. "70%", "strike", "capital + 5%"); Underlying names the asset
// the rule observes by any of its identifiers, or is empty for the worst-of
// basket. Bucket names the memory bucket used by memory variants.
type ObservationCondition struct {
	Type       ConditionType
	Underlying string
	Level      string
	Coupon     string
	Bucket     string
}

// Validate ensures the condition adheres to domain rules
func (c *ObservationCondition) Validate() error {
	switch c.Type {
	case ConditionMemoryCouponBarrier, ConditionAutocallLevel,
		ConditionMemoryAutocallLevel, ConditionCapitalProtectionBarrier,
		ConditionLowStrikeRedemption:
	default:
		return errors.New("unknown condition type")
	}
	if c.Level == "" && c.Type != ConditionLowStrikeRedemption {
		return errors.New("condition level cannot be empty")
	}
	return nil
}

// ConditionResult is the structured outcome of evaluating one condition:
// whether it triggered, the performance and level it was judged against, any
// amount now payable, and human-readable detail for the audit trail.
type ConditionResult struct {
	Type        ConditionType
	Triggered   bool
	Performance decimal.Decimal
	Level       decimal.Decimal
	Amount      decimal.Decimal
	Detail      string
	MemoryPaid  []MemoryEntry
}
