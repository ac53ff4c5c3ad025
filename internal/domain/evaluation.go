package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// MemoryEntry is one record in a named memory bucket: a value remembered for
// one asset identity across observations (e.g. a missed coupon waiting to
// become payable). A bucket holds at most one entry per asset; repeat writes
// replace the value.
type MemoryEntry struct {
	Asset       string
	Value       decimal.Decimal
	Date        time.Time
	LastUpdated time.Time
}

// LogEntry is one record in an evaluation run's append-only event, debug or
// error log, tagged with the observation it was recorded under.
type LogEntry struct {
	Time             time.Time
	ObservationDate  time.Time
	ObservationCount int
	Message          string
}

// Observation is one entry of a product's observation schedule: the date plus
// the conditions to evaluate on it.
type Observation struct {
	Date       time.Time
	Conditions []ObservationCondition
}

// ObservationOutcome collects the results of all conditions evaluated on one
// observation date.
type ObservationOutcome struct {
	Date       time.Time
	Results    []ConditionResult
	Autocalled bool
}

// EvaluationSummary is a read-only snapshot of an evaluation run, for external
// inspection and reporting. It is never consumed by the core itself.
type EvaluationSummary struct {
	ProductISIN      string
	ProductName      string
	UnderlyingCount  int
	CurrentDate      time.Time
	ObservationCount int
	AtMaturity       bool
	DaysToMaturity   int
	VariableCount    int
	MemoryKeys       []string
	EventCount       int
	ErrorCount       int
	DebugLogCount    int
}

// RunReport is the full outcome of walking a product's observation schedule:
// the per-observation outcomes in order, whether the product autocalled (and
// when), the final redemption amount if one was computed, and the run summary.
type RunReport struct {
	ProductISIN     string
	Observations    []ObservationOutcome
	Autocalled      bool
	AutocallDate    *time.Time
	TotalCoupons    decimal.Decimal
	FinalRedemption *decimal.Decimal
	Summary         EvaluationSummary
}
