package evaluation

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/simaogato/noteval-backend/internal/domain"
)

// noChange is the fail-open performance fallback: when a price cannot be
// resolved, a performance of 100 (no change) keeps the payoff computation
// deterministic instead of mispricing it as a large gain or loss.
var noChange = decimal.NewFromInt(100)

// PriceSource is the slice of the market data layer the evaluation context
// consumes. Implemented by marketdata.Service.
type PriceSource interface {
	GetPrice(ctx context.Context, ticker string, date time.Time, priceType domain.PriceType) (*domain.PriceQuote, error)
}

// priceKey is the composite cache key for resolved prices. A struct key rules
// out collisions from identifiers that contain separator characters.
type priceKey struct {
	identifier string
	day        string
	priceType  domain.PriceType
}

// Context owns all per-run evaluation state for a single product: initial
// prices, resolved-price caches, variables, cross-observation memory and the
// audit logs. It insulates evaluators from price-service and bookkeeping
// details. One Context serves exactly one logical evaluation run and is not
// safe for concurrent use.
type Context struct {
	product *domain.Product
	prices  PriceSource
	runID   uuid.UUID
	logger  *slog.Logger
	now     func() time.Time

	initialized        bool
	currentDate        time.Time
	observationCount   int
	currentObservation map[string]any

	variables     map[string]decimal.Decimal
	memory        map[string]any
	memoryBuckets map[string]map[string]*domain.MemoryEntry
	initialPrices map[string]*decimal.Decimal
	priceCache    map[priceKey]*decimal.Decimal
	perfCache     map[string]decimal.Decimal

	events   []domain.LogEntry
	debugLog []domain.LogEntry
	errors   []domain.LogEntry
}

// ContextOption configures a Context.
type ContextOption func(*Context)

// WithCurrentDate sets the initial observation date.
func WithCurrentDate(date time.Time) ContextOption {
	return func(c *Context) { c.currentDate = date }
}

// WithClock overrides the wall clock used to timestamp log entries.
func WithClock(now func() time.Time) ContextOption {
	return func(c *Context) { c.now = now }
}

// WithLogger overrides the process logger (not the run's audit logs).
func WithLogger(logger *slog.Logger) ContextOption {
	return func(c *Context) { c.logger = logger }
}

// NewContext creates an evaluation context for one run over product. Call
// Initialize before resolving values; until then every performance lookup
// degrades to the no-change fallback.
func NewContext(product *domain.Product, prices PriceSource, opts ...ContextOption) *Context {
	c := &Context{
		product: product,
		prices:  prices,
		runID:   uuid.New(),
		logger:  slog.Default(),
		now:     time.Now,
	}
	c.clearState()
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// clearState resets every mutable field to its initial empty value.
func (c *Context) clearState() {
	c.initialized = false
	c.observationCount = 0
	c.currentObservation = nil
	c.variables = make(map[string]decimal.Decimal)
	c.memory = make(map[string]any)
	c.memoryBuckets = make(map[string]map[string]*domain.MemoryEntry)
	c.initialPrices = make(map[string]*decimal.Decimal)
	c.priceCache = make(map[priceKey]*decimal.Decimal)
	c.perfCache = make(map[string]decimal.Decimal)
	c.events = nil
	c.debugLog = nil
	c.errors = nil
}

// Product returns the product under evaluation.
func (c *Context) Product() *domain.Product { return c.product }

// RunID identifies this evaluation run in reports and logs.
func (c *Context) RunID() uuid.UUID { return c.runID }

// Initialize computes the trade-date closing price of every underlying, trying
// its identifiers in priority order until one resolves, and snapshots the
// result under all of that underlying's identifiers so evaluators see
// identical initial pricing whichever identifier they use. Failures never
// abort the run: an unresolvable underlying gets a nil initial price (and an
// error log entry) and every later performance involving it falls back to 100.
func (c *Context) Initialize(ctx context.Context) {
	if c.initialized {
		return
	}
	c.initialized = true

	for i := range c.product.Underlyings {
		u := &c.product.Underlyings[i]

		var price *decimal.Decimal
		for _, id := range u.Identifiers() {
			quote, err := c.prices.GetPrice(ctx, id, c.product.TradeDate, domain.PriceTypeClose)
			if err != nil {
				c.RecordDebug(fmt.Sprintf("initial price lookup failed for %q: %v", id, err))
				continue
			}
			if quote != nil {
				v := quote.Value
				price = &v
				break
			}
		}

		for _, id := range u.Identifiers() {
			c.initialPrices[id] = price
		}
		if price == nil {
			c.RecordError(fmt.Sprintf("no initial price for underlying %q at trade date %s",
				firstIdentifier(*u), dayKey(c.product.TradeDate)))
		} else {
			c.RecordDebug(fmt.Sprintf("initial price for %q: %s", firstIdentifier(*u), price))
		}
	}
}

// InitialPrice returns the trade-date snapshot price stored under identifier,
// or nil if the snapshot has no price for it.
func (c *Context) InitialPrice(identifier string) *decimal.Decimal {
	return c.initialPrices[identifier]
}

// UnderlyingPrice resolves identifier to an underlying and returns its price
// at date, caching the result (including misses) so an already-resolved
// (identifier, date, priceType) never issues a second backing-store query
// within the run. Returns nil, with an error log entry, when the underlying
// cannot be resolved or no price exists.
func (c *Context) UnderlyingPrice(ctx context.Context, identifier string, date time.Time, priceType domain.PriceType) *decimal.Decimal {
	key := priceKey{identifier: identifier, day: dayKey(date), priceType: priceType}
	if cached, ok := c.priceCache[key]; ok {
		return cached
	}

	match := MatchUnderlying(c.product.Underlyings, identifier)
	if match == nil {
		c.RecordError(fmt.Sprintf("no underlying matches identifier %q", identifier))
		c.priceCache[key] = nil
		return nil
	}

	// Query by the resolved underlying's ticker when it has one; a display
	// name or internal id means nothing to the price stores.
	ticker := match.Underlying.Ticker
	if ticker == "" {
		ticker = match.Identifier
	}

	quote, err := c.prices.GetPrice(ctx, ticker, date, priceType)
	if err != nil {
		c.RecordError(fmt.Sprintf("price lookup failed for %q at %s: %v", ticker, dayKey(date), err))
		c.priceCache[key] = nil
		return nil
	}
	if quote == nil {
		c.RecordError(fmt.Sprintf("no %s price for %q at %s", priceType, ticker, dayKey(date)))
		c.priceCache[key] = nil
		return nil
	}
	if quote.DaysBack > 0 {
		c.RecordDebug(fmt.Sprintf("price for %q at %s used %s (%d days back)",
			ticker, dayKey(date), dayKey(quote.Date), quote.DaysBack))
	}

	value := quote.Value
	c.priceCache[key] = &value
	return &value
}

// UnderlyingValue returns the performance of the underlying resolved by
// identifier at date: currentPrice / initialPrice x 100. Missing prices are
// retried under the underlying's alternate identifiers; on total failure the
// no-change value 100 is returned and an error recorded, never NaN or a
// failure.
func (c *Context) UnderlyingValue(ctx context.Context, identifier string, date time.Time) decimal.Decimal {
	match := MatchUnderlying(c.product.Underlyings, identifier)
	if match == nil {
		c.RecordError(fmt.Sprintf("cannot compute performance: no underlying matches %q", identifier))
		return noChange
	}

	ids := match.Underlying.Identifiers()

	var initial *decimal.Decimal
	for _, id := range ids {
		if p := c.initialPrices[id]; p != nil {
			initial = p
			break
		}
	}

	var current *decimal.Decimal
	for _, id := range ids {
		if p := c.UnderlyingPrice(ctx, id, date, domain.PriceTypeClose); p != nil {
			current = p
			break
		}
	}

	if initial == nil || initial.IsZero() || current == nil {
		c.RecordError(fmt.Sprintf("performance fallback to 100 for %q at %s (initial=%v current=%v)",
			identifier, dayKey(date), initial, current))
		return noChange
	}

	return current.Div(*initial).Mul(noChange)
}

// AllUnderlyingValues returns one performance per underlying, in product
// order. Unresolvable underlyings contribute the no-change value 100. A
// product with no underlyings yields the single conceptual no-change unit.
func (c *Context) AllUnderlyingValues(ctx context.Context, date time.Time) []decimal.Decimal {
	if len(c.product.Underlyings) == 0 {
		return []decimal.Decimal{noChange}
	}

	values := make([]decimal.Decimal, 0, len(c.product.Underlyings))
	for _, u := range c.product.Underlyings {
		values = append(values, c.UnderlyingValue(ctx, firstIdentifier(u), date))
	}
	return values
}

// UnderlyingPerformance returns the worst-of performance at date: the minimum
// over AllUnderlyingValues. Memoized per date within the run.
func (c *Context) UnderlyingPerformance(ctx context.Context, date time.Time) decimal.Decimal {
	day := dayKey(date)
	if perf, ok := c.perfCache[day]; ok {
		return perf
	}

	worst := noChange
	for i, v := range c.AllUnderlyingValues(ctx, date) {
		if i == 0 || v.LessThan(worst) {
			worst = v
		}
	}

	c.perfCache[day] = worst
	return worst
}

// SetObservation advances the run to the next observation: sets the current
// date, stores the observation payload and increments the observation count.
func (c *Context) SetObservation(date time.Time, observation map[string]any) {
	c.currentDate = date
	c.currentObservation = observation
	c.observationCount++
	c.RecordDebug(fmt.Sprintf("observation %d at %s", c.observationCount, dayKey(date)))
}

// SetCurrentDate moves the current observation date without counting a new
// observation.
func (c *Context) SetCurrentDate(date time.Time) { c.currentDate = date }

// CurrentDate returns the observation date currently being evaluated.
func (c *Context) CurrentDate() time.Time { return c.currentDate }

// ObservationCount returns how many observations have been processed.
func (c *Context) ObservationCount() int { return c.observationCount }

// CurrentObservation returns the payload of the active observation.
func (c *Context) CurrentObservation() map[string]any { return c.currentObservation }

// SetVariable stores a named scalar, last write wins.
func (c *Context) SetVariable(name string, value decimal.Decimal) {
	c.variables[name] = value
	c.RecordDebug(fmt.Sprintf("variable %q = %s", name, value))
}

// Variable returns a named scalar previously stored with SetVariable.
func (c *Context) Variable(name string) (decimal.Decimal, bool) {
	v, ok := c.variables[name]
	return v, ok
}

// SetMemoryValue stores a free-form value that persists across observations
// within the run.
func (c *Context) SetMemoryValue(key string, value any) {
	c.memory[key] = value
	c.RecordDebug(fmt.Sprintf("memory %q = %v", key, value))
}

// MemoryValue returns a value previously stored with SetMemoryValue.
func (c *Context) MemoryValue(key string) (any, bool) {
	v, ok := c.memory[key]
	return v, ok
}

// AddToMemoryBucket upserts an entry for asset into the named bucket. A bucket
// holds at most one entry per asset: a repeat write replaces the value and
// refreshes LastUpdated instead of appending.
func (c *Context) AddToMemoryBucket(bucket, asset string, value decimal.Decimal) {
	entries, ok := c.memoryBuckets[bucket]
	if !ok {
		entries = make(map[string]*domain.MemoryEntry)
		c.memoryBuckets[bucket] = entries
	}

	if entry, ok := entries[asset]; ok {
		entry.Value = value
		entry.LastUpdated = c.now()
		c.RecordDebug(fmt.Sprintf("bucket %q updated %q = %s", bucket, asset, value))
		return
	}

	entries[asset] = &domain.MemoryEntry{
		Asset:       asset,
		Value:       value,
		Date:        c.currentDate,
		LastUpdated: c.now(),
	}
	c.RecordDebug(fmt.Sprintf("bucket %q added %q = %s", bucket, asset, value))
}

// MemoryBucket returns the entries of the named bucket ordered by date.
func (c *Context) MemoryBucket(bucket string) []domain.MemoryEntry {
	entries := make([]domain.MemoryEntry, 0, len(c.memoryBuckets[bucket]))
	for _, e := range c.memoryBuckets[bucket] {
		entries = append(entries, *e)
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Date.Equal(entries[j].Date) {
			return entries[i].Asset < entries[j].Asset
		}
		return entries[i].Date.Before(entries[j].Date)
	})
	return entries
}

// DrainMemoryBucket returns the bucket's entries ordered by date and empties
// the bucket; used when remembered coupons/autocalls become payable.
func (c *Context) DrainMemoryBucket(bucket string) []domain.MemoryEntry {
	entries := c.MemoryBucket(bucket)
	delete(c.memoryBuckets, bucket)
	if len(entries) > 0 {
		c.RecordDebug(fmt.Sprintf("bucket %q drained (%d entries)", bucket, len(entries)))
	}
	return entries
}

// IsAtMaturity reports whether the current date equals the product's final
// observation date (or maturity date when no final observation is configured),
// comparing dates only: the time-of-day component never changes the result.
func (c *Context) IsAtMaturity() bool {
	ref := c.product.MaturityDate
	if c.product.FinalObservation != nil {
		ref = *c.product.FinalObservation
	}
	if ref.IsZero() {
		return false
	}
	return dayKey(c.currentDate) == dayKey(ref)
}

// IsDuringLife is the negation of IsAtMaturity.
func (c *Context) IsDuringLife() bool { return !c.IsAtMaturity() }

// DaysToMaturity returns the number of whole days until maturity, rounded up,
// clamped at 0. Returns 0 when the product has no maturity date.
func (c *Context) DaysToMaturity() int {
	if c.product.MaturityDate.IsZero() {
		return 0
	}
	hours := c.product.MaturityDate.Sub(c.currentDate).Hours()
	days := int(math.Ceil(hours / 24))
	if days < 0 {
		return 0
	}
	return days
}

// RecordEvent appends an entry to the run's event log.
func (c *Context) RecordEvent(message string) {
	c.events = append(c.events, c.logEntry(message))
}

// RecordDebug appends an entry to the run's debug log.
func (c *Context) RecordDebug(message string) {
	c.debugLog = append(c.debugLog, c.logEntry(message))
}

// RecordError appends an entry to the run's error log. Errors are audit data,
// not control flow: recording one never aborts the evaluation.
func (c *Context) RecordError(message string) {
	c.errors = append(c.errors, c.logEntry(message))
	c.logger.Debug("evaluation error recorded", "run", c.runID, "message", message)
}

// Events returns the run's event log.
func (c *Context) Events() []domain.LogEntry { return c.events }

// DebugLog returns the run's debug log.
func (c *Context) DebugLog() []domain.LogEntry { return c.debugLog }

// Errors returns the run's error log.
func (c *Context) Errors() []domain.LogEntry { return c.errors }

func (c *Context) logEntry(message string) domain.LogEntry {
	return domain.LogEntry{
		Time:             c.now(),
		ObservationDate:  c.currentDate,
		ObservationCount: c.observationCount,
		Message:          message,
	}
}

// Reset clears all mutable state (caches, memory, logs, counters) while
// keeping the product and price-service references, so the context can be
// reused for another run. It does not re-run Initialize.
func (c *Context) Reset() {
	c.clearState()
	c.currentDate = time.Time{}
}

// Summary returns a read-only snapshot of the run for external inspection.
func (c *Context) Summary() domain.EvaluationSummary {
	memoryKeys := make([]string, 0, len(c.memory))
	for k := range c.memory {
		memoryKeys = append(memoryKeys, k)
	}
	sort.Strings(memoryKeys)

	return domain.EvaluationSummary{
		ProductISIN:      c.product.ISIN,
		ProductName:      c.product.Name,
		UnderlyingCount:  len(c.product.Underlyings),
		CurrentDate:      c.currentDate,
		ObservationCount: c.observationCount,
		AtMaturity:       c.IsAtMaturity(),
		DaysToMaturity:   c.DaysToMaturity(),
		VariableCount:    len(c.variables),
		MemoryKeys:       memoryKeys,
		EventCount:       len(c.events),
		ErrorCount:       len(c.errors),
		DebugLogCount:    len(c.debugLog),
	}
}

// dayKey normalizes a timestamp to its ISO date, the unit of observation.
func dayKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

func firstIdentifier(u domain.Underlying) string {
	ids := u.Identifiers()
	if len(ids) == 0 {
		return ""
	}
	return ids[0]
}
