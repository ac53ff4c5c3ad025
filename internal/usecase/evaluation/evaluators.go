package evaluation

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/simaogato/noteval-backend/internal/domain"
)

// Default memory bucket names used when a condition does not configure one.
const (
	bucketMissedCoupons   = "missedCoupons"
	bucketMissedAutocalls = "missedAutocalls"
)

// memoryProtectionBreached flags, across observations, that the capital
// protection barrier was breached at least once during the product's life.
const memoryProtectionBreached = "protectionBreached"

// IdentifyUnderlying resolves which underlying a condition observes. An empty
// reference or a basket keyword ("worst-of", "basket", "all") means the
// condition observes the worst-of basket; basket is true and the underlying
// nil in that case.
func IdentifyUnderlying(c *Context, cond domain.ObservationCondition) (underlying *domain.Underlying, basket bool) {
	ref := strings.TrimSpace(strings.ToLower(cond.Underlying))
	switch ref {
	case "", "worst-of", "worst of", "basket", "all":
		return nil, true
	}

	match := MatchUnderlying(c.Product().Underlyings, cond.Underlying)
	if match == nil {
		c.RecordError(fmt.Sprintf("condition references unknown underlying %q, using worst-of basket", cond.Underlying))
		return nil, true
	}
	return match.Underlying, false
}

// conditionPerformance returns the performance the condition is judged
// against: the named underlying's, or the worst-of basket's.
func conditionPerformance(ctx context.Context, c *Context, cond domain.ObservationCondition) decimal.Decimal {
	underlying, basket := IdentifyUnderlying(c, cond)
	if basket {
		return c.UnderlyingPerformance(ctx, c.CurrentDate())
	}
	return c.UnderlyingValue(ctx, firstIdentifier(*underlying), c.CurrentDate())
}

// CompareToMemoryCouponBarrier evaluates a memory coupon barrier: when the
// performance clears the barrier level, the observation's coupon plus every
// previously missed coupon in the memory bucket becomes payable and the
// bucket empties; when it does not, the missed coupon is remembered under the
// observation date for a later clearing observation.
func CompareToMemoryCouponBarrier(ctx context.Context, c *Context, cond domain.ObservationCondition) domain.ConditionResult {
	level := c.ResolveValue(cond.Level)
	perf := conditionPerformance(ctx, c, cond)
	coupon := c.ResolveAmount(ctx, cond.Coupon)
	bucket := cond.Bucket
	if bucket == "" {
		bucket = bucketMissedCoupons
	}

	result := domain.ConditionResult{
		Type:        cond.Type,
		Performance: perf,
		Level:       level,
	}

	if perf.GreaterThanOrEqual(level) {
		paid := c.DrainMemoryBucket(bucket)
		amount := coupon
		for _, entry := range paid {
			amount = amount.Add(entry.Value)
		}

		result.Triggered = true
		result.Amount = amount
		result.MemoryPaid = paid
		result.Detail = fmt.Sprintf("coupon barrier cleared: %s >= %s, paying %s (%d remembered coupons)",
			perf, level, amount, len(paid))
		c.RecordEvent(result.Detail)
		return result
	}

	c.AddToMemoryBucket(bucket, dayKey(c.CurrentDate()), coupon)
	result.Detail = fmt.Sprintf("coupon barrier missed: %s < %s, remembering coupon %s", perf, level, coupon)
	c.RecordEvent(result.Detail)
	return result
}

// CompareToAutocallLevel evaluates an autocall level: performance at or above
// the level triggers early redemption. The amount is the configured coupon,
// if any; principal redemption itself is the driver's concern.
func CompareToAutocallLevel(ctx context.Context, c *Context, cond domain.ObservationCondition) domain.ConditionResult {
	level := c.ResolveValue(cond.Level)
	perf := conditionPerformance(ctx, c, cond)

	result := domain.ConditionResult{
		Type:        cond.Type,
		Performance: perf,
		Level:       level,
	}

	if perf.GreaterThanOrEqual(level) {
		result.Triggered = true
		if cond.Coupon != "" {
			result.Amount = c.ResolveAmount(ctx, cond.Coupon)
		}
		c.SetMemoryValue("autocalled", dayKey(c.CurrentDate()))
		result.Detail = fmt.Sprintf("autocall level reached: %s >= %s", perf, level)
		c.RecordEvent(result.Detail)
		return result
	}

	result.Detail = fmt.Sprintf("autocall level not reached: %s < %s", perf, level)
	c.RecordEvent(result.Detail)
	return result
}

// CompareToMemoryAutocallLevel evaluates an autocall level with coupon
// memory: a clearing observation triggers the autocall and additionally pays
// every coupon remembered from observations that missed the level.
func CompareToMemoryAutocallLevel(ctx context.Context, c *Context, cond domain.ObservationCondition) domain.ConditionResult {
	level := c.ResolveValue(cond.Level)
	perf := conditionPerformance(ctx, c, cond)
	coupon := decimal.Zero
	if cond.Coupon != "" {
		coupon = c.ResolveAmount(ctx, cond.Coupon)
	}
	bucket := cond.Bucket
	if bucket == "" {
		bucket = bucketMissedAutocalls
	}

	result := domain.ConditionResult{
		Type:        cond.Type,
		Performance: perf,
		Level:       level,
	}

	if perf.GreaterThanOrEqual(level) {
		paid := c.DrainMemoryBucket(bucket)
		amount := coupon
		for _, entry := range paid {
			amount = amount.Add(entry.Value)
		}

		result.Triggered = true
		result.Amount = amount
		result.MemoryPaid = paid
		c.SetMemoryValue("autocalled", dayKey(c.CurrentDate()))
		result.Detail = fmt.Sprintf("memory autocall triggered: %s >= %s, paying %s (%d remembered coupons)",
			perf, level, amount, len(paid))
		c.RecordEvent(result.Detail)
		return result
	}

	c.AddToMemoryBucket(bucket, dayKey(c.CurrentDate()), coupon)
	result.Detail = fmt.Sprintf("memory autocall missed: %s < %s, remembering coupon %s", perf, level, coupon)
	c.RecordEvent(result.Detail)
	return result
}

// CompareToCapitalProtectionBarrier evaluates a downside protection barrier:
// performance below the level breaches it. A breach is remembered in run
// memory so the maturity redemption can account for it.
func CompareToCapitalProtectionBarrier(ctx context.Context, c *Context, cond domain.ObservationCondition) domain.ConditionResult {
	level := c.ResolveValue(cond.Level)
	perf := conditionPerformance(ctx, c, cond)

	result := domain.ConditionResult{
		Type:        cond.Type,
		Performance: perf,
		Level:       level,
	}

	if perf.LessThan(level) {
		result.Triggered = true
		c.SetMemoryValue(memoryProtectionBreached, true)
		result.Detail = fmt.Sprintf("capital protection barrier breached: %s < %s", perf, level)
		c.RecordEvent(result.Detail)
		return result
	}

	result.Detail = fmt.Sprintf("capital protection barrier intact: %s >= %s", perf, level)
	c.RecordEvent(result.Detail)
	return result
}

// CalculateLowStrikeRedemption computes the principal redemption at maturity
// after a protection breach: the worst-of performance, capped at par. When the
// protection was never breached during the run, redemption stays at par.
func CalculateLowStrikeRedemption(ctx context.Context, c *Context, cond domain.ObservationCondition) domain.ConditionResult {
	perf := c.UnderlyingPerformance(ctx, c.CurrentDate())

	result := domain.ConditionResult{
		Type:        cond.Type,
		Performance: perf,
		Level:       noChange,
	}

	flag, _ := c.MemoryValue(memoryProtectionBreached)
	breached, _ := flag.(bool)
	if !breached {
		result.Amount = noChange
		result.Detail = fmt.Sprintf("protection never breached, redeeming at par (worst-of %s)", perf)
		c.RecordEvent(result.Detail)
		return result
	}

	redemption := perf
	if redemption.GreaterThan(noChange) {
		redemption = noChange
	}

	result.Triggered = redemption.LessThan(noChange)
	result.Amount = redemption
	result.Detail = fmt.Sprintf("protection breached, redeeming at worst-of %s (capped at par)", perf)
	c.RecordEvent(result.Detail)
	return result
}

// EvaluateCondition dispatches a condition to its evaluator.
func EvaluateCondition(ctx context.Context, c *Context, cond domain.ObservationCondition) domain.ConditionResult {
	switch cond.Type {
	case domain.ConditionMemoryCouponBarrier:
		return CompareToMemoryCouponBarrier(ctx, c, cond)
	case domain.ConditionAutocallLevel:
		return CompareToAutocallLevel(ctx, c, cond)
	case domain.ConditionMemoryAutocallLevel:
		return CompareToMemoryAutocallLevel(ctx, c, cond)
	case domain.ConditionCapitalProtectionBarrier:
		return CompareToCapitalProtectionBarrier(ctx, c, cond)
	case domain.ConditionLowStrikeRedemption:
		return CalculateLowStrikeRedemption(ctx, c, cond)
	default:
		c.RecordError(fmt.Sprintf("unknown condition type %q", cond.Type))
		return domain.ConditionResult{Type: cond.Type, Detail: "unknown condition type"}
	}
}
