package evaluation

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simaogato/noteval-backend/internal/domain"
)

func TestIdentifyUnderlying(t *testing.T) {
	c, _ := newTestContext(t)

	u, basket := IdentifyUnderlying(c, domain.ObservationCondition{Underlying: "Alpha Corp"})
	require.NotNil(t, u)
	assert.False(t, basket)
	assert.Equal(t, "AAA.US", u.Ticker)

	for _, ref := range []string{"", "worst-of", "Worst Of", "basket", "all"} {
		u, basket := IdentifyUnderlying(c, domain.ObservationCondition{Underlying: ref})
		assert.Nil(t, u, "ref=%q", ref)
		assert.True(t, basket, "ref=%q", ref)
	}

	// Unknown references degrade to the basket with an error logged.
	errorsBefore := len(c.Errors())
	u, basket = IdentifyUnderlying(c, domain.ObservationCondition{Underlying: "TSLA"})
	assert.Nil(t, u)
	assert.True(t, basket)
	assert.Len(t, c.Errors(), errorsBefore+1)
}

func TestCompareToMemoryCouponBarrier_MissThenClear(t *testing.T) {
	// Worst-of is 90 at obsDate. Barrier 95%: miss; three months later the
	// worst underlying recovers, the barrier clears and the remembered coupon
	// is paid on top of the current one.
	c, source := newTestContext(t)
	ctx := context.Background()
	laterDate := obsDate.AddDate(0, 3, 0)
	source.set("AAA.US", laterDate, 98)
	source.set("BBB.US", laterDate, 230)

	cond := domain.ObservationCondition{
		Type:   domain.ConditionMemoryCouponBarrier,
		Level:  "95%",
		Coupon: "5%",
	}

	c.SetObservation(obsDate, nil)
	missed := CompareToMemoryCouponBarrier(ctx, c, cond)

	assert.False(t, missed.Triggered)
	assert.True(t, missed.Amount.IsZero())
	assert.True(t, decimal.NewFromInt(90).Equal(missed.Performance))
	require.Len(t, c.MemoryBucket("missedCoupons"), 1)

	c.SetObservation(laterDate, nil)
	cleared := CompareToMemoryCouponBarrier(ctx, c, cond)

	assert.True(t, cleared.Triggered)
	// Current coupon 5 plus the remembered 5.
	assert.True(t, decimal.NewFromInt(10).Equal(cleared.Amount))
	require.Len(t, cleared.MemoryPaid, 1)
	assert.Equal(t, "2024-04-15", cleared.MemoryPaid[0].Asset)
	assert.Empty(t, c.MemoryBucket("missedCoupons"))
}

func TestCompareToMemoryCouponBarrier_ReEvaluationDoesNotDuplicate(t *testing.T) {
	c, _ := newTestContext(t)
	ctx := context.Background()

	cond := domain.ObservationCondition{
		Type:   domain.ConditionMemoryCouponBarrier,
		Level:  "95%",
		Coupon: "5%",
	}

	c.SetObservation(obsDate, nil)
	CompareToMemoryCouponBarrier(ctx, c, cond)
	// Re-evaluating the same observation upserts the same bucket entry.
	CompareToMemoryCouponBarrier(ctx, c, cond)

	assert.Len(t, c.MemoryBucket("missedCoupons"), 1)
}

func TestCompareToAutocallLevel(t *testing.T) {
	c, _ := newTestContext(t)
	ctx := context.Background()
	c.SetObservation(obsDate, nil)

	miss := CompareToAutocallLevel(ctx, c, domain.ObservationCondition{
		Type:  domain.ConditionAutocallLevel,
		Level: "100%",
	})
	assert.False(t, miss.Triggered)
	_, autocalled := c.MemoryValue("autocalled")
	assert.False(t, autocalled)

	hit := CompareToAutocallLevel(ctx, c, domain.ObservationCondition{
		Type:   domain.ConditionAutocallLevel,
		Level:  "85%",
		Coupon: "capital + 4%",
	})
	assert.True(t, hit.Triggered)
	assert.True(t, decimal.NewFromInt(104).Equal(hit.Amount))
	date, autocalled := c.MemoryValue("autocalled")
	assert.True(t, autocalled)
	assert.Equal(t, "2024-04-15", date)
}

func TestCompareToAutocallLevel_SingleUnderlying(t *testing.T) {
	c, _ := newTestContext(t)
	ctx := context.Background()
	c.SetObservation(obsDate, nil)

	// Judged against Beta's performance (110), not the worst-of (90).
	hit := CompareToAutocallLevel(ctx, c, domain.ObservationCondition{
		Type:       domain.ConditionAutocallLevel,
		Underlying: "Beta SA",
		Level:      "105%",
	})

	assert.True(t, hit.Triggered)
	assert.True(t, decimal.NewFromInt(110).Equal(hit.Performance))
}

func TestCompareToMemoryAutocallLevel_MissThenTrigger(t *testing.T) {
	c, source := newTestContext(t)
	ctx := context.Background()
	laterDate := obsDate.AddDate(0, 3, 0)
	source.set("AAA.US", laterDate, 102)
	source.set("BBB.US", laterDate, 230)

	cond := domain.ObservationCondition{
		Type:   domain.ConditionMemoryAutocallLevel,
		Level:  "100%",
		Coupon: "4%",
	}

	c.SetObservation(obsDate, nil)
	missed := CompareToMemoryAutocallLevel(ctx, c, cond)
	assert.False(t, missed.Triggered)
	require.Len(t, c.MemoryBucket("missedAutocalls"), 1)

	c.SetObservation(laterDate, nil)
	triggered := CompareToMemoryAutocallLevel(ctx, c, cond)

	assert.True(t, triggered.Triggered)
	assert.True(t, decimal.NewFromInt(8).Equal(triggered.Amount))
	assert.Len(t, triggered.MemoryPaid, 1)
	_, autocalled := c.MemoryValue("autocalled")
	assert.True(t, autocalled)
}

func TestCompareToCapitalProtectionBarrier(t *testing.T) {
	c, _ := newTestContext(t)
	ctx := context.Background()
	c.SetObservation(obsDate, nil)

	intact := CompareToCapitalProtectionBarrier(ctx, c, domain.ObservationCondition{
		Type:  domain.ConditionCapitalProtectionBarrier,
		Level: "70%",
	})
	assert.False(t, intact.Triggered)
	_, breached := c.MemoryValue(memoryProtectionBreached)
	assert.False(t, breached)

	breach := CompareToCapitalProtectionBarrier(ctx, c, domain.ObservationCondition{
		Type:  domain.ConditionCapitalProtectionBarrier,
		Level: "95%",
	})
	assert.True(t, breach.Triggered)
	flag, ok := c.MemoryValue(memoryProtectionBreached)
	assert.True(t, ok)
	assert.Equal(t, true, flag)
}

func TestCalculateLowStrikeRedemption_AfterBreach(t *testing.T) {
	c, _ := newTestContext(t)
	ctx := context.Background()
	c.SetObservation(obsDate, nil)
	c.SetMemoryValue(memoryProtectionBreached, true)

	result := CalculateLowStrikeRedemption(ctx, c, domain.ObservationCondition{
		Type: domain.ConditionLowStrikeRedemption,
	})

	// Redemption follows the worst-of performance at the observation.
	assert.True(t, result.Triggered)
	assert.True(t, decimal.NewFromInt(90).Equal(result.Amount))
}

func TestCalculateLowStrikeRedemption_NoBreachRedeemsAtPar(t *testing.T) {
	c, _ := newTestContext(t)
	ctx := context.Background()
	c.SetObservation(obsDate, nil)

	result := CalculateLowStrikeRedemption(ctx, c, domain.ObservationCondition{
		Type: domain.ConditionLowStrikeRedemption,
	})

	assert.False(t, result.Triggered)
	assert.True(t, decimal.NewFromInt(100).Equal(result.Amount))
}

func TestCalculateLowStrikeRedemption_CappedAtPar(t *testing.T) {
	// Breach happened earlier in the life, but the basket recovered above par
	// by maturity: principal is still capped at 100.
	source := &fakePriceSource{}
	source.set("AAA.US", tradeDate, 100)
	source.set("BBB.US", tradeDate, 200)
	recoveryDate := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	source.set("AAA.US", recoveryDate, 120)
	source.set("BBB.US", recoveryDate, 260)

	c := NewContext(twoUnderlyingProduct(), source)
	c.Initialize(context.Background())
	c.SetObservation(recoveryDate, nil)
	c.SetMemoryValue(memoryProtectionBreached, true)

	result := CalculateLowStrikeRedemption(context.Background(), c, domain.ObservationCondition{
		Type: domain.ConditionLowStrikeRedemption,
	})

	assert.False(t, result.Triggered)
	assert.True(t, decimal.NewFromInt(100).Equal(result.Amount))
}

func TestEvaluateCondition_UnknownType(t *testing.T) {
	c, _ := newTestContext(t)

	result := EvaluateCondition(context.Background(), c, domain.ObservationCondition{Type: "BANANA"})

	assert.False(t, result.Triggered)
	assert.NotEmpty(t, c.Errors())
}
