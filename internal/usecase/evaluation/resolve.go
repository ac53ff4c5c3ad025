package evaluation

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ResolvePercentage parses a percentage string like "70%" and applies it to
// base: (percentage / 100) x base. The trailing percent sign is optional.
// Invalid input records an error and returns base unchanged.
func (c *Context) ResolvePercentage(s string, base decimal.Decimal) decimal.Decimal {
	trimmed := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "%"))

	pct, err := decimal.NewFromString(trimmed)
	if err != nil {
		c.RecordError(fmt.Sprintf("invalid percentage %q, keeping base %s", s, base))
		return base
	}
	return pct.Div(noChange).Mul(base)
}

// ResolveValue turns product label text into a numeric level. In order:
// numeric literals pass through, percentage strings resolve against a base of
// 100, named variables are looked up, and the keywords strike/initial and
// zero/nothing map to 100 and 0. Anything else records an error and resolves
// to 0.
func (c *Context) ResolveValue(expr string) decimal.Decimal {
	s := strings.TrimSpace(expr)

	if d, err := decimal.NewFromString(s); err == nil {
		return d
	}
	if strings.HasSuffix(s, "%") {
		return c.ResolvePercentage(s, noChange)
	}
	if v, ok := c.Variable(s); ok {
		return v
	}

	switch strings.ToLower(s) {
	case "strike", "initial":
		return noChange
	case "zero", "nothing":
		return decimal.Zero
	}

	c.RecordError(fmt.Sprintf("cannot resolve value %q, defaulting to 0", expr))
	return decimal.Zero
}

// ResolveAmount evaluates a coupon/redemption label in the restricted
// arithmetic micro-language: case-insensitive text where the keywords
// "underlying performance"/"underlying" substitute the current worst-of
// performance and "initial level"/"full protection"/"capital" substitute 100,
// combined by a single operator class. Unparseable expressions record an
// error and resolve to 0.
func (c *Context) ResolveAmount(ctx context.Context, expr string) decimal.Decimal {
	s := strings.ToLower(strings.TrimSpace(expr))
	if s == "" {
		c.RecordError("cannot resolve empty amount expression, defaulting to 0")
		return decimal.Zero
	}

	if strings.Contains(s, "underlying") {
		perf := c.UnderlyingPerformance(ctx, c.currentDate)
		s = strings.ReplaceAll(s, "underlying performance", perf.String())
		s = strings.ReplaceAll(s, "underlying", perf.String())
	}
	for _, keyword := range []string{"initial level", "full protection", "capital"} {
		s = strings.ReplaceAll(s, keyword, noChange.String())
	}

	return c.parseMathExpression(s)
}

// parseMathExpression evaluates a single-operator-class arithmetic expression
// left to right. The first operator found (+, - or *) decides the class for
// the whole expression; mixed classes like "100% + 5% * 2" are NOT evaluated
// with precedence, the terms are simply split on the first class found. Label
// text is single-operator in practice, so this stays a narrow parser rather
// than an expression grammar.
func (c *Context) parseMathExpression(s string) decimal.Decimal {
	op := firstOperator(s)
	if op == 0 {
		return c.ResolveValue(s)
	}

	parts := strings.Split(s, string(op))
	result := c.ResolveValue(parts[0])
	for _, part := range parts[1:] {
		term := c.ResolveValue(part)
		switch op {
		case '+':
			result = result.Add(term)
		case '-':
			result = result.Sub(term)
		case '*':
			result = result.Mul(term)
		}
	}
	return result
}

// firstOperator returns the first arithmetic operator in s, ignoring a
// leading sign. Returns 0 when s contains none.
func firstOperator(s string) byte {
	for i := 1; i < len(s); i++ {
		switch s[i] {
		case '+', '-', '*':
			return s[i]
		}
	}
	return 0
}
