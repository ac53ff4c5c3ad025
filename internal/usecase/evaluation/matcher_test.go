package evaluation

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/simaogato/noteval-backend/internal/domain"
)

func matcherUnderlyings() []domain.Underlying {
	return []domain.Underlying{
		{Ticker: "AAPL.US", InternalID: "u-1", Symbol: "AAPL", Name: "Apple Inc"},
		{Ticker: "NESN.SW", InternalID: "u-2", Symbol: "NESN", Name: "Nestle SA"},
	}
}

func TestMatchUnderlying_ExactMatch(t *testing.T) {
	match := MatchUnderlying(matcherUnderlyings(), "NESN.SW")

	assert.NotNil(t, match)
	assert.Equal(t, MatchExact, match.Kind)
	assert.Equal(t, "NESN.SW", match.Identifier)
	assert.Equal(t, "u-2", match.Underlying.InternalID)
}

func TestMatchUnderlying_CaseInsensitiveMatch(t *testing.T) {
	match := MatchUnderlying(matcherUnderlyings(), "aapl")

	assert.NotNil(t, match)
	assert.Equal(t, MatchCaseInsensitive, match.Kind)
	assert.Equal(t, "AAPL", match.Identifier)
}

func TestMatchUnderlying_SubstringMatch(t *testing.T) {
	match := MatchUnderlying(matcherUnderlyings(), "nestle")

	assert.NotNil(t, match)
	assert.Equal(t, MatchSubstring, match.Kind)
	assert.Equal(t, "u-2", match.Underlying.InternalID)
}

func TestMatchUnderlying_ExactBeatsSubstringOnOtherUnderlying(t *testing.T) {
	// "AAPL" is a substring of "AAPL.US" on the first underlying but an exact
	// symbol there too; more interesting: an identifier that is exact on one
	// underlying and a substring of another must resolve to the exact hit
	// even when the substring owner comes first in product order.
	underlyings := []domain.Underlying{
		{Ticker: "NESNX.US", Name: "Nesnex Holdings"},
		{Ticker: "NESN.SW", Symbol: "NESN"},
	}

	match := MatchUnderlying(underlyings, "NESN")

	assert.NotNil(t, match)
	assert.Equal(t, MatchExact, match.Kind)
	assert.Equal(t, "NESN.SW", match.Underlying.Ticker)
}

func TestMatchUnderlying_NoMatch(t *testing.T) {
	assert.Nil(t, MatchUnderlying(matcherUnderlyings(), "TSLA"))
	assert.Nil(t, MatchUnderlying(matcherUnderlyings(), ""))
	assert.Nil(t, MatchUnderlying(nil, "AAPL"))
}
