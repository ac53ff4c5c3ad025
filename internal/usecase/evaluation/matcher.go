package evaluation

import (
	"strings"

	"github.com/simaogato/noteval-backend/internal/domain"
)

// MatchKind classifies how an identifier matched an underlying. Later kinds
// are strictly lower confidence: a substring hit must never shadow an exact
// hit on another underlying, so matching runs as three full passes.
type MatchKind int

const (
	MatchNone MatchKind = iota
	MatchExact
	MatchCaseInsensitive
	MatchSubstring
)

// Match is the result of resolving an identifier against a product's
// underlyings: which underlying matched, through which of its identifiers,
// and at what confidence.
type Match struct {
	Underlying *domain.Underlying
	Identifier string
	Kind       MatchKind
}

// MatchUnderlying resolves identifier against the underlyings, trying each
// underlying's identifiers (ticker, internal id, symbol, name) with exact
// matching first, then case-insensitive, then substring containment.
// Within one pass, underlyings are tried in product order. Returns nil when
// nothing matches.
func MatchUnderlying(underlyings []domain.Underlying, identifier string) *Match {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil
	}

	for i := range underlyings {
		for _, id := range underlyings[i].Identifiers() {
			if id == identifier {
				return &Match{Underlying: &underlyings[i], Identifier: id, Kind: MatchExact}
			}
		}
	}

	lowered := strings.ToLower(identifier)
	for i := range underlyings {
		for _, id := range underlyings[i].Identifiers() {
			if strings.ToLower(id) == lowered {
				return &Match{Underlying: &underlyings[i], Identifier: id, Kind: MatchCaseInsensitive}
			}
		}
	}

	for i := range underlyings {
		for _, id := range underlyings[i].Identifiers() {
			candidate := strings.ToLower(id)
			if strings.Contains(candidate, lowered) || strings.Contains(lowered, candidate) {
				return &Match{Underlying: &underlyings[i], Identifier: id, Kind: MatchSubstring}
			}
		}
	}

	return nil
}
