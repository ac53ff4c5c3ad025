package marketdata

import "strings"

// defaultSuffix is appended to bare tickers before the bare form is tried.
// Price uploads historically stored US listings under the ".US" convention,
// so the suffixed variant has priority.
const defaultSuffix = "US"

// suffixCurrencies maps exchange suffixes to their trading currency.
// Used for labeling only, never for price resolution.
var suffixCurrencies = map[string]string{
	"US": "USD",
	"L":  "GBP",
	"LN": "GBP",
	"PA": "EUR",
	"DE": "EUR",
	"F":  "EUR",
	"MI": "EUR",
	"AS": "EUR",
	"MC": "EUR",
	"SW": "CHF",
	"VX": "CHF",
	"T":  "JPY",
	"HK": "HKD",
}

// splitSuffix splits a ticker into its base and exchange suffix.
// Returns ok=false when the ticker carries no suffix.
func splitSuffix(ticker string) (base, suffix string, ok bool) {
	idx := strings.LastIndex(ticker, ".")
	if idx <= 0 || idx == len(ticker)-1 {
		return ticker, "", false
	}
	return ticker[:idx], ticker[idx+1:], true
}

// TickerVariants builds the ordered list of physical ticker symbols to probe
// for a logical ticker. The order is a correctness requirement: the first
// variant with data wins.
//   - bare ticker:     {ticker}.US first, then the bare ticker
//   - suffixed ticker: the ticker as given, then the suffix-stripped form
func TickerVariants(ticker string) []string {
	ticker = strings.TrimSpace(ticker)
	if ticker == "" {
		return nil
	}
	if base, _, ok := splitSuffix(ticker); ok {
		return []string{ticker, base}
	}
	return []string{ticker + "." + defaultSuffix, ticker}
}

// ExtractExchange derives the exchange code from a ticker's suffix convention.
// Bare tickers default to the US listing.
func ExtractExchange(ticker string) string {
	if _, suffix, ok := splitSuffix(strings.TrimSpace(ticker)); ok {
		return strings.ToUpper(suffix)
	}
	return defaultSuffix
}

// ExtractCurrency derives the trading currency from a ticker's suffix
// convention. Unknown suffixes default to USD.
func ExtractCurrency(ticker string) string {
	if currency, ok := suffixCurrencies[ExtractExchange(ticker)]; ok {
		return currency
	}
	return "USD"
}
