package marketdata

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTickerVariants(t *testing.T) {
	tests := []struct {
		name   string
		ticker string
		want   []string
	}{
		{
			name:   "Bare ticker tries .US suffix first",
			ticker: "AAPL",
			want:   []string{"AAPL.US", "AAPL"},
		},
		{
			name:   "Suffixed ticker tries itself first, then stripped form",
			ticker: "NESN.SW",
			want:   []string{"NESN.SW", "NESN"},
		},
		{
			name:   "Whitespace is trimmed",
			ticker: " AAPL ",
			want:   []string{"AAPL.US", "AAPL"},
		},
		{
			name:   "Empty ticker yields no variants",
			ticker: "",
			want:   nil,
		},
		{
			name:   "Trailing dot is not a suffix",
			ticker: "AAPL.",
			want:   []string{"AAPL.." + defaultSuffix, "AAPL."},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, TickerVariants(tt.ticker))
		})
	}
}

func TestExtractExchange(t *testing.T) {
	assert.Equal(t, "SW", ExtractExchange("NESN.SW"))
	assert.Equal(t, "US", ExtractExchange("AAPL.US"))
	assert.Equal(t, "US", ExtractExchange("AAPL")) // bare defaults to US
	assert.Equal(t, "PA", ExtractExchange("mc.pa"))
}

func TestExtractCurrency(t *testing.T) {
	assert.Equal(t, "USD", ExtractCurrency("AAPL.US"))
	assert.Equal(t, "USD", ExtractCurrency("AAPL"))
	assert.Equal(t, "CHF", ExtractCurrency("NESN.SW"))
	assert.Equal(t, "GBP", ExtractCurrency("HSBA.L"))
	assert.Equal(t, "EUR", ExtractCurrency("MC.PA"))
	assert.Equal(t, "USD", ExtractCurrency("XXX.ZZ")) // unknown suffix defaults to USD
}
