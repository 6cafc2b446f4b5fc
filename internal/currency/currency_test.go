package currency

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kingrea/storefront/internal/apperr"
)

func TestFormatPriceTable(t *testing.T) {
	conv := Default()
	tests := []struct {
		amount string
		code   Code
		want   string
	}{
		{"100", EGP, "EGP 100.00"},
		{"100", USD, "$3.20"},
		{"100", EUR, "€2.90"},
		{"100", GBP, "£2.50"},
		{"0", USD, "$0.00"},
		{"29.99", EGP, "EGP 29.99"},
		// 15.7 * 0.032 = 0.5024
		{"15.7", USD, "$0.50"},
		// 0.2 * 0.025 = 0.005 rounds half-up
		{"0.2", GBP, "£0.01"},
	}
	for _, tt := range tests {
		t.Run(string(tt.code)+"_"+tt.amount, func(t *testing.T) {
			got, err := conv.FormatPrice(decimal.RequireFromString(tt.amount), tt.code)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormatPriceRejectsNegativeAmounts(t *testing.T) {
	got, err := Default().FormatPrice(decimal.NewFromInt(-1), USD)
	assert.Empty(t, got)
	assert.True(t, apperr.IsValidation(err))
}

func TestFormatPriceUnknownCurrencyFallsBackToBase(t *testing.T) {
	got, err := Default().FormatPrice(decimal.NewFromInt(50), Code("JPY"))
	assert.Equal(t, "EGP 50.00", got)
	var cfgErr *ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, Code("JPY"), cfgErr.Code)
}

func TestFormatPriceIsMonotonic(t *testing.T) {
	conv := Default()
	for _, code := range conv.Codes() {
		prev := decimal.Zero
		for cents := int64(0); cents <= 5000; cents += 7 {
			amount := decimal.New(cents, -2)
			value, _, err := conv.Convert(amount, code)
			require.NoError(t, err)
			assert.False(t, value.LessThan(prev), "%s: %s converted below previous %s", code, amount, prev)
			prev = value

			again, err := conv.FormatPrice(amount, code)
			require.NoError(t, err)
			first, _ := conv.FormatPrice(amount, code)
			assert.Equal(t, first, again)
		}
	}
}

func TestCodesAndNext(t *testing.T) {
	conv := Default()
	assert.Equal(t, []Code{EGP, EUR, GBP, USD}, conv.Codes())
	assert.Equal(t, EUR, conv.Next(EGP))
	assert.Equal(t, EGP, conv.Next(USD))
	assert.Equal(t, EGP, conv.Next(Code("XYZ")))
}

func TestNewConverterValidatesTable(t *testing.T) {
	_, err := NewConverter(map[string]float64{"USD": 1})
	assert.Error(t, err)
	_, err = NewConverter(map[string]float64{"EGP": 1, "USD": 0})
	assert.Error(t, err)

	conv, err := NewConverter(map[string]float64{"egp": 1, "chf": 0.02})
	require.NoError(t, err)
	got, err := conv.FormatPrice(decimal.NewFromInt(100), Code("CHF"))
	require.NoError(t, err)
	assert.Equal(t, "CHF 2.00", got)
}

func TestSymbolsEnumerable(t *testing.T) {
	s := Symbols()
	assert.Equal(t, "$", s[USD])
	assert.Equal(t, "€", s[EUR])
	assert.Equal(t, "£", s[GBP])
	assert.Equal(t, "EGP ", s[EGP])
	s[USD] = "changed"
	assert.Equal(t, "$", Symbols()[USD])
}
