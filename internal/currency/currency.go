// Package currency converts base-currency amounts into display strings.
package currency

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/kingrea/storefront/internal/apperr"
)

// Code is an ISO 4217 currency code.
type Code string

const (
	EGP Code = "EGP"
	USD Code = "USD"
	EUR Code = "EUR"
	GBP Code = "GBP"
)

// Base is the currency catalog prices are expressed in.
const Base = EGP

var symbols = map[Code]string{
	USD: "$",
	EUR: "€",
	GBP: "£",
	EGP: "EGP ",
}

// Symbols returns the display prefix for every currency with a dedicated
// symbol. Codes outside this table render as "<CODE> ".
func Symbols() map[Code]string {
	out := make(map[Code]string, len(symbols))
	for k, v := range symbols {
		out[k] = v
	}
	return out
}

// DefaultRates is the conversion table used when no configuration exists.
func DefaultRates() map[string]float64 {
	return map[string]float64{"EGP": 1, "USD": 0.032, "EUR": 0.029, "GBP": 0.025}
}

// ConfigError signals that a display currency has no configured rate. The
// amount was formatted in the base currency instead.
type ConfigError struct {
	Code Code
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("currency: no rate for %q, showing %s", string(e.Code), Base)
}

// Converter formats amounts using a fixed rate table.
type Converter struct {
	rates   map[Code]decimal.Decimal
	printer *message.Printer
}

// NewConverter builds a converter from a code -> rate table. The table must
// contain the base currency.
func NewConverter(rates map[string]float64) (*Converter, error) {
	table := make(map[Code]decimal.Decimal, len(rates))
	for code, rate := range rates {
		if rate <= 0 {
			return nil, fmt.Errorf("currency: rate for %s must be positive", code)
		}
		table[Code(strings.ToUpper(strings.TrimSpace(code)))] = decimal.NewFromFloat(rate)
	}
	if _, ok := table[Base]; !ok {
		return nil, fmt.Errorf("currency: rate table must include %s", Base)
	}
	return &Converter{
		rates:   table,
		printer: message.NewPrinter(language.English),
	}, nil
}

// Default returns a converter over DefaultRates.
func Default() *Converter {
	c, _ := NewConverter(DefaultRates())
	return c
}

// Codes lists the configured currencies, base first then alphabetical.
func (c *Converter) Codes() []Code {
	codes := make([]Code, 0, len(c.rates))
	for code := range c.rates {
		if code != Base {
			codes = append(codes, code)
		}
	}
	sort.Slice(codes, func(i, j int) bool { return codes[i] < codes[j] })
	return append([]Code{Base}, codes...)
}

// Next returns the configured currency after code, wrapping around.
func (c *Converter) Next(code Code) Code {
	codes := c.Codes()
	for i, candidate := range codes {
		if candidate == code {
			return codes[(i+1)%len(codes)]
		}
	}
	return Base
}

// Convert returns amount in code, rounded half-up to two places. An unknown
// code yields the base amount and a *ConfigError.
func (c *Converter) Convert(amount decimal.Decimal, code Code) (decimal.Decimal, Code, error) {
	if amount.IsNegative() {
		return decimal.Zero, code, apperr.Validation("currency.convert", "amount cannot be negative")
	}
	rate, ok := c.rates[code]
	var cfgErr error
	if !ok {
		cfgErr = &ConfigError{Code: code}
		code = Base
		rate = c.rates[Base]
	}
	return amount.Mul(rate).Round(2), code, cfgErr
}

// FormatPrice renders amount (in the base currency) as a display string in
// code, e.g. "$3.20" or "EGP 100.00". Negative amounts are rejected. An
// unknown code renders in the base currency and returns a *ConfigError
// alongside the string.
func (c *Converter) FormatPrice(amount decimal.Decimal, code Code) (string, error) {
	value, shown, err := c.Convert(amount, code)
	if err != nil && apperr.IsValidation(err) {
		return "", err
	}
	return symbolFor(shown) + c.digits(value), err
}

func (c *Converter) digits(value decimal.Decimal) string {
	f, _ := value.Float64()
	return c.printer.Sprint(number.Decimal(f,
		number.MinFractionDigits(2),
		number.MaxFractionDigits(2),
	))
}

func symbolFor(code Code) string {
	if s, ok := symbols[code]; ok {
		return s
	}
	return string(code) + " "
}
