// Package promo maps promo codes to percentage discounts.
//
// The code table is configuration (see promo_codes in config.yaml). The
// default table carries demo values and is not a business rule.
package promo

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/kingrea/storefront/internal/apperr"
)

// ErrMsgInvalidCode is the user-facing message for an unknown code.
const ErrMsgInvalidCode = "invalid code"

// DefaultCodes returns the demo code table.
func DefaultCodes() map[string]int {
	return map[string]int{
		"SUMMER20":  100,
		"WELCOME10": 10,
	}
}

// Engine resolves codes against a static table.
type Engine struct {
	codes map[string]int
}

// NewEngine builds an engine. Codes are matched case-insensitively and
// percentages must lie in 0..100.
func NewEngine(codes map[string]int) (*Engine, error) {
	table := make(map[string]int, len(codes))
	for code, pct := range codes {
		key := normalize(code)
		if key == "" {
			return nil, fmt.Errorf("promo: empty code")
		}
		if pct < 0 || pct > 100 {
			return nil, fmt.Errorf("promo: %s percentage must be 0-100", key)
		}
		table[key] = pct
	}
	return &Engine{codes: table}, nil
}

// Default returns an engine over DefaultCodes.
func Default() *Engine {
	e, _ := NewEngine(DefaultCodes())
	return e
}

// Apply returns the percentage discount granted by code.
func (e *Engine) Apply(code string) (int, error) {
	key := normalize(code)
	if key == "" {
		return 0, apperr.Promo("promo.apply", "code is required")
	}
	pct, ok := e.codes[key]
	if !ok {
		return 0, apperr.Promo("promo.apply", ErrMsgInvalidCode)
	}
	return pct, nil
}

// Codes lists the known codes in alphabetical order.
func (e *Engine) Codes() []string {
	out := make([]string, 0, len(e.codes))
	for code := range e.codes {
		out = append(out, code)
	}
	sort.Strings(out)
	return out
}

// Discount returns percent of subtotal, never more than subtotal.
func Discount(subtotal decimal.Decimal, percent int) decimal.Decimal {
	if percent <= 0 || !subtotal.IsPositive() {
		return decimal.Zero
	}
	if percent >= 100 {
		return subtotal
	}
	return subtotal.Mul(decimal.NewFromInt(int64(percent))).Div(decimal.NewFromInt(100))
}

func normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
