// Package money holds integer minor-unit arithmetic.
package money

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Prorate returns amount * part / whole rounded half-up to a whole minor unit.
// Negative amounts round symmetrically (half away from zero). A zero whole
// contributes nothing.
func Prorate(amount, part, whole int64) int64 {
	if whole == 0 || amount == 0 || part == 0 {
		return 0
	}
	share := decimal.NewFromInt(amount).
		Mul(decimal.NewFromInt(part)).
		Div(decimal.NewFromInt(whole)).
		Round(0)
	return share.IntPart()
}

// PercentOf returns basisPoints/10000 of amount rounded half-up.
func PercentOf(amount, basisPoints int64) int64 {
	return Prorate(amount, basisPoints, 10000)
}

// Format renders cents as a fixed two-decimal string, e.g. -1234 -> "-12.34".
func Format(cents int64) string {
	return decimal.New(cents, -2).StringFixed(2)
}

// Parse reads a decimal major-unit amount such as "1234.56" or "-7,5" into
// cents, rounding half away from zero.
func Parse(s string) (int64, error) {
	d, err := decimal.NewFromString(strings.ReplaceAll(strings.TrimSpace(s), ",", "."))
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return d.Shift(2).Round(0).IntPart(), nil
}
