// Package money provides helpers for monetary amounts.
//
// Amounts are exact fixed-point decimals (shopspring/decimal); binary floating point
// never touches a balance.
// Invariants:
//   - A valid amount is strictly positive.
//   - A valid amount has no more fractional digits than the configured minor-unit scale.
package money

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// DefaultScale is the number of minor-unit digits used when none is configured (cents).
const DefaultScale int32 = 2

// Parse converts a textual amount such as "100.50" into a decimal.
func Parse(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidFormat
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidFormat, s)
	}
	return d, nil
}

// Validate reports whether amount is usable as a money movement at the given scale.
func Validate(amount decimal.Decimal, scale int32) error {
	if !amount.IsPositive() {
		return ErrNotPositive
	}
	if !HasScale(amount, scale) {
		return fmt.Errorf("%w: at most %d decimal places", ErrTooPrecise, scale)
	}
	return nil
}

// HasScale reports whether amount is representable with scale fractional digits.
func HasScale(amount decimal.Decimal, scale int32) bool {
	return amount.Equal(amount.Truncate(scale))
}

// Format renders amount with exactly scale fractional digits.
func Format(amount decimal.Decimal, scale int32) string {
	return amount.StringFixed(scale)
}
