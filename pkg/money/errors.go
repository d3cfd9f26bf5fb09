package money

import "errors"

var (
	// ErrInvalidFormat is returned when a string cannot be parsed as a decimal amount.
	ErrInvalidFormat = errors.New("invalid amount format")

	// ErrNotPositive is returned when an amount is zero or negative.
	ErrNotPositive = errors.New("amount must be positive")

	// ErrTooPrecise is returned when an amount has more fractional digits than the currency allows.
	ErrTooPrecise = errors.New("amount exceeds minor-unit precision")
)
