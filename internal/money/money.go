// Package money rounds and validates currency amounts at the service boundary.
//
// The balance engine works on raw float64 values. Amounts are only rounded to
// cents when they leave the service, using decimal arithmetic so that values
// like 33.335 round the way people expect.
package money

import (
	"errors"
	"math"

	"github.com/shopspring/decimal"
)

// Places is the number of decimal places shown for amounts.
const Places = 2

var (
	// ErrNonPositiveAmount is returned for zero or negative amounts.
	ErrNonPositiveAmount = errors.New("amount must be greater than zero")
	// ErrNotFinite is returned for NaN or infinite amounts.
	ErrNotFinite = errors.New("amount must be a finite number")
)

// Round rounds amount half away from zero to Places decimal places.
// Negative zero is normalized to zero.
func Round(amount float64) float64 {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return amount
	}
	rounded := decimal.NewFromFloat(amount).Round(Places).InexactFloat64()
	if rounded == 0 {
		return 0
	}
	return rounded
}

// Validate checks that amount can be used as an expense amount.
func Validate(amount float64) error {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return ErrNotFinite
	}
	if amount <= 0 {
		return ErrNonPositiveAmount
	}
	return nil
}
