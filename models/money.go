package models

import "github.com/shopspring/decimal"

// Money values are carried as decimals and rounded to 2 fractional digits,
// half up, at every boundary. Running totals accumulate unrounded and are
// rounded only at the final sum; this is the single rounding policy for both
// the live cart subtotal and the order reconciliation subtotal.

// Round2 rounds a monetary amount to 2 decimal places, half up.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// MinorUnits converts a monetary amount to integer minor units (cents),
// the only representation the payment provider accepts.
func MinorUnits(d decimal.Decimal) int64 {
	return d.Round(2).Shift(2).IntPart()
}

// FromMinorUnits converts provider minor units back to a monetary amount.
func FromMinorUnits(n int64) decimal.Decimal {
	return decimal.NewFromInt(n).Shift(-2)
}
