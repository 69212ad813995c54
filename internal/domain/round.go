package domain

import "github.com/shopspring/decimal"

// Monetary values round to 2 decimal places, percentages to 4. Rounding is
// half up at a fixed scale via decimal arithmetic so 2.675 rounds to 2.68
// regardless of its binary float representation, keeping totals reproducible
// across runs.

// Round rounds val half up (half away from zero) at the given scale.
func Round(val float64, places int32) float64 {
	out, _ := decimal.NewFromFloat(val).Round(places).Float64()
	return out
}

// RoundMoney rounds a monetary value to 2 decimal places.
func RoundMoney(val float64) float64 {
	return Round(val, 2)
}

// RoundPercent rounds a percentage or ratio to 4 decimal places.
func RoundPercent(val float64) float64 {
	return Round(val, 4)
}
