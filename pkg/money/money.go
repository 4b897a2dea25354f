// Package money holds the fixed-point helpers shared by the ledger and the
// auction services. Amounts are int64 minor units (cents); ratios are decimals.
package money

import "github.com/shopspring/decimal"

// CeilRatio returns ceil(amount * ratio) in minor units.
func CeilRatio(amount int64, ratio decimal.Decimal) int64 {
	if amount <= 0 || !ratio.IsPositive() {
		return 0
	}
	return decimal.NewFromInt(amount).Mul(ratio).Ceil().IntPart()
}

// RoundRatio returns amount * ratio rounded half-up to the minor unit.
func RoundRatio(amount int64, ratio decimal.Decimal) int64 {
	if amount <= 0 || !ratio.IsPositive() {
		return 0
	}
	// decimal rounds half away from zero, which is half-up for non-negative values
	return decimal.NewFromInt(amount).Mul(ratio).Round(0).IntPart()
}

// ValidRatio reports whether r lies in [0, 1].
func ValidRatio(r decimal.Decimal) bool {
	return !r.IsNegative() && r.LessThanOrEqual(decimal.NewFromInt(1))
}

// Max returns the larger of a and b.
func Max(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
