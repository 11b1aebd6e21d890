package shared

import "github.com/shopspring/decimal"

var (
	// MoneyTolerance absorbs rounding when comparing monetary amounts
	MoneyTolerance = decimal.RequireFromString("0.01")
	// RoundingGuard is the smallest amount worth allocating
	RoundingGuard = decimal.RequireFromString("0.005")
)

// RoundMoney rounds to two decimal places
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// MaxZero returns d, or zero when d is negative
func MaxZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// WithinTolerance reports whether a and b differ by at most MoneyTolerance
func WithinTolerance(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(MoneyTolerance)
}

// SumDecimals adds the given amounts
func SumDecimals(values ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(v)
	}
	return total
}
