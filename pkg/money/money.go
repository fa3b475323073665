// Package money holds paise arithmetic. Amounts are persisted as int64 paise;
// rate math happens in decimal and is rounded to paise exactly once.
package money

import (
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	hundred = decimal.NewFromInt(100)
	// Zero is a zero decimal amount.
	Zero = decimal.Zero
)

// FromPaise lifts paise into a decimal amount expressed in paise.
func FromPaise(paise int64) decimal.Decimal {
	return decimal.NewFromInt(paise)
}

// FromRupees converts a rupee amount into paise, rounding half away from zero.
func FromRupees(rupees decimal.Decimal) int64 {
	return ToPaise(rupees.Mul(hundred))
}

// Rupees converts paise into a rupee decimal.
func Rupees(paise int64) decimal.Decimal {
	return decimal.NewFromInt(paise).Div(hundred)
}

// ToPaise rounds a decimal paise amount to whole paise.
func ToPaise(amount decimal.Decimal) int64 {
	return amount.Round(0).IntPart()
}

// Percent returns amount * rate / 100 without rounding.
func Percent(amount, rate decimal.Decimal) decimal.Decimal {
	return amount.Mul(rate).Div(hundred)
}

// Min returns the smaller of a and b.
func Min(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}

// Format renders paise as a rupee string, e.g. ₹500.00 or -₹1.25.
func Format(paise int64) string {
	sign := ""
	if paise < 0 {
		sign = "-"
		paise = -paise
	}
	return fmt.Sprintf("%s₹%d.%02d", sign, paise/100, paise%100)
}
