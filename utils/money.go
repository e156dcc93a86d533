package utils

import "github.com/shopspring/decimal"

// Money values are decimal with exactly 2 fractional digits. Sums of
// already-rounded amounts are exact; rounding only ever happens at a rate
// multiplication (VAT derivation), half away from zero.

// Round2 rounds d to 2 decimal places (half away from zero).
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// MulRound2 multiplies an exact amount by a rate and rounds to 2 dp.
// This is the only place in the system where rounding occurs.
func MulRound2(amount, rate decimal.Decimal) decimal.Decimal {
	return amount.Mul(rate).Round(2)
}

// VatFromGoods derives the vat amount for goods at a percentage rate
// (rate 20 means 20%).
func VatFromGoods(goods, rate decimal.Decimal) decimal.Decimal {
	return MulRound2(goods, rate.Div(decimal.NewFromInt(100)))
}

// Between reports whether v lies within the closed interval spanned by 0 and
// bound, whichever way round the interval runs. A zero bound admits only 0.
func Between(v, bound decimal.Decimal) bool {
	if bound.IsNegative() {
		return !v.IsPositive() && v.GreaterThanOrEqual(bound)
	}
	return !v.IsNegative() && v.LessThanOrEqual(bound)
}
