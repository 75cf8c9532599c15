package shared

import "github.com/shopspring/decimal"

// MoneyPlaces is the stored precision for monetary columns.
const MoneyPlaces = 2

// Epsilon is the tolerance used when comparing aggregated amounts.
var Epsilon = decimal.RequireFromString("0.01")

// RoundMoney rounds to the stored precision.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyPlaces)
}

// WithinEpsilon reports whether |a-b| < 0.01.
func WithinEpsilon(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThan(Epsilon)
}

// LineAmounts returns the rounded subtotal and tax for quantity*price at taxRate percent.
func LineAmounts(quantity, unitPrice, taxRate decimal.Decimal) (subtotal, tax decimal.Decimal) {
	subtotal = RoundMoney(quantity.Mul(unitPrice))
	tax = RoundMoney(subtotal.Mul(taxRate).Div(decimal.NewFromInt(100)))
	return subtotal, tax
}
