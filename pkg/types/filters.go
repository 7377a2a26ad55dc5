package types

import "github.com/shopspring/decimal"

// SymbolFilter captures the lot/notional constraints an exchange
// enforces on a listed symbol (spec.md §4.D, §6).
type SymbolFilter struct {
	MinOrderSize decimal.Decimal
	MaxOrderSize decimal.Decimal
	OrderStep    decimal.Decimal
	MinNotional  decimal.Decimal
	Base         Currency
	Commodity    Currency
}

// Apply rounds quantity toward zero to the filter's step size, clamps
// it to [0, MaxOrderSize], and reports dust per spec.md §4.D step 4:
// below MinOrderSize, below MinNotional (at the given price), or
// rounded to exactly zero are all dust.
func (f SymbolFilter) Apply(quantity, price decimal.Decimal) (out decimal.Decimal, isDust bool) {
	if quantity.Sign() <= 0 {
		return decimal.Zero, true
	}
	if quantity.GreaterThan(f.MaxOrderSize) {
		quantity = f.MaxOrderSize
	}
	if !f.OrderStep.IsZero() {
		steps := quantity.Div(f.OrderStep).Truncate(0)
		quantity = steps.Mul(f.OrderStep)
	}
	if quantity.IsZero() || quantity.LessThan(f.MinOrderSize) {
		return decimal.Zero, true
	}
	if !f.MinNotional.IsZero() && quantity.Mul(price).LessThan(f.MinNotional) {
		return decimal.Zero, true
	}
	return quantity, false
}
