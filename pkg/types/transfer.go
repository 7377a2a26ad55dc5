package types

import "github.com/shopspring/decimal"

// Transfer is an abstract currency-to-currency movement produced by
// the routing planner, denominated in base-currency value units,
// before being compiled into a concrete exchange Order (spec.md §3).
type Transfer struct {
	From   Currency
	To     Currency
	Amount decimal.Decimal
}
