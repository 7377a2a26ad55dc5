package rebalance

import (
	"github.com/shopspring/decimal"
	"github.com/veltrade/rebalancer/pkg/types"
)

var one = decimal.NewFromInt(1)

// MidPrices computes each book's mid price and inserts the reciprocal
// price under the inverse product, so a lookup never needs to know
// which leg of a pair is the one actually listed on the exchange
// (spec.md §4.A).
func MidPrices(books []types.OrderBook) (map[types.Product]decimal.Decimal, error) {
	out := make(map[types.Product]decimal.Decimal, len(books)*2)
	for _, b := range books {
		if err := b.Validate(); err != nil {
			return nil, err
		}
		mid := b.Mid()
		out[b.Product] = mid
		out[b.Product.Inverse()] = one.Div(mid)
	}
	return out, nil
}

// PriceEstimates returns, for base and every currency reachable from
// it through mids, an estimate of one unit of that currency's value
// denominated in base. A shortest log-weight path picks the cheapest
// conversion route; the estimate itself is the product of the actual
// decimal mid prices along that route, so precision never passes
// through the float64 search weights.
func PriceEstimates(mids map[types.Product]decimal.Decimal, base types.Currency) map[types.Currency]decimal.Decimal {
	g := newRateGraph()
	for product, price := range mids {
		commodity, pbase, err := product.Split()
		if err != nil || price.IsZero() {
			continue
		}
		// product quotes "1 commodity = price pbase", so converting
		// pbase into commodity buys 1/price units per unit of pbase.
		g.addEdge(pbase, commodity, one.Div(price))
	}

	_, prev := g.relax(base)
	estimates := map[types.Currency]decimal.Decimal{base: one}
	for _, c := range g.nodes() {
		if c == base {
			continue
		}
		path := pathTo(prev, base, c)
		if path == nil {
			continue
		}
		amountOfCPerBase := one
		ok := true
		for i := 0; i+1 < len(path); i++ {
			rate, found := g.rateBetween(path[i], path[i+1])
			if !found {
				ok = false
				break
			}
			amountOfCPerBase = amountOfCPerBase.Mul(rate)
		}
		if !ok || amountOfCPerBase.IsZero() {
			continue
		}
		estimates[c] = one.Div(amountOfCPerBase)
	}
	return estimates
}

// WeightsFromResources returns each currency's fractional share of
// total portfolio value, valuing every holding via priceEstimates
// (spec.md §4.A). Currencies with no price estimate are skipped, not
// zero-weighted, since their true value is unknown rather than zero.
func WeightsFromResources(resources map[types.Currency]decimal.Decimal, priceEstimates map[types.Currency]decimal.Decimal) map[types.Currency]decimal.Decimal {
	total := PortfolioValueFromResources(resources, priceEstimates)
	weights := make(map[types.Currency]decimal.Decimal, len(resources))
	if total.IsZero() {
		return weights
	}
	for currency, amount := range resources {
		price, ok := priceEstimates[currency]
		if !ok {
			continue
		}
		weights[currency] = amount.Mul(price).Div(total)
	}
	return weights
}

// ValuesFromResources converts every holding to its value in base
// units, keyed by currency. Unlike WeightsFromResources this is not
// normalized to sum to one — it is the absolute value the planner
// needs to compute real transfer sizes.
func ValuesFromResources(resources map[types.Currency]decimal.Decimal, priceEstimates map[types.Currency]decimal.Decimal) map[types.Currency]decimal.Decimal {
	values := make(map[types.Currency]decimal.Decimal, len(resources))
	for currency, amount := range resources {
		price, ok := priceEstimates[currency]
		if !ok {
			continue
		}
		values[currency] = amount.Mul(price)
	}
	return values
}

// ValuesFromWeights scales a normalized weight map by total, turning
// fractional targets into absolute base-currency value targets.
func ValuesFromWeights(weights map[types.Currency]decimal.Decimal, total decimal.Decimal) map[types.Currency]decimal.Decimal {
	values := make(map[types.Currency]decimal.Decimal, len(weights))
	for currency, w := range weights {
		values[currency] = w.Mul(total)
	}
	return values
}

// PortfolioValueFromResources sums every holding's value in base
// units, per the same priceEstimates map WeightsFromResources uses.
func PortfolioValueFromResources(resources map[types.Currency]decimal.Decimal, priceEstimates map[types.Currency]decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for currency, amount := range resources {
		price, ok := priceEstimates[currency]
		if !ok {
			continue
		}
		total = total.Add(amount.Mul(price))
	}
	return total
}

// SpreadToFee converts a two-sided book's bid/ask spread into an
// equivalent one-way trading fee: 1 - sqrt(bid/ask). A book crossing
// the mid in both directions costs this fraction of notional each way.
func SpreadToFee(book types.OrderBook) decimal.Decimal {
	if !book.TwoSided || book.Ask.IsZero() {
		return decimal.Zero
	}
	return one.Sub(types.Sqrt(book.Bid.Div(book.Ask)))
}

// TotalFee combines a spread-equivalent fee s and an exchange
// commission fee e into the combined one-way cost of a trade:
// 1 - (1-s)(1-e).
func TotalFee(spreadFee, commissionFee decimal.Decimal) decimal.Decimal {
	return one.Sub(one.Sub(spreadFee).Mul(one.Sub(commissionFee)))
}

// BuildEdgeFees resolves the planner's fee input for every listed
// product from the exchange's maker or taker schedule, per feeOf.
// Plugged through explicitly rather than hardcoded so the market
// executor (taker) and limit executor (maker) never silently diverge.
func BuildEdgeFees(products []types.Product, feeOf func(types.Product) (decimal.Decimal, error)) (map[types.Product]decimal.Decimal, error) {
	fees := make(map[types.Product]decimal.Decimal, len(products)*2)
	for _, p := range products {
		fee, err := feeOf(p)
		if err != nil {
			return nil, err
		}
		fees[p] = fee
		fees[p.Inverse()] = fee
	}
	return fees, nil
}
