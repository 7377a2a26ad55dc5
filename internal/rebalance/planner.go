package rebalance

import (
	"sort"

	"github.com/shopspring/decimal"
	"github.com/veltrade/rebalancer/pkg/types"
)

// dustThreshold is the minimum base-denominated transfer amount the
// planner will emit; deltas smaller than this are noise from price
// estimate rounding, not a real rebalancing need.
var dustThreshold = decimal.New(1, -9)

// RebalanceOrders computes the minimal set of currency-to-currency
// transfers that moves a portfolio from initialValues to finalValues,
// denominated in base-currency value units (spec.md §4.B). Currencies
// below finalValues' target are sinks (need more value); currencies
// above are sources (have surplus to give up). Surplus is greedily
// assigned to demand in a fixed lexicographic order so the matching
// is deterministic across runs with identical inputs.
//
// A matched source/sink pair is not necessarily adjacent: listed and
// edgeFees describe the routing graph (every listed product is an
// edge, weighted by its one-way fee), and the match is routed along
// the cheapest path through it, exactly as the shortest-path search
// in graph.go finds it. The match is then emitted as one Transfer per
// edge on that path, each hop's amount shrunk by the fee paid on the
// hop before it, so a surplus with no direct market to its sink still
// gets there through an intermediate currency (spec.md §1/§2, the
// "route surplus along the cheapest path" responsibility).
func RebalanceOrders(initialValues, finalValues map[types.Currency]decimal.Decimal, listed types.ProductSet, edgeFees map[types.Product]decimal.Decimal) []types.Transfer {
	currencies := unionCurrencies(initialValues, finalValues)

	type delta struct {
		currency types.Currency
		amount   decimal.Decimal // positive: surplus (source); negative: deficit (sink)
	}
	deltas := make([]delta, 0, len(currencies))
	for _, c := range currencies {
		d := initialValues[c].Sub(finalValues[c])
		if d.Abs().LessThan(dustThreshold) {
			continue
		}
		deltas = append(deltas, delta{currency: c, amount: d})
	}
	sort.Slice(deltas, func(i, j int) bool { return deltas[i].currency < deltas[j].currency })

	sources := make([]delta, 0)
	sinks := make([]delta, 0)
	for _, d := range deltas {
		if d.amount.Sign() > 0 {
			sources = append(sources, d)
		} else {
			sinks = append(sinks, delta{currency: d.currency, amount: d.amount.Neg()})
		}
	}

	feeGraph := buildFeeGraph(listed, edgeFees)
	prevCache := make(map[types.Currency]map[types.Currency]types.Currency)
	prevFrom := func(source types.Currency) map[types.Currency]types.Currency {
		if prev, ok := prevCache[source]; ok {
			return prev
		}
		_, prev := feeGraph.relax(source)
		prevCache[source] = prev
		return prev
	}

	var transfers []types.Transfer
	si, ki := 0, 0
	for si < len(sources) && ki < len(sinks) {
		src, sink := &sources[si], &sinks[ki]
		amount := decimal.Min(src.amount, sink.amount)
		if amount.GreaterThan(dustThreshold) {
			path := pathTo(prevFrom(src.currency), src.currency, sink.currency)
			transfers = append(transfers, routeAlongPath(path, amount, feeGraph)...)
		}
		src.amount = src.amount.Sub(amount)
		sink.amount = sink.amount.Sub(amount)
		if src.amount.LessThanOrEqual(dustThreshold) {
			si++
		}
		if sink.amount.LessThanOrEqual(dustThreshold) {
			ki++
		}
	}
	return transfers
}

// buildFeeGraph turns every listed product into a pair of directed
// edges (base->commodity, commodity->base), weighted by the fraction
// of value retained after its one-way fee. Routing only cares about
// fee cost, not price: value is conserved by conversion, only leaked
// by fees, so the cheapest path is the one that retains the most
// value regardless of the prices along it.
func buildFeeGraph(listed types.ProductSet, edgeFees map[types.Product]decimal.Decimal) *rateGraph {
	g := newRateGraph()
	for product := range listed {
		commodity, base, err := product.Split()
		if err != nil {
			continue
		}
		fee, ok := edgeFees[product]
		if !ok {
			fee = decimal.Zero
		}
		retention := one.Sub(fee)
		if retention.Sign() <= 0 {
			continue
		}
		g.addEdge(base, commodity, retention)
		g.addEdge(commodity, base, retention)
	}
	return g
}

// routeAlongPath splits a matched source/sink amount into one
// Transfer per edge of path, shrinking the carried amount by the
// fee retained at every hop so each Transfer reflects what is
// actually left to trade by the time it reaches that hop.
func routeAlongPath(path []types.Currency, amount decimal.Decimal, feeGraph *rateGraph) []types.Transfer {
	if path == nil {
		return nil
	}
	var transfers []types.Transfer
	running := amount
	for i := 0; i+1 < len(path); i++ {
		if running.LessThanOrEqual(dustThreshold) {
			break
		}
		transfers = append(transfers, types.Transfer{From: path[i], To: path[i+1], Amount: running})
		retention, ok := feeGraph.rateBetween(path[i], path[i+1])
		if !ok {
			break
		}
		running = running.Mul(retention)
	}
	return transfers
}

func unionCurrencies(maps ...map[types.Currency]decimal.Decimal) []types.Currency {
	set := make(map[types.Currency]struct{})
	for _, m := range maps {
		for c := range m {
			set[c] = struct{}{}
		}
	}
	out := make([]types.Currency, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
