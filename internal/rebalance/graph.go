package rebalance

import (
	"math"

	"github.com/shopspring/decimal"
	"github.com/veltrade/rebalancer/pkg/types"
)

// graphEdge is a directed currency conversion: one unit of the source
// currency buys rate units of the destination currency.
type graphEdge struct {
	to     types.Currency
	rate   decimal.Decimal
	weight float64 // -log(rate), for shortest-path search only
}

// rateGraph is the routing graph used to find a cheap conversion path
// between two currencies. Weights live in log space so that the
// shortest path maximizes the product of the underlying rates; the
// decimal rates themselves are kept on each edge so callers can
// recompute the exact path value without going back through float64.
type rateGraph struct {
	adj   map[types.Currency][]graphEdge
	order []types.Currency
	seen  map[types.Currency]bool
}

func newRateGraph() *rateGraph {
	return &rateGraph{adj: make(map[types.Currency][]graphEdge), seen: make(map[types.Currency]bool)}
}

func (g *rateGraph) touch(c types.Currency) {
	if !g.seen[c] {
		g.seen[c] = true
		g.order = append(g.order, c)
	}
}

// addEdge records a directed conversion edge. Non-positive rates are
// dropped; they cannot correspond to a real market price.
func (g *rateGraph) addEdge(from, to types.Currency, rate decimal.Decimal) {
	if rate.Sign() <= 0 {
		return
	}
	f, _ := rate.Float64()
	if f <= 0 || math.IsInf(f, 0) || math.IsNaN(f) {
		return
	}
	g.touch(from)
	g.touch(to)
	g.adj[from] = append(g.adj[from], graphEdge{to: to, rate: rate, weight: -math.Log(f)})
}

func (g *rateGraph) nodes() []types.Currency {
	return g.order
}

// rateBetween returns the first recorded direct edge's rate between
// from and to, if one exists.
func (g *rateGraph) rateBetween(from, to types.Currency) (decimal.Decimal, bool) {
	for _, e := range g.adj[from] {
		if e.to == to {
			return e.rate, true
		}
	}
	return decimal.Decimal{}, false
}

// relax computes shortest log-weight distances and a predecessor map
// from source to every reachable node, via full edge relaxation
// repeated up to |V| times, stopping early after a round that changes
// nothing. This is a Bellman-Ford pass rather than a
// queue-based breadth-first search: the reference implementation
// this is ported from calls an equivalent function "bfs", but its
// body relaxes every edge each round, which is what negative edge
// weights here (a conversion rate greater than one) require.
func (g *rateGraph) relax(source types.Currency) (dist map[types.Currency]float64, prev map[types.Currency]types.Currency) {
	dist = map[types.Currency]float64{source: 0}
	prev = make(map[types.Currency]types.Currency)
	nodes := g.nodes()
	for i := 0; i < len(nodes); i++ {
		changed := false
		for from, edges := range g.adj {
			fd, ok := dist[from]
			if !ok {
				continue
			}
			for _, e := range edges {
				nd := fd + e.weight
				if cur, ok := dist[e.to]; !ok || nd < cur-1e-12 {
					dist[e.to] = nd
					prev[e.to] = from
					changed = true
				}
			}
		}
		if !changed {
			break
		}
	}
	return dist, prev
}

// pathTo reconstructs the source-to-target path recorded in prev, in
// traversal order. Returns nil if target is unreachable.
func pathTo(prev map[types.Currency]types.Currency, source, target types.Currency) []types.Currency {
	if source == target {
		return []types.Currency{source}
	}
	cur := target
	path := []types.Currency{target}
	for cur != source {
		p, ok := prev[cur]
		if !ok {
			return nil
		}
		path = append(path, p)
		cur = p
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}
