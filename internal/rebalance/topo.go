package rebalance

import (
	"sort"

	"github.com/veltrade/rebalancer/pkg/types"
)

// TopologicalSort orders transfers so that, as far as the transfer
// graph allows, a currency is only ever sold (From) after everything
// routed into it (To) has already been received — this keeps the
// executor from attempting to sell a balance it does not have yet.
// Cycles in the transfer graph are broken by lexicographic visit
// order rather than detected and rejected, since a rebalance with a
// currency cycle (A funds B funds A) is still executable, just not
// strictly ordered (spec.md §4.C).
//
// Implemented as depth-first search with the finish order reversed,
// visiting each node's outgoing transfers in lexicographic order of
// destination so that ties produce a deterministic result.
func TopologicalSort(transfers []types.Transfer) []types.Transfer {
	outgoing := make(map[types.Currency][]types.Transfer)
	for _, t := range transfers {
		outgoing[t.From] = append(outgoing[t.From], t)
	}
	for from := range outgoing {
		edges := outgoing[from]
		sort.Slice(edges, func(i, j int) bool { return edges[i].To < edges[j].To })
		outgoing[from] = edges
	}

	roots := make([]types.Currency, 0, len(outgoing))
	for from := range outgoing {
		roots = append(roots, from)
	}
	sort.Slice(roots, func(i, j int) bool { return roots[i] < roots[j] })

	visited := make(map[types.Currency]bool)
	var order []types.Transfer
	var visit func(c types.Currency)
	visit = func(c types.Currency) {
		if visited[c] {
			return
		}
		visited[c] = true
		for _, t := range outgoing[c] {
			visit(t.To)
			order = append(order, t)
		}
	}
	for _, r := range roots {
		visit(r)
	}

	for i, j := 0, len(order)-1; i < j; i, j = i+1, j-1 {
		order[i], order[j] = order[j], order[i]
	}
	return order
}
