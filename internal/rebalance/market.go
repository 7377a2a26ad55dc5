package rebalance

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/veltrade/rebalancer/pkg/types"
)

// MarketOrderRebalance drives a full rebalance to targetWeights using
// market orders (spec.md §4.E). It snapshots resources and order
// books once, plans the transfer set, orders it topologically, then
// compiles and places each transfer as a market order in sequence.
//
// A transfer that fails to compile (ErrUnsupportedPair,
// ErrFilterRejection) is logged and skipped; the rebalance continues
// with the remaining transfers. An ErrExchangeError on GetResources,
// ThroughTradeCurrencies, GetOrderBooks, or GetFilters aborts the
// whole run, since those are preconditions every transfer depends on.
func MarketOrderRebalance(ctx context.Context, log *logrus.Entry, exchange Exchange, targetWeights map[types.Currency]decimal.Decimal, base types.Currency) ([]types.FillReport, error) {
	resources, err := exchange.GetResources(ctx)
	if err != nil {
		return nil, err
	}
	throughTrade, err := exchange.ThroughTradeCurrencies(ctx)
	if err != nil {
		return nil, err
	}
	filters, err := exchange.GetFilters(ctx)
	if err != nil {
		return nil, err
	}
	products, listed := listedProducts(filters)

	books, err := exchange.GetOrderBooks(ctx, products)
	if err != nil {
		return nil, err
	}
	mids, err := MidPrices(books)
	if err != nil {
		return nil, err
	}
	priceEstimates := PriceEstimates(mids, base)

	takerFees, err := BuildEdgeFees(products, func(p types.Product) (decimal.Decimal, error) {
		return exchange.GetTakerFee(ctx, p)
	})
	if err != nil {
		return nil, err
	}

	currencies := unionCurrencies(resources, targetWeights)
	portfolioValue := PortfolioValueFromResources(resources, priceEstimates)
	initialValues := ValuesFromResources(resources, priceEstimates)
	finalWeights := normalizeWeights(targetWeights, currencies, throughTrade)
	finalValues := ValuesFromWeights(finalWeights, portfolioValue)

	transfers := RebalanceOrders(initialValues, finalValues, listed, takerFees)
	transfers = TopologicalSort(transfers)

	reports := make([]types.FillReport, 0, len(transfers))
	for _, transfer := range transfers {
		order, err := CompileOrder(transfer, listed, priceEstimates, filters, types.OrderTypeMarket, decimal.Zero)
		if err != nil {
			if errors.Is(err, types.ErrUnsupportedPair) || errors.Is(err, types.ErrFilterRejection) {
				log.WithError(err).WithField("transfer", transfer).Warn("dropping transfer")
				continue
			}
			return reports, err
		}

		report, err := exchange.PlaceMarketOrder(ctx, order, priceEstimates)
		if err != nil {
			if errors.Is(err, types.ErrFilterRejection) {
				log.WithError(err).WithField("order", order).Warn("exchange rejected order")
				continue
			}
			return reports, err
		}
		if report == nil {
			log.WithField("order", order).Warn("exchange rejected order")
			continue
		}
		reports = append(reports, *report)
	}
	return reports, nil
}

// normalizeWeights fills in zero weight for every currency absent
// from targetWeights and restricts the target to currencies the
// exchange will actually route through, then rescales so the result
// sums to one.
func normalizeWeights(targetWeights map[types.Currency]decimal.Decimal, currencies []types.Currency, throughTrade types.CurrencySet) map[types.Currency]decimal.Decimal {
	filtered := make(map[types.Currency]decimal.Decimal, len(currencies))
	total := decimal.Zero
	for _, c := range currencies {
		w, ok := targetWeights[c]
		if !ok || (len(throughTrade) > 0 && !throughTrade.Contains(c)) {
			w = decimal.Zero
		}
		filtered[c] = w
		total = total.Add(w)
	}
	if total.IsZero() {
		return filtered
	}
	for c, w := range filtered {
		filtered[c] = w.Div(total)
	}
	return filtered
}
