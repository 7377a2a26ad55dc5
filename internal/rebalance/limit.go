package rebalance

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/veltrade/rebalancer/pkg/types"
)

// marketFallbackThreshold is the notional (in base units) below which
// a transfer is placed as a market order rather than rested as a
// limit order: dust this small is cheaper to cross the spread on than
// to wait for a fill (spec.md §4.F, S6).
var marketFallbackThreshold = decimal.New(10, 0)

// LimitOrderRebalance drives a rebalance to targetWeights using
// resting limit orders with bounded retry (spec.md §4.F). Each round
// refetches resources, order books, and maker fees, recomputes the
// full transfer plan from scratch, and places it — a residual left
// over from one round is re-routed, not amount-adjusted in place, so
// it can switch paths entirely between rounds (spec.md §9). The loop
// stops early once a round's plan is empty (converged) or after
// maxRetries+1 rounds, whichever comes first; any residual left after
// the last round stays untraded unless PlaceLimitOrMarketOrder's
// dust threshold routes it to a market order on its own terms.
func LimitOrderRebalance(ctx context.Context, log *logrus.Entry, exchange Exchange, targetWeights map[types.Currency]decimal.Decimal, base types.Currency, maxRetries int, retryWait time.Duration) ([]types.OrderState, error) {
	var states []types.OrderState

	for round := 0; round <= maxRetries; round++ {
		resources, err := exchange.GetResources(ctx)
		if err != nil {
			return states, err
		}
		throughTrade, err := exchange.ThroughTradeCurrencies(ctx)
		if err != nil {
			return states, err
		}
		filters, err := exchange.GetFilters(ctx)
		if err != nil {
			return states, err
		}
		products, listed := listedProducts(filters)

		books, err := exchange.GetOrderBooks(ctx, products)
		if err != nil {
			return states, err
		}
		mids, err := MidPrices(books)
		if err != nil {
			return states, err
		}
		priceEstimates := PriceEstimates(mids, base)

		makerFees, err := BuildEdgeFees(products, func(p types.Product) (decimal.Decimal, error) {
			return exchange.GetMakerFee(ctx, p)
		})
		if err != nil {
			return states, err
		}

		currencies := unionCurrencies(resources, targetWeights)
		portfolioValue := PortfolioValueFromResources(resources, priceEstimates)
		initialValues := ValuesFromResources(resources, priceEstimates)
		finalWeights := normalizeWeights(targetWeights, currencies, throughTrade)
		finalValues := ValuesFromWeights(finalWeights, portfolioValue)

		transfers := TopologicalSort(RebalanceOrders(initialValues, finalValues, listed, makerFees))
		if len(transfers) == 0 {
			break
		}

		roundStates, err := LimitOrderRebalanceWithOrders(ctx, log, exchange, listed, mids, priceEstimates, filters, transfers, retryWait)
		states = append(states, roundStates...)
		if err != nil {
			return states, err
		}
	}
	return states, nil
}

// LimitOrderRebalanceWithOrders executes a single, already-planned
// pass over transfers: each one is placed exactly once, as either a
// limit or market order per PlaceLimitOrMarketOrder's notional check,
// with no internal retry and no forced market fallback — an
// unfilled limit residual is left for the next call to
// LimitOrderRebalance's outer loop to replan from fresh exchange
// state (spec.md §4.F S2, S4).
//
// A transfer that fails to compile (ErrUnsupportedPair,
// ErrFilterRejection) is logged and skipped. Returns one OrderState
// per order actually placed, in transfer order.
func LimitOrderRebalanceWithOrders(
	ctx context.Context,
	log *logrus.Entry,
	exchange Exchange,
	listed types.ProductSet,
	mids map[types.Product]decimal.Decimal,
	priceEstimates map[types.Currency]decimal.Decimal,
	filters map[types.Product]types.SymbolFilter,
	transfers []types.Transfer,
	retryWait time.Duration,
) ([]types.OrderState, error) {
	var states []types.OrderState

	for _, transfer := range transfers {
		product, _, err := resolveProductAndAction(transfer, listed)
		if err != nil {
			if errors.Is(err, types.ErrUnsupportedPair) {
				log.WithError(err).WithField("transfer", transfer).Warn("dropping transfer")
				continue
			}
			return states, err
		}
		mid, ok := mids[product]
		if !ok {
			log.WithField("transfer", transfer).Warn("dropping transfer: no mid price")
			continue
		}

		tag, order, err := PlaceLimitOrMarketOrder(transfer, listed, priceEstimates, filters, mid, marketFallbackThreshold)
		if err != nil {
			if errors.Is(err, types.ErrUnsupportedPair) || errors.Is(err, types.ErrFilterRejection) {
				log.WithError(err).WithField("transfer", transfer).Warn("dropping transfer")
				continue
			}
			return states, err
		}

		if tag == "market" {
			report, err := exchange.PlaceMarketOrder(ctx, order, priceEstimates)
			if err != nil {
				return states, err
			}
			if report == nil {
				log.WithField("order", order).Warn("exchange rejected order")
				continue
			}
			states = append(states, types.OrderState{OrigQuantity: order.Quantity, ExecutedQuantity: report.ExecutedQuantity})
			continue
		}

		order.ClientID = uuid.NewString()
		response, err := exchange.PlaceLimitOrder(ctx, order)
		if err != nil {
			return states, err
		}

		time.Sleep(retryWait)

		state, err := exchange.GetOrder(ctx, response)
		if err != nil {
			return states, err
		}
		states = append(states, state)
		if err := exchange.CancelLimitOrder(ctx, response); err != nil {
			return states, err
		}
	}
	return states, nil
}

// PlaceLimitOrMarketOrder decides whether a compiled transfer is
// worth resting as a limit order or should cross the spread
// immediately as a market order, based on its notional value against
// threshold (spec.md S6): notional below threshold places market,
// at-or-above rests as a limit at the current mid.
func PlaceLimitOrMarketOrder(
	transfer types.Transfer,
	listed types.ProductSet,
	priceEstimates map[types.Currency]decimal.Decimal,
	filters map[types.Product]types.SymbolFilter,
	mid decimal.Decimal,
	threshold decimal.Decimal,
) (string, types.Order, error) {
	if transfer.Amount.LessThan(threshold) {
		order, err := CompileOrder(transfer, listed, priceEstimates, filters, types.OrderTypeMarket, decimal.Zero)
		return "market", order, err
	}
	order, err := CompileOrder(transfer, listed, priceEstimates, filters, types.OrderTypeLimit, mid)
	return "limit", order, err
}
