// Package rebalance implements the portfolio rebalancing engine: it
// turns a target allocation into a minimum-fee sequence of trades and
// drives their execution against an Exchange collaborator.
package rebalance

import (
	"context"

	"github.com/veltrade/rebalancer/pkg/types"
	"github.com/shopspring/decimal"
)

// listedProducts flattens a filter map into a product slice and set,
// the two shapes GetOrderBooks, BuildEdgeFees, and CompileOrder each
// need from the same listing.
func listedProducts(filters map[types.Product]types.SymbolFilter) ([]types.Product, types.ProductSet) {
	products := make([]types.Product, 0, len(filters))
	listed := make(types.ProductSet, len(filters))
	for p := range filters {
		products = append(products, p)
		listed[p] = struct{}{}
	}
	return products, listed
}

// Exchange is the external collaborator the core is built against
// (spec.md §6). Implementations live outside this package — see
// internal/exchange/binance for a concrete adapter.
type Exchange interface {
	// GetResources returns the account's current holdings by currency.
	GetResources(ctx context.Context) (map[types.Currency]decimal.Decimal, error)

	// ThroughTradeCurrencies returns the currencies the exchange
	// accepts as routing intermediates.
	ThroughTradeCurrencies(ctx context.Context) (types.CurrencySet, error)

	// GetOrderBooks returns a snapshot for each requested product.
	GetOrderBooks(ctx context.Context, products []types.Product) ([]types.OrderBook, error)

	// GetMakerFee and GetTakerFee return the exchange's fee (in
	// [0,1)) for a listed product.
	GetMakerFee(ctx context.Context, product types.Product) (decimal.Decimal, error)
	GetTakerFee(ctx context.Context, product types.Product) (decimal.Decimal, error)

	// GetFilters returns the lot/notional filters for every listed
	// symbol, keyed by product.
	GetFilters(ctx context.Context) (map[types.Product]types.SymbolFilter, error)

	// PlaceLimitOrder submits a limit order and returns its exchange
	// acknowledgement.
	PlaceLimitOrder(ctx context.Context, order types.Order) (types.OrderResponse, error)

	// PlaceMarketOrder submits a market order. A nil fill report means
	// the exchange rejected the order (e.g. its own filters); this is
	// logged, not fatal (spec.md §4.E step 5).
	PlaceMarketOrder(ctx context.Context, order types.Order, priceEstimates map[types.Currency]decimal.Decimal) (*types.FillReport, error)

	// GetOrder polls an order's fill progress.
	GetOrder(ctx context.Context, response types.OrderResponse) (types.OrderState, error)

	// CancelLimitOrder cancels a resting order. Idempotent: cancelling
	// an already-filled order is a no-op.
	CancelLimitOrder(ctx context.Context, response types.OrderResponse) error
}
