package rebalance

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/veltrade/rebalancer/pkg/types"
)

// fakeExchange is an in-memory Exchange for tests, grounded in the
// same "fake the collaborator, assert on its calls" pattern the
// retained test suites use.
type fakeExchange struct {
	resources    map[types.Currency]decimal.Decimal
	throughTrade types.CurrencySet
	books        []types.OrderBook
	filters      map[types.Product]types.SymbolFilter
	makerFee     decimal.Decimal
	takerFee     decimal.Decimal

	placed []types.Order
	states map[string]types.OrderState
}

func (f *fakeExchange) GetResources(ctx context.Context) (map[types.Currency]decimal.Decimal, error) {
	return f.resources, nil
}

func (f *fakeExchange) ThroughTradeCurrencies(ctx context.Context) (types.CurrencySet, error) {
	return f.throughTrade, nil
}

func (f *fakeExchange) GetOrderBooks(ctx context.Context, products []types.Product) ([]types.OrderBook, error) {
	return f.books, nil
}

func (f *fakeExchange) GetMakerFee(ctx context.Context, product types.Product) (decimal.Decimal, error) {
	return f.makerFee, nil
}

func (f *fakeExchange) GetTakerFee(ctx context.Context, product types.Product) (decimal.Decimal, error) {
	return f.takerFee, nil
}

func (f *fakeExchange) GetFilters(ctx context.Context) (map[types.Product]types.SymbolFilter, error) {
	return f.filters, nil
}

func (f *fakeExchange) PlaceLimitOrder(ctx context.Context, order types.Order) (types.OrderResponse, error) {
	f.placed = append(f.placed, order)
	return types.OrderResponse{OrderID: "1", Order: order}, nil
}

func (f *fakeExchange) PlaceMarketOrder(ctx context.Context, order types.Order, priceEstimates map[types.Currency]decimal.Decimal) (*types.FillReport, error) {
	f.placed = append(f.placed, order)
	mid := priceEstimates[order.Product.Commodity()]
	return &types.FillReport{
		Product:          order.Product,
		Side:             order.Action,
		ExecutedQuantity: order.Quantity,
		MeanPrice:        mid,
	}, nil
}

func (f *fakeExchange) GetOrder(ctx context.Context, response types.OrderResponse) (types.OrderState, error) {
	if state, ok := f.states[response.OrderID]; ok {
		return state, nil
	}
	return types.OrderState{OrigQuantity: response.Order.Quantity, ExecutedQuantity: response.Order.Quantity}, nil
}

func (f *fakeExchange) CancelLimitOrder(ctx context.Context, response types.OrderResponse) error {
	return nil
}

func TestMarketOrderRebalancePlacesExpectedOrder(t *testing.T) {
	exchange := &fakeExchange{
		resources:    map[types.Currency]decimal.Decimal{"BTC": decimal.NewFromFloat(1), "USDT": decimal.Zero},
		throughTrade: types.NewCurrencySet("BTC", "USDT"),
		books:        []types.OrderBook{types.NewWalledOrderBook("BTC_USDT", decimal.NewFromInt(20010), decimal.NewFromInt(19990))},
		filters: map[types.Product]types.SymbolFilter{
			"BTC_USDT": {
				MinOrderSize: decimal.NewFromFloat(0.0001),
				MaxOrderSize: decimal.NewFromInt(100),
				OrderStep:    decimal.NewFromFloat(0.0001),
				MinNotional:  decimal.NewFromInt(10),
			},
		},
		takerFee: decimal.NewFromFloat(0.001),
	}
	log := logrus.NewEntry(logrus.New())

	reports, err := MarketOrderRebalance(context.Background(), log, exchange, map[types.Currency]decimal.Decimal{"USDT": decimal.NewFromFloat(1)}, "USDT")

	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Equal(t, types.OrderActionSell, reports[0].Side)
	assert.Equal(t, types.Product("BTC_USDT"), reports[0].Product)
}
