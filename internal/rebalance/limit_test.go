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

func TestPlaceLimitOrMarketOrderUsesMarketBelowThreshold(t *testing.T) {
	transfer := types.Transfer{From: "USDT", To: "BTC", Amount: decimal.NewFromInt(5)}
	listed := types.NewProductSet("BTC_USDT")
	estimates := map[types.Currency]decimal.Decimal{"USDT": decimal.NewFromInt(1), "BTC": decimal.NewFromInt(20000)}
	filters := map[types.Product]types.SymbolFilter{
		"BTC_USDT": {MinOrderSize: decimal.NewFromFloat(0.00001), MaxOrderSize: decimal.NewFromInt(100), OrderStep: decimal.NewFromFloat(0.00001), MinNotional: decimal.NewFromInt(1)},
	}

	tag, order, err := PlaceLimitOrMarketOrder(transfer, listed, estimates, filters, decimal.NewFromInt(20000), decimal.NewFromInt(10))

	require.NoError(t, err)
	assert.Equal(t, "market", tag)
	assert.Equal(t, types.OrderTypeMarket, order.Type)
}

func TestPlaceLimitOrMarketOrderRestsAboveThreshold(t *testing.T) {
	transfer := types.Transfer{From: "USDT", To: "BTC", Amount: decimal.NewFromInt(2000)}
	listed := types.NewProductSet("BTC_USDT")
	estimates := map[types.Currency]decimal.Decimal{"USDT": decimal.NewFromInt(1), "BTC": decimal.NewFromInt(20000)}
	filters := map[types.Product]types.SymbolFilter{
		"BTC_USDT": {MinOrderSize: decimal.NewFromFloat(0.0001), MaxOrderSize: decimal.NewFromInt(100), OrderStep: decimal.NewFromFloat(0.0001), MinNotional: decimal.NewFromInt(10)},
	}

	tag, order, err := PlaceLimitOrMarketOrder(transfer, listed, estimates, filters, decimal.NewFromInt(20000), decimal.NewFromInt(10))

	require.NoError(t, err)
	assert.Equal(t, "limit", tag)
	assert.Equal(t, types.OrderTypeLimit, order.Type)
	assert.True(t, order.Price.Equal(decimal.NewFromInt(20000)))
}

// TestLimitOrderRebalanceWithOrdersPlacesOnePerTransferNoFallback
// pins down that a single pass places exactly one order per transfer
// and never synthesizes an extra market order for an unfilled
// residual — that decision belongs to the outer LimitOrderRebalance
// loop's next round, not to this single-pass executor.
func TestLimitOrderRebalanceWithOrdersPlacesOnePerTransferNoFallback(t *testing.T) {
	exchange := &fakeExchange{
		filters: map[types.Product]types.SymbolFilter{
			"BTC_USDT": {MinOrderSize: decimal.NewFromFloat(0.0001), MaxOrderSize: decimal.NewFromInt(100), OrderStep: decimal.NewFromFloat(0.0001), MinNotional: decimal.NewFromInt(10)},
		},
		states: map[string]types.OrderState{
			"1": {OrigQuantity: decimal.NewFromFloat(0.1), ExecutedQuantity: decimal.Zero},
		},
	}
	listed := types.NewProductSet("BTC_USDT")
	estimates := map[types.Currency]decimal.Decimal{"USDT": decimal.NewFromInt(1), "BTC": decimal.NewFromInt(20000)}
	mids := map[types.Product]decimal.Decimal{"BTC_USDT": decimal.NewFromInt(20000)}
	transfers := []types.Transfer{{From: "USDT", To: "BTC", Amount: decimal.NewFromInt(2000)}}
	log := logrus.NewEntry(logrus.New())

	states, err := LimitOrderRebalanceWithOrders(context.Background(), log, exchange, listed, mids, estimates, exchange.filters, transfers, 0)

	require.NoError(t, err)
	assert.Len(t, states, 1)
	assert.Len(t, exchange.placed, 1)
}

// TestLimitOrderRebalanceExactFillCountWithNoRetries reproduces the
// spec's S4 scenario: with maxRetries=0, a single unfilled limit
// order produces exactly one OrderState and the loop stops — no
// forced market order is appended for the leftover residual.
func TestLimitOrderRebalanceExactFillCountWithNoRetries(t *testing.T) {
	exchange := &fakeExchange{
		resources:    map[types.Currency]decimal.Decimal{"BTC": decimal.Zero, "USDT": decimal.NewFromInt(2000)},
		throughTrade: types.NewCurrencySet("BTC", "USDT"),
		books:        []types.OrderBook{types.NewWalledOrderBook("BTC_USDT", decimal.NewFromInt(20010), decimal.NewFromInt(19990))},
		filters: map[types.Product]types.SymbolFilter{
			"BTC_USDT": {MinOrderSize: decimal.NewFromFloat(0.0001), MaxOrderSize: decimal.NewFromInt(100), OrderStep: decimal.NewFromFloat(0.0001), MinNotional: decimal.NewFromInt(10)},
		},
		makerFee: decimal.NewFromFloat(0.001),
		states: map[string]types.OrderState{
			"1": {OrigQuantity: decimal.NewFromFloat(0.1), ExecutedQuantity: decimal.Zero},
		},
	}
	log := logrus.NewEntry(logrus.New())

	states, err := LimitOrderRebalance(context.Background(), log, exchange, map[types.Currency]decimal.Decimal{"BTC": decimal.NewFromFloat(1)}, "USDT", 0, 0)

	require.NoError(t, err)
	assert.Len(t, states, 1)
	assert.Len(t, exchange.placed, 1)
	assert.Equal(t, types.OrderTypeLimit, exchange.placed[0].Type)
}

// TestLimitOrderRebalanceReplansFromFreshStateEachRound asserts the
// outer loop refetches resources between rounds rather than retrying
// the same transfer with a shrunk amount: once the first round's fill
// is reflected in GetResources, the second round's plan reacts to it
// instead of replaying the first round's transfer unchanged.
func TestLimitOrderRebalanceReplansFromFreshStateEachRound(t *testing.T) {
	exchange := &replanningExchange{
		fakeExchange: fakeExchange{
			throughTrade: types.NewCurrencySet("BTC", "USDT"),
			books:        []types.OrderBook{types.NewWalledOrderBook("BTC_USDT", decimal.NewFromInt(20010), decimal.NewFromInt(19990))},
			filters: map[types.Product]types.SymbolFilter{
				"BTC_USDT": {MinOrderSize: decimal.NewFromFloat(0.0001), MaxOrderSize: decimal.NewFromInt(100), OrderStep: decimal.NewFromFloat(0.0001), MinNotional: decimal.NewFromInt(10)},
			},
			makerFee: decimal.NewFromFloat(0.001),
		},
		resourceRounds: []map[types.Currency]decimal.Decimal{
			{"BTC": decimal.Zero, "USDT": decimal.NewFromInt(2000)},
			{"BTC": decimal.NewFromFloat(0.05), "USDT": decimal.NewFromInt(1000)},
		},
	}
	log := logrus.NewEntry(logrus.New())

	states, err := LimitOrderRebalance(context.Background(), log, exchange, map[types.Currency]decimal.Decimal{"BTC": decimal.NewFromFloat(1)}, "USDT", 1, 0)

	require.NoError(t, err)
	assert.Len(t, states, 2)
	assert.Equal(t, 2, exchange.resourceCalls)
	require.Len(t, exchange.placed, 2)
	assert.True(t, exchange.placed[1].Quantity.LessThan(exchange.placed[0].Quantity),
		"second round's order should reflect the smaller remaining deficit from fresh resources, not a shrunk copy of the first order")
}

// replanningExchange returns a different GetResources snapshot on
// each call, simulating a fill landing between rounds.
type replanningExchange struct {
	fakeExchange
	resourceRounds []map[types.Currency]decimal.Decimal
	resourceCalls  int
}

func (r *replanningExchange) GetResources(ctx context.Context) (map[types.Currency]decimal.Decimal, error) {
	round := r.resourceCalls
	if round >= len(r.resourceRounds) {
		round = len(r.resourceRounds) - 1
	}
	r.resourceCalls++
	return r.resourceRounds[round], nil
}

func (r *replanningExchange) GetOrder(ctx context.Context, response types.OrderResponse) (types.OrderState, error) {
	return types.OrderState{OrigQuantity: response.Order.Quantity, ExecutedQuantity: decimal.Zero}, nil
}
