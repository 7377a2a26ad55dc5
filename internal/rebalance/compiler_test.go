package rebalance

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/veltrade/rebalancer/pkg/types"
)

func TestCompileOrderBuy(t *testing.T) {
	transfer := types.Transfer{From: "USDT", To: "BTC", Amount: decimal.NewFromInt(2000)}
	listed := types.NewProductSet("BTC_USDT")
	estimates := map[types.Currency]decimal.Decimal{
		"USDT": decimal.NewFromInt(1),
		"BTC":  decimal.NewFromInt(20000),
	}
	filters := map[types.Product]types.SymbolFilter{
		"BTC_USDT": {
			MinOrderSize: decimal.NewFromFloat(0.0001),
			MaxOrderSize: decimal.NewFromInt(100),
			OrderStep:    decimal.NewFromFloat(0.0001),
			MinNotional:  decimal.NewFromInt(10),
		},
	}
	order, err := CompileOrder(transfer, listed, estimates, filters, types.OrderTypeLimit, decimal.NewFromInt(20000))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if order.Action != types.OrderActionBuy {
		t.Errorf("expected BUY, got %s", order.Action)
	}
	if order.Product != "BTC_USDT" {
		t.Errorf("expected BTC_USDT, got %s", order.Product)
	}
	if !order.Quantity.Equal(decimal.NewFromFloat(0.1)) {
		t.Errorf("quantity: got %s, want 0.1", order.Quantity)
	}
}

func TestCompileOrderSell(t *testing.T) {
	transfer := types.Transfer{From: "BTC", To: "USDT", Amount: decimal.NewFromInt(2000)}
	listed := types.NewProductSet("BTC_USDT")
	estimates := map[types.Currency]decimal.Decimal{
		"USDT": decimal.NewFromInt(1),
		"BTC":  decimal.NewFromInt(20000),
	}
	filters := map[types.Product]types.SymbolFilter{
		"BTC_USDT": {
			MinOrderSize: decimal.NewFromFloat(0.0001),
			MaxOrderSize: decimal.NewFromInt(100),
			OrderStep:    decimal.NewFromFloat(0.0001),
			MinNotional:  decimal.NewFromInt(10),
		},
	}
	order, err := CompileOrder(transfer, listed, estimates, filters, types.OrderTypeLimit, decimal.NewFromInt(20000))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if order.Action != types.OrderActionSell {
		t.Errorf("expected SELL, got %s", order.Action)
	}
}

func TestCompileOrderUnlistedPairIsUnsupported(t *testing.T) {
	transfer := types.Transfer{From: "DOGE", To: "XRP", Amount: decimal.NewFromInt(100)}
	listed := types.NewProductSet("BTC_USDT")
	estimates := map[types.Currency]decimal.Decimal{"DOGE": decimal.NewFromFloat(0.1), "XRP": decimal.NewFromFloat(0.5)}
	_, err := CompileOrder(transfer, listed, estimates, nil, types.OrderTypeLimit, decimal.Zero)
	if !errors.Is(err, types.ErrUnsupportedPair) {
		t.Errorf("expected ErrUnsupportedPair, got %v", err)
	}
}

func TestCompileOrderDustIsFilterRejection(t *testing.T) {
	transfer := types.Transfer{From: "USDT", To: "BTC", Amount: decimal.NewFromFloat(0.5)}
	listed := types.NewProductSet("BTC_USDT")
	estimates := map[types.Currency]decimal.Decimal{"USDT": decimal.NewFromInt(1), "BTC": decimal.NewFromInt(20000)}
	filters := map[types.Product]types.SymbolFilter{
		"BTC_USDT": {
			MinOrderSize: decimal.NewFromFloat(0.0001),
			MaxOrderSize: decimal.NewFromInt(100),
			OrderStep:    decimal.NewFromFloat(0.0001),
			MinNotional:  decimal.NewFromInt(10),
		},
	}
	_, err := CompileOrder(transfer, listed, estimates, filters, types.OrderTypeLimit, decimal.NewFromInt(20000))
	if !errors.Is(err, types.ErrFilterRejection) {
		t.Errorf("expected ErrFilterRejection, got %v", err)
	}
}
