package types

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// OrderType distinguishes limit from market orders.
type OrderType string

const (
	OrderTypeLimit  OrderType = "LIMIT"
	OrderTypeMarket OrderType = "MARKET"
)

// OrderAction is the side of the order.
type OrderAction string

const (
	OrderActionBuy  OrderAction = "BUY"
	OrderActionSell OrderAction = "SELL"
)

// Order is a concrete exchange order compiled from a Transfer.
// Invariant (spec.md §3): Price is set iff Type == OrderTypeLimit.
type Order struct {
	Product  Product
	Type     OrderType
	Action   OrderAction
	Quantity decimal.Decimal
	Price    decimal.Decimal // zero value (IsZero) when Type == Market
	HasPrice bool

	// ClientID is an optional idempotency key for resubmission after a
	// retry; exchanges that support it must reject a duplicate rather
	// than double-place.
	ClientID string
}

// NewLimitOrder builds a limit order with the required price.
func NewLimitOrder(product Product, action OrderAction, quantity, price decimal.Decimal) Order {
	return Order{Product: product, Type: OrderTypeLimit, Action: action, Quantity: quantity, Price: price, HasPrice: true}
}

// NewMarketOrder builds a market order, which must carry no price.
func NewMarketOrder(product Product, action OrderAction, quantity decimal.Decimal) Order {
	return Order{Product: product, Type: OrderTypeMarket, Action: action, Quantity: quantity}
}

// Validate enforces the type/price invariant from spec.md §3.
func (o Order) Validate() error {
	switch o.Type {
	case OrderTypeLimit:
		if !o.HasPrice {
			return fmt.Errorf("%w: limit order on %s has no price", ErrInvariantViolation, o.Product)
		}
	case OrderTypeMarket:
		if o.HasPrice {
			return fmt.Errorf("%w: market order on %s carries a price", ErrInvariantViolation, o.Product)
		}
	default:
		return fmt.Errorf("%w: unknown order type %q", ErrInvariantViolation, o.Type)
	}
	if o.Quantity.Sign() <= 0 {
		return fmt.Errorf("%w: non-positive quantity on %s", ErrInvariantViolation, o.Product)
	}
	return nil
}

// OrderResponse is the exchange's acknowledgement of a placed order,
// enough of it for the limit executor to poll and cancel (spec.md §6).
type OrderResponse struct {
	OrderID  string
	ClientID string
	Order    Order
}

// OrderState is the result of polling an order's fill progress.
type OrderState struct {
	OrigQuantity     decimal.Decimal
	ExecutedQuantity decimal.Decimal
}

// Residual returns the unfilled remainder.
func (s OrderState) Residual() decimal.Decimal {
	return s.OrigQuantity.Sub(s.ExecutedQuantity)
}

// FillReport is the exchange's report for a completed order, consumed
// by the statistics builder (spec.md §4.G, §6).
type FillReport struct {
	Symbol            string
	OrderID           string
	ExecutedQuantity  decimal.Decimal
	MeanPrice         decimal.Decimal
	Side              OrderAction
	CommissionInBase  decimal.Decimal
	Product           Product
	PriceEstimates    map[Currency]decimal.Decimal
	MidMarketPrice    decimal.Decimal
}
