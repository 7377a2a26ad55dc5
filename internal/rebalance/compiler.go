package rebalance

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/veltrade/rebalancer/pkg/types"
)

// CompileOrder turns an abstract currency transfer into a concrete
// exchange order (spec.md §4.D). transfer.Amount is denominated in
// base-currency value; it is converted to a commodity quantity via
// priceEstimates before filters are applied.
//
// A transfer compiles to BUY when its To currency is the product's
// commodity leg (spending From/base to acquire the commodity) and to
// SELL when its From currency is the commodity leg. If neither listed
// product orientation matches, ErrUnsupportedPair is returned and the
// transfer should be dropped, not retried.
func CompileOrder(
	transfer types.Transfer,
	listed types.ProductSet,
	priceEstimates map[types.Currency]decimal.Decimal,
	filters map[types.Product]types.SymbolFilter,
	orderType types.OrderType,
	limitPrice decimal.Decimal,
) (types.Order, error) {
	product, action, err := resolveProductAndAction(transfer, listed)
	if err != nil {
		return types.Order{}, err
	}

	commodity := product.Commodity()
	commodityPrice, ok := priceEstimates[commodity]
	if !ok || commodityPrice.IsZero() {
		return types.Order{}, fmt.Errorf("%w: no price estimate for commodity %s", types.ErrUnsupportedPair, commodity)
	}
	quantity := transfer.Amount.Div(commodityPrice)

	filter, ok := filters[product]
	if !ok {
		return types.Order{}, fmt.Errorf("%w: %s has no symbol filter", types.ErrUnsupportedPair, product)
	}

	price := limitPrice
	if orderType == types.OrderTypeMarket {
		mid, ok := priceEstimates[product.Base()]
		if ok && !mid.IsZero() {
			price = commodityPrice.Div(mid)
		} else {
			price = commodityPrice
		}
	}

	out, isDust := filter.Apply(quantity, price)
	if isDust {
		return types.Order{}, fmt.Errorf("%w: %s quantity %s is dust", types.ErrFilterRejection, product, quantity)
	}

	var order types.Order
	switch orderType {
	case types.OrderTypeLimit:
		order = types.NewLimitOrder(product, action, out, limitPrice)
	case types.OrderTypeMarket:
		order = types.NewMarketOrder(product, action, out)
	default:
		return types.Order{}, fmt.Errorf("%w: unknown order type %q", types.ErrInvariantViolation, orderType)
	}
	if err := order.Validate(); err != nil {
		return types.Order{}, err
	}
	return order, nil
}

// resolveProductAndAction finds which of A_B or B_A is listed for a
// transfer between From and To, and the BUY/SELL action that realizes
// the transfer on that listing.
func resolveProductAndAction(transfer types.Transfer, listed types.ProductSet) (types.Product, types.OrderAction, error) {
	direct := types.NewProduct(transfer.To, transfer.From)   // To is commodity, From is base: buying To
	reverse := types.NewProduct(transfer.From, transfer.To) // From is commodity, To is base: selling From

	switch {
	case listed.Contains(direct):
		return direct, types.OrderActionBuy, nil
	case listed.Contains(reverse):
		return reverse, types.OrderActionSell, nil
	default:
		return "", "", fmt.Errorf("%w: no listed product for %s -> %s", types.ErrUnsupportedPair, transfer.From, transfer.To)
	}
}
