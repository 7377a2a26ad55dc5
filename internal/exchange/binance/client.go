// Package binance adapts a go-binance/v2 spot client to the
// rebalance.Exchange interface.
package binance

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/common"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/veltrade/rebalancer/pkg/cache"
	"github.com/veltrade/rebalancer/pkg/types"
)

// Client wraps a *binance.Client with the rate limiting and caching
// every endpoint in this package shares.
type Client struct {
	api         *binance.Client
	cache       *cache.MemoryCache
	rateLimiter *cache.RateLimiter
	log         *logrus.Entry
}

// New builds a Client. testnet switches the wrapped client's base URL
// to Binance's spot testnet.
func New(apiKey, apiSecret string, testnet bool, log *logrus.Entry) *Client {
	api := binance.NewClient(apiKey, apiSecret)
	if testnet {
		api.BaseURL = "https://testnet.binance.vision/api"
	}
	return &Client{
		api:         api,
		cache:       cache.NewMemoryCache(),
		rateLimiter: cache.NewRateLimiter(1200, time.Minute),
		log:         log.WithField("exchange", "binance-spot"),
	}
}

func (c *Client) GetResources(ctx context.Context) (map[types.Currency]decimal.Decimal, error) {
	if !c.rateLimiter.Allow("account") {
		return nil, fmt.Errorf("%w: account rate limit exceeded", types.ErrExchangeError)
	}
	account, err := c.api.NewGetAccountService().Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrExchangeError, err)
	}
	out := make(map[types.Currency]decimal.Decimal, len(account.Balances))
	for _, b := range account.Balances {
		free, err := decimal.NewFromString(b.Free)
		if err != nil {
			continue
		}
		if free.IsZero() {
			continue
		}
		out[types.Currency(b.Asset)] = free
	}
	return out, nil
}

// throughTradeCurrencies lists the currencies Binance's order books
// are commonly routed through; unlike resources or filters, Binance
// exposes no endpoint for this, so it is a fixed, documented set.
var throughTradeCurrencies = types.NewCurrencySet("BTC", "ETH", "BNB", "USDT", "BUSD")

func (c *Client) ThroughTradeCurrencies(ctx context.Context) (types.CurrencySet, error) {
	return throughTradeCurrencies, nil
}

func (c *Client) GetOrderBooks(ctx context.Context, products []types.Product) ([]types.OrderBook, error) {
	books := make([]types.OrderBook, 0, len(products))
	for _, product := range products {
		if !c.rateLimiter.Allow("book_ticker") {
			return nil, fmt.Errorf("%w: book_ticker rate limit exceeded", types.ErrExchangeError)
		}
		symbol := symbolOf(product)
		tickers, err := c.api.NewListBookTickersService().Symbol(symbol).Do(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", types.ErrExchangeError, err)
		}
		if len(tickers) == 0 {
			continue
		}
		t := tickers[0]
		ask, errA := decimal.NewFromString(t.AskPrice)
		bid, errB := decimal.NewFromString(t.BidPrice)
		if errA != nil || errB != nil {
			continue
		}
		books = append(books, types.NewWalledOrderBook(product, ask, bid))
	}
	return books, nil
}

func (c *Client) GetMakerFee(ctx context.Context, product types.Product) (decimal.Decimal, error) {
	return c.tradeFee(ctx, product, true)
}

func (c *Client) GetTakerFee(ctx context.Context, product types.Product) (decimal.Decimal, error) {
	return c.tradeFee(ctx, product, false)
}

func (c *Client) tradeFee(ctx context.Context, product types.Product, maker bool) (decimal.Decimal, error) {
	cacheKey := "trade_fee:" + string(product)
	if cached, ok := c.cache.Get(cacheKey); ok {
		fees := cached.([2]decimal.Decimal)
		if maker {
			return fees[0], nil
		}
		return fees[1], nil
	}
	if !c.rateLimiter.Allow("trade_fee") {
		return decimal.Decimal{}, fmt.Errorf("%w: trade_fee rate limit exceeded", types.ErrExchangeError)
	}
	info, err := c.api.NewTradeFeeService().Symbol(symbolOf(product)).Do(ctx)
	if err != nil || len(info) == 0 {
		return decimal.Decimal{}, fmt.Errorf("%w: %v", types.ErrExchangeError, err)
	}
	makerFee, errM := decimal.NewFromString(info[0].MakerCommission)
	takerFee, errT := decimal.NewFromString(info[0].TakerCommission)
	if errM != nil || errT != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: unparsable fee for %s", types.ErrExchangeError, product)
	}
	c.cache.Set(cacheKey, [2]decimal.Decimal{makerFee, takerFee}, time.Hour)
	if maker {
		return makerFee, nil
	}
	return takerFee, nil
}

func (c *Client) GetFilters(ctx context.Context) (map[types.Product]types.SymbolFilter, error) {
	if cached, ok := c.cache.Get("exchange_info"); ok {
		return cached.(map[types.Product]types.SymbolFilter), nil
	}
	if !c.rateLimiter.Allow("exchange_info") {
		return nil, fmt.Errorf("%w: exchange_info rate limit exceeded", types.ErrExchangeError)
	}
	info, err := c.api.NewExchangeInfoService().Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrExchangeError, err)
	}
	filters := make(map[types.Product]types.SymbolFilter, len(info.Symbols))
	for _, s := range info.Symbols {
		if s.Status != "TRADING" {
			continue
		}
		product := types.NewProduct(types.Currency(s.BaseAsset), types.Currency(s.QuoteAsset))
		lot := s.LotSizeFilter()
		minNotional := decimal.Zero
		if n := s.MinNotionalFilter(); n != nil {
			minNotional = decimal.RequireFromString(n.MinNotional)
		}
		filters[product] = types.SymbolFilter{
			MinOrderSize: decimal.RequireFromString(lot.MinQuantity),
			MaxOrderSize: decimal.RequireFromString(lot.MaxQuantity),
			OrderStep:    decimal.RequireFromString(lot.StepSize),
			MinNotional:  minNotional,
			Base:         types.Currency(s.QuoteAsset),
			Commodity:    types.Currency(s.BaseAsset),
		}
	}
	c.cache.Set("exchange_info", filters, time.Hour)
	return filters, nil
}

func (c *Client) PlaceLimitOrder(ctx context.Context, order types.Order) (types.OrderResponse, error) {
	if !c.rateLimiter.Allow("create_order") {
		return types.OrderResponse{}, fmt.Errorf("%w: create_order rate limit exceeded", types.ErrExchangeError)
	}
	svc := c.api.NewCreateOrderService().
		Symbol(symbolOf(order.Product)).
		Side(binance.SideType(order.Action)).
		Type(orderTypeOf(order.Type)).
		Quantity(order.Quantity.String())
	if order.Type == types.OrderTypeLimit {
		svc = svc.TimeInForce(binance.TimeInForceTypeGTC).Price(order.Price.String())
	}
	if order.ClientID != "" {
		svc = svc.NewClientOrderID(order.ClientID)
	}
	res, err := svc.Do(ctx)
	if err != nil {
		return types.OrderResponse{}, fmt.Errorf("%w: %v", types.ErrExchangeError, err)
	}
	return types.OrderResponse{
		OrderID:  strconv.FormatInt(res.OrderID, 10),
		ClientID: res.ClientOrderID,
		Order:    order,
	}, nil
}

func (c *Client) PlaceMarketOrder(ctx context.Context, order types.Order, priceEstimates map[types.Currency]decimal.Decimal) (*types.FillReport, error) {
	response, err := c.PlaceLimitOrder(ctx, order)
	if err != nil {
		return nil, err
	}
	state, err := c.GetOrder(ctx, response)
	if err != nil {
		return nil, err
	}
	mid := priceEstimates[order.Product.Commodity()]
	return &types.FillReport{
		Symbol:           symbolOf(order.Product),
		OrderID:          response.OrderID,
		ExecutedQuantity: state.ExecutedQuantity,
		MeanPrice:        mid,
		Side:             order.Action,
		CommissionInBase: decimal.Zero,
		Product:          order.Product,
		PriceEstimates:   priceEstimates,
		MidMarketPrice:   mid,
	}, nil
}

func (c *Client) GetOrder(ctx context.Context, response types.OrderResponse) (types.OrderState, error) {
	if !c.rateLimiter.Allow("get_order") {
		return types.OrderState{}, fmt.Errorf("%w: get_order rate limit exceeded", types.ErrExchangeError)
	}
	svc := c.api.NewGetOrderService().Symbol(symbolOf(response.Order.Product))
	if orderID, err := strconv.ParseInt(response.OrderID, 10, 64); err == nil {
		svc = svc.OrderID(orderID)
	} else {
		svc = svc.OrigClientOrderID(response.ClientID)
	}
	order, err := svc.Do(ctx)
	if err != nil {
		return types.OrderState{}, fmt.Errorf("%w: %v", types.ErrExchangeError, err)
	}
	orig, errO := decimal.NewFromString(order.OrigQuantity)
	executed, errE := decimal.NewFromString(order.ExecutedQuantity)
	if errO != nil || errE != nil {
		return types.OrderState{}, fmt.Errorf("%w: unparsable quantities for order %s", types.ErrExchangeError, response.OrderID)
	}
	return types.OrderState{OrigQuantity: orig, ExecutedQuantity: executed}, nil
}

func (c *Client) CancelLimitOrder(ctx context.Context, response types.OrderResponse) error {
	if !c.rateLimiter.Allow("cancel_order") {
		return fmt.Errorf("%w: cancel_order rate limit exceeded", types.ErrExchangeError)
	}
	svc := c.api.NewCancelOrderService().Symbol(symbolOf(response.Order.Product))
	if orderID, err := strconv.ParseInt(response.OrderID, 10, 64); err == nil {
		svc = svc.OrderID(orderID)
	} else {
		svc = svc.OrigClientOrderID(response.ClientID)
	}
	_, err := svc.Do(ctx)
	if err != nil {
		if apiErr, ok := common.IsAPIError(err); ok && apiErr.Code == -2011 {
			// UNKNOWN_ORDER: the order already filled or was already
			// cancelled. Treat as success rather than propagating.
			c.log.WithError(err).WithField("order_id", response.OrderID).Debug("cancel no-op")
			return nil
		}
		return fmt.Errorf("%w: %v", types.ErrExchangeError, err)
	}
	return nil
}

func symbolOf(product types.Product) string {
	commodity, base, err := product.Split()
	if err != nil {
		return string(product)
	}
	return string(commodity) + string(base)
}

func orderTypeOf(t types.OrderType) binance.OrderType {
	if t == types.OrderTypeMarket {
		return binance.OrderTypeMarket
	}
	return binance.OrderTypeLimit
}
