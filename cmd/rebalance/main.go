package main

import (
	"context"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/veltrade/rebalancer/internal/exchange/binance"
	"github.com/veltrade/rebalancer/internal/rebalance"
	"github.com/veltrade/rebalancer/pkg/eventbus"
	"github.com/veltrade/rebalancer/pkg/types"
)

type config struct {
	Base       string             `mapstructure:"base"`
	Testnet    bool               `mapstructure:"testnet"`
	Mode       string             `mapstructure:"mode"` // "market" or "limit"
	MaxRetries int                `mapstructure:"max_retries"`
	RetryWait  time.Duration      `mapstructure:"retry_wait"`
	Weights    map[string]float64 `mapstructure:"weights"`
	Nats       struct {
		URL    string `mapstructure:"url"`
		Stream string `mapstructure:"stream"`
	} `mapstructure:"nats"`
}

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})
	entry := logrus.NewEntry(log)

	viper.SetConfigName("rebalance")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("/etc/rebalancer")
	if err := viper.ReadInConfig(); err != nil {
		entry.WithError(err).Fatal("reading config")
	}

	var cfg config
	if err := viper.Unmarshal(&cfg); err != nil {
		entry.WithError(err).Fatal("parsing config")
	}

	apiKey := os.Getenv("BINANCE_API_KEY")
	apiSecret := os.Getenv("BINANCE_API_SECRET")
	if apiKey == "" || apiSecret == "" {
		entry.Fatal("BINANCE_API_KEY / BINANCE_API_SECRET not set")
	}

	exchange := binance.New(apiKey, apiSecret, cfg.Testnet, entry)

	var bus *eventbus.Publisher
	if cfg.Nats.URL != "" {
		var err error
		bus, err = eventbus.NewPublisher(eventbus.Config{
			URL:        cfg.Nats.URL,
			ClientName: "rebalancer",
			Stream:     cfg.Nats.Stream,
			Subjects:   []string{"rebalance.>"},
		}, entry)
		if err != nil {
			entry.WithError(err).Warn("eventbus unavailable, continuing without it")
		} else {
			defer bus.Close()
		}
	}

	base := types.Currency(cfg.Base)
	weights := make(map[types.Currency]decimal.Decimal, len(cfg.Weights))
	for currency, w := range cfg.Weights {
		weights[types.Currency(currency)] = decimal.NewFromFloat(w)
	}

	ctx := context.Background()
	start := time.Now()

	var placed int
	switch cfg.Mode {
	case "limit":
		maxRetries := cfg.MaxRetries
		if maxRetries == 0 {
			maxRetries = 3
		}
		retryWait := cfg.RetryWait
		if retryWait == 0 {
			retryWait = 5 * time.Second
		}
		states, err := rebalance.LimitOrderRebalance(ctx, entry, exchange, weights, base, maxRetries, retryWait)
		if err != nil {
			entry.WithError(err).Fatal("limit order rebalance failed")
		}
		placed = len(states)
	default:
		reports, err := rebalance.MarketOrderRebalance(ctx, entry, exchange, weights, base)
		if err != nil {
			entry.WithError(err).Fatal("market order rebalance failed")
		}
		placed = len(reports)
		if bus != nil {
			for _, r := range reports {
				bus.PublishOrderFilled(string(r.Product), eventbus.OrderFilled{
					Product:          string(r.Product),
					Side:             string(r.Side),
					ExecutedQuantity: r.ExecutedQuantity.String(),
					MeanPrice:        r.MeanPrice.String(),
				})
			}
		}
	}

	if bus != nil {
		bus.PublishRebalanceCompleted(cfg.Base, eventbus.RebalanceCompleted{
			Base:         cfg.Base,
			OrdersPlaced: placed,
			DurationMs:   time.Since(start).Milliseconds(),
		})
	}

	entry.WithField("orders_placed", placed).Info("rebalance complete")
}
