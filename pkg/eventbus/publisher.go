// Package eventbus publishes rebalance lifecycle events to NATS
// JetStream for downstream observability consumers. Publication is
// best-effort: a publish failure is logged and swallowed, since no
// core rebalance operation should abort because nothing is listening.
package eventbus

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"
)

// Config configures the underlying NATS connection and the JetStream
// stream events are published into.
type Config struct {
	URL        string
	ClientName string
	Stream     string
	Subjects   []string
}

// Publisher wraps a JetStream context and exposes one method per
// rebalance lifecycle event.
type Publisher struct {
	conn   *nats.Conn
	js     nats.JetStreamContext
	stream string
	log    *logrus.Entry
}

// NewPublisher connects to NATS and ensures the configured stream
// exists, creating it if necessary.
func NewPublisher(config Config, log *logrus.Entry) (*Publisher, error) {
	log = log.WithField("component", "eventbus")
	conn, err := nats.Connect(config.URL,
		nats.Name(config.ClientName),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.WithError(err).Warn("nats disconnected")
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			log.Info("nats reconnected")
		}),
		nats.ErrorHandler(func(_ *nats.Conn, _ *nats.Subscription, err error) {
			log.WithError(err).Error("nats async error")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("eventbus: connect: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("eventbus: jetstream context: %w", err)
	}

	if _, err := js.StreamInfo(config.Stream); err != nil {
		_, err = js.AddStream(&nats.StreamConfig{
			Name:     config.Stream,
			Subjects: config.Subjects,
		})
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("eventbus: add stream: %w", err)
		}
	}

	return &Publisher{conn: conn, js: js, stream: config.Stream, log: log}, nil
}

// Close closes the connection immediately; it does not drain it.
func (p *Publisher) Close() {
	p.conn.Close()
}

func (p *Publisher) publish(subject string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		p.log.WithError(err).WithField("subject", subject).Error("marshal event")
		return
	}
	if _, err := p.js.Publish(subject, data); err != nil {
		p.log.WithError(err).WithField("subject", subject).Warn("publish event")
	}
}

// RebalancePlanned event schema.
type RebalancePlanned struct {
	Base          string   `json:"base"`
	TransferCount int      `json:"transfer_count"`
	Currencies    []string `json:"currencies"`
}

// PublishRebalancePlanned announces a freshly computed transfer plan.
func (p *Publisher) PublishRebalancePlanned(base string, event RebalancePlanned) {
	p.publish("rebalance.planned."+base, event)
}

// OrderFilled event schema.
type OrderFilled struct {
	Product          string `json:"product"`
	Side             string `json:"side"`
	ExecutedQuantity string `json:"executed_quantity"`
	MeanPrice        string `json:"mean_price"`
}

// PublishOrderFilled announces a completed fill.
func (p *Publisher) PublishOrderFilled(product string, event OrderFilled) {
	p.publish("rebalance.order.filled."+product, event)
}

// RebalanceCompleted event schema.
type RebalanceCompleted struct {
	Base        string `json:"base"`
	OrdersPlaced int   `json:"orders_placed"`
	DurationMs  int64  `json:"duration_ms"`
}

// PublishRebalanceCompleted announces that a rebalance run finished.
func (p *Publisher) PublishRebalanceCompleted(base string, event RebalanceCompleted) {
	p.publish("rebalance.completed."+base, event)
}
