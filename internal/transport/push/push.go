// Package push receives triggers from an MQTT topic.
//
// paho delivers messages on its own goroutine. The handler only queues the
// event; a single worker drains the queue and runs gate and pipeline, so a
// slow capture never blocks the MQTT client.
package push

import (
	"context"
	"time"

	"github.com/lanewatch/lanewatch/internal/errors"
	"github.com/lanewatch/lanewatch/internal/logger"
	"github.com/lanewatch/lanewatch/internal/mqtt"
	"github.com/lanewatch/lanewatch/internal/observability/metrics"
	"github.com/lanewatch/lanewatch/internal/transport"
	"github.com/lanewatch/lanewatch/internal/trigger"
)

// DefaultQueueSize bounds the pending triggers
const DefaultQueueSize = 8

const (
	initialConnectBackoff = 5 * time.Second
	maxConnectBackoff     = 5 * time.Minute
)

// Broker is the part of mqtt.Client the adapter uses
type Broker interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context, topic string, handler mqtt.MessageHandler) error
	IsConnected() bool
	Disconnect()
}

// Adapter subscribes to the trigger topic and feeds the dispatcher
type Adapter struct {
	broker     Broker
	topic      string
	dispatcher *transport.Dispatcher
	queue      chan trigger.Event
	metrics    *metrics.MQTTMetrics
	backoff    time.Duration
	log        logger.Logger
}

// Option configures an Adapter
type Option func(*Adapter)

// WithQueueSize sets the queue capacity, values below 1 are ignored
func WithQueueSize(n int) Option {
	return func(a *Adapter) {
		if n >= 1 {
			a.queue = make(chan trigger.Event, n)
		}
	}
}

// WithMetrics counts dropped triggers
func WithMetrics(m *metrics.MQTTMetrics) Option {
	return func(a *Adapter) {
		a.metrics = m
	}
}

// WithConnectBackoff sets the first wait between failed connect or subscribe
// attempts
func WithConnectBackoff(d time.Duration) Option {
	return func(a *Adapter) {
		if d > 0 {
			a.backoff = d
		}
	}
}

// New returns an adapter for topic
func New(broker Broker, topic string, dispatcher *transport.Dispatcher, opts ...Option) *Adapter {
	a := &Adapter{
		broker:     broker,
		topic:      topic,
		dispatcher: dispatcher,
		queue:      make(chan trigger.Event, DefaultQueueSize),
		backoff:    initialConnectBackoff,
		log:        logger.Global().Module("push").With(logger.String("topic", topic)),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Run connects, subscribes and processes triggers until ctx is cancelled. A
// run in progress is finished before Run returns. Connection failures are
// retried with exponential backoff and never end Run. So are refused
// subscriptions.
func (a *Adapter) Run(ctx context.Context) error {
	if !a.connect(ctx) {
		return nil
	}
	defer a.broker.Disconnect()

	if !a.subscribe(ctx) {
		return nil
	}

	a.log.Info("waiting for triggers", logger.Int("queue_size", cap(a.queue)))
	runCtx := context.WithoutCancel(ctx)
	for {
		select {
		case <-ctx.Done():
			a.log.Info("push transport stopped")
			return nil
		case ev := <-a.queue:
			a.dispatcher.Handle(runCtx, ev)
		}
	}
}

// connect retries until the broker accepts the connection. It returns false
// when ctx ends first.
func (a *Adapter) connect(ctx context.Context) bool {
	return a.retry(ctx, "failed to connect to broker", func() error {
		return a.broker.Connect(ctx)
	})
}

// subscribe retries until the trigger handler is registered. A refused
// subscription on a live connection is not restored by a reconnect.
func (a *Adapter) subscribe(ctx context.Context) bool {
	return a.retry(ctx, "failed to subscribe to trigger topic", func() error {
		return a.broker.Subscribe(ctx, a.topic, a.offer)
	})
}

// retry calls op with exponential backoff until it succeeds. It returns false
// when ctx ends first.
func (a *Adapter) retry(ctx context.Context, msg string, op func() error) bool {
	backoff := a.backoff
	for {
		err := op()
		if err == nil {
			return true
		}
		err = transport.Unavailable(err, "push", errors.CategoryMQTTConnection)
		a.log.Error(msg, logger.Error(err), logger.Duration("retry_in", backoff))

		t := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			t.Stop()
			return false
		case <-t.C:
		}
		backoff = min(backoff*2, maxConnectBackoff)
	}
}

// offer runs on the paho goroutine and never blocks.
func (a *Adapter) offer(_ string, payload []byte) {
	ev := trigger.NewEvent(trigger.SourcePush, string(payload))
	select {
	case a.queue <- ev:
	default:
		if a.metrics != nil {
			a.metrics.IncrementMessagesDropped()
		}
		a.log.Warn("trigger queue full, dropping message", logger.Int("payload_bytes", len(payload)))
	}
}
