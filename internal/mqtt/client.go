// client.go: paho backed implementation of Client.
package mqtt

import (
	"context"
	"net"
	"net/url"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/lanewatch/lanewatch/internal/errors"
	"github.com/lanewatch/lanewatch/internal/logger"
	"github.com/lanewatch/lanewatch/internal/observability/metrics"
)

// ErrNotConnected is returned by Publish and Subscribe while the broker is unreachable
var ErrNotConnected = errors.NewStd("not connected to MQTT broker")

// pahoFactory builds the underlying paho client
type pahoFactory func(*paho.ClientOptions) paho.Client

// client implements the Client interface.
type client struct {
	config          Config
	internalClient  paho.Client
	newPaho         pahoFactory
	lastConnAttempt time.Time
	mu              sync.Mutex
	subs            map[string]MessageHandler
	subsMu          sync.RWMutex
	metrics         *metrics.MQTTMetrics
	log             logger.Logger
}

// NewClient creates a new MQTT client with the provided configuration.
// A nil metrics collects into a private registry.
func NewClient(config Config, m *metrics.MQTTMetrics) (Client, error) {
	return newClient(config, m, paho.NewClient)
}

func newClient(config Config, m *metrics.MQTTMetrics, factory pahoFactory) (*client, error) {
	if config.Broker == "" {
		return nil, errors.Newf("mqtt broker is not configured").
			Component("mqtt").
			Category(errors.CategoryConfiguration).
			Build()
	}
	if m == nil {
		var err error
		if m, err = metrics.NewMQTTMetrics(prometheus.NewRegistry()); err != nil {
			return nil, err
		}
	}
	return &client{
		config:  config,
		newPaho: factory,
		subs:    make(map[string]MessageHandler),
		metrics: m,
		log: GetLogger().With(
			logger.String("broker", logger.RedactURL(config.Broker)),
			logger.String("client_id", config.ClientID)),
	}, nil
}

// Connect attempts to establish a connection to the MQTT broker.
// It first resolves the broker's hostname and then attempts to connect.
// Once connected, paho reconnects on its own with exponential backoff.
func (c *client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.lastConnAttempt.IsZero() && time.Since(c.lastConnAttempt) < c.config.ReconnectCooldown {
		return c.connError(errors.Newf("connection attempt too recent, last attempt was %v ago",
			time.Since(c.lastConnAttempt)).Build(), "cooldown")
	}
	c.lastConnAttempt = time.Now()

	u, err := url.Parse(c.config.Broker)
	if err != nil {
		return c.connError(err, "parse_broker")
	}

	host := u.Hostname()
	if net.ParseIP(host) == nil {
		if _, err := net.DefaultResolver.LookupHost(ctx, host); err != nil {
			return c.connError(err, "resolve")
		}
	}

	opts := paho.NewClientOptions()
	opts.AddBroker(c.config.Broker)
	opts.SetClientID(c.config.ClientID)
	opts.SetUsername(c.config.Username)
	opts.SetPassword(c.config.Password)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetMaxReconnectInterval(c.config.MaxReconnectDelay)
	opts.SetConnectTimeout(c.config.ConnectTimeout)
	opts.SetOnConnectHandler(c.onConnect)
	opts.SetConnectionLostHandler(c.onConnectionLost)
	opts.SetReconnectingHandler(c.onReconnecting)

	c.internalClient = c.newPaho(opts)

	token := c.internalClient.Connect()
	if err := waitToken(ctx, token, c.config.ConnectTimeout); err != nil {
		c.metrics.IncrementErrors()
		return c.connError(err, "connect")
	}

	c.metrics.UpdateConnectionStatus(true)
	return nil
}

// Subscribe registers handler for topic at the configured QoS.
func (c *client) Subscribe(ctx context.Context, topic string, handler MessageHandler) error {
	c.subsMu.Lock()
	c.subs[topic] = handler
	c.subsMu.Unlock()

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.IsConnected() {
		// restored by onConnect
		return c.connError(ErrNotConnected, "subscribe")
	}
	return c.subscribe(ctx, topic, handler)
}

func (c *client) subscribe(ctx context.Context, topic string, handler MessageHandler) error {
	token := c.internalClient.Subscribe(topic, c.config.QoS, func(_ paho.Client, msg paho.Message) {
		c.metrics.IncrementMessagesReceived()
		c.metrics.ObserveReceivedSize(float64(len(msg.Payload())))
		handler(msg.Topic(), msg.Payload())
	})
	if err := waitToken(ctx, token, c.config.ConnectTimeout); err != nil {
		c.metrics.IncrementErrors()
		return errors.New(err).
			Component("mqtt").
			Category(errors.CategoryMQTTConnection).
			Context("operation", "subscribe").
			Context("topic", topic).
			Build()
	}
	c.log.Info("subscribed", logger.String("topic", topic), logger.Int("qos", int(c.config.QoS)))
	return nil
}

// Publish sends a message to the specified topic on the MQTT broker.
func (c *client) Publish(ctx context.Context, topic string, payload string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.log.Debug("publishing", logger.String("topic", topic))

	if !c.IsConnected() {
		c.metrics.IncrementErrors()
		return c.publishError(ErrNotConnected, topic)
	}

	timer := c.metrics.StartPublishTimer()
	defer timer.ObserveDuration()

	token := c.internalClient.Publish(topic, c.config.QoS, false, payload)
	if err := waitToken(ctx, token, c.config.PublishTimeout); err != nil {
		c.metrics.IncrementErrors()
		return c.publishError(err, topic)
	}

	c.metrics.IncrementMessagesDelivered()
	c.metrics.ObserveMessageSize(float64(len(payload)))
	return nil
}

// IsConnected returns true if the client is currently connected to the MQTT broker.
func (c *client) IsConnected() bool {
	return c.internalClient != nil && c.internalClient.IsConnected()
}

// Disconnect closes the connection to the MQTT broker.
func (c *client) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.internalClient != nil {
		c.internalClient.Disconnect(uint(c.config.DisconnectTimeout.Milliseconds())) //nolint:gosec // small positive duration
		c.metrics.UpdateConnectionStatus(false)
	}
}

func (c *client) onConnect(_ paho.Client) {
	c.log.Info("connected to MQTT broker")
	c.metrics.UpdateConnectionStatus(true)

	c.subsMu.RLock()
	subs := make(map[string]MessageHandler, len(c.subs))
	for topic, h := range c.subs {
		subs[topic] = h
	}
	c.subsMu.RUnlock()

	// clean sessions drop subscriptions, restore them off the paho callback goroutine
	go func() {
		for topic, h := range subs {
			ctx, cancel := context.WithTimeout(context.Background(), c.config.ConnectTimeout)
			if err := c.subscribe(ctx, topic, h); err != nil {
				c.log.Error("failed to restore subscription", logger.String("topic", topic), logger.Error(err))
			}
			cancel()
		}
	}()
}

func (c *client) onConnectionLost(_ paho.Client, err error) {
	c.log.Warn("connection to MQTT broker lost", logger.Error(err))
	c.metrics.UpdateConnectionStatus(false)
	c.metrics.IncrementErrors()
}

func (c *client) onReconnecting(_ paho.Client, _ *paho.ClientOptions) {
	c.metrics.IncrementReconnectAttempts()
	c.log.Debug("reconnecting to MQTT broker")
}

// waitToken waits for token completion, the timeout or ctx, whichever is first.
func waitToken(ctx context.Context, token paho.Token, timeout time.Duration) error {
	var timer <-chan time.Time
	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		timer = t.C
	}
	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return ctx.Err()
	case <-timer:
		return errors.Newf("timeout after %v", timeout).Category(errors.CategoryTimeout).Build()
	}
}

func (c *client) connError(err error, op string) error {
	return errors.New(err).
		Component("mqtt").
		Category(errors.CategoryMQTTConnection).
		Context("broker", logger.RedactURL(c.config.Broker)).
		Context("operation", op).
		Build()
}

func (c *client) publishError(err error, topic string) error {
	return errors.New(err).
		Component("mqtt").
		Category(errors.CategoryMQTTPublish).
		Context("topic", topic).
		Build()
}
