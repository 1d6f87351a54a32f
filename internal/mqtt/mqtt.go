// mqtt.go: Package mqtt wraps the paho client for trigger subscription and
// result publishing.
package mqtt

import (
	"context"
	"time"

	"github.com/lanewatch/lanewatch/internal/conf"
	"github.com/lanewatch/lanewatch/internal/logger"
)

// MessageHandler receives the payload of a subscribed topic. It runs on the
// paho delivery goroutine and must not block.
type MessageHandler func(topic string, payload []byte)

// Client defines the interface for MQTT client operations.
type Client interface {
	// Connect attempts to connect to the MQTT broker.
	// It returns an error if the connection fails.
	Connect(ctx context.Context) error

	// Subscribe registers handler for topic. Subscriptions are restored
	// after every reconnect.
	Subscribe(ctx context.Context, topic string, handler MessageHandler) error

	// Publish sends a message to the specified topic on the MQTT broker.
	// It returns an error if the publish operation fails.
	Publish(ctx context.Context, topic string, payload string) error

	// IsConnected returns true if the client is currently connected to the MQTT broker.
	IsConnected() bool

	// Disconnect closes the connection to the MQTT broker.
	Disconnect()
}

// Config holds the configuration for the MQTT client.
type Config struct {
	Broker            string
	ClientID          string
	Username          string
	Password          string
	QoS               byte
	ReconnectCooldown time.Duration // minimum spacing between manual Connect calls
	MaxReconnectDelay time.Duration // cap of paho's exponential reconnect backoff
	// Connection timeouts
	ConnectTimeout    time.Duration
	PublishTimeout    time.Duration
	DisconnectTimeout time.Duration
}

// DefaultConfig returns a Config with reasonable default values
func DefaultConfig() Config {
	return Config{
		ReconnectCooldown: 5 * time.Second,
		MaxReconnectDelay: 5 * time.Minute,
		ConnectTimeout:    30 * time.Second,
		PublishTimeout:    10 * time.Second,
		DisconnectTimeout: 250 * time.Millisecond,
	}
}

// ConfigFromSettings builds a client config from the mqtt settings section
func ConfigFromSettings(settings *conf.Settings) Config {
	cfg := DefaultConfig()
	cfg.Broker = settings.MQTT.Broker
	cfg.ClientID = settings.MQTT.ClientID
	if cfg.ClientID == "" {
		cfg.ClientID = settings.Main.Name
	}
	cfg.Username = settings.MQTT.Username
	cfg.Password = settings.MQTT.Password
	cfg.QoS = byte(settings.MQTT.QoS) //nolint:gosec // validated to 0-2
	return cfg
}

// GetLogger returns the mqtt module logger
func GetLogger() logger.Logger {
	return logger.Global().Module("mqtt")
}
