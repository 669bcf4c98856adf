// Package mqtt connects WildCam to an MQTT broker. Cameras publish detections
// that are stored in the detection store, and stored feedback is published back.
package mqtt

import (
	"context"
	"time"

	"github.com/wildcam-go/wildcam/internal/conf"
	"github.com/wildcam-go/wildcam/internal/logger"
)

// MessageHandler processes one received message.
type MessageHandler func(ctx context.Context, topic string, payload []byte)

// Client defines the interface for MQTT client operations.
type Client interface {
	// Connect attempts to connect to the MQTT broker.
	// It returns an error if the connection fails.
	Connect(ctx context.Context) error

	// Subscribe registers handler for topic. Subscriptions survive reconnects.
	Subscribe(ctx context.Context, topic string, handler MessageHandler) error

	// Publish sends a message to the specified topic on the MQTT broker.
	Publish(ctx context.Context, topic string, payload []byte) error

	// IsConnected returns true if the client is currently connected to the MQTT broker.
	IsConnected() bool

	// Disconnect closes the connection to the MQTT broker.
	Disconnect()
}

// Config holds the configuration for the MQTT client.
type Config struct {
	Broker   string
	ClientID string
	Username string
	Password string
	QoS      byte
	Retain   bool // true to retain published messages at the broker
	// Connection timeouts
	ConnectTimeout       time.Duration
	PublishTimeout       time.Duration
	SubscribeTimeout     time.Duration
	DisconnectTimeout    time.Duration
	MaxReconnectInterval time.Duration
}

// DefaultConfig returns a Config with reasonable default values
func DefaultConfig() Config {
	return Config{
		ClientID:             "wildcam",
		QoS:                  1,
		ConnectTimeout:       30 * time.Second,
		PublishTimeout:       10 * time.Second,
		SubscribeTimeout:     10 * time.Second,
		DisconnectTimeout:    250 * time.Millisecond,
		MaxReconnectInterval: 5 * time.Minute,
	}
}

// ConfigFromSettings builds a client config from the mqtt settings section.
func ConfigFromSettings(settings *conf.MQTTSettings) Config {
	config := DefaultConfig()
	config.Broker = settings.Broker
	if settings.ClientID != "" {
		config.ClientID = settings.ClientID
	}
	config.Username = settings.Username
	config.Password = settings.Password
	config.QoS = settings.QoS
	return config
}

// GetLogger returns the mqtt module logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("mqtt")
}
