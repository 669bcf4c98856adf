package mqtt

import (
	"context"
	"net/url"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/wildcam-go/wildcam/internal/errors"
	"github.com/wildcam-go/wildcam/internal/logger"
	"github.com/wildcam-go/wildcam/internal/observability/metrics"
	"github.com/wildcam-go/wildcam/internal/privacy"
)

// supportedSchemes lists the broker URL schemes understood by paho.
var supportedSchemes = map[string]bool{
	"tcp": true, "mqtt": true, "ssl": true, "tls": true, "mqtts": true, "ws": true, "wss": true,
}

// client implements the Client interface.
type client struct {
	config  Config
	metrics *metrics.MQTTMetrics
	log     logger.Logger

	// ctx is handed to message handlers and ends on Disconnect.
	ctx    context.Context
	cancel context.CancelFunc

	mu             sync.Mutex
	internalClient paho.Client
	subscriptions  map[string]MessageHandler
}

// NewClient creates a new MQTT client with the provided configuration.
// m may be nil.
func NewClient(config Config, m *metrics.MQTTMetrics) (Client, error) {
	u, err := url.Parse(config.Broker)
	if err != nil || !supportedSchemes[u.Scheme] || u.Host == "" {
		// url.Parse errors echo the raw URL, credentials included.
		return nil, errors.Newf("broker must be a URL such as tcp://host:1883").
			Component("mqtt").
			Category(errors.CategoryConfiguration).
			Context("broker", privacy.AnonymizeURL(config.Broker)).
			Build()
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &client{
		config:        config,
		metrics:       m,
		log:           GetLogger().With(logger.String("broker", u.Redacted())),
		ctx:           ctx,
		cancel:        cancel,
		subscriptions: make(map[string]MessageHandler),
	}, nil
}

// Connect establishes the broker connection. paho reconnects on its own afterwards.
func (c *client) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.internalClient != nil && c.internalClient.IsConnected() {
		c.mu.Unlock()
		return nil
	}

	opts := paho.NewClientOptions()
	opts.AddBroker(c.config.Broker)
	opts.SetClientID(c.config.ClientID)
	opts.SetUsername(c.config.Username)
	opts.SetPassword(c.config.Password)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(false)
	opts.SetConnectTimeout(c.config.ConnectTimeout)
	opts.SetMaxReconnectInterval(c.config.MaxReconnectInterval)
	opts.SetOnConnectHandler(c.onConnect)
	opts.SetConnectionLostHandler(c.onConnectionLost)
	opts.SetReconnectingHandler(c.onReconnecting)

	c.internalClient = paho.NewClient(opts)
	internal := c.internalClient
	c.mu.Unlock()

	start := time.Now()
	if err := waitToken(ctx, internal.Connect(), c.config.ConnectTimeout); err != nil {
		c.recordError()
		return errors.New(privacy.RedactError(err, c.config.Password)).
			Component("mqtt").
			Category(errors.CategoryNetwork).
			Context("operation", "connect").
			Timing("mqtt-connect", time.Since(start)).
			Build()
	}

	c.log.Info("connected to MQTT broker", logger.Duration("elapsed", time.Since(start)))
	return nil
}

// Subscribe registers handler for topic and subscribes immediately when connected.
func (c *client) Subscribe(ctx context.Context, topic string, handler MessageHandler) error {
	c.mu.Lock()
	c.subscriptions[topic] = handler
	internal := c.internalClient
	c.mu.Unlock()

	if internal == nil || !internal.IsConnected() {
		// onConnect subscribes once the connection is up.
		return nil
	}
	return c.subscribe(ctx, internal, topic, handler)
}

func (c *client) subscribe(ctx context.Context, internal paho.Client, topic string, handler MessageHandler) error {
	callback := func(_ paho.Client, msg paho.Message) {
		handler(c.ctx, msg.Topic(), msg.Payload())
	}

	if err := waitToken(ctx, internal.Subscribe(topic, c.config.QoS, callback), c.config.SubscribeTimeout); err != nil {
		c.recordError()
		return errors.New(err).
			Component("mqtt").
			Category(errors.CategoryNetwork).
			Context("operation", "subscribe").
			Context("topic", topic).
			Build()
	}

	c.log.Info("subscribed to topic", logger.String("topic", topic), logger.Int("qos", int(c.config.QoS)))
	return nil
}

// Publish sends a message to the specified topic on the MQTT broker.
func (c *client) Publish(ctx context.Context, topic string, payload []byte) error {
	c.mu.Lock()
	internal := c.internalClient
	c.mu.Unlock()

	if internal == nil || !internal.IsConnected() {
		return errors.Newf("not connected to MQTT broker").
			Component("mqtt").
			Category(errors.CategoryNetwork).
			Context("operation", "publish").
			Context("topic", topic).
			Build()
	}

	start := time.Now()
	token := internal.Publish(topic, c.config.QoS, c.config.Retain, payload)
	if err := waitToken(ctx, token, c.config.PublishTimeout); err != nil {
		c.recordError()
		return errors.New(err).
			Component("mqtt").
			Category(errors.CategoryNetwork).
			Context("operation", "publish").
			Context("topic", topic).
			Build()
	}

	if c.metrics != nil {
		c.metrics.RecordPublish(len(payload), time.Since(start))
	}
	c.log.Debug("published message", logger.String("topic", topic), logger.Int("size", len(payload)))
	return nil
}

// IsConnected returns true if the client is currently connected to the MQTT broker.
func (c *client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.internalClient != nil && c.internalClient.IsConnected()
}

// Disconnect closes the connection to the MQTT broker.
func (c *client) Disconnect() {
	c.cancel()

	c.mu.Lock()
	internal := c.internalClient
	c.mu.Unlock()

	if internal != nil && internal.IsConnectionOpen() {
		internal.Disconnect(uint(c.config.DisconnectTimeout.Milliseconds()))
		c.log.Info("disconnected from MQTT broker")
	}
	if c.metrics != nil {
		c.metrics.UpdateConnectionStatus(false)
	}
}

// onConnect restores subscriptions; the session is clean on every connect.
func (c *client) onConnect(internal paho.Client) {
	if c.metrics != nil {
		c.metrics.UpdateConnectionStatus(true)
	}

	c.mu.Lock()
	subs := make(map[string]MessageHandler, len(c.subscriptions))
	for topic, handler := range c.subscriptions {
		subs[topic] = handler
	}
	c.mu.Unlock()

	for topic, handler := range subs {
		if err := c.subscribe(c.ctx, internal, topic, handler); err != nil {
			c.log.Error("failed to restore subscription", logger.String("topic", topic), logger.Error(err))
		}
	}
}

func (c *client) onConnectionLost(_ paho.Client, err error) {
	c.log.Warn("connection to MQTT broker lost", logger.Error(err))
	if c.metrics != nil {
		c.metrics.UpdateConnectionStatus(false)
	}
	c.recordError()
}

func (c *client) onReconnecting(_ paho.Client, _ *paho.ClientOptions) {
	c.log.Debug("reconnecting to MQTT broker")
	if c.metrics != nil {
		c.metrics.IncrementReconnectAttempts()
	}
}

func (c *client) recordError() {
	if c.metrics != nil {
		c.metrics.IncrementErrors()
	}
}

// waitToken waits for token to complete, for ctx to end or for timeout to pass.
func waitToken(ctx context.Context, token paho.Token, timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return errors.NewStd("timed out waiting for broker")
	}
}
