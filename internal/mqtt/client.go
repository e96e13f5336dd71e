package mqtt

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/wilheimcosta/adwrng2/internal/config"
	"github.com/wilheimcosta/adwrng2/internal/logger"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

const (
	operationTimeout = 5 * time.Second

	// PresenceTopic carries the retained online/offline state of the server;
	// the broker publishes "offline" itself when the connection drops.
	PresenceTopic   = "adwrng/server/status"
	presenceOnline  = "online"
	presenceOffline = "offline"
)

type Client struct {
	client    mqtt.Client
	cfg       *config.MQTTConfig
	log       *logger.Logger
	handlers  map[string]MessageHandler
	mu        sync.RWMutex
	connected bool
}

type MessageHandler func(topic string, payload []byte) error

type ClientConfig struct {
	MQTT   *config.MQTTConfig
	Logger *logger.Logger
}

func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}
	if cfg.MQTT == nil {
		return nil, fmt.Errorf("mqtt config cannot be nil")
	}

	c := newClient(cfg.MQTT, cfg.Logger)

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTT.BrokerURL()).
		SetClientID(cfg.MQTT.ClientID).
		SetKeepAlive(cfg.MQTT.KeepAlive).
		SetPingTimeout(10 * time.Second).
		SetConnectTimeout(cfg.MQTT.ConnectTimeout).
		SetAutoReconnect(cfg.MQTT.AutoReconnect).
		SetCleanSession(true).
		SetOrderMatters(false).
		SetWill(PresenceTopic, presenceOffline, cfg.MQTT.QoS, true).
		SetOnConnectHandler(c.onConnect).
		SetConnectionLostHandler(c.onConnectionLost).
		SetReconnectingHandler(c.onReconnecting)

	if cfg.MQTT.Username != "" {
		opts.SetUsername(cfg.MQTT.Username)
		opts.SetPassword(cfg.MQTT.Password)
	}

	c.client = mqtt.NewClient(opts)

	return c, nil
}

func newClient(cfg *config.MQTTConfig, log *logger.Logger) *Client {
	return &Client{
		cfg:      cfg,
		log:      log.With("mqtt"),
		handlers: make(map[string]MessageHandler),
	}
}

// wait resolves a paho token into an error.
func wait(token mqtt.Token, timeout time.Duration, op string) error {
	if !token.WaitTimeout(timeout) {
		return fmt.Errorf("%s: timeout after %v", op, timeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (c *Client) setConnected(v bool) {
	c.mu.Lock()
	c.connected = v
	c.mu.Unlock()
}

func (c *Client) Connect() error {
	c.log.Info("Connecting to MQTT broker: %s:%d", c.cfg.Broker, c.cfg.Port)

	if err := wait(c.client.Connect(), c.cfg.ConnectTimeout, "connect"); err != nil {
		return err
	}
	c.setConnected(true)

	c.log.Info("Connected to MQTT broker")
	return nil
}

// Disconnect announces the server as offline and closes the connection.
func (c *Client) Disconnect() {
	if c.IsConnected() {
		token := c.client.Publish(PresenceTopic, c.cfg.QoS, true, presenceOffline)
		if err := wait(token, operationTimeout, "publish presence"); err != nil {
			c.log.Warn("Could not announce shutdown: %v", err)
		}
	}

	c.log.Info("Disconnecting from MQTT broker")
	c.setConnected(false)
	c.client.Disconnect(250)
}

func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected && c.client.IsConnected()
}

// Subscribe registers handler for topic (wildcards allowed). Subscriptions
// are restored after a reconnect.
func (c *Client) Subscribe(topic string, handler MessageHandler) error {
	if !c.IsConnected() {
		return fmt.Errorf("not connected to broker")
	}

	c.mu.Lock()
	c.handlers[topic] = handler
	c.mu.Unlock()

	if err := c.subscribe(c.client, topic); err != nil {
		return err
	}

	c.log.Info("Subscribed to %s (QoS %d)", topic, c.cfg.QoS)
	return nil
}

func (c *Client) subscribe(client mqtt.Client, topic string) error {
	token := client.Subscribe(topic, c.cfg.QoS, func(_ mqtt.Client, msg mqtt.Message) {
		c.handleMessage(msg)
	})
	return wait(token, operationTimeout, "subscribe "+topic)
}

func (c *Client) Publish(topic string, payload []byte) error {
	if !c.IsConnected() {
		return fmt.Errorf("not connected to broker")
	}

	c.log.Debug("Publishing %d bytes to %s", len(payload), topic)

	token := c.client.Publish(topic, c.cfg.QoS, c.cfg.RetainMessages, payload)
	return wait(token, operationTimeout, "publish "+topic)
}

func (c *Client) PublishJSON(topic string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	return c.Publish(topic, payload)
}

// handlerFor returns the handler of an exact subscription first, then of
// the first wildcard pattern that matches.
func (c *Client) handlerFor(topic string) (MessageHandler, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if h, ok := c.handlers[topic]; ok {
		return h, true
	}
	for pattern, h := range c.handlers {
		if matchTopic(pattern, topic) {
			return h, true
		}
	}
	return nil, false
}

func (c *Client) handleMessage(msg mqtt.Message) {
	topic := msg.Topic()

	handler, ok := c.handlerFor(topic)
	if !ok {
		c.log.Warn("No handler for topic %s", topic)
		return
	}

	if err := handler(topic, msg.Payload()); err != nil {
		c.log.Error("Handler error for topic %s: %v", topic, err)
	}
}

func (c *Client) onConnect(client mqtt.Client) {
	c.mu.Lock()
	c.connected = true
	topics := make([]string, 0, len(c.handlers))
	for topic := range c.handlers {
		topics = append(topics, topic)
	}
	c.mu.Unlock()

	c.log.Info("MQTT connection established")

	token := client.Publish(PresenceTopic, c.cfg.QoS, true, presenceOnline)
	if err := wait(token, operationTimeout, "publish presence"); err != nil {
		c.log.Warn("Could not announce presence: %v", err)
	}

	for _, topic := range topics {
		if err := c.subscribe(client, topic); err != nil {
			c.log.Error("Failed to re-subscribe: %v", err)
		}
	}
}

func (c *Client) onConnectionLost(client mqtt.Client, err error) {
	c.setConnected(false)
	c.log.Error("MQTT connection lost: %v", err)
}

func (c *Client) onReconnecting(client mqtt.Client, opts *mqtt.ClientOptions) {
	c.log.Warn("Reconnecting to MQTT broker %s...", c.cfg.Broker)
}

// matchTopic reports whether topic matches the subscription pattern,
// honouring the + and # wildcards.
func matchTopic(pattern, topic string) bool {
	if pattern == topic {
		return true
	}

	patternParts := splitTopic(pattern)
	topicParts := splitTopic(topic)

	for i, part := range patternParts {
		if part == "#" {
			return true
		}
		if i >= len(topicParts) {
			return false
		}
		if part != "+" && part != topicParts[i] {
			return false
		}
	}

	return len(patternParts) == len(topicParts)
}

func splitTopic(topic string) []string {
	parts := []string{}
	for _, p := range strings.Split(topic, "/") {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}
