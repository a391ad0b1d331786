package mqtt

import (
	"errors"
	"sync"
	"time"

	paho_mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/anicoll/smartbuilding/internal/pkg/config"
)

const waitTimeout = 5 * time.Second

var errTimeout = errors.New("mqtt operation timed out")

type subscription struct {
	qos     byte
	handler paho_mqtt.MessageHandler
}

// Client wraps a paho client and remembers its subscriptions so that they are
// re-established every time the connection comes back.
type Client struct {
	client paho_mqtt.Client
	logger *zap.Logger

	mu   sync.Mutex
	subs map[string]subscription
}

// NewClient builds an auto-reconnecting clean-session client for the broker.
func NewClient(cfg config.MqttConfig) *Client {
	c := newClient(nil)
	opts := paho_mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetUsername(cfg.Username).
		SetPassword(cfg.Password).
		SetCleanSession(true).
		SetAutoReconnect(true).
		SetMaxReconnectInterval(30 * time.Second).
		SetOnConnectHandler(c.onConnect).
		SetConnectionLostHandler(func(_ paho_mqtt.Client, err error) {
			c.logger.Warn("mqtt connection lost", zap.Error(err))
		})
	c.client = paho_mqtt.NewClient(opts)
	return c
}

func newClient(client paho_mqtt.Client) *Client {
	return &Client{
		client: client,
		logger: zap.L(),
		subs:   make(map[string]subscription),
	}
}

func (c *Client) Connect() error {
	token := c.client.Connect()
	res := token.WaitTimeout(waitTimeout)
	if err := token.Error(); err != nil {
		return err
	}
	if res {
		return nil
	}
	return errors.New("unable to connect in time")
}

// Subscribe registers the handler for the topic. The subscription is sent right away
// when connected and again on every reconnect.
func (c *Client) Subscribe(topic string, qos byte, handler paho_mqtt.MessageHandler) error {
	c.mu.Lock()
	c.subs[topic] = subscription{qos: qos, handler: handler}
	c.mu.Unlock()

	if !c.client.IsConnected() {
		return nil
	}
	return subscribe(c.client, topic, qos, handler)
}

func (c *Client) Disconnect() {
	c.client.Disconnect(250)
}

func (c *Client) IsConnected() bool {
	return c.client.IsConnected()
}

func (c *Client) onConnect(client paho_mqtt.Client) {
	c.mu.Lock()
	subs := make(map[string]subscription, len(c.subs))
	for topic, s := range c.subs {
		subs[topic] = s
	}
	c.mu.Unlock()

	c.logger.Info("mqtt connected", zap.Int("subscriptions", len(subs)))
	for topic, s := range subs {
		if err := subscribe(client, topic, s.qos, s.handler); err != nil {
			c.logger.Error("failed to subscribe", zap.String("topic", topic), zap.Error(err))
			continue
		}
		c.logger.Info("subscribed", zap.String("topic", topic), zap.Uint8("qos", s.qos))
	}
}

func subscribe(client paho_mqtt.Client, topic string, qos byte, handler paho_mqtt.MessageHandler) error {
	token := client.Subscribe(topic, qos, handler)
	res := token.WaitTimeout(waitTimeout)
	if err := token.Error(); err != nil {
		return err
	}
	if !res {
		return errTimeout
	}
	return nil
}
