// Package broker connects lumos to the MQTT broker.
package broker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// ErrNotConnected is returned when publishing without a broker connection.
var ErrNotConnected = errors.New("broker not connected")

// MessageHandler receives messages delivered on a subscribed topic.
type MessageHandler func(topic string, payload []byte)

// Options configures the broker connection.
type Options struct {
	Host           string
	Port           int
	ClientIDPrefix string
	Username       string
	Password       string
	KeepAlive      time.Duration
	ConnectTimeout time.Duration
	PublishTimeout time.Duration
	QoS            byte
}

// Client is a thin wrapper over a paho client that remembers subscriptions
// and restores them whenever the connection is re-established.
type Client struct {
	opts   Options
	id     string
	client mqtt.Client

	mu   sync.Mutex
	subs map[string]MessageHandler
}

// NewClient creates a client with a randomly suffixed client identifier.
func NewClient(opts Options) *Client {
	c := &Client{
		opts: opts,
		id:   ClientID(opts.ClientIDPrefix),
		subs: make(map[string]MessageHandler),
	}
	c.client = mqtt.NewClient(c.clientOptions())
	return c
}

// ClientID returns prefix followed by a random suffix.
func ClientID(prefix string) string {
	if prefix == "" {
		prefix = "lumos"
	}
	return fmt.Sprintf("%s-%s", prefix, uuid.NewString()[:8])
}

// ID returns the client identifier used on the broker.
func (c *Client) ID() string {
	return c.id
}

// URL returns the broker address.
func (c *Client) URL() string {
	return fmt.Sprintf("tcp://%s:%d", c.opts.Host, c.opts.Port)
}

func (c *Client) clientOptions() *mqtt.ClientOptions {
	return mqtt.NewClientOptions().
		AddBroker(c.URL()).
		SetClientID(c.id).
		SetUsername(c.opts.Username).
		SetPassword(c.opts.Password).
		SetKeepAlive(c.opts.KeepAlive).
		SetConnectTimeout(c.opts.ConnectTimeout).
		SetAutoReconnect(true).
		SetOnConnectHandler(c.onConnect).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			log.Warn().Err(err).Str("broker", c.URL()).Msg("MQTT connection lost")
		}).
		SetReconnectingHandler(func(_ mqtt.Client, _ *mqtt.ClientOptions) {
			log.Info().Str("broker", c.URL()).Msg("MQTT reconnecting")
		})
}

// Connect dials the broker and blocks until connected, the context ends,
// or the connect timeout elapses.
func (c *Client) Connect(ctx context.Context) error {
	log.Info().Str("broker", c.URL()).Str("client_id", c.id).Msg("Connecting to MQTT broker")

	if err := c.wait(ctx, c.client.Connect(), c.opts.ConnectTimeout); err != nil {
		return fmt.Errorf("mqtt connect %s: %w", c.URL(), err)
	}
	return nil
}

// Connected reports whether the connection is currently up.
func (c *Client) Connected() bool {
	return c.client.IsConnectionOpen()
}

// Publish sends body to topic. It does not retry.
func (c *Client) Publish(ctx context.Context, topic string, body []byte) error {
	if !c.client.IsConnectionOpen() {
		return ErrNotConnected
	}
	return c.wait(ctx, c.client.Publish(topic, c.opts.QoS, false, body), c.opts.PublishTimeout)
}

// Subscribe registers handler for topic. Subscriptions made before Connect
// are sent once the connection comes up.
func (c *Client) Subscribe(topic string, handler MessageHandler) error {
	c.mu.Lock()
	c.subs[topic] = handler
	c.mu.Unlock()

	if !c.client.IsConnectionOpen() {
		return nil
	}
	return c.subscribe(topic, handler)
}

func (c *Client) subscribe(topic string, handler MessageHandler) error {
	token := c.client.Subscribe(topic, c.opts.QoS, func(_ mqtt.Client, msg mqtt.Message) {
		handler(msg.Topic(), msg.Payload())
	})
	if err := c.wait(context.Background(), token, c.opts.ConnectTimeout); err != nil {
		return fmt.Errorf("mqtt subscribe %s: %w", topic, err)
	}
	log.Info().Str("topic", topic).Msg("Subscribed")
	return nil
}

// onConnect restores every registered subscription.
func (c *Client) onConnect(_ mqtt.Client) {
	log.Info().Str("broker", c.URL()).Msg("MQTT connected")

	c.mu.Lock()
	subs := make(map[string]MessageHandler, len(c.subs))
	for topic, handler := range c.subs {
		subs[topic] = handler
	}
	c.mu.Unlock()

	for topic, handler := range subs {
		// paho runs this handler on its own goroutine, so blocking on the token is fine
		if err := c.subscribe(topic, handler); err != nil {
			log.Error().Err(err).Str("topic", topic).Msg("Failed to subscribe")
		}
	}
}

// Close disconnects, allowing in-flight work a short grace period.
func (c *Client) Close() {
	if c.client.IsConnected() {
		c.client.Disconnect(250)
		log.Info().Msg("MQTT disconnected")
	}
}

func (c *Client) wait(ctx context.Context, token mqtt.Token, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return fmt.Errorf("timed out after %s", timeout)
	}
}
