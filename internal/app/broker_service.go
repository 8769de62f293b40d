package app

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/lumos/internal/broker"
	"github.com/dokzlo13/lumos/internal/config"
	"github.com/dokzlo13/lumos/internal/eventbus"
)

// BrokerService owns the MQTT connection and forwards subscribed topics to the event bus.
type BrokerService struct {
	cfg    *config.Config
	Client *broker.Client
	bus    *eventbus.Bus
}

// NewBrokerService creates the broker client without connecting.
func NewBrokerService(cfg *config.Config, bus *eventbus.Bus) *BrokerService {
	client := broker.NewClient(broker.Options{
		Host:           cfg.Broker.Host,
		Port:           cfg.Broker.Port,
		ClientIDPrefix: cfg.Broker.ClientID,
		Username:       cfg.Broker.Username,
		Password:       cfg.Broker.Password,
		KeepAlive:      cfg.Broker.KeepAlive.Duration(),
		ConnectTimeout: cfg.Broker.ConnectTimeout.Duration(),
		PublishTimeout: cfg.Broker.PublishTimeout.Duration(),
		QoS:            byte(cfg.Broker.QoS),
	})

	return &BrokerService{
		cfg:    cfg,
		Client: client,
		bus:    bus,
	}
}

// Route forwards messages on topic to the bus as events of eventType.
// Routes registered before Start are subscribed on connect.
func (s *BrokerService) Route(topic string, eventType eventbus.EventType) error {
	return s.Client.Subscribe(topic, func(topic string, payload []byte) {
		log.Debug().Str("topic", topic).Int("len", len(payload)).Msg("Message received")
		s.bus.Publish(eventbus.Event{
			Type:       eventType,
			Topic:      topic,
			Payload:    payload,
			ReceivedAt: time.Now(),
		})
	})
}

// Start connects to the broker.
func (s *BrokerService) Start(ctx context.Context) error {
	return s.Client.Connect(ctx)
}

// Ready reports whether the broker connection is up.
func (s *BrokerService) Ready() bool {
	return s.Client.Connected()
}

// Close disconnects from the broker.
func (s *BrokerService) Close() {
	s.Client.Close()
}
