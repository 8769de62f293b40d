package command

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// DefaultTopic is the command topic the fixture listens on.
const DefaultTopic = "paso"

// Broker is the send primitive of the message broker.
type Broker interface {
	Publish(ctx context.Context, topic string, body []byte) error
}

// Publisher sends command payloads to a single topic. Delivery is fire-and-forget:
// there is no retry, queue or acknowledgment.
type Publisher struct {
	broker  Broker
	topic   string
	limiter *rate.Limiter
}

// NewPublisher creates a publisher for topic.
func NewPublisher(broker Broker, topic string) *Publisher {
	if topic == "" {
		topic = DefaultTopic
	}
	return &Publisher{broker: broker, topic: topic}
}

// WithRateLimit throttles publishing to rps messages per second.
// A non-positive rps disables throttling.
func (p *Publisher) WithRateLimit(rps float64) *Publisher {
	if rps <= 0 {
		p.limiter = nil
		return p
	}
	burst := int(rps)
	if burst < 1 {
		burst = 1
	}
	p.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	return p
}

// Topic returns the destination topic.
func (p *Publisher) Topic() string {
	return p.topic
}

// Publish serializes the payload and hands it to the broker exactly once.
func (p *Publisher) Publish(ctx context.Context, payload Payload) error {
	body, err := payload.Marshal()
	if err != nil {
		return fmt.Errorf("failed to marshal command: %w", err)
	}

	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limit wait: %w", err)
		}
	}

	if err := p.broker.Publish(ctx, p.topic, body); err != nil {
		return fmt.Errorf("publish to %s: %w", p.topic, err)
	}

	log.Info().
		Str("topic", p.topic).
		Str("mode", payload.Mode).
		Int("brightness", payload.Brightness).
		Int("temperature", payload.Temperature).
		Msg("Command published")

	return nil
}
