package kafka

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/kudaline/dispatch-service/internal/application"
)

// Producer publishes dispatch events and rider push messages. Both
// are fire-and-forget from the lifecycle's perspective; the caller
// logs failures and moves on.
type Producer struct {
	events *kafka.Writer
	push   *kafka.Writer
}

func NewProducer(brokersSTR, eventsTopic, pushTopic string) *Producer {
	brokers := strings.Split(brokersSTR, ",")

	newWriter := func(topic string) *kafka.Writer {
		return &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.LeastBytes{},
			RequiredAcks: kafka.RequireAll,
			Async:        false,
		}
	}
	return &Producer{
		events: newWriter(eventsTopic),
		push:   newWriter(pushTopic),
	}
}

func (p *Producer) Close() error {
	if err := p.events.Close(); err != nil {
		_ = p.push.Close()
		return err
	}
	return p.push.Close()
}

type envelope struct {
	Type       string    `json:"type"`
	OccurredAt time.Time `json:"occurred_at"`
	Payload    any       `json:"payload"`
}

func (p *Producer) Publish(ctx context.Context, eventType string, payload any) error {
	b, err := json.Marshal(envelope{Type: eventType, OccurredAt: time.Now().UTC(), Payload: payload})
	if err != nil {
		return err
	}
	return p.events.WriteMessages(ctx, kafka.Message{
		Key:   []byte(eventType),
		Value: b,
		Headers: []kafka.Header{
			{Key: "content-type", Value: []byte("application/json")},
		},
	})
}

func (p *Producer) NotifyRider(ctx context.Context, riderID uuid.UUID, summary application.OrderSummary) error {
	b, err := json.Marshal(summary)
	if err != nil {
		return err
	}
	return p.push.WriteMessages(ctx, kafka.Message{
		Key:   []byte(riderID.String()),
		Value: b,
		Headers: []kafka.Header{
			{Key: "content-type", Value: []byte("application/json")},
		},
	})
}
