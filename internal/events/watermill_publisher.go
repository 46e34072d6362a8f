package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v2/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// WatermillPublisher publishes events as JSON messages on a single topic
type WatermillPublisher struct {
	publisher message.Publisher
	topic     string
	logger    *slog.Logger
}

func NewWatermillPublisher(publisher message.Publisher, topic string, logger *slog.Logger) *WatermillPublisher {
	if topic == "" {
		topic = DefaultTopic
	}
	return &WatermillPublisher{
		publisher: publisher,
		topic:     topic,
		logger:    logger,
	}
}

// NewGoChannelPublisher builds an in-process publisher. The returned GoChannel can be
// used to subscribe to the same topic.
func NewGoChannelPublisher(topic string, logger *slog.Logger) (*WatermillPublisher, *gochannel.GoChannel) {
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NewSlogLogger(logger))
	return NewWatermillPublisher(pubSub, topic, logger), pubSub
}

// NewKafkaPublisher builds a publisher backed by Kafka
func NewKafkaPublisher(brokers []string, topic string, logger *slog.Logger) (*WatermillPublisher, error) {
	pub, err := kafka.NewPublisher(kafka.PublisherConfig{
		Brokers:   brokers,
		Marshaler: kafka.DefaultMarshaler{},
	}, watermill.NewSlogLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka publisher: %w", err)
	}
	return NewWatermillPublisher(pub, topic, logger), nil
}

func (p *WatermillPublisher) Publish(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(event.ID, payload)
	msg.Metadata.Set("event_type", string(event.Type))
	msg.Metadata.Set("source", event.Source)
	msg.SetContext(ctx)

	if err := p.publisher.Publish(p.topic, msg); err != nil {
		return fmt.Errorf("failed to publish event %s: %w", event.Type, err)
	}

	p.logger.Debug("Event published", "event_id", event.ID, "event_type", event.Type, "topic", p.topic)
	return nil
}

func (p *WatermillPublisher) Close() error {
	return p.publisher.Close()
}

// Emit publishes and logs failures without returning them
func Emit(ctx context.Context, publisher Publisher, logger *slog.Logger, eventType EventType, data map[string]interface{}) {
	if publisher == nil {
		return
	}
	event := NewEvent(eventType, data)
	if err := publisher.Publish(ctx, event); err != nil {
		logger.WarnContext(ctx, "Failed to publish event", "event_type", eventType, "error", err)
	}
}
