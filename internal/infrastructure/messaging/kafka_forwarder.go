package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/erp/procurement/internal/domain/shared"
	"github.com/erp/procurement/internal/infrastructure/config"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// DefaultTopic is the topic domain events are forwarded to when none is configured
const DefaultTopic = "procurement.events"

// MessageWriter is the subset of *kafka.Writer used by the forwarder
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Envelope is the message body published for every domain event
type Envelope struct {
	EventID       string             `json:"event_id"`
	EventType     string             `json:"event_type"`
	AggregateType string             `json:"aggregate_type"`
	AggregateID   string             `json:"aggregate_id"`
	OccurredAt    time.Time          `json:"occurred_at"`
	Payload       shared.DomainEvent `json:"payload"`
}

// NewKafkaWriter creates a writer for the configured brokers and topic
func NewKafkaWriter(cfg config.KafkaConfig) *kafka.Writer {
	topic := cfg.Topic
	if topic == "" {
		topic = DefaultTopic
	}
	return &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		WriteTimeout: cfg.WriteTimeout,
	}
}

// KafkaEventForwarder publishes domain events to Kafka for the notification collaborator.
// Messages are keyed by aggregate id so one aggregate's events stay on one partition.
type KafkaEventForwarder struct {
	writer MessageWriter
	logger *zap.Logger
}

// NewKafkaEventForwarder creates a forwarder over writer
func NewKafkaEventForwarder(writer MessageWriter, logger *zap.Logger) *KafkaEventForwarder {
	return &KafkaEventForwarder{
		writer: writer,
		logger: logger,
	}
}

// EventTypes returns nil; the forwarder receives every event
func (f *KafkaEventForwarder) EventTypes() []string {
	return nil
}

// Handle writes the event to Kafka. A write error is returned so the outbox retries.
func (f *KafkaEventForwarder) Handle(ctx context.Context, evt shared.DomainEvent) error {
	value, err := json.Marshal(Envelope{
		EventID:       evt.EventID().String(),
		EventType:     evt.EventType(),
		AggregateType: evt.AggregateType(),
		AggregateID:   evt.AggregateID().String(),
		OccurredAt:    evt.OccurredAt(),
		Payload:       evt,
	})
	if err != nil {
		return fmt.Errorf("failed to encode %s for kafka: %w", evt.EventType(), err)
	}

	msg := kafka.Message{
		Key:   []byte(evt.AggregateID().String()),
		Value: value,
		Time:  evt.OccurredAt(),
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(evt.EventType())},
			{Key: "event_id", Value: []byte(evt.EventID().String())},
		},
	}
	if err := f.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to forward %s to kafka: %w", evt.EventType(), err)
	}

	f.logger.Debug("event forwarded to kafka",
		zap.String("event_type", evt.EventType()),
		zap.String("event_id", evt.EventID().String()),
	)
	return nil
}

// Close flushes and closes the underlying writer
func (f *KafkaEventForwarder) Close() error {
	return f.writer.Close()
}

var _ shared.EventHandler = (*KafkaEventForwarder)(nil)
