package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"github.com/helixir/book-content-service/internal/domain"
	"github.com/helixir/book-content-service/internal/observability"
)

// Publisher delivers domain events to the message bus.
type Publisher interface {
	Publish(ctx context.Context, events ...*domain.Event) error
	Close() error
}

// messageWriter is the subset of *kafka.Writer used by KafkaPublisher.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaConfig configures the Kafka publisher.
type KafkaConfig struct {
	// Brokers is the list of Kafka broker addresses.
	Brokers []string
	// Topic receives all events.
	Topic string
	// BatchSize is the writer's batch size.
	BatchSize int
	// BatchTimeout flushes incomplete batches.
	BatchTimeout time.Duration
}

// envelope is the JSON wire format of an event.
type envelope struct {
	EventID       string            `json:"event_id"`
	EventVersion  int               `json:"event_version"`
	AggregateID   string            `json:"aggregate_id"`
	AggregateType string            `json:"aggregate_type"`
	EventType     string            `json:"event_type"`
	Payload       json.RawMessage   `json:"payload"`
	Metadata      map[string]string `json:"metadata,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
}

// KafkaPublisher writes events to a Kafka topic keyed by aggregate ID.
type KafkaPublisher struct {
	writer  messageWriter
	metrics *observability.Metrics
	logger  zerolog.Logger
}

var _ Publisher = (*KafkaPublisher)(nil)

// NewKafkaPublisher creates a publisher backed by a kafka.Writer.
func NewKafkaPublisher(cfg KafkaConfig, metrics *observability.Metrics, logger zerolog.Logger) *KafkaPublisher {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		BatchSize:    cfg.BatchSize,
		BatchTimeout: cfg.BatchTimeout,
		RequiredAcks: kafka.RequireOne,
	}
	return newKafkaPublisher(writer, metrics, logger)
}

func newKafkaPublisher(writer messageWriter, metrics *observability.Metrics, logger zerolog.Logger) *KafkaPublisher {
	return &KafkaPublisher{
		writer:  writer,
		metrics: metrics,
		logger:  logger.With().Str("component", "kafka_publisher").Logger(),
	}
}

// Publish writes events in one batch.
func (p *KafkaPublisher) Publish(ctx context.Context, events ...*domain.Event) error {
	if len(events) == 0 {
		return nil
	}

	msgs := make([]kafka.Message, 0, len(events))
	for _, ev := range events {
		msg, err := toMessage(ev)
		if err != nil {
			p.metrics.RecordEventFailed(ev.EventType)
			return fmt.Errorf("encode event %s: %w", ev.EventID, err)
		}
		msgs = append(msgs, msg)
	}

	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		for _, ev := range events {
			p.metrics.RecordEventFailed(ev.EventType)
		}
		return fmt.Errorf("write %d events: %w", len(msgs), err)
	}

	for _, ev := range events {
		p.metrics.RecordEventPublished(ev.EventType)
		p.logger.Debug().
			Str("event_id", ev.EventID).
			Str("event_type", ev.EventType).
			Str("aggregate_id", ev.AggregateID).
			Msg("event published")
	}
	return nil
}

// Close flushes pending messages and closes the writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

func toMessage(ev *domain.Event) (kafka.Message, error) {
	value, err := json.Marshal(envelope{
		EventID:       ev.EventID,
		EventVersion:  ev.EventVersion,
		AggregateID:   ev.AggregateID,
		AggregateType: ev.AggregateType,
		EventType:     ev.EventType,
		Payload:       json.RawMessage(ev.Payload),
		Metadata:      ev.Metadata,
		CreatedAt:     ev.CreatedAt,
	})
	if err != nil {
		return kafka.Message{}, err
	}
	return kafka.Message{
		Key:   []byte(ev.AggregateID),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(ev.EventType)},
			{Key: "event_id", Value: []byte(ev.EventID)},
		},
		Time: ev.CreatedAt,
	}, nil
}

// NoopPublisher discards events. It is used when Kafka is disabled.
type NoopPublisher struct{}

var _ Publisher = NoopPublisher{}

// Publish does nothing.
func (NoopPublisher) Publish(context.Context, ...*domain.Event) error { return nil }

// Close does nothing.
func (NoopPublisher) Close() error { return nil }
