package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"github.com/helixir/book-content-service/internal/domain"
)

// PrewarmStarter starts a prewarm run for a reading list and returns its
// workflow ID.
type PrewarmStarter interface {
	StartPrewarm(ctx context.Context, list domain.ReadingList) (string, error)
}

// messageReader is the subset of *kafka.Reader used by the listener.
type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// ListenerConfig holds configuration for the prewarm listener.
type ListenerConfig struct {
	// Brokers is the list of Kafka broker addresses.
	Brokers []string
	// Topic carries reading-list prewarm requests.
	Topic string
	// GroupID is the consumer group ID.
	GroupID string
}

// PrewarmListener consumes reading-list prewarm requests from Kafka and
// starts a prewarm workflow for each.
type PrewarmListener struct {
	reader  messageReader
	starter PrewarmStarter
	logger  zerolog.Logger
}

// NewPrewarmListener creates a new prewarm request listener.
func NewPrewarmListener(cfg ListenerConfig, starter PrewarmStarter, logger zerolog.Logger) *PrewarmListener {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		Topic:    cfg.Topic,
		GroupID:  cfg.GroupID,
		MinBytes: 1,
		MaxBytes: 10e6,
		MaxWait:  3 * time.Second,
	})
	return newPrewarmListener(reader, starter, logger)
}

func newPrewarmListener(reader messageReader, starter PrewarmStarter, logger zerolog.Logger) *PrewarmListener {
	return &PrewarmListener{
		reader:  reader,
		starter: starter,
		logger:  logger.With().Str("component", "prewarm_listener").Logger(),
	}
}

// Run starts the listener loop. Blocks until context is cancelled.
func (l *PrewarmListener) Run(ctx context.Context) error {
	l.logger.Info().Msg("starting prewarm listener")

	for {
		msg, err := l.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				l.logger.Info().Msg("prewarm listener stopped via context cancellation")
				return ctx.Err()
			}
			l.logger.Error().Err(err).Msg("failed to read message from Kafka")
			continue
		}

		l.logger.Debug().
			Int("partition", msg.Partition).
			Int64("offset", msg.Offset).
			Msg("received prewarm request")

		l.handle(ctx, msg.Value)
	}
}

func (l *PrewarmListener) handle(ctx context.Context, value []byte) {
	var list domain.ReadingList
	if err := json.Unmarshal(value, &list); err != nil {
		l.logger.Error().Err(err).
			Str("raw_value", string(value)).
			Msg("failed to unmarshal prewarm request")
		return
	}
	if err := list.Validate(); err != nil {
		l.logger.Warn().Err(err).Str("list_id", list.ID).Msg("invalid prewarm request")
		return
	}

	workflowID, err := l.starter.StartPrewarm(ctx, list)
	if err != nil {
		l.logger.Error().Err(err).Str("list_id", list.ID).Msg("failed to start prewarm workflow")
		return
	}
	l.logger.Info().
		Str("list_id", list.ID).
		Str("workflow_id", workflowID).
		Int("books", len(list.Books)).
		Msg("prewarm workflow started")
}

// Close closes the Kafka reader.
func (l *PrewarmListener) Close() error {
	l.logger.Info().Msg("closing prewarm listener")
	return l.reader.Close()
}
