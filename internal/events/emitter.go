package events

import (
	"errors"

	"github.com/helixir/book-content-service/internal/domain"
)

const (
	// AggregateTypeBook is the aggregate type for book content events.
	AggregateTypeBook = "book"

	// AggregateTypeReadingList is the aggregate type for prewarm events.
	AggregateTypeReadingList = "reading_list"
)

// EmitterConfig configures the Emitter with service context.
type EmitterConfig struct {
	// ServiceName identifies the source service.
	ServiceName string
}

// EmitParams contains the parameters for emitting an event.
type EmitParams struct {
	// AggregateID identifies the book or reading list.
	AggregateID string
	// AggregateType defaults to AggregateTypeBook.
	AggregateType string
	// EventType is the type of event (e.g., "book_content.resolved").
	EventType string
	// Payload is the event payload that will be JSON-serialized.
	Payload interface{}
	// CorrelationID for request tracing (optional).
	CorrelationID string
	// TraceID for distributed tracing (optional).
	TraceID string
}

// Emitter builds domain events enriched with service metadata.
type Emitter struct {
	config EmitterConfig
}

// NewEmitter creates a new Emitter with the given service configuration.
func NewEmitter(config EmitterConfig) *Emitter {
	if config.ServiceName == "" {
		config.ServiceName = "book-content-service"
	}
	return &Emitter{config: config}
}

// Emit creates an Event from the given parameters.
func (e *Emitter) Emit(params EmitParams) (*domain.Event, error) {
	if params.AggregateID == "" {
		return nil, errors.New("aggregate_id is required")
	}
	if params.EventType == "" {
		return nil, errors.New("event_type is required")
	}
	aggregateType := params.AggregateType
	if aggregateType == "" {
		aggregateType = AggregateTypeBook
	}

	event, err := domain.NewEvent(params.EventType, params.AggregateID, aggregateType, params.Payload)
	if err != nil {
		return nil, err
	}

	metadata := map[string]string{"source": e.config.ServiceName}
	if params.CorrelationID != "" {
		metadata["correlation_id"] = params.CorrelationID
	}
	if params.TraceID != "" {
		metadata["trace_id"] = params.TraceID
	}
	return event.WithMetadata(metadata), nil
}

// EmitBookContentResolved is a convenience method for book_content.resolved events.
func (e *Emitter) EmitBookContentResolved(correlationID string, payload domain.BookContentResolvedPayload) (*domain.Event, error) {
	return e.Emit(EmitParams{
		AggregateID:   payload.BookKey,
		AggregateType: AggregateTypeBook,
		EventType:     domain.EventTypeBookContentResolved,
		Payload:       payload,
		CorrelationID: correlationID,
	})
}

// EmitReadingListPrewarmed is a convenience method for reading_list.prewarmed events.
func (e *Emitter) EmitReadingListPrewarmed(correlationID string, payload domain.ReadingListPrewarmedPayload) (*domain.Event, error) {
	return e.Emit(EmitParams{
		AggregateID:   payload.ListID,
		AggregateType: AggregateTypeReadingList,
		EventType:     domain.EventTypeReadingListPrewarmed,
		Payload:       payload,
		CorrelationID: correlationID,
	})
}
