package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event type constants for published events.
const (
	EventTypeBookContentResolved  = "book_content.resolved"
	EventTypeReadingListPrewarmed = "reading_list.prewarmed"
)

// Event is an envelope for a domain event published to the message bus.
type Event struct {
	EventID       string
	EventVersion  int
	AggregateID   string
	AggregateType string
	EventType     string
	Payload       []byte
	Metadata      map[string]string
	CreatedAt     time.Time
}

// NewEvent creates a new event with the given parameters.
// The payload is JSON-serialized automatically.
func NewEvent(eventType, aggregateID, aggregateType string, payload interface{}) (*Event, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return &Event{
		EventID:       uuid.New().String(),
		EventVersion:  1,
		AggregateID:   aggregateID,
		AggregateType: aggregateType,
		EventType:     eventType,
		Payload:       payloadBytes,
		CreatedAt:     time.Now().UTC(),
	}, nil
}

// WithMetadata sets the metadata on the event.
func (e *Event) WithMetadata(metadata map[string]string) *Event {
	e.Metadata = metadata
	return e
}

// BookContentResolvedPayload is the payload for book_content.resolved events.
type BookContentResolvedPayload struct {
	BookKey    string     `json:"book_key"`
	Title      string     `json:"title"`
	Author     string     `json:"author"`
	Source     SourceType `json:"source"`
	IsFullText bool       `json:"is_full_text"`
	FromCache  bool       `json:"from_cache"`
	ResolvedAt time.Time  `json:"resolved_at"`
}

// ReadingListPrewarmedPayload is the payload for reading_list.prewarmed events.
type ReadingListPrewarmedPayload struct {
	ListID    string    `json:"list_id"`
	Total     int       `json:"total"`
	FullText  int       `json:"full_text"`
	Partial   int       `json:"partial"`
	Generated int       `json:"generated"`
	Failed    int       `json:"failed"`
	DoneAt    time.Time `json:"done_at"`
}
