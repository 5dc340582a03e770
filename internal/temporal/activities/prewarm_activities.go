package activities

import (
	"context"
	"fmt"
	"time"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	"github.com/helixir/book-content-service/internal/content"
	"github.com/helixir/book-content-service/internal/domain"
	"github.com/helixir/book-content-service/internal/events"
	"github.com/helixir/book-content-service/internal/observability"
)

// Prewarm outcomes, also used as metric label values.
const (
	OutcomeFullText  = "full_text"
	OutcomePartial   = "partial"
	OutcomeGenerated = "generated"
	OutcomeFailed    = "failed"
)

// BookResolver resolves the content of one book. *content.Service satisfies it.
type BookResolver interface {
	GetBookContent(ctx context.Context, q domain.BookQuery, useCache bool) *domain.BookContent
}

// PrewarmActivities provides Temporal activities for reading-list prewarming.
// Methods on this struct are registered as Temporal activities via the worker.
type PrewarmActivities struct {
	resolver  BookResolver
	publisher events.Publisher
	emitter   *events.Emitter
	metrics   *observability.Metrics
}

// NewPrewarmActivities creates a new PrewarmActivities instance.
// A nil publisher disables the completion event; metrics may be nil.
func NewPrewarmActivities(resolver BookResolver, publisher events.Publisher, metrics *observability.Metrics) *PrewarmActivities {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	return &PrewarmActivities{
		resolver:  resolver,
		publisher: publisher,
		emitter:   events.NewEmitter(events.EmitterConfig{}),
		metrics:   metrics,
	}
}

// ResolveBookInput is the serializable input for the ResolveBookContent activity.
type ResolveBookInput struct {
	// Query is the book to resolve.
	Query domain.BookQuery

	// CorrelationID is propagated as the request ID of the resolution.
	CorrelationID string
}

// ResolveBookOutput summarizes one resolved book.
type ResolveBookOutput struct {
	BookKey    string
	Source     domain.SourceType
	IsFullText bool
	Outcome    string
}

// ResolveBookContent resolves one book through the content service with the
// cache enabled, so the result is stored for later requests.
func (a *PrewarmActivities) ResolveBookContent(ctx context.Context, input ResolveBookInput) (*ResolveBookOutput, error) {
	logger := activity.GetLogger(ctx)
	info := activity.GetInfo(ctx)

	ctx = observability.WithRequestID(ctx, input.CorrelationID)
	ctx = observability.WithWorkflow(ctx, info.WorkflowExecution.ID, info.WorkflowExecution.RunID)

	start := time.Now()
	c := a.resolver.GetBookContent(ctx, input.Query, true)
	if err := ctx.Err(); err != nil {
		a.metrics.RecordPrewarmBook(OutcomeFailed)
		return nil, fmt.Errorf("resolve %q: %w", input.Query.Title, err)
	}
	if c == nil {
		a.metrics.RecordPrewarmBook(OutcomeFailed)
		return nil, temporal.NewNonRetryableApplicationError(
			fmt.Sprintf("no content resolved for %q", input.Query.Title), "EmptyContent", nil)
	}

	out := &ResolveBookOutput{
		BookKey:    content.BookKey(input.Query),
		Source:     c.Source,
		IsFullText: c.IsFullText,
		Outcome:    outcomeOf(c),
	}
	a.metrics.RecordPrewarmBook(out.Outcome)

	logger.Info("book prewarmed",
		"title", input.Query.Title,
		"source", c.Source,
		"outcome", out.Outcome,
		"duration", time.Since(start).String(),
	)

	return out, nil
}

func outcomeOf(c *domain.BookContent) string {
	switch {
	case c.Source == domain.SourceTypeGenerated:
		return OutcomeGenerated
	case c.IsFullText:
		return OutcomeFullText
	default:
		return OutcomePartial
	}
}

// PublishPrewarmedInput is the serializable input for the PublishPrewarmed activity.
type PublishPrewarmedInput struct {
	CorrelationID string
	Result        domain.PrewarmResult
}

// PublishPrewarmed publishes a reading_list.prewarmed event. The workflow
// treats failures as non-fatal.
func (a *PrewarmActivities) PublishPrewarmed(ctx context.Context, input PublishPrewarmedInput) error {
	logger := activity.GetLogger(ctx)

	ev, err := a.emitter.EmitReadingListPrewarmed(input.CorrelationID, domain.ReadingListPrewarmedPayload{
		ListID:    input.Result.ListID,
		Total:     input.Result.Total,
		FullText:  input.Result.FullText,
		Partial:   input.Result.Partial,
		Generated: input.Result.Generated,
		Failed:    input.Result.Failed,
		DoneAt:    time.Now().UTC(),
	})
	if err != nil {
		return temporal.NewNonRetryableApplicationError("build prewarm event", "InvalidEvent", err)
	}

	if err := a.publisher.Publish(ctx, ev); err != nil {
		logger.Error("failed to publish prewarm event",
			"listID", input.Result.ListID,
			"error", err,
		)
		return fmt.Errorf("publish %s: %w", domain.EventTypeReadingListPrewarmed, err)
	}

	logger.Info("prewarm event published",
		"listID", input.Result.ListID,
		"eventID", ev.EventID,
	)
	return nil
}
