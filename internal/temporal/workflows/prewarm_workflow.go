// Package workflows defines Temporal workflow implementations for the
// book content service.
package workflows

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/helixir/book-content-service/internal/domain"
	bctemporal "github.com/helixir/book-content-service/internal/temporal"
	"github.com/helixir/book-content-service/internal/temporal/activities"
)

// QueryProgress re-exports the progress query name from the parent package.
const QueryProgress = bctemporal.QueryProgress

const (
	resolveActivityTimeout = 2 * time.Minute
	publishActivityTimeout = 30 * time.Second

	// defaultConcurrency bounds parallel resolutions when the input leaves it unset.
	defaultConcurrency = 4
)

// PrewarmReadingListWorkflow resolves every book of a reading list through
// the cache-enabled content service. At most Concurrency books are in flight.
// A failed book is counted and never fails the run; the summary is published
// as a reading_list.prewarmed event on a best-effort basis.
func PrewarmReadingListWorkflow(ctx workflow.Context, input bctemporal.PrewarmWorkflowInput) (*domain.PrewarmResult, error) {
	logger := workflow.GetLogger(ctx)

	if err := input.List.Validate(); err != nil {
		return nil, temporal.NewNonRetryableApplicationError("invalid reading list", "InvalidInput", err)
	}

	concurrency := input.Concurrency
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}

	result := &domain.PrewarmResult{
		ListID: input.List.ID,
		Total:  len(input.List.Books),
	}
	progress := bctemporal.PrewarmProgress{Total: result.Total}

	if err := workflow.SetQueryHandler(ctx, QueryProgress, func() (bctemporal.PrewarmProgress, error) {
		return progress, nil
	}); err != nil {
		return nil, err
	}

	logger.Info("prewarm started",
		"listID", input.List.ID,
		"books", result.Total,
		"concurrency", concurrency,
	)

	var act *activities.PrewarmActivities

	resolveCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: resolveActivityTimeout,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    2 * time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    30 * time.Second,
			MaximumAttempts:    3,
		},
	})

	selector := workflow.NewSelector(ctx)
	pending := 0

	record := func(f workflow.Future, title string) {
		pending--
		progress.Completed++

		var out activities.ResolveBookOutput
		if err := f.Get(ctx, &out); err != nil {
			logger.Warn("book prewarm failed", "title", title, "error", err)
			result.Failed++
			progress.Failed++
			return
		}
		switch out.Outcome {
		case activities.OutcomeFullText:
			result.FullText++
		case activities.OutcomeGenerated:
			result.Generated++
		default:
			result.Partial++
		}
	}

	for _, book := range input.List.Books {
		for pending >= concurrency {
			selector.Select(ctx)
		}

		title := book.Title
		future := workflow.ExecuteActivity(resolveCtx, act.ResolveBookContent, activities.ResolveBookInput{
			Query:         book,
			CorrelationID: input.CorrelationID,
		})
		pending++
		selector.AddFuture(future, func(f workflow.Future) {
			record(f, title)
		})
	}

	for pending > 0 {
		selector.Select(ctx)
	}

	if ctx.Err() != nil {
		return result, temporal.NewCanceledError(result)
	}

	publishCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: publishActivityTimeout,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 3,
		},
	})
	if err := workflow.ExecuteActivity(publishCtx, act.PublishPrewarmed, activities.PublishPrewarmedInput{
		CorrelationID: input.CorrelationID,
		Result:        *result,
	}).Get(ctx, nil); err != nil {
		logger.Warn("prewarm event not published", "listID", input.List.ID, "error", err)
	}

	logger.Info("prewarm completed",
		"listID", result.ListID,
		"fullText", result.FullText,
		"partial", result.Partial,
		"generated", result.Generated,
		"failed", result.Failed,
	)

	return result, nil
}
