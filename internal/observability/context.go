package observability

import (
	"context"

	"github.com/rs/zerolog"
)

type ctxKey int

const (
	requestIDKey ctxKey = iota
	workflowKey
)

type workflowRef struct{ id, runID string }

// WithRequestID tags ctx with the correlation id of the current request or
// prewarm run.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// RequestIDFromContext returns the id set by WithRequestID, or "".
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// WithWorkflow tags ctx with the Temporal execution running the current activity.
func WithWorkflow(ctx context.Context, workflowID, runID string) context.Context {
	return context.WithValue(ctx, workflowKey, workflowRef{id: workflowID, runID: runID})
}

func WorkflowFromContext(ctx context.Context) (workflowID, runID string) {
	ref, _ := ctx.Value(workflowKey).(workflowRef)
	return ref.id, ref.runID
}

// LoggerFromContext returns logger enriched with the request and workflow
// identifiers stored in ctx.
func LoggerFromContext(ctx context.Context, logger zerolog.Logger) zerolog.Logger {
	lc := logger.With()
	if id := RequestIDFromContext(ctx); id != "" {
		lc = lc.Str("request_id", id)
	}
	if workflowID, runID := WorkflowFromContext(ctx); workflowID != "" {
		lc = lc.Str("workflow_id", workflowID).Str("workflow_run_id", runID)
	}
	return lc.Logger()
}
