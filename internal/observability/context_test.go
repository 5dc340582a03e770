package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContextValues(t *testing.T) {
	bare := context.Background()
	assert.Empty(t, RequestIDFromContext(bare))
	wf, run := WorkflowFromContext(bare)
	assert.Empty(t, wf)
	assert.Empty(t, run)

	ctx := WithRequestID(bare, "corr-1")
	ctx = WithRequestID(ctx, "corr-2")
	ctx = WithWorkflow(ctx, "prewarm-list-7", "run-a")

	assert.Equal(t, "corr-2", RequestIDFromContext(ctx), "later id wins")
	wf, run = WorkflowFromContext(ctx)
	assert.Equal(t, "prewarm-list-7", wf)
	assert.Equal(t, "run-a", run)
}

func TestLoggerFromContext(t *testing.T) {
	logLine := func(t *testing.T, ctx context.Context) map[string]any {
		t.Helper()
		var buf bytes.Buffer
		logger := LoggerFromContext(ctx, zerolog.New(&buf))
		logger.Info().Msg("resolved")
		var entry map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
		return entry
	}

	t.Run("carries identifiers", func(t *testing.T) {
		ctx := WithWorkflow(WithRequestID(context.Background(), "corr-9"), "prewarm-list-9", "run-9")
		entry := logLine(t, ctx)
		assert.Equal(t, "corr-9", entry["request_id"])
		assert.Equal(t, "prewarm-list-9", entry["workflow_id"])
		assert.Equal(t, "run-9", entry["workflow_run_id"])
	})

	t.Run("plain context adds nothing", func(t *testing.T) {
		entry := logLine(t, context.Background())
		assert.NotContains(t, entry, "request_id")
		assert.NotContains(t, entry, "workflow_id")
	})
}
