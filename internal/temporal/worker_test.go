package temporal

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/worker"
)

func TestDefaultWorkerConfig(t *testing.T) {
	t.Run("small prewarm concurrency keeps defaults", func(t *testing.T) {
		cfg := DefaultWorkerConfig("prewarm", 4)

		assert.Equal(t, "prewarm", cfg.TaskQueue)
		assert.Equal(t, DefaultMaxConcurrentActivities, cfg.MaxConcurrentActivities)
		assert.Equal(t, DefaultMaxConcurrentWorkflowTasks, cfg.MaxConcurrentWorkflowTasks)
		assert.Equal(t, DefaultStopTimeout, cfg.StopTimeout)
	})

	t.Run("large prewarm concurrency widens activity slots", func(t *testing.T) {
		cfg := DefaultWorkerConfig("prewarm", 20)
		assert.Equal(t, 80, cfg.MaxConcurrentActivities)
	})
}

func TestWorkerOptionsFromConfig(t *testing.T) {
	t.Run("zero values get defaults", func(t *testing.T) {
		opts := workerOptionsFromConfig(WorkerConfig{})

		assert.Equal(t, DefaultMaxConcurrentActivities, opts.MaxConcurrentActivityExecutionSize)
		assert.Equal(t, DefaultMaxConcurrentWorkflowTasks, opts.MaxConcurrentWorkflowTaskExecutionSize)
		assert.Equal(t, DefaultStopTimeout, opts.WorkerStopTimeout)
		assert.Zero(t, opts.WorkerActivitiesPerSecond)
	})

	t.Run("non-zero values are preserved", func(t *testing.T) {
		opts := workerOptionsFromConfig(WorkerConfig{
			MaxConcurrentActivities:    64,
			MaxConcurrentWorkflowTasks: 8,
			ActivitiesPerSecond:        2.5,
			StopTimeout:                time.Minute,
		})

		assert.Equal(t, 64, opts.MaxConcurrentActivityExecutionSize)
		assert.Equal(t, 8, opts.MaxConcurrentWorkflowTaskExecutionSize)
		assert.Equal(t, 2.5, opts.WorkerActivitiesPerSecond)
		assert.Equal(t, time.Minute, opts.WorkerStopTimeout)
	})
}

func TestNewWorkerManager(t *testing.T) {
	t.Run("errors when task queue is empty", func(t *testing.T) {
		_, err := NewWorkerManager(nil, WorkerConfig{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "task queue is required")
	})

	t.Run("errors when client is nil", func(t *testing.T) {
		_, err := NewWorkerManager(nil, WorkerConfig{TaskQueue: "prewarm"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "temporal client is required")
	})
}

func TestWorkerManager_RunWithoutWorkflows(t *testing.T) {
	m := &WorkerManager{taskQueue: "prewarm"}
	err := m.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no workflows registered")
}

// fakeWorker records lifecycle calls. Only Start and Stop are exercised.
type fakeWorker struct {
	worker.Worker
	startErr error
	started  bool
	stopped  bool
}

func (w *fakeWorker) Start() error {
	w.started = true
	return w.startErr
}

func (w *fakeWorker) Stop() { w.stopped = true }

func TestRunWorker(t *testing.T) {
	t.Run("stops on context cancellation", func(t *testing.T) {
		w := &fakeWorker{}
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := runWorker(ctx, w)
		assert.ErrorIs(t, err, context.Canceled)
		assert.True(t, w.started)
		assert.True(t, w.stopped)
	})

	t.Run("start failure", func(t *testing.T) {
		w := &fakeWorker{startErr: errors.New("poller failed")}

		err := runWorker(context.Background(), w)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "start worker")
		assert.False(t, w.stopped)
	})
}
