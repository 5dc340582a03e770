package temporal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"
)

// Worker defaults.
const (
	DefaultMaxConcurrentActivities    = 32
	DefaultMaxConcurrentWorkflowTasks = 16
	DefaultStopTimeout                = 30 * time.Second
)

// WorkerConfig contains configuration for the prewarm worker.
type WorkerConfig struct {
	// TaskQueue is the name of the task queue to poll.
	TaskQueue string

	// MaxConcurrentActivities bounds book resolutions running on this worker
	// across all prewarm runs.
	MaxConcurrentActivities int

	// MaxConcurrentWorkflowTasks bounds concurrent workflow task executions.
	MaxConcurrentWorkflowTasks int

	// ActivitiesPerSecond throttles activity starts on this worker. Zero
	// means unlimited. Every resolution fans out to the upstream catalogs,
	// so this caps the load a large reading list puts on them.
	ActivitiesPerSecond float64

	// StopTimeout is how long in-flight activities get to finish on shutdown.
	StopTimeout time.Duration
}

// DefaultWorkerConfig returns a WorkerConfig sized for prewarmConcurrency
// books per run.
func DefaultWorkerConfig(taskQueue string, prewarmConcurrency int) WorkerConfig {
	activities := DefaultMaxConcurrentActivities
	if prewarmConcurrency*4 > activities {
		activities = prewarmConcurrency * 4
	}
	return WorkerConfig{
		TaskQueue:                  taskQueue,
		MaxConcurrentActivities:    activities,
		MaxConcurrentWorkflowTasks: DefaultMaxConcurrentWorkflowTasks,
		StopTimeout:                DefaultStopTimeout,
	}
}

func workerOptionsFromConfig(config WorkerConfig) worker.Options {
	options := worker.Options{
		MaxConcurrentActivityExecutionSize:     config.MaxConcurrentActivities,
		MaxConcurrentWorkflowTaskExecutionSize: config.MaxConcurrentWorkflowTasks,
		WorkerActivitiesPerSecond:              config.ActivitiesPerSecond,
		WorkerStopTimeout:                      config.StopTimeout,
	}

	if options.MaxConcurrentActivityExecutionSize <= 0 {
		options.MaxConcurrentActivityExecutionSize = DefaultMaxConcurrentActivities
	}
	if options.MaxConcurrentWorkflowTaskExecutionSize <= 0 {
		options.MaxConcurrentWorkflowTaskExecutionSize = DefaultMaxConcurrentWorkflowTasks
	}
	if options.WorkerStopTimeout <= 0 {
		options.WorkerStopTimeout = DefaultStopTimeout
	}

	return options
}

// WorkerManager owns a Temporal worker and records what was registered on it.
type WorkerManager struct {
	worker     worker.Worker
	taskQueue  string
	workflows  []string
	activities int
}

// NewWorkerManager creates a worker polling config.TaskQueue.
func NewWorkerManager(c client.Client, config WorkerConfig) (*WorkerManager, error) {
	if config.TaskQueue == "" {
		return nil, errors.New("task queue is required")
	}
	if c == nil {
		return nil, errors.New("temporal client is required")
	}

	return &WorkerManager{
		worker:    worker.New(c, config.TaskQueue, workerOptionsFromConfig(config)),
		taskQueue: config.TaskQueue,
	}, nil
}

// RegisterWorkflow registers fn under name. Clients start workflows by
// name, so the name must stay stable across deployments.
func (m *WorkerManager) RegisterWorkflow(fn interface{}, name string) {
	m.worker.RegisterWorkflowWithOptions(fn, workflow.RegisterOptions{Name: name})
	m.workflows = append(m.workflows, name)
}

// RegisterActivities registers every exported method of a struct as an activity.
func (m *WorkerManager) RegisterActivities(a interface{}) {
	m.worker.RegisterActivityWithOptions(a, activity.RegisterOptions{})
	m.activities++
}

// Workflows returns the registered workflow names.
func (m *WorkerManager) Workflows() []string {
	return append([]string(nil), m.workflows...)
}

// TaskQueue returns the configured task queue name.
func (m *WorkerManager) TaskQueue() string {
	return m.taskQueue
}

// Run starts the worker and blocks until ctx is cancelled.
func (m *WorkerManager) Run(ctx context.Context) error {
	if len(m.workflows) == 0 {
		return errors.New("no workflows registered")
	}
	return runWorker(ctx, m.worker)
}

// runWorker starts w and stops it once ctx is done. It returns ctx.Err().
func runWorker(ctx context.Context, w worker.Worker) error {
	if err := w.Start(); err != nil {
		return fmt.Errorf("start worker: %w", err)
	}
	<-ctx.Done()
	w.Stop()
	return ctx.Err()
}
