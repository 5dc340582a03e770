// Command worker runs the Temporal worker that executes reading-list
// prewarm workflows.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/helixir/book-content-service/internal/app"
	"github.com/helixir/book-content-service/internal/config"
	"github.com/helixir/book-content-service/internal/temporal"
	"github.com/helixir/book-content-service/internal/temporal/activities"
	"github.com/helixir/book-content-service/internal/temporal/workflows"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "worker:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := app.NewLogger(cfg.Logging).With().Str("component", "worker").Logger()

	if !cfg.Temporal.Enabled {
		return errors.New("temporal is disabled; set BOOKCONTENT_TEMPORAL_ENABLED=true to run the worker")
	}
	warnUnsharedCache(cfg, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	core, err := app.Open(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := core.Close(); err != nil {
			logger.Error().Err(err).Msg("failed to release resources")
		}
	}()

	tc, err := temporal.NewClient(app.TemporalClientConfig(cfg.Temporal), logger)
	if err != nil {
		return fmt.Errorf("connect to temporal: %w", err)
	}
	defer tc.Close()

	manager, err := temporal.NewWorkerManager(tc,
		temporal.DefaultWorkerConfig(cfg.Temporal.TaskQueue, cfg.Temporal.PrewarmConcurrency))
	if err != nil {
		return fmt.Errorf("create worker manager: %w", err)
	}
	manager.RegisterWorkflow(workflows.PrewarmReadingListWorkflow, temporal.PrewarmWorkflowName)
	manager.RegisterActivities(activities.NewPrewarmActivities(core.Service, core.Publisher, core.Metrics))

	logger.Info().
		Str("host_port", cfg.Temporal.HostPort).
		Str("task_queue", manager.TaskQueue()).
		Strs("workflows", manager.Workflows()).
		Msg("prewarm worker running")

	if err := manager.Run(ctx); err != nil && ctx.Err() == nil {
		return fmt.Errorf("worker: %w", err)
	}
	logger.Info().Msg("prewarm worker stopped")
	return nil
}

// warnUnsharedCache flags a memory cache: content prewarmed by this worker
// would never be seen by the server.
func warnUnsharedCache(cfg *config.Config, logger zerolog.Logger) {
	if cfg.Cache.Backend == config.CacheBackendPostgres {
		return
	}
	logger.Warn().
		Str("backend", cfg.Cache.Backend).
		Msg("cache backend is not shared with the server; prewarmed content stays local to this worker")
}
