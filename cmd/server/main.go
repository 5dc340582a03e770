// Command server runs the book content REST API, the Prometheus endpoint
// and, when configured, the Kafka prewarm listener.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/helixir/book-content-service/internal/app"
	"github.com/helixir/book-content-service/internal/config"
	"github.com/helixir/book-content-service/internal/events"
	httpserver "github.com/helixir/book-content-service/internal/server/http"
	"github.com/helixir/book-content-service/internal/temporal"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "server:", err)
		os.Exit(1)
	}
}

// component is a long-running part of the process. serve blocks until the
// component stops; shutdown asks it to stop.
type component struct {
	name     string
	serve    func() error
	shutdown func(context.Context) error
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := app.NewLogger(cfg.Logging).With().Str("component", "server").Logger()

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

	var prewarmClient *temporal.PrewarmClient
	if cfg.Temporal.Enabled {
		clientCfg := app.TemporalClientConfig(cfg.Temporal)
		tc, err := temporal.NewClient(clientCfg, logger)
		if err != nil {
			return fmt.Errorf("connect to temporal: %w", err)
		}
		prewarmClient = temporal.NewPrewarmClient(tc, clientCfg)
		defer prewarmClient.Close()
		logger.Info().Str("host_port", cfg.Temporal.HostPort).Msg("prewarm enabled")
	}

	components := []component{apiComponent(cfg, core, prewarmClient, logger)}
	if cfg.Metrics.Enabled {
		components = append(components, metricsComponent(cfg))
	}
	// Validation only allows the listener together with Temporal.
	if cfg.Kafka.PrewarmListenerEnabled {
		components = append(components, listenerComponent(ctx, cfg.Kafka, prewarmClient, logger))
	}

	errCh := make(chan error, len(components))
	for _, c := range components {
		logger.Info().Str("name", c.name).Msg("starting")
		go func() {
			if err := c.serve(); err != nil {
				errCh <- fmt.Errorf("%s: %w", c.name, err)
			}
		}()
	}
	logger.Info().Int("components", len(components)).Msg("book-content-service is ready")

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info().Msg("received shutdown signal")
	case runErr = <-errCh:
		logger.Error().Err(runErr).Msg("component failed")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	for i := len(components) - 1; i >= 0; i-- {
		if err := components[i].shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Str("name", components[i].name).Msg("shutdown failed")
		}
	}

	logger.Info().Msg("book-content-service stopped")
	return runErr
}

func apiComponent(cfg *config.Config, core *app.Core, prewarmClient *temporal.PrewarmClient, logger zerolog.Logger) component {
	var prewarm httpserver.PrewarmClient
	if prewarmClient != nil {
		prewarm = prewarmClient
	}
	var dbHealth httpserver.DatabaseHealth
	if core.Cache.DB != nil {
		dbHealth = core.Cache.DB
	}

	srv := httpserver.NewServer(httpserver.Config{
		Address:         cfg.Server.HTTPAddress(),
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		IdleTimeout:     2 * time.Minute,
		RequestTimeout:  cfg.Server.RequestTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}, core.Service, prewarm, dbHealth, logger)

	return component{
		name:     "api " + cfg.Server.HTTPAddress(),
		serve:    func() error { return ignoreClosed(srv.Start()) },
		shutdown: srv.Shutdown,
	}
}

func metricsComponent(cfg *config.Config) component {
	mux := http.NewServeMux()
	mux.Handle(cfg.Metrics.Path, promhttp.Handler())
	srv := &http.Server{
		Addr:              cfg.Server.MetricsAddress(),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return component{
		name:     "metrics " + srv.Addr,
		serve:    func() error { return ignoreClosed(srv.ListenAndServe()) },
		shutdown: srv.Shutdown,
	}
}

func listenerComponent(ctx context.Context, k config.KafkaConfig, starter events.PrewarmStarter, logger zerolog.Logger) component {
	l := events.NewPrewarmListener(events.ListenerConfig{
		Brokers: k.Brokers,
		Topic:   k.PrewarmTopic,
		GroupID: k.GroupID,
	}, starter, logger)
	return component{
		name: "prewarm listener " + k.PrewarmTopic,
		serve: func() error {
			if err := l.Run(ctx); !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
		shutdown: func(context.Context) error { return l.Close() },
	}
}

func ignoreClosed(err error) error {
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
