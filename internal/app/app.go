// Package app wires configuration into the service components shared by the
// server and worker binaries.
package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/helixir/book-content-service/internal/cache"
	"github.com/helixir/book-content-service/internal/config"
	"github.com/helixir/book-content-service/internal/content"
	"github.com/helixir/book-content-service/internal/database"
	"github.com/helixir/book-content-service/internal/events"
	"github.com/helixir/book-content-service/internal/observability"
	"github.com/helixir/book-content-service/internal/sources"
	"github.com/helixir/book-content-service/internal/sources/archive"
	"github.com/helixir/book-content-service/internal/sources/gutenberg"
	"github.com/helixir/book-content-service/internal/sources/openlibrary"
	"github.com/helixir/book-content-service/internal/temporal"
)

// NewLogger builds the root logger from configuration.
func NewLogger(cfg config.LoggingConfig) zerolog.Logger {
	return observability.NewLogger(observability.LoggingConfig{
		Level:      cfg.Level,
		Format:     cfg.Format,
		Output:     cfg.Output,
		AddSource:  cfg.AddSource,
		TimeFormat: cfg.TimeFormat,
	})
}

// Cache is an opened cache backend. DB is nil for the memory backend.
type Cache struct {
	cache.Cache
	Expirer cache.Expirer
	DB      *database.DB
}

// Close releases the database pool when there is one.
func (c *Cache) Close() {
	if c.DB != nil {
		c.DB.Close()
	}
}

// OpenCache opens the configured cache backend. The postgres backend
// connects to the database and, when configured, runs migrations first.
func OpenCache(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*Cache, error) {
	if cfg.Cache.Backend != config.CacheBackendPostgres {
		mem := cache.NewMemoryCache()
		logger.Info().Str("backend", config.CacheBackendMemory).Msg("cache ready")
		return &Cache{Cache: mem, Expirer: mem}, nil
	}

	db, err := database.New(ctx, &cfg.Database, logger)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	if cfg.Database.MigrationAutoRun {
		if err := migrateUp(db, cfg.Database.MigrationPath, logger); err != nil {
			db.Close()
			return nil, err
		}
	}

	pg := cache.NewPostgresCache(db)
	logger.Info().Str("backend", config.CacheBackendPostgres).Msg("cache ready")
	return &Cache{Cache: pg, Expirer: pg, DB: db}, nil
}

func migrateUp(db *database.DB, path string, logger zerolog.Logger) error {
	migrator, err := database.NewMigrator(db, path, logger)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	defer func() {
		if closeErr := migrator.Close(); closeErr != nil {
			logger.Error().Err(closeErr).Msg("failed to close migrator")
		}
	}()

	if err := migrator.Up(); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

// NewRegistry builds the source registry from configuration. Every enabled
// source gets its own rate-limited HTTP client and a search result cache.
func NewRegistry(cfg *config.Config, c cache.Cache, metrics *observability.Metrics, logger zerolog.Logger) (*sources.Registry, error) {
	var transport http.RoundTripper
	if cfg.Sources.ProxyURL != "" {
		t, err := sources.NewProxyTransport(cfg.Sources.ProxyURL)
		if err != nil {
			return nil, fmt.Errorf("configure source proxy: %w", err)
		}
		transport = t
	}

	httpClient := func(name string, sc config.SourceConfig) *sources.HTTPClient {
		return sources.NewHTTPClient(sources.HTTPClientConfig{
			Source:     name,
			Timeout:    sc.Timeout,
			RateLimit:  sc.RateLimit,
			BurstSize:  sc.BurstSize,
			MaxRetries: cfg.Sources.MaxRetries,
			UserAgent:  cfg.Sources.UserAgent,
			Transport:  transport,
		})
	}

	var recorder sources.CacheRecorder
	if metrics != nil {
		recorder = metrics
	}

	register := func(registry *sources.Registry, src sources.ContentSource) {
		registry.Register(sources.NewCachedSource(src, c, cfg.Cache.SearchTTL, recorder, logger))
		logger.Info().Str("source", src.Name()).Msg("registered content source")
	}

	registry := sources.NewRegistry()

	if sc := cfg.Sources.Gutenberg; sc.Enabled {
		register(registry, gutenberg.NewWithHTTPClient(gutenberg.Config{
			BaseURL:                 sc.BaseURL,
			Timeout:                 sc.Timeout,
			RateLimit:               sc.RateLimit,
			BurstSize:               sc.BurstSize,
			MaxResults:              sc.MaxResults,
			PreviewLimit:            cfg.Content.PreviewLimit,
			StrictEducationalFilter: cfg.Content.StrictEducationalFilter,
			Enabled:                 true,
		}, httpClient("gutenberg", sc)))
	}

	if sc := cfg.Sources.Archive; sc.Enabled {
		register(registry, archive.NewWithHTTPClient(archive.Config{
			BaseURL:      sc.BaseURL,
			Timeout:      sc.Timeout,
			RateLimit:    sc.RateLimit,
			BurstSize:    sc.BurstSize,
			MaxResults:   sc.MaxResults,
			PreviewLimit: cfg.Content.PreviewLimit,
			Enabled:      true,
		}, httpClient("archive", sc)))
	}

	if sc := cfg.Sources.OpenLibrary; sc.Enabled {
		register(registry, openlibrary.NewWithHTTPClient(openlibrary.Config{
			BaseURL:    sc.BaseURL,
			Timeout:    sc.Timeout,
			RateLimit:  sc.RateLimit,
			BurstSize:  sc.BurstSize,
			MaxResults: sc.MaxResults,
			Enabled:    true,
		}, httpClient("openlibrary", sc)))
	}

	return registry, nil
}

// TemporalClientConfig maps the temporal section onto the client options.
func TemporalClientConfig(cfg config.TemporalConfig) temporal.ClientConfig {
	cc := temporal.ClientConfig{
		HostPort:    cfg.HostPort,
		Namespace:   cfg.Namespace,
		TaskQueue:   cfg.TaskQueue,
		Concurrency: cfg.PrewarmConcurrency,
	}
	if cfg.TLS.Enabled {
		cc.TLS = &temporal.TLSConfig{
			CertPath:   cfg.TLS.CertPath,
			KeyPath:    cfg.TLS.KeyPath,
			CACertPath: cfg.TLS.CACertPath,
			ServerName: cfg.TLS.ServerName,
		}
	}
	return cc
}

// NewPublisher returns a Kafka publisher when Kafka is enabled, otherwise a
// no-op publisher.
func NewPublisher(cfg config.KafkaConfig, metrics *observability.Metrics, logger zerolog.Logger) events.Publisher {
	if !cfg.Enabled {
		return events.NoopPublisher{}
	}
	return events.NewKafkaPublisher(events.KafkaConfig{
		Brokers:      cfg.Brokers,
		Topic:        cfg.Topic,
		BatchSize:    cfg.BatchSize,
		BatchTimeout: cfg.BatchTimeout,
	}, metrics, logger)
}

// NewContentService builds the content service on top of a registry.
func NewContentService(
	cfg *config.Config,
	registry content.SourceLister,
	c cache.Cache,
	publisher events.Publisher,
	metrics *observability.Metrics,
	logger zerolog.Logger,
) *content.Service {
	return content.NewService(content.Config{
		BooksTTL:       cfg.Cache.BooksTTL,
		CandidateLimit: cfg.Content.CandidateLimit,
		SearchLimit:    cfg.Content.SearchLimit,
	}, registry, c, publisher, metrics, logger)
}

// Core is the content stack shared by the server and the worker.
type Core struct {
	Metrics   *observability.Metrics // nil when metrics are disabled
	Cache     *Cache
	Publisher events.Publisher
	Service   *content.Service
}

// Open builds the content stack and starts the cache sweeper, which runs
// until ctx is done.
func Open(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*Core, error) {
	core := &Core{}
	if cfg.Metrics.Enabled {
		core.Metrics = observability.NewMetrics(cfg.Metrics.Namespace)
	}

	var err error
	if core.Cache, err = OpenCache(ctx, cfg, logger); err != nil {
		return nil, err
	}
	registry, err := NewRegistry(cfg, core.Cache, core.Metrics, logger)
	if err != nil {
		core.Cache.Close()
		return nil, err
	}
	go cache.RunSweeper(ctx, core.Cache.Expirer, cfg.Cache.CleanupInterval, logger)

	core.Publisher = NewPublisher(cfg.Kafka, core.Metrics, logger)
	core.Service = NewContentService(cfg, registry, core.Cache, core.Publisher, core.Metrics, logger)
	return core, nil
}

// Close flushes the publisher and releases the cache.
func (c *Core) Close() error {
	err := c.Publisher.Close()
	c.Cache.Close()
	return err
}
