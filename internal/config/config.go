// Package config loads service settings from defaults, an optional .env
// file, config.yaml and BOOKCONTENT_* environment variables, in increasing
// order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of every environment variable read by Load.
const EnvPrefix = "BOOKCONTENT"

// PostgreSQL sslmode values.
const (
	SSLModeDisable    = "disable"
	SSLModeRequire    = "require"
	SSLModeVerifyCA   = "verify-ca"
	SSLModeVerifyFull = "verify-full"
)

// Cache backends.
const (
	CacheBackendMemory   = "memory"
	CacheBackendPostgres = "postgres"
)

// Bounds for per-source request timeouts.
const (
	MinSourceTimeout = time.Second
	MaxSourceTimeout = time.Minute
)

// Config is the root of the service configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Temporal TemporalConfig `mapstructure:"temporal"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Sources  SourcesConfig  `mapstructure:"sources"`
	Content  ContentConfig  `mapstructure:"content"`
}

// ServerConfig covers the API and metrics listeners.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	HTTPPort        int           `mapstructure:"http_port"`
	MetricsPort     int           `mapstructure:"metrics_port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	// RequestTimeout bounds one API request, aggregation included.
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// DatabaseConfig is only read when the postgres cache backend is selected.
type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"ssl_mode"`

	MaxConns               int32         `mapstructure:"max_conns"`
	MinConns               int32         `mapstructure:"min_conns"`
	MaxConnLifetime        time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime        time.Duration `mapstructure:"max_conn_idle_time"`
	HealthCheckPeriod      time.Duration `mapstructure:"health_check_period"`
	ConnectTimeout         time.Duration `mapstructure:"connect_timeout"`
	StatementCacheCapacity int           `mapstructure:"statement_cache_capacity"`

	// MigrationPath reads migrations from disk instead of the embedded set.
	MigrationPath    string `mapstructure:"migration_path"`
	MigrationAutoRun bool   `mapstructure:"migration_auto_run"`
}

// CacheConfig selects the content cache store and its lifetimes.
type CacheConfig struct {
	Backend         string        `mapstructure:"backend"`
	BooksTTL        time.Duration `mapstructure:"books_ttl"`
	SearchTTL       time.Duration `mapstructure:"search_ttl"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

// TemporalConfig enables reading-list prewarming.
type TemporalConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	HostPort  string `mapstructure:"host_port"`
	Namespace string `mapstructure:"namespace"`
	TaskQueue string `mapstructure:"task_queue"`
	// PrewarmConcurrency caps the books resolved in parallel per list.
	PrewarmConcurrency int               `mapstructure:"prewarm_concurrency"`
	TLS                TemporalTLSConfig `mapstructure:"tls"`
}

// TemporalTLSConfig holds TLS settings for the Temporal client.
type TemporalTLSConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	CertPath   string `mapstructure:"cert_path"`
	KeyPath    string `mapstructure:"key_path"`
	CACertPath string `mapstructure:"ca_cert_path"`
	ServerName string `mapstructure:"server_name"`
}

// LoggingConfig configures the zerolog root logger.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"` // json or console
	Output     string `mapstructure:"output"` // stdout or stderr
	AddSource  bool   `mapstructure:"add_source"`
	TimeFormat string `mapstructure:"time_format"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Path      string `mapstructure:"path"`
	Namespace string `mapstructure:"namespace"`
}

// KafkaConfig covers resolution events and the prewarm listener.
type KafkaConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Brokers      []string      `mapstructure:"brokers"`
	Topic        string        `mapstructure:"topic"`
	BatchSize    int           `mapstructure:"batch_size"`
	BatchTimeout time.Duration `mapstructure:"batch_timeout"`

	PrewarmListenerEnabled bool   `mapstructure:"prewarm_listener_enabled"`
	PrewarmTopic           string `mapstructure:"prewarm_topic"`
	GroupID                string `mapstructure:"group_id"`
}

// SourcesConfig holds settings shared by all catalogs plus one block per
// catalog.
type SourcesConfig struct {
	UserAgent string `mapstructure:"user_agent"`
	// ProxyURL routes catalog traffic through an http(s) or socks5 proxy.
	ProxyURL   string `mapstructure:"proxy_url"`
	MaxRetries int    `mapstructure:"max_retries"`

	Gutenberg   SourceConfig `mapstructure:"gutenberg"`
	Archive     SourceConfig `mapstructure:"archive"`
	OpenLibrary SourceConfig `mapstructure:"openlibrary"`
}

// SourceConfig configures one catalog client.
type SourceConfig struct {
	Enabled    bool          `mapstructure:"enabled"`
	BaseURL    string        `mapstructure:"base_url"`
	Timeout    time.Duration `mapstructure:"timeout"`
	RateLimit  float64       `mapstructure:"rate_limit"` // requests per second
	BurstSize  int           `mapstructure:"burst_size"`
	MaxResults int           `mapstructure:"max_results"`
}

// ContentConfig tunes aggregation.
type ContentConfig struct {
	PreviewLimit int `mapstructure:"preview_limit"`
	// StrictEducationalFilter drops public domain candidates outside the
	// educational subject list.
	StrictEducationalFilter bool `mapstructure:"strict_educational_filter"`
	CandidateLimit          int  `mapstructure:"candidate_limit"`
	SearchLimit             int  `mapstructure:"search_limit"`
}

// DSN renders the settings as a postgres:// URL accepted by pgx.
func (c *DatabaseConfig) DSN() string {
	q := url.Values{"sslmode": {c.SSLMode}}
	if secs := int(c.ConnectTimeout.Seconds()); secs > 0 {
		q.Set("connect_timeout", strconv.Itoa(secs))
	}
	if c.StatementCacheCapacity > 0 {
		q.Set("statement_cache_capacity", strconv.Itoa(c.StatementCacheCapacity))
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     "/" + c.Name,
		RawQuery: q.Encode(),
	}
	return u.String()
}

// HTTPAddress is the listen address of the API server.
func (c *ServerConfig) HTTPAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.HTTPPort)
}

// MetricsAddress is the listen address of the metrics server.
func (c *ServerConfig) MetricsAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.MetricsPort)
}

// Load builds and validates the configuration. Variables already present
// in the environment take precedence over the .env file.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	for key, value := range defaults() {
		v.SetDefault(key, value)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	for _, dir := range []string{".", "./config", "/etc/book-content-service"} {
		v.AddConfigPath(dir)
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	cfg := new(Config)
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// sourceDefaults returns the defaults of one catalog block.
func sourceDefaults(name, baseURL string, timeout time.Duration, rps float64) map[string]any {
	prefix := "sources." + name + "."
	return map[string]any{
		prefix + "enabled":     true,
		prefix + "base_url":    baseURL,
		prefix + "timeout":     timeout,
		prefix + "rate_limit":  rps,
		prefix + "burst_size":  3,
		prefix + "max_results": 10,
	}
}

// defaults lists every key Load knows about. Viper only maps environment
// variables onto keys it has seen, so each field needs an entry here.
func defaults() map[string]any {
	d := map[string]any{
		"server.host":             "0.0.0.0",
		"server.http_port":        8080,
		"server.metrics_port":     9091,
		"server.read_timeout":     30 * time.Second,
		"server.write_timeout":    90 * time.Second,
		"server.shutdown_timeout": 30 * time.Second,
		"server.request_timeout":  time.Minute,

		"database.host":                     "localhost",
		"database.port":                     5432,
		"database.user":                     "bookcontent",
		"database.password":                 "",
		"database.name":                     "book_content_service",
		"database.ssl_mode":                 SSLModeRequire,
		"database.max_conns":                10,
		"database.min_conns":                1,
		"database.max_conn_lifetime":        time.Hour,
		"database.max_conn_idle_time":       15 * time.Minute,
		"database.health_check_period":      time.Minute,
		"database.connect_timeout":          5 * time.Second,
		"database.statement_cache_capacity": 256,
		"database.migration_path":           "",
		"database.migration_auto_run":       true,

		"cache.backend":          CacheBackendMemory,
		"cache.books_ttl":        time.Hour,
		"cache.search_ttl":       time.Hour,
		"cache.cleanup_interval": 5 * time.Minute,

		"temporal.enabled":             false,
		"temporal.host_port":           "localhost:7233",
		"temporal.namespace":           "book-content",
		"temporal.task_queue":          "book-content-prewarm",
		"temporal.prewarm_concurrency": 4,
		"temporal.tls.enabled":         false,
		"temporal.tls.cert_path":       "",
		"temporal.tls.key_path":        "",
		"temporal.tls.ca_cert_path":    "",
		"temporal.tls.server_name":     "",

		"logging.level":       "info",
		"logging.format":      "json",
		"logging.output":      "stdout",
		"logging.add_source":  false,
		"logging.time_format": time.RFC3339,

		"metrics.enabled":   true,
		"metrics.path":      "/metrics",
		"metrics.namespace": "book_content",

		"kafka.enabled":                  false,
		"kafka.brokers":                  []string{"localhost:9092"},
		"kafka.topic":                    "events.book_content_service",
		"kafka.batch_size":               100,
		"kafka.batch_timeout":            10 * time.Millisecond,
		"kafka.prewarm_listener_enabled": false,
		"kafka.prewarm_topic":            "commands.reading_list_prewarm",
		"kafka.group_id":                 "book-content-service",

		"sources.user_agent":  "BookContentService/1.0 (+https://github.com/helixir/book-content-service)",
		"sources.proxy_url":   "",
		"sources.max_retries": 2,

		"content.preview_limit":             15000,
		"content.strict_educational_filter": false,
		"content.candidate_limit":           5,
		"content.search_limit":              20,
	}
	for _, src := range []map[string]any{
		sourceDefaults("gutenberg", "https://gutendex.com", 15*time.Second, 2),
		sourceDefaults("archive", "https://archive.org", 15*time.Second, 2),
		sourceDefaults("openlibrary", "https://openlibrary.org", 10*time.Second, 3),
	} {
		for k, v := range src {
			d[k] = v
		}
	}
	return d
}

var logLevels = []string{"trace", "debug", "info", "warn", "error", "fatal", "panic"}

func validPort(p int) bool { return p > 0 && p <= 65535 }

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	checks := []func() error{
		c.validateServer,
		c.validateCache,
		c.validateLogging,
		c.validateSources,
		c.validateMessaging,
	}
	for _, check := range checks {
		if err := check(); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) validateServer() error {
	s := c.Server
	switch {
	case !validPort(s.HTTPPort):
		return fmt.Errorf("invalid HTTP port: %d", s.HTTPPort)
	case !validPort(s.MetricsPort):
		return fmt.Errorf("invalid metrics port: %d", s.MetricsPort)
	case s.HTTPPort == s.MetricsPort:
		return fmt.Errorf("http port and metrics port must differ: %d", s.HTTPPort)
	}
	return nil
}

func (c *Config) validateCache() error {
	switch c.Cache.Backend {
	case CacheBackendMemory:
	case CacheBackendPostgres:
		// The database is only dialed for the postgres backend.
		db := c.Database
		switch {
		case db.Host == "":
			return errors.New("database host is required")
		case !validPort(db.Port):
			return fmt.Errorf("invalid database port: %d", db.Port)
		case db.Name == "":
			return errors.New("database name is required")
		case db.MaxConns < db.MinConns:
			return fmt.Errorf("max_conns (%d) must be >= min_conns (%d)", db.MaxConns, db.MinConns)
		}
	default:
		return fmt.Errorf("invalid cache backend: %q", c.Cache.Backend)
	}

	if c.Cache.BooksTTL <= 0 {
		return errors.New("cache books_ttl must be positive")
	}
	if c.Cache.SearchTTL <= 0 {
		return errors.New("cache search_ttl must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	level := strings.ToLower(c.Logging.Level)
	for _, l := range logLevels {
		if l == level {
			return nil
		}
	}
	return fmt.Errorf("invalid log level: %s", c.Logging.Level)
}

func (c *Config) validateSources() error {
	named := []struct {
		name string
		src  SourceConfig
	}{
		{"gutenberg", c.Sources.Gutenberg},
		{"archive", c.Sources.Archive},
		{"openlibrary", c.Sources.OpenLibrary},
	}
	for _, n := range named {
		if !n.src.Enabled {
			continue
		}
		if n.src.Timeout < MinSourceTimeout || n.src.Timeout > MaxSourceTimeout {
			return fmt.Errorf("source %s timeout must be between %s and %s, got %s",
				n.name, MinSourceTimeout, MaxSourceTimeout, n.src.Timeout)
		}
		if n.src.RateLimit <= 0 {
			return fmt.Errorf("source %s rate_limit must be positive", n.name)
		}
	}

	if p := c.Sources.ProxyURL; p != "" {
		if u, err := url.Parse(p); err != nil || u.Host == "" {
			return fmt.Errorf("invalid sources proxy_url: %q", p)
		}
	}
	if c.Content.PreviewLimit <= 0 {
		return errors.New("content preview_limit must be positive")
	}
	return nil
}

func (c *Config) validateMessaging() error {
	k, t := c.Kafka, c.Temporal
	switch {
	case (k.Enabled || k.PrewarmListenerEnabled) && len(k.Brokers) == 0:
		return errors.New("kafka brokers are required when kafka is enabled")
	case k.PrewarmListenerEnabled && !t.Enabled:
		return errors.New("kafka prewarm listener requires temporal to be enabled")
	case t.Enabled && t.PrewarmConcurrency <= 0:
		return errors.New("temporal prewarm_concurrency must be positive")
	case t.TLS.Enabled && (t.TLS.CertPath == "") != (t.TLS.KeyPath == ""):
		return errors.New("temporal tls cert_path and key_path must be set together")
	}
	return nil
}
