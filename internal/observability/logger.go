package observability

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// LoggingConfig contains logger configuration options.
type LoggingConfig struct {
	// Level is the minimum log level (trace, debug, info, warn, error, fatal, panic).
	Level string

	// Format is json, or console/pretty for human-readable output.
	Format string

	// Output is stdout or stderr. Anything else falls back to stdout.
	Output string

	// AddSource adds the caller's file and line to every entry.
	AddSource bool

	// TimeFormat is the timestamp layout. Defaults to RFC 3339.
	TimeFormat string
}

// DefaultLoggingConfig returns json logging at info level on stdout.
func DefaultLoggingConfig() LoggingConfig {
	return LoggingConfig{
		Level:      "info",
		Format:     "json",
		Output:     "stdout",
		TimeFormat: time.RFC3339,
	}
}

// NewLogger creates the root logger. zerolog's timestamp layout is
// process-wide, so the last call wins.
func NewLogger(cfg LoggingConfig) zerolog.Logger {
	out := io.Writer(os.Stdout)
	if strings.EqualFold(cfg.Output, "stderr") {
		out = os.Stderr
	}
	return newLogger(cfg, out)
}

func newLogger(cfg LoggingConfig, out io.Writer) zerolog.Logger {
	zerolog.TimeFieldFormat = cfg.TimeFormat
	if zerolog.TimeFieldFormat == "" {
		zerolog.TimeFieldFormat = time.RFC3339
	}

	switch strings.ToLower(cfg.Format) {
	case "console", "pretty":
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: zerolog.TimeFieldFormat}
	}

	lc := zerolog.New(out).With().Timestamp()
	if cfg.AddSource {
		lc = lc.Caller()
	}
	return lc.Logger().Level(parseLevel(cfg.Level))
}

// parseLevel maps a configured level name to a zerolog level. Unknown or
// empty names mean info.
func parseLevel(level string) zerolog.Level {
	name := strings.ToLower(strings.TrimSpace(level))
	if name == "warning" {
		name = "warn"
	}
	l, err := zerolog.ParseLevel(name)
	if err != nil || name == "" || l == zerolog.NoLevel || l == zerolog.Disabled {
		return zerolog.InfoLevel
	}
	return l
}

// WithBookContext adds book lookup fields to a logger.
func WithBookContext(logger zerolog.Logger, requestID, title, author string) zerolog.Logger {
	return logger.With().
		Str("request_id", requestID).
		Str("title", title).
		Str("author", author).
		Logger()
}

// WithSourceContext adds the source name and search query to a logger.
func WithSourceContext(logger zerolog.Logger, source, query string) zerolog.Logger {
	return logger.With().
		Str("source", source).
		Str("query", query).
		Logger()
}
