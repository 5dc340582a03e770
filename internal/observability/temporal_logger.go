package observability

import (
	"fmt"

	"github.com/rs/zerolog"
	"go.temporal.io/sdk/log"
)

// TemporalLogger routes Temporal SDK log output through zerolog.
// It implements log.Logger and log.WithLogger.
type TemporalLogger struct {
	logger zerolog.Logger
}

// NewTemporalLogger tags every SDK entry with component=temporal-sdk.
func NewTemporalLogger(logger zerolog.Logger) *TemporalLogger {
	return &TemporalLogger{logger: logger.With().Str("component", "temporal-sdk").Logger()}
}

func (l *TemporalLogger) Debug(msg string, keyvals ...interface{}) {
	l.log(zerolog.DebugLevel, msg, keyvals)
}

func (l *TemporalLogger) Info(msg string, keyvals ...interface{}) {
	l.log(zerolog.InfoLevel, msg, keyvals)
}

func (l *TemporalLogger) Warn(msg string, keyvals ...interface{}) {
	l.log(zerolog.WarnLevel, msg, keyvals)
}

func (l *TemporalLogger) Error(msg string, keyvals ...interface{}) {
	l.log(zerolog.ErrorLevel, msg, keyvals)
}

// With returns a logger that adds keyvals to every entry. The SDK uses it to
// attach workflow and activity identifiers.
func (l *TemporalLogger) With(keyvals ...interface{}) log.Logger {
	return &TemporalLogger{logger: l.logger.With().Fields(fieldMap(keyvals)).Logger()}
}

func (l *TemporalLogger) log(level zerolog.Level, msg string, keyvals []interface{}) {
	l.logger.WithLevel(level).Fields(fieldMap(keyvals)).Msg(msg)
}

// fieldMap pairs up keyvals. Non-string keys are formatted with %v and a
// trailing key without a value is dropped.
func fieldMap(keyvals []interface{}) map[string]interface{} {
	fields := make(map[string]interface{}, len(keyvals)/2)
	for i := 1; i < len(keyvals); i += 2 {
		key, ok := keyvals[i-1].(string)
		if !ok {
			key = fmt.Sprint(keyvals[i-1])
		}
		fields[key] = keyvals[i]
	}
	return fields
}
