// Package logging provides structured logging for paycore using zerolog.
package logging

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

type contextKey string

const (
	RequestIDKey     contextKey = "request_id"
	IdempotencyKeyID contextKey = "idempotency_key"
)

// Logger wraps zerolog.Logger with paycore's field conventions.
type Logger struct {
	logger zerolog.Logger
}

// Config holds logger configuration.
type Config struct {
	Level       string // debug, info, warn, error
	Format      string // console, json
	ServiceName string
	Output      io.Writer
}

// New creates a new Logger instance with the given configuration.
func New(cfg Config) *Logger {
	output := cfg.Output
	if output == nil {
		output = os.Stdout
	}

	if cfg.Format == "console" {
		output = zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: time.RFC3339,
			NoColor:    false,
		}
	}

	zlog := zerolog.New(output).With().
		Timestamp().
		Str("service", cfg.ServiceName).
		Logger().
		Level(parseLevel(cfg.Level))

	return &Logger{logger: zlog}
}

// NewFromEnv builds a Logger reading LOG_LEVEL and LOG_FORMAT, defaulting
// to info/console, matching the per-service bootstrap in cmd/paycore.
func NewFromEnv(serviceName string) *Logger {
	level := os.Getenv("LOG_LEVEL")
	if level == "" {
		level = "info"
	}
	format := os.Getenv("LOG_FORMAT")
	if format == "" {
		format = "console"
	}
	return New(Config{Level: level, Format: format, ServiceName: serviceName})
}

func parseLevel(level string) zerolog.Level {
	switch level {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	default:
		return zerolog.InfoLevel
	}
}

// WithContext adds request/idempotency-key fields found on ctx, if any.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	logger := l.logger
	if v := ctx.Value(RequestIDKey); v != nil {
		logger = logger.With().Str("request_id", v.(string)).Logger()
	}
	if v := ctx.Value(IdempotencyKeyID); v != nil {
		logger = logger.With().Str("idempotency_key", v.(string)).Logger()
	}
	return &Logger{logger: logger}
}

// With returns a new logger with additional fields merged in.
func (l *Logger) With(fields map[string]interface{}) *Logger {
	ctx := l.logger.With()
	for k, v := range fields {
		ctx = ctx.Interface(k, v)
	}
	return &Logger{logger: ctx.Logger()}
}

// WithField returns a new logger with a single field added.
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return &Logger{logger: l.logger.With().Interface(key, value).Logger()}
}

// WithError returns a new logger with the error attached.
func (l *Logger) WithError(err error) *Logger {
	if err == nil {
		return l
	}
	return &Logger{logger: l.logger.With().Err(err).Logger()}
}

func (l *Logger) Debug(msg string) { l.logger.Debug().Msg(msg) }
func (l *Logger) Debugf(format string, args ...interface{}) {
	l.logger.Debug().Msgf(format, args...)
}
func (l *Logger) Info(msg string) { l.logger.Info().Msg(msg) }
func (l *Logger) Infof(format string, args ...interface{}) {
	l.logger.Info().Msgf(format, args...)
}
func (l *Logger) Warn(msg string) { l.logger.Warn().Msg(msg) }
func (l *Logger) Warnf(format string, args ...interface{}) {
	l.logger.Warn().Msgf(format, args...)
}
func (l *Logger) Error(msg string) { l.logger.Error().Msg(msg) }
func (l *Logger) Errorf(format string, args ...interface{}) {
	l.logger.Error().Msgf(format, args...)
}
func (l *Logger) Fatal(msg string) { l.logger.Fatal().Msg(msg) }
func (l *Logger) Fatalf(format string, args ...interface{}) {
	l.logger.Fatal().Msgf(format, args...)
}
