// Package odclog provides structured logging shared across every core
// component. Partition/run-number context is attached only to entries built
// through WithContext (and the Log* helpers that use it) from a context that
// carries those values; entries made directly on the Logger do not carry it.
package odclog

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ContextKey is the type for context values this package injects.
type ContextKey string

const (
	PartitionIDKey ContextKey = "partition_id"
	RunNrKey       ContextKey = "run_nr"
	TraceIDKey     ContextKey = "trace_id"
)

// Logger wraps logrus.Logger with orchestration-core-specific helpers.
type Logger struct {
	*logrus.Logger
	component string
}

// New creates a Logger for the named component ("controller", "dds-adapter",
// "resource-planner", ...).
func New(component, level, format string) *Logger {
	logger := logrus.New()

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logger.SetLevel(lvl)

	if format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339Nano,
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime:  "timestamp",
				logrus.FieldKeyLevel: "level",
				logrus.FieldKeyMsg:   "message",
			},
		})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			TimestampFormat: time.RFC3339,
			FullTimestamp:   true,
		})
	}

	logger.SetOutput(os.Stdout)

	return &Logger{Logger: logger, component: component}
}

// NewFromEnv builds a Logger from LOG_LEVEL/LOG_FORMAT, defaulting to
// "info"/"text" (the core is a CLI-adjacent library, not a service, so text
// is the friendlier terminal default).
func NewFromEnv(component string) *Logger {
	level := strings.TrimSpace(os.Getenv("LOG_LEVEL"))
	if level == "" {
		level = "info"
	}
	format := strings.TrimSpace(os.Getenv("LOG_FORMAT"))
	if format == "" {
		format = "text"
	}
	return New(component, level, format)
}

// WithContext returns an entry carrying partition/run/trace fields found in ctx.
func (l *Logger) WithContext(ctx context.Context) *logrus.Entry {
	entry := l.Logger.WithField("component", l.component)
	if v := ctx.Value(PartitionIDKey); v != nil {
		entry = entry.WithField("partition_id", v)
	}
	if v := ctx.Value(RunNrKey); v != nil {
		entry = entry.WithField("run_nr", v)
	}
	if v := ctx.Value(TraceIDKey); v != nil {
		entry = entry.WithField("trace_id", v)
	}
	return entry
}

// WithPartition attaches a partition ID to ctx.
func WithPartition(ctx context.Context, partitionID string) context.Context {
	return context.WithValue(ctx, PartitionIDKey, partitionID)
}

// WithRunNr attaches a run number to ctx.
func WithRunNr(ctx context.Context, runNr uint64) context.Context {
	return context.WithValue(ctx, RunNrKey, runNr)
}

// NewTraceID returns a fresh trace ID for correlating a single request
// across component boundaries.
func NewTraceID() string {
	return uuid.New().String()
}

// WithTraceID attaches a trace ID to ctx.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, TraceIDKey, traceID)
}

// LogTransition logs a state transition attempt and its outcome.
func (l *Logger) LogTransition(ctx context.Context, transition, path string, ok bool, err error) {
	entry := l.WithContext(ctx).WithFields(logrus.Fields{
		"transition": transition,
		"path":       path,
		"ok":         ok,
	})
	if err != nil {
		entry.WithError(err).Warn("state transition failed")
		return
	}
	entry.Debug("state transition completed")
}

// LogRecovery logs an nMin recovery attempt outcome.
func (l *Logger) LogRecovery(ctx context.Context, collections []string, ok bool, reason string) {
	entry := l.WithContext(ctx).WithFields(logrus.Fields{
		"collections": collections,
		"recovered":   ok,
	})
	if reason != "" {
		entry = entry.WithField("reason", reason)
	}
	if ok {
		entry.Info("recovery succeeded")
	} else {
		entry.Warn("recovery failed")
	}
}

// LogRequest logs a completed request verb.
func (l *Logger) LogRequest(ctx context.Context, verb string, duration time.Duration, status string, err error) {
	entry := l.WithContext(ctx).WithFields(logrus.Fields{
		"verb":        verb,
		"duration_ms": duration.Milliseconds(),
		"status":      status,
	})
	if err != nil {
		entry.WithError(err).Error("request failed")
		return
	}
	entry.Info("request completed")
}
