// Package logger provides a structured, module-aware logging system built on Go's standard log/slog.
//
// Every package fetches its own scoped logger from the global CentralLogger:
//
//	log := logger.Global().Module("pipeline")
//	log.Info("run finished",
//	    logger.String("run_id", id),
//	    logger.Int("numbers", len(numbers)))
//
// Console output is human-readable text without timestamps (journald and
// Docker add them). File output is JSON with RFC3339 timestamps.
//
// Per-module levels are configured under logging.module_levels:
//
//	logging:
//	  default_level: "info"
//	  console:
//	    enabled: true
//	    level: "info"
//	  file_output:
//	    enabled: true
//	    path: "logs/lanewatch.log"
//	    level: "debug"
//	  module_levels:
//	    trigger: "debug"
//
// A trace ID stored with WithTraceID is attached by WithContext, which ties
// every line of one capture run together.
package logger

import (
	"context"
	"time"
	"unique"
)

// LogLevel represents log severity levels
type LogLevel string

const (
	LogLevelTrace LogLevel = "trace"
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// Field represents a structured log field.
// Keys are interned with unique.Make so repeated keys share one allocation.
type Field struct {
	Key   string
	Value any
}

func internKey(key string) string {
	return unique.Make(key).Value()
}

var errorKey = internKey("error")

// Logger is the centralized logging interface for dependency injection
type Logger interface {
	// Module returns a logger scoped to a specific module
	Module(name string) Logger

	Trace(msg string, fields ...Field)
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)

	With(fields ...Field) Logger
	WithContext(ctx context.Context) Logger

	// Log with explicit level
	Log(level LogLevel, msg string, fields ...Field)

	// Flush ensures all buffered logs are written
	Flush() error
}

// String creates a string field for structured logging.
func String(key, value string) Field {
	return Field{Key: internKey(key), Value: value}
}

// Strings creates a string slice field, used for extracted number sequences.
func Strings(key string, values []string) Field {
	return Field{Key: internKey(key), Value: values}
}

// Int creates an integer field for structured logging.
func Int(key string, value int) Field {
	return Field{Key: internKey(key), Value: value}
}

// Int64 creates a 64-bit integer field for structured logging.
func Int64(key string, value int64) Field {
	return Field{Key: internKey(key), Value: value}
}

// Float64 creates a 64-bit float field for structured logging.
func Float64(key string, value float64) Field {
	return Field{Key: internKey(key), Value: value}
}

// Bool creates a boolean field for structured logging.
func Bool(key string, value bool) Field {
	return Field{Key: internKey(key), Value: value}
}

// Error creates an error field for structured logging.
//
// The field key is always "error". A nil err yields a nil value.
//
//	if err := store.Append(ctx, records...); err != nil {
//	    log.Error("append failed",
//	        logger.Error(err),
//	        logger.Int("records", len(records)))
//	}
func Error(err error) Field {
	if err == nil {
		return Field{Key: errorKey, Value: nil}
	}
	return Field{Key: errorKey, Value: err.Error()}
}

// Duration creates a duration field, rendered as a string such as "1.5s".
func Duration(key string, value time.Duration) Field {
	return Field{Key: internKey(key), Value: value}
}

// Time creates a time field for structured logging.
func Time(key string, value time.Time) Field {
	return Field{Key: internKey(key), Value: value}
}

// Any creates a field with any value for structured logging.
// Prefer the typed constructors for simple values.
func Any(key string, value any) Field {
	return Field{Key: internKey(key), Value: value}
}
