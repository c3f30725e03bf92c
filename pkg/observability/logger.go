// Package observability defines the structured logging surface used across the consumer.
package observability

import (
	"context"
	"time"
)

type SanitizerFunc func(key string, value any) any

// ErrorNotifier receives error-level entries for out-of-band alerting.
type ErrorNotifier interface {
	Notify(ctx context.Context, entry LogEntry) error
}

// LogEntry represents a structured log entry.
type LogEntry struct {
	Timestamp time.Time      `json:"timestamp"`
	Level     string         `json:"level"`
	Message   string         `json:"message"`
	Fields    map[string]any `json:"fields,omitempty"`

	RequestID    string `json:"request_id,omitempty"`
	InvocationID string `json:"invocation_id,omitempty"`
	Service      string `json:"service,omitempty"`
}

// StructuredLogger logs a message with optional field maps.
//
// Derived loggers returned by the With* methods carry their fields into every entry.
// Flush blocks until pending error alerts are delivered or ctx is done; Lambda handlers
// call it before returning so alerts are not lost when the sandbox freezes.
type StructuredLogger interface {
	Debug(message string, fields ...map[string]any)
	Info(message string, fields ...map[string]any)
	Warn(message string, fields ...map[string]any)
	Error(message string, fields ...map[string]any)

	WithField(key string, value any) StructuredLogger
	WithFields(fields map[string]any) StructuredLogger

	WithRequestID(requestID string) StructuredLogger
	WithInvocationID(invocationID string) StructuredLogger
	WithService(service string) StructuredLogger

	Flush(ctx context.Context) error
	Close() error
}

// LoggerConfig configures logger implementations.
type LoggerConfig struct {
	Format       string `json:"format" yaml:"format"`
	Level        string `json:"level" yaml:"level"`
	EnableCaller bool   `json:"enable_caller" yaml:"enable_caller"`

	// AlertBuffer bounds error alerts waiting for delivery; further alerts are dropped.
	AlertBuffer int `json:"alert_buffer" yaml:"alert_buffer"`
	// AlertAttempts is the number of delivery attempts per alert.
	AlertAttempts   int           `json:"alert_attempts" yaml:"alert_attempts"`
	AlertRetryDelay time.Duration `json:"alert_retry_delay" yaml:"alert_retry_delay"`
}
