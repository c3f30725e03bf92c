// Package logger holds the process-wide structured logger.
package logger

import (
	"sync"

	"github.com/theory-cloud/bulktransition/pkg/observability"
	"github.com/theory-cloud/bulktransition/pkg/sanitization"
)

var (
	globalMu     sync.RWMutex
	globalLogger observability.StructuredLogger = observability.NewNoOpLogger()
)

// Logger returns the global structured logger singleton.
func Logger() observability.StructuredLogger {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalLogger
}

// SetLogger replaces the global structured logger singleton.
//
// Passing nil resets the logger to a no-op implementation.
func SetLogger(next observability.StructuredLogger) {
	globalMu.Lock()
	defer globalMu.Unlock()
	if next == nil {
		globalLogger = observability.NewNoOpLogger()
		return
	}
	globalLogger = next
}

// ForService returns the global logger scoped to a service.
func ForService(service string) observability.StructuredLogger {
	return Logger().WithService(service)
}

// SanitizeJSON returns a sanitized JSON string for safe logging. Non-JSON input yields
// a short description of the parse error instead of the raw bytes.
func SanitizeJSON(jsonBytes []byte) string {
	return sanitization.SanitizeJSON(jsonBytes)
}
