// Package capacity provides a DynamoDB-backed capacity gate for the bulk consumer.
//
// Each service has a calls-per-second ceiling. Usage is counted in fixed one-second
// windows stored through TableTheory, so concurrent invocations share one atomic counter.
package capacity

import (
	"context"
	"time"
)

// Gate is the capacity accounting surface the consumer depends on.
type Gate interface {
	// Available returns how many operations a bulk invocation may start now.
	Available(ctx context.Context, service string) (int, error)

	// RecordUsage atomically adds count to the current window.
	RecordUsage(ctx context.Context, service string, count int) error
}

// DirectGate is implemented by gates that also track the capacity left for direct traffic.
type DirectGate interface {
	Gate

	// Allowance returns the remaining capacity; bulk callers leave the direct reserve untouched.
	Allowance(ctx context.Context, service string, bulk bool) (int, error)
}

// UsageStats describes the current window for a service.
type UsageStats struct {
	Service     string
	Count       int
	Limit       int
	SafeLimit   int
	Available   int
	WindowStart time.Time
	WindowEnd   time.Time
}

// TimeWindow represents one fixed accounting window.
type TimeWindow struct {
	Start time.Time
	End   time.Time
	Key   string
}

// Config contains configuration for the capacity gate.
type Config struct {
	// ThrottleLimits maps a service name to its calls-per-second ceiling.
	ThrottleLimits       map[string]int
	DefaultThrottleLimit int

	// SafeThrottleLimit is the fraction of the ceiling the gate hands out.
	SafeThrottleLimit float64

	// ReserveForDirect is withheld from bulk allowances for direct traffic.
	ReserveForDirect int

	// RetryCount is how many later windows to try when no capacity is left.
	RetryCount int

	TTLHours int
}

// Clock allows deterministic testing of time-sensitive logic.
type Clock interface {
	Now() time.Time
}

// RealClock implements Clock using actual time.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

func contextSleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// ErrorType identifies the category of a capacity gate error.
type ErrorType string

const (
	ErrorTypeInternal     ErrorType = "internal_error"
	ErrorTypeInvalidInput ErrorType = "invalid_input"
)

// Error represents a capacity gate error.
type Error struct {
	Type    ErrorType
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return "capacity gate error"
	}
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

func NewError(errorType ErrorType, message string) *Error {
	return &Error{Type: errorType, Message: message}
}

func WrapError(cause error, errorType ErrorType, message string) *Error {
	return &Error{Type: errorType, Message: message, Cause: cause}
}
