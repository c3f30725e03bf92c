package bulktransition

import (
	"errors"
	"fmt"
)

// ErrNoCapacity matches any *NoCapacityError.
var ErrNoCapacity = errors.New(errorMessageNoCapacity)

// NoCapacityError reports an allowance below one. It is an expected condition under load.
type NoCapacityError struct {
	Service   string
	Allowance int
}

func (e *NoCapacityError) Error() string {
	if e == nil || e.Service == "" {
		return errorMessageNoCapacity
	}
	return fmt.Sprintf("%s for %s (allowance %d)", errorMessageNoCapacity, e.Service, e.Allowance)
}

func (e *NoCapacityError) Is(target error) bool {
	return target == ErrNoCapacity
}

// InvocationError wraps a capacity gate or queue backend failure unchanged.
type InvocationError struct {
	Stage Stage
	Cause error
}

func (e *InvocationError) Error() string {
	if e == nil {
		return "bulk transition: invocation failed"
	}
	if e.Cause == nil {
		return fmt.Sprintf("bulk transition: %s failed", e.Stage)
	}
	return fmt.Sprintf("bulk transition: %s: %v", e.Stage, e.Cause)
}

func (e *InvocationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// ProcessingError reports that at least one dispatched message failed.
//
// Errs holds every failure in fetch order; errors.Is and errors.As search all of them.
type ProcessingError struct {
	Failed int
	Total  int
	Errs   []error
}

func (e *ProcessingError) Error() string {
	if e == nil || len(e.Errs) == 0 {
		return "bulk transition: processing failed"
	}
	return fmt.Sprintf("bulk transition: %d of %d messages failed: %v", e.Failed, e.Total, e.Errs[0])
}

// First returns the earliest failure by fetch order.
func (e *ProcessingError) First() error {
	if e == nil || len(e.Errs) == 0 {
		return nil
	}
	return e.Errs[0]
}

func (e *ProcessingError) Unwrap() []error {
	if e == nil {
		return nil
	}
	return e.Errs
}

// PanicError carries a value recovered from a processing function.
type PanicError struct {
	MessageID string
	Value     any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("bulk transition: process panicked on message %s: %v", e.MessageID, e.Value)
}
