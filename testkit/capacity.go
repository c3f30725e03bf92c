package testkit

import (
	"context"
	"errors"
	"sync"

	"github.com/theory-cloud/bulktransition/pkg/capacity"
)

// CapacityGate is an in-memory capacity.DirectGate with a fixed allowance per service.
type CapacityGate struct {
	mu sync.Mutex

	// Allowances is the bulk allowance per service before any recorded usage.
	Allowances map[string]int
	// DirectAllowances overrides the direct allowance; unset services use Allowances.
	DirectAllowances map[string]int

	used map[string]int

	AvailableCalls int
	RecordCalls    []int

	AvailableErr error
	RecordErr    error
}

var _ capacity.DirectGate = (*CapacityGate)(nil)

func NewCapacityGate() *CapacityGate {
	return &CapacityGate{
		Allowances:       map[string]int{},
		DirectAllowances: map[string]int{},
		used:             map[string]int{},
	}
}

// SetAllowance sets the bulk allowance for a service.
func (g *CapacityGate) SetAllowance(service string, allowance int) {
	g.mu.Lock()
	g.Allowances[service] = allowance
	g.mu.Unlock()
}

func (g *CapacityGate) Available(ctx context.Context, service string) (int, error) {
	return g.Allowance(ctx, service, true)
}

func (g *CapacityGate) Allowance(_ context.Context, service string, bulk bool) (int, error) {
	if g == nil {
		return 0, errors.New("testkit: capacity gate is nil")
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	g.AvailableCalls++
	if g.AvailableErr != nil {
		return 0, g.AvailableErr
	}

	limit := g.Allowances[service]
	if direct, ok := g.DirectAllowances[service]; ok && !bulk {
		limit = direct
	}
	return max(limit-g.used[service], 0), nil
}

func (g *CapacityGate) RecordUsage(_ context.Context, service string, count int) error {
	if g == nil {
		return errors.New("testkit: capacity gate is nil")
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	g.RecordCalls = append(g.RecordCalls, count)
	if g.RecordErr != nil {
		return g.RecordErr
	}
	g.used[service] += count
	return nil
}

// Used returns the usage recorded for a service.
func (g *CapacityGate) Used(service string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.used[service]
}

// Recorded returns the counts passed to RecordUsage, in call order.
func (g *CapacityGate) Recorded() []int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]int(nil), g.RecordCalls...)
}

// Reset clears recorded usage, as when a new capacity window opens.
func (g *CapacityGate) Reset() {
	g.mu.Lock()
	g.used = map[string]int{}
	g.mu.Unlock()
}
