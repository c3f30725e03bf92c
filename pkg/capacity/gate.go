package capacity

import (
	"context"
	"fmt"

	tablecore "github.com/theory-cloud/tabletheory/pkg/core"
	tableerrors "github.com/theory-cloud/tabletheory/pkg/errors"
)

// DynamoGate implements DirectGate using DynamoDB via TableTheory.
type DynamoGate struct {
	db       tablecore.DB
	config   *Config
	strategy *FixedWindowStrategy
	clock    Clock
	sleep    Sleeper
}

var _ DirectGate = (*DynamoGate)(nil)

func NewDynamoGate(db tablecore.DB, config *Config) *DynamoGate {
	if config == nil {
		config = DefaultConfig()
	}

	return &DynamoGate{
		db:       db,
		config:   config,
		strategy: NewPerSecondStrategy(config),
		clock:    RealClock{},
		sleep:    contextSleep,
	}
}

func DefaultConfig() *Config {
	return &Config{
		ThrottleLimits:       make(map[string]int),
		DefaultThrottleLimit: 10,
		SafeThrottleLimit:    0.8,
		ReserveForDirect:     0,
		RetryCount:           0,
		TTLHours:             1,
	}
}

func (g *DynamoGate) Available(ctx context.Context, service string) (int, error) {
	return g.Allowance(ctx, service, true)
}

func (g *DynamoGate) Allowance(ctx context.Context, service string, bulk bool) (int, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := validateService(service); err != nil {
		return 0, err
	}

	safe := g.safeLimit(service, bulk)
	if safe == 0 {
		return 0, nil
	}

	for attempt := 0; ; attempt++ {
		window, ok := g.strategy.Window(g.clock.Now())
		if !ok {
			return 0, NewError(ErrorTypeInternal, "no window calculated")
		}

		count, err := g.readCount(ctx, service, window)
		if err != nil {
			return 0, err
		}

		if available := safe - count; available > 0 {
			return available, nil
		}
		if attempt >= g.config.RetryCount {
			return 0, nil
		}

		if err := g.sleep(ctx, window.End.Sub(g.clock.Now())); err != nil {
			return 0, WrapError(err, ErrorTypeInternal, "interrupted waiting for capacity")
		}
	}
}

func (g *DynamoGate) RecordUsage(ctx context.Context, service string, count int) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := validateService(service); err != nil {
		return err
	}
	if count < 0 {
		return NewError(ErrorTypeInvalidInput, "usage count cannot be negative")
	}
	if count == 0 {
		return nil
	}

	now := g.clock.Now()
	window, ok := g.strategy.Window(now)
	if !ok {
		return NewError(ErrorTypeInternal, "no window calculated")
	}

	entry := g.entryFor(service, window)
	ttl := window.End.Unix() + int64(g.config.TTLHours*3600)

	err := g.db.Model(&UsageEntry{}).
		WithContext(ctx).
		Where("PK", "=", entry.PK).
		Where("SK", "=", entry.SK).
		UpdateBuilder().
		Add("Count", int64(count)).
		SetIfNotExists("Service", nil, entry.Service).
		SetIfNotExists("WindowStart", nil, entry.WindowStart).
		SetIfNotExists("WindowID", nil, window.Key).
		SetIfNotExists("TTL", nil, ttl).
		SetIfNotExists("CreatedAt", nil, now).
		Set("UpdatedAt", now).
		Execute()
	if err != nil {
		return WrapError(err, ErrorTypeInternal, "failed to record usage")
	}
	return nil
}

// Usage returns the current window's counters for a service.
func (g *DynamoGate) Usage(ctx context.Context, service string) (*UsageStats, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := validateService(service); err != nil {
		return nil, err
	}

	window, ok := g.strategy.Window(g.clock.Now())
	if !ok {
		return nil, NewError(ErrorTypeInternal, "no window calculated")
	}

	count, err := g.readCount(ctx, service, window)
	if err != nil {
		return nil, err
	}

	safe := g.safeLimit(service, true)
	available := safe - count
	if available < 0 {
		available = 0
	}

	return &UsageStats{
		Service:     service,
		Count:       count,
		Limit:       g.strategy.GetLimit(service),
		SafeLimit:   safe,
		Available:   available,
		WindowStart: window.Start,
		WindowEnd:   window.End,
	}, nil
}

// SetClock allows deterministic testing.
func (g *DynamoGate) SetClock(clock Clock) {
	if clock == nil {
		g.clock = RealClock{}
		return
	}
	g.clock = clock
}

// SetSleeper replaces the wait used between capacity retries.
func (g *DynamoGate) SetSleeper(sleep Sleeper) {
	if sleep == nil {
		g.sleep = contextSleep
		return
	}
	g.sleep = sleep
}

func (g *DynamoGate) String() string {
	if g == nil {
		return "capacity.DynamoGate<nil>"
	}
	return fmt.Sprintf("capacity.DynamoGate{default_limit:%d safe:%.2f reserve:%d retries:%d}",
		g.config.DefaultThrottleLimit, g.config.SafeThrottleLimit, g.config.ReserveForDirect, g.config.RetryCount)
}

func (g *DynamoGate) safeLimit(service string, bulk bool) int {
	return SafeLimit(g.strategy.GetLimit(service), g.config.SafeThrottleLimit, g.config.ReserveForDirect, bulk)
}

func (g *DynamoGate) entryFor(service string, window TimeWindow) *UsageEntry {
	entry := &UsageEntry{
		Service:     normalizeService(service),
		WindowStart: window.Start.Unix(),
	}
	entry.SetKeys()
	return entry
}

func (g *DynamoGate) readCount(ctx context.Context, service string, window TimeWindow) (int, error) {
	entry := g.entryFor(service, window)

	var record UsageEntry
	err := g.db.Model(&UsageEntry{}).
		WithContext(ctx).
		Where("PK", "=", entry.PK).
		Where("SK", "=", entry.SK).
		First(&record)
	if err != nil {
		if tableerrors.IsNotFound(err) {
			return 0, nil
		}
		return 0, WrapError(err, ErrorTypeInternal, "failed to read usage")
	}
	return int(record.Count), nil
}

func validateService(service string) error {
	if normalizeService(service) == "" {
		return NewError(ErrorTypeInvalidInput, "service is required")
	}
	return nil
}
