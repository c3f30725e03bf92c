package capacity

import (
	"math"
	"strings"
	"time"
)

// FixedWindowStrategy counts usage in fixed windows with per-service ceilings.
type FixedWindowStrategy struct {
	WindowSize   time.Duration
	DefaultLimit int

	ServiceLimits map[string]int
}

func NewFixedWindowStrategy(windowSize time.Duration, defaultLimit int) *FixedWindowStrategy {
	return &FixedWindowStrategy{
		WindowSize:    windowSize,
		DefaultLimit:  defaultLimit,
		ServiceLimits: make(map[string]int),
	}
}

// NewPerSecondStrategy builds the one-second strategy described by cfg.
func NewPerSecondStrategy(cfg *Config) *FixedWindowStrategy {
	s := NewFixedWindowStrategy(time.Second, cfg.DefaultThrottleLimit)
	for service, limit := range cfg.ThrottleLimits {
		s.SetServiceLimit(service, limit)
	}
	return s
}

// Window returns the window containing now. ok is false for a non-positive window size.
func (s *FixedWindowStrategy) Window(now time.Time) (TimeWindow, bool) {
	if s.WindowSize <= 0 {
		return TimeWindow{}, false
	}

	windowNanos := s.WindowSize.Nanoseconds()
	startNanos := (now.UnixNano() / windowNanos) * windowNanos
	start := time.Unix(0, startNanos).In(now.Location())

	return TimeWindow{
		Start: start,
		End:   start.Add(s.WindowSize),
		Key:   start.UTC().Format(time.RFC3339Nano),
	}, true
}

func (s *FixedWindowStrategy) GetLimit(service string) int {
	if limit, ok := s.ServiceLimits[normalizeService(service)]; ok {
		return limit
	}
	return s.DefaultLimit
}

func (s *FixedWindowStrategy) SetServiceLimit(service string, limit int) {
	s.ServiceLimits[normalizeService(service)] = limit
}

// SafeLimit applies the safety fraction to a ceiling and removes the direct reserve for bulk callers.
func SafeLimit(limit int, fraction float64, reserve int, bulk bool) int {
	if limit <= 0 {
		return 0
	}
	safe := int(math.Floor(float64(limit) * fraction))
	if bulk {
		safe -= reserve
	}
	if safe < 0 {
		return 0
	}
	return safe
}

func normalizeService(service string) string {
	return strings.ToLower(strings.TrimSpace(service))
}
