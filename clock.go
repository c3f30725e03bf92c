package bulktransition

import "time"

// Clock provides deterministic time for the consumer and its reports.
type Clock interface {
	Now() time.Time
}

// RealClock uses time.Now.
type RealClock struct{}

func (RealClock) Now() time.Time {
	return time.Now()
}
