// Package bulktransition drains a service's bulk queue under a shared capacity budget.
//
// Each invocation asks the capacity gate for an allowance, fetches at most that many
// entries, records the fetched count as usage and dispatches every decoded message
// concurrently. The invocation fails as a whole when any message fails.
package bulktransition

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/theory-cloud/bulktransition/pkg/capacity"
	"github.com/theory-cloud/bulktransition/pkg/envelope"
	"github.com/theory-cloud/bulktransition/pkg/logger"
	"github.com/theory-cloud/bulktransition/pkg/observability"
	"github.com/theory-cloud/bulktransition/pkg/queue"
	"github.com/theory-cloud/bulktransition/pkg/sanitization"
)

const failedBodyPreviewBytes = 1024

// Fetcher pulls up to budget raw entries from a queue.
type Fetcher interface {
	Fetch(ctx context.Context, budget int, queueURL string) ([]envelope.Entry, error)
}

// Consumer runs capacity-bounded batch invocations against one queue.
type Consumer struct {
	service  string
	queueURL string

	gate    capacity.Gate
	fetcher Fetcher

	clock  Clock
	ids    IDGenerator
	logger observability.StructuredLogger
}

type Option func(*Consumer)

func WithClock(clock Clock) Option {
	return func(c *Consumer) {
		c.clock = clock
	}
}

func WithIDGenerator(ids IDGenerator) Option {
	return func(c *Consumer) {
		c.ids = ids
	}
}

func WithLogger(l observability.StructuredLogger) Option {
	return func(c *Consumer) {
		c.logger = l
	}
}

func New(service, queueURL string, gate capacity.Gate, fetcher Fetcher, opts ...Option) (*Consumer, error) {
	service = strings.TrimSpace(service)
	queueURL = strings.TrimSpace(queueURL)

	switch {
	case service == "":
		return nil, errors.New("bulk transition: service is required")
	case queueURL == "":
		return nil, errors.New("bulk transition: queue url is required")
	case gate == nil:
		return nil, errors.New("bulk transition: capacity gate is required")
	case fetcher == nil:
		return nil, errors.New("bulk transition: fetcher is required")
	}

	c := &Consumer{
		service:  service,
		queueURL: queueURL,
		gate:     gate,
		fetcher:  fetcher,
		clock:    RealClock{},
		ids:      ULIDGenerator{},
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(c)
	}
	if c.logger == nil {
		c.logger = logger.ForService(service)
	} else {
		c.logger = c.logger.WithService(service)
	}
	if c.clock == nil {
		c.clock = RealClock{}
	}
	if c.ids == nil {
		c.ids = ULIDGenerator{}
	}
	return c, nil
}

func (c *Consumer) Service() string  { return c.service }
func (c *Consumer) QueueURL() string { return c.queueURL }

// Run executes one invocation. The returned report is never nil and reflects how far the
// invocation got, including on error.
func (c *Consumer) Run(ctx context.Context, process queue.ProcessFunc) (*Report, error) {
	return c.run(ctx, c.ids.NewID(), process)
}

func (c *Consumer) run(ctx context.Context, invocationID string, process queue.ProcessFunc) (*Report, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	report := newReport(invocationID, c.service, c.queueURL, c.clock.Now())
	log := c.logger.WithInvocationID(invocationID)

	if process == nil {
		return c.fail(log, report, errors.New(errorMessageNilProcess))
	}

	allowance, err := c.gate.Available(ctx, c.service)
	if err != nil {
		return c.fail(log, report, &InvocationError{Stage: StageCapacity, Cause: err})
	}
	report.Allowance = allowance
	c.advance(log, report, StateCapacityChecked)

	if allowance < 1 {
		report.advance(StateFailed)
		c.finish(report)
		log.Warn("no capacity available", report.fields())
		return report, &NoCapacityError{Service: c.service, Allowance: allowance}
	}

	report.Requested = allowance
	entries, err := c.fetcher.Fetch(ctx, allowance, c.queueURL)
	if err != nil {
		return c.fail(log, report, &InvocationError{Stage: StageFetch, Cause: err})
	}
	report.Fetched = len(entries)
	c.advance(log, report, StateFetched)

	if len(entries) == 0 {
		c.advance(log, report, StateComplete)
		c.finish(report)
		log.Info("queue empty", report.fields())
		return report, nil
	}

	// Fetched entries are hidden from other consumers; no step after fetch is cancelled.
	ctx = context.WithoutCancel(ctx)

	if err := c.gate.RecordUsage(ctx, c.service, len(entries)); err != nil {
		return c.fail(log, report, &InvocationError{Stage: StageRecordUsage, Cause: err})
	}
	c.advance(log, report, StateUsageRecorded)

	log.Info("dispatching batch", map[string]any{
		"allowance": allowance,
		"fetched":   len(entries),
	})

	errs := dispatch(ctx, entries, process)
	c.advance(log, report, StateDispatched)

	for i, err := range errs {
		if err != nil {
			report.Failed++
			log.Warn("message failed", failureFields(entries[i], err))
		}
	}
	report.Processed = len(entries) - report.Failed

	if report.Failed > 0 {
		failures := make([]error, 0, report.Failed)
		for _, err := range errs {
			if err != nil {
				failures = append(failures, err)
			}
		}
		return c.fail(log, report, &ProcessingError{Failed: report.Failed, Total: len(entries), Errs: failures})
	}

	c.advance(log, report, StateComplete)
	c.finish(report)
	log.Info("batch processed", report.fields())
	return report, nil
}

// dispatch decodes and processes every entry concurrently and returns the per-entry
// outcome in fetch order. Siblings of a failed message are not cancelled.
func dispatch(ctx context.Context, entries []envelope.Entry, process queue.ProcessFunc) []error {
	errs := make([]error, len(entries))

	var g errgroup.Group
	for i := range entries {
		g.Go(func() error {
			errs[i] = dispatchOne(ctx, entries[i], process)
			return nil
		})
	}
	_ = g.Wait()

	return errs
}

func dispatchOne(ctx context.Context, entry envelope.Entry, process queue.ProcessFunc) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{MessageID: entry.MessageID, Value: r}
		}
	}()

	msg, err := envelope.Decode(entry)
	if err != nil {
		return err
	}
	if err := process(ctx, msg); err != nil {
		return fmt.Errorf("process message %s: %w", entry.MessageID, err)
	}
	return nil
}

// failureFields describes a failed entry with a sanitized, bounded view of its body.
func failureFields(entry envelope.Entry, err error) map[string]any {
	return map[string]any{
		"message_id": entry.MessageID,
		"error":      err,
		"body":       sanitization.Truncate(logger.SanitizeJSON([]byte(entry.Body)), failedBodyPreviewBytes),
	}
}

func (c *Consumer) advance(log observability.StructuredLogger, report *Report, next State) {
	from := report.State
	if report.advance(next) {
		log.Debug("state transition", map[string]any{
			"from": string(from),
			"to":   string(next),
		})
	}
}

func (c *Consumer) fail(log observability.StructuredLogger, report *Report, err error) (*Report, error) {
	report.advance(StateFailed)
	c.finish(report)

	fields := report.fields()
	fields["error"] = err
	log.Error("bulk transition failed", fields)
	return report, err
}

func (c *Consumer) finish(report *Report) {
	report.Duration = c.clock.Now().Sub(report.StartedAt)
}
