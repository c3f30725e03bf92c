package zap

import (
	"context"
	"sync"
	"time"

	ubzap "go.uber.org/zap"

	"github.com/theory-cloud/bulktransition/pkg/observability"
)

// alertQueue delivers error entries to a notifier from a single background goroutine.
// Delivery problems are reported on the plain zap logger, never as new alerts.
type alertQueue struct {
	notifier observability.ErrorNotifier
	attempts int
	delay    time.Duration
	report   *ubzap.Logger

	mu       sync.Mutex
	idle     *sync.Cond
	ch       chan observability.LogEntry
	inflight int
	closed   bool
}

func startAlertQueue(notifier observability.ErrorNotifier, cfg observability.LoggerConfig, report *ubzap.Logger) *alertQueue {
	ch := make(chan observability.LogEntry, cfg.AlertBuffer)
	q := &alertQueue{
		notifier: notifier,
		attempts: cfg.AlertAttempts,
		delay:    cfg.AlertRetryDelay,
		report:   report,
		ch:       ch,
	}
	q.idle = sync.NewCond(&q.mu)
	go q.run(ch)
	return q
}

// push enqueues without blocking; a full or closed queue drops the entry.
func (q *alertQueue) push(entry observability.LogEntry) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		q.report.Warn("error alert dropped", ubzap.String("reason", "logger closed"), ubzap.String("alert", entry.Message))
		return
	}
	select {
	case q.ch <- entry:
		q.inflight++
	default:
		q.report.Warn("error alert dropped", ubzap.String("reason", "buffer full"), ubzap.String("alert", entry.Message))
	}
}

func (q *alertQueue) run(ch <-chan observability.LogEntry) {
	for entry := range ch {
		if err := q.deliver(entry); err != nil {
			q.report.Warn("error alert failed",
				ubzap.String("alert", entry.Message),
				ubzap.Int("attempts", q.attempts),
				ubzap.Error(err),
			)
		}

		q.mu.Lock()
		q.inflight--
		if q.inflight == 0 {
			q.idle.Broadcast()
		}
		q.mu.Unlock()
	}
}

func (q *alertQueue) deliver(entry observability.LogEntry) error {
	var err error
	for attempt := 1; attempt <= q.attempts; attempt++ {
		if err = q.notifier.Notify(context.Background(), entry); err == nil {
			return nil
		}
		if attempt < q.attempts {
			time.Sleep(q.delay)
		}
	}
	return err
}

// wait blocks until every accepted alert has been handled or ctx is done.
func (q *alertQueue) wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		q.mu.Lock()
		for q.inflight > 0 {
			q.idle.Wait()
		}
		q.mu.Unlock()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *alertQueue) close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.ch)
	q.mu.Unlock()

	_ = q.wait(context.Background())
}
