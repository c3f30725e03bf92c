// Package testkit provides deterministic fakes for exercising the bulk consumer locally.
package testkit

import (
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/theory-cloud/bulktransition"
	"github.com/theory-cloud/bulktransition/pkg/observability"
	"github.com/theory-cloud/bulktransition/pkg/queue"
)

// Env wires fakes for one test: a queue backend, a capacity gate, a clock, IDs and a logger.
type Env struct {
	Clock  *ManualClock
	IDs    *ManualIDGenerator
	Gate   *CapacityGate
	SQS    *FakeSQSClient
	Logger *observability.TestLogger
}

func New() *Env {
	return NewWithTime(time.Unix(0, 0).UTC())
}

func NewWithTime(now time.Time) *Env {
	return &Env{
		Clock:  NewManualClock(now),
		IDs:    NewManualIDGenerator(),
		Gate:   NewCapacityGate(),
		SQS:    NewFakeSQSClient(),
		Logger: observability.NewTestLogger(),
	}
}

// QueueClient returns a queue client over the fake SQS backend.
func (e *Env) QueueClient(opts ...queue.Option) *queue.Client {
	combined := make([]queue.Option, 0, len(opts)+1)
	combined = append(combined, queue.WithLogger(e.Logger))
	combined = append(combined, opts...)
	client, err := queue.New(e.SQS, combined...)
	if err != nil {
		panic(fmt.Sprintf("testkit: queue client: %v", err))
	}
	return client
}

// Consumer returns a consumer over the env's fakes.
func (e *Env) Consumer(service, queueURL string, opts ...bulktransition.Option) *bulktransition.Consumer {
	combined := make([]bulktransition.Option, 0, len(opts)+3)
	combined = append(combined, bulktransition.WithClock(e.Clock))
	combined = append(combined, bulktransition.WithIDGenerator(e.IDs))
	combined = append(combined, bulktransition.WithLogger(e.Logger))
	combined = append(combined, opts...)

	consumer, err := bulktransition.New(service, queueURL, e.Gate, e.QueueClient(), combined...)
	if err != nil {
		panic(fmt.Sprintf("testkit: consumer: %v", err))
	}
	return consumer
}

// ManualClock is a deterministic, mutable clock for tests.
type ManualClock struct {
	mu  sync.Mutex
	now time.Time
}

var _ bulktransition.Clock = (*ManualClock)(nil)

func NewManualClock(now time.Time) *ManualClock {
	return &ManualClock{now: now}
}

func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *ManualClock) Set(now time.Time) {
	c.mu.Lock()
	c.now = now
	c.mu.Unlock()
}

func (c *ManualClock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	c.now = c.now.Add(d)
	out := c.now
	c.mu.Unlock()
	return out
}

// ManualIDGenerator is a deterministic, predictable ID generator for tests.
type ManualIDGenerator struct {
	mu     sync.Mutex
	prefix string
	next   int64
	queue  []string
}

var _ bulktransition.IDGenerator = (*ManualIDGenerator)(nil)

func NewManualIDGenerator() *ManualIDGenerator {
	return &ManualIDGenerator{prefix: "inv", next: 1}
}

func (g *ManualIDGenerator) Queue(ids ...string) {
	g.mu.Lock()
	g.queue = append(g.queue, ids...)
	g.mu.Unlock()
}

func (g *ManualIDGenerator) Reset() {
	g.mu.Lock()
	g.queue = nil
	g.next = 1
	g.mu.Unlock()
}

func (g *ManualIDGenerator) NewID() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	if len(g.queue) > 0 {
		out := g.queue[0]
		g.queue = g.queue[1:]
		return out
	}

	out := fmt.Sprintf("%s-%s", g.prefix, strconv.FormatInt(g.next, 10))
	g.next++
	return out
}
