package queue

import (
	"errors"

	"github.com/theory-cloud/bulktransition/pkg/observability"
)

// MaxChunkSize is the most messages a single SQS ReceiveMessage call may return.
const MaxChunkSize = 10

// Option is a functional option for configuring a [Client].
type Option func(*Options)

// Options holds the resolved configuration for a [Client].
type Options struct {
	chunkSize                int32
	visibilityTimeoutSeconds int32
	waitTimeSeconds          int32
	messageAttributeNames    []string
	logger                   observability.StructuredLogger
}

func newOptions() *Options {
	return &Options{
		chunkSize:                MaxChunkSize,
		visibilityTimeoutSeconds: 900,
		waitTimeSeconds:          10,
		messageAttributeNames:    []string{"All"},
	}
}

func (o *Options) validate() error {
	if o.chunkSize < 1 || o.chunkSize > MaxChunkSize {
		return errors.New("chunk size must be between 1 and 10")
	}

	if o.visibilityTimeoutSeconds < 0 || o.visibilityTimeoutSeconds > 43200 {
		return errors.New("visibility timeout must be between 0 seconds and 12 hours")
	}

	if o.waitTimeSeconds < 0 || o.waitTimeSeconds > 20 {
		return errors.New("receive wait time must be between 0 and 20 seconds")
	}

	return nil
}

// WithChunkSize sets the maximum number of messages requested per ReceiveMessage call.
func WithChunkSize(size int32) Option {
	return func(o *Options) {
		o.chunkSize = size
	}
}

// WithVisibilityTimeout sets how long received messages stay hidden from other consumers.
// It should cover the expected processing time of a whole batch.
func WithVisibilityTimeout(seconds int32) Option {
	return func(o *Options) {
		o.visibilityTimeoutSeconds = seconds
	}
}

// WithWaitTime sets the long-poll wait of each ReceiveMessage call.
func WithWaitTime(seconds int32) Option {
	return func(o *Options) {
		o.waitTimeSeconds = seconds
	}
}

// WithMessageAttributeNames selects the queue-level message attributes to receive.
func WithMessageAttributeNames(names ...string) Option {
	return func(o *Options) {
		o.messageAttributeNames = append([]string(nil), names...)
	}
}

// WithLogger sets the logger used for fetch summaries. Defaults to the global logger.
func WithLogger(l observability.StructuredLogger) Option {
	return func(o *Options) {
		o.logger = l
	}
}
