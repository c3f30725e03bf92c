package queue

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"golang.org/x/sync/errgroup"

	"github.com/theory-cloud/bulktransition/pkg/envelope"
	"github.com/theory-cloud/bulktransition/pkg/logger"
	"github.com/theory-cloud/bulktransition/pkg/observability"
)

// API is the subset of the SQS client used by [Client].
type API interface {
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

// Client wraps an SQS client with chunked, concurrent fetching.
//
// Client is safe for concurrent use.
type Client struct {
	api    API
	opts   *Options
	logger observability.StructuredLogger
}

// New creates a Client. It returns an error when the options are out of range.
func New(api API, opts ...Option) (*Client, error) {
	if api == nil {
		return nil, errors.New("queue: sqs client is nil")
	}

	options := newOptions()
	for _, o := range opts {
		if o == nil {
			continue
		}
		o(options)
	}

	if err := options.validate(); err != nil {
		return nil, fmt.Errorf("invalid queue options: %w", err)
	}

	log := options.logger
	if log == nil {
		log = logger.Logger()
	}

	return &Client{
		api:    api,
		opts:   options,
		logger: log.WithField("component", "queue"),
	}, nil
}

// PlanChunks splits budget into request sizes of at most maxChunk.
// The plan has ceil(budget/maxChunk) entries, none of them zero.
func PlanChunks(budget, maxChunk int) []int {
	if budget <= 0 || maxChunk <= 0 {
		return nil
	}

	plan := make([]int, 0, (budget+maxChunk-1)/maxChunk)
	for remaining := budget; remaining > 0; remaining -= maxChunk {
		plan = append(plan, min(remaining, maxChunk))
	}
	return plan
}

// Fetch receives up to budget messages from queueURL.
//
// All chunk requests run concurrently and are awaited before Fetch returns. A chunk that
// comes back empty is not an error, so the result may hold fewer than budget entries.
// Entries keep their per-chunk order; chunks are appended in plan order.
func (c *Client) Fetch(ctx context.Context, budget int, queueURL string) ([]envelope.Entry, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	queueURL = strings.TrimSpace(queueURL)
	if queueURL == "" {
		return nil, errors.New("queue: queue url is empty")
	}

	plan := PlanChunks(budget, int(c.opts.chunkSize))
	if len(plan) == 0 {
		return nil, nil
	}

	results := make([][]envelope.Entry, len(plan))

	var g errgroup.Group
	for i, size := range plan {
		g.Go(func() error {
			entries, err := c.receive(ctx, queueURL, size)
			if err != nil {
				return err
			}
			results[i] = entries
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	total := 0
	for _, chunk := range results {
		total += len(chunk)
	}

	out := make([]envelope.Entry, 0, total)
	for _, chunk := range results {
		out = append(out, chunk...)
	}

	c.logger.Debug("Fetched queue entries", map[string]any{
		"queue_url": queueURL,
		"budget":    budget,
		"chunks":    len(plan),
		"fetched":   len(out),
	})

	return out, nil
}

func (c *Client) receive(ctx context.Context, queueURL string, size int) ([]envelope.Entry, error) {
	input := &sqs.ReceiveMessageInput{
		QueueUrl:              aws.String(queueURL),
		MaxNumberOfMessages:   int32(size), //nolint:gosec // size is bounded by MaxChunkSize.
		VisibilityTimeout:     c.opts.visibilityTimeoutSeconds,
		WaitTimeSeconds:       c.opts.waitTimeSeconds,
		MessageAttributeNames: c.opts.messageAttributeNames,
	}

	output, err := c.api.ReceiveMessage(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to receive SQS messages: %w", err)
	}
	if output == nil || len(output.Messages) == 0 {
		return nil, nil
	}

	entries := make([]envelope.Entry, 0, len(output.Messages))
	for _, m := range output.Messages {
		entries = append(entries, envelope.FromSQS(m))
	}
	return entries, nil
}

// Send publishes body to queueURL.
func (c *Client) Send(ctx context.Context, queueURL, body string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if strings.TrimSpace(queueURL) == "" {
		return errors.New("queue: queue url is empty")
	}
	if body == "" {
		return errors.New("queue: body cannot be empty")
	}

	input := &sqs.SendMessageInput{
		QueueUrl:    aws.String(queueURL),
		MessageBody: aws.String(body),
	}

	if _, err := c.api.SendMessage(ctx, input); err != nil {
		return fmt.Errorf("failed to send SQS message: %w", err)
	}

	return nil
}

// Delete removes the entry identified by receiptHandle from queueURL.
func (c *Client) Delete(ctx context.Context, queueURL, receiptHandle string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if strings.TrimSpace(queueURL) == "" {
		return errors.New("queue: queue url is empty")
	}
	if receiptHandle == "" {
		return errors.New("queue: receipt handle cannot be empty")
	}

	input := &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(queueURL),
		ReceiptHandle: aws.String(receiptHandle),
	}

	if _, err := c.api.DeleteMessage(ctx, input); err != nil {
		return fmt.Errorf("failed to delete SQS message: %w", err)
	}

	c.logger.Debug("SQS message deleted", map[string]any{"queue_url": queueURL})

	return nil
}
