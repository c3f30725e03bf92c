package bulktransition

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambdacontext"

	"github.com/theory-cloud/bulktransition/pkg/capacity"
	"github.com/theory-cloud/bulktransition/pkg/envelope"
	"github.com/theory-cloud/bulktransition/pkg/queue"
)

// Handler adapts a Consumer to Lambda triggers.
//
// The scheduled path pulls from the bulk queue itself, so successful entries must be
// deleted there. Records delivered by an SQS event source mapping are deleted by the
// mapping, so ServeSQS calls process without any acknowledgment.
type Handler struct {
	consumer *Consumer
	process  queue.ProcessFunc
	bulk     queue.ProcessFunc
}

type HandlerOption func(*Handler)

// WithBulkAck deletes entries from the consumer's queue once process succeeds on the
// scheduled path.
func WithBulkAck(deleter queue.Deleter) HandlerOption {
	return func(h *Handler) {
		if deleter != nil {
			h.bulk = queue.AckOnSuccess(deleter, h.consumer.queueURL, h.process)
		}
	}
}

func NewHandler(consumer *Consumer, process queue.ProcessFunc, opts ...HandlerOption) (*Handler, error) {
	if consumer == nil {
		return nil, errors.New("bulk transition: nil consumer")
	}
	if process == nil {
		return nil, errors.New(errorMessageNilProcess)
	}

	h := &Handler{consumer: consumer, process: process, bulk: process}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h, nil
}

// HandleScheduledEvent runs one bulk invocation for a timer trigger.
func (h *Handler) HandleScheduledEvent(ctx context.Context, event events.EventBridgeEvent) (string, error) {
	defer h.flush(ctx)

	report, err := h.consumer.run(ctx, h.invocationID(ctx), h.bulk)
	if err != nil {
		return "", err
	}
	h.consumer.logger.Debug("scheduled event handled", map[string]any{
		"invocation_id": report.InvocationID,
		"event_id":      event.ID,
		"detail_type":   event.DetailType,
	})
	return report.Status(), nil
}

// ServeSQS processes records delivered directly by an SQS event source mapping.
//
// Records beyond the direct allowance, and records that fail to decode or process,
// are returned as batch item failures so SQS redelivers them.
func (h *Handler) ServeSQS(ctx context.Context, event events.SQSEvent) events.SQSEventResponse {
	if ctx == nil {
		ctx = context.Background()
	}
	defer h.flush(ctx)

	c := h.consumer
	log := c.logger.WithInvocationID(h.invocationID(ctx))

	failures := make([]events.SQSBatchItemFailure, 0)
	failAll := func(records []events.SQSMessage) {
		for _, record := range records {
			if id := strings.TrimSpace(record.MessageId); id != "" {
				failures = append(failures, events.SQSBatchItemFailure{ItemIdentifier: id})
			}
		}
	}

	allowance, err := h.directAllowance(ctx)
	if err != nil {
		log.Error("capacity check failed", map[string]any{"error": err})
		failAll(event.Records)
		return events.SQSEventResponse{BatchItemFailures: failures}
	}

	allowance = max(allowance, 0)
	admitted := event.Records
	if len(admitted) > allowance {
		admitted = admitted[:allowance]
	}
	failAll(event.Records[len(admitted):])

	if len(admitted) == 0 {
		log.Warn("no capacity available", map[string]any{"records": len(event.Records)})
		return events.SQSEventResponse{BatchItemFailures: failures}
	}

	if err := c.gate.RecordUsage(ctx, c.service, len(admitted)); err != nil {
		log.Error("record usage failed", map[string]any{"error": err})
		failAll(admitted)
		return events.SQSEventResponse{BatchItemFailures: failures}
	}

	entries := make([]envelope.Entry, len(admitted))
	for i, record := range admitted {
		entries[i] = envelope.FromLambda(record)
	}

	errs := dispatch(ctx, entries, h.process)
	for i, err := range errs {
		if err == nil {
			continue
		}
		log.Warn("record failed", failureFields(entries[i], err))
		failAll(admitted[i : i+1])
	}

	log.Info("sqs batch handled", map[string]any{
		"records":   len(event.Records),
		"admitted":  len(admitted),
		"allowance": allowance,
		"failed":    len(failures),
	})
	return events.SQSEventResponse{BatchItemFailures: failures}
}

type lambdaEnvelope struct {
	Records    json.RawMessage `json:"Records"`
	DetailType *string         `json:"detail-type"`
}

// HandleLambda routes an untyped Lambda event: SQS records go to ServeSQS, anything
// else is treated as a scheduled trigger.
func (h *Handler) HandleLambda(ctx context.Context, event json.RawMessage) (any, error) {
	if h == nil {
		return nil, errors.New("bulk transition: nil handler")
	}
	if len(bytes.TrimSpace(event)) == 0 {
		return nil, errors.New("bulk transition: empty event")
	}

	var env lambdaEnvelope
	if err := json.Unmarshal(event, &env); err != nil {
		return nil, fmt.Errorf("bulk transition: parse event envelope: %w", err)
	}

	if len(env.Records) > 0 {
		var probes []struct {
			EventSource string `json:"eventSource"`
		}
		if err := json.Unmarshal(env.Records, &probes); err == nil && len(probes) > 0 {
			if strings.TrimSpace(probes[0].EventSource) != "aws:sqs" {
				return nil, fmt.Errorf("bulk transition: unsupported event source %q", probes[0].EventSource)
			}
			var sqsEvent events.SQSEvent
			if err := json.Unmarshal(event, &sqsEvent); err != nil {
				return nil, fmt.Errorf("bulk transition: parse sqs event: %w", err)
			}
			return h.ServeSQS(ctx, sqsEvent), nil
		}
	}

	var scheduled events.EventBridgeEvent
	if env.DetailType != nil {
		if err := json.Unmarshal(event, &scheduled); err != nil {
			return nil, fmt.Errorf("bulk transition: parse eventbridge event: %w", err)
		}
	}
	return h.HandleScheduledEvent(ctx, scheduled)
}

func (h *Handler) directAllowance(ctx context.Context) (int, error) {
	if direct, ok := h.consumer.gate.(capacity.DirectGate); ok {
		return direct.Allowance(ctx, h.consumer.service, false)
	}
	return h.consumer.gate.Available(ctx, h.consumer.service)
}

// flush delivers pending error alerts before the Lambda sandbox freezes.
func (h *Handler) flush(ctx context.Context) {
	if err := h.consumer.logger.Flush(ctx); err != nil {
		h.consumer.logger.Debug("log flush incomplete", map[string]any{"error": err})
	}
}

func (h *Handler) invocationID(ctx context.Context) string {
	if ctx != nil {
		if lc, ok := lambdacontext.FromContext(ctx); ok {
			if id := strings.TrimSpace(lc.AwsRequestID); id != "" {
				return id
			}
		}
	}
	return h.consumer.ids.NewID()
}
