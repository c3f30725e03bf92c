package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/theory-cloud/bulktransition/pkg/envelope"
)

// ProcessFunc handles one decoded message.
type ProcessFunc func(ctx context.Context, msg *envelope.Message) error

// Deleter removes acknowledged entries from a queue.
type Deleter interface {
	Delete(ctx context.Context, queueURL, receiptHandle string) error
}

// Sender publishes bodies to a queue.
type Sender interface {
	Send(ctx context.Context, queueURL, body string) error
}

// AckOnSuccess wraps fn so the entry is deleted from queueURL once fn succeeds.
// A failed fn leaves the entry in place; it becomes visible again after its visibility timeout.
func AckOnSuccess(deleter Deleter, queueURL string, fn ProcessFunc) ProcessFunc {
	return func(ctx context.Context, msg *envelope.Message) error {
		if fn == nil {
			return errors.New("queue: process func is nil")
		}
		if err := fn(ctx, msg); err != nil {
			return err
		}
		if msg == nil || msg.ReceiptHandle == "" {
			return errors.New("queue: message has no receipt handle")
		}
		return deleter.Delete(ctx, queueURL, msg.ReceiptHandle)
	}
}

// forwardedMessage is the body Forward sends to the target queue.
type forwardedMessage struct {
	MessageID  string         `json:"message_id,omitempty"`
	Payload    any            `json:"payload"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// Forward returns a ProcessFunc that re-sends the decoded message to targetQueueURL.
func Forward(sender Sender, targetQueueURL string) ProcessFunc {
	return func(ctx context.Context, msg *envelope.Message) error {
		if msg == nil {
			return errors.New("queue: message is nil")
		}
		body, err := json.Marshal(forwardedMessage{
			MessageID:  msg.MessageID,
			Payload:    msg.Payload,
			Attributes: msg.Attributes,
		})
		if err != nil {
			return fmt.Errorf("failed to encode forwarded message: %w", err)
		}
		return sender.Send(ctx, targetQueueURL, string(body))
	}
}
