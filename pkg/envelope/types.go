package envelope

import (
	"errors"
	"fmt"
)

// Attribute is a typed attribute as carried by SNS envelopes and SQS message attributes.
type Attribute struct {
	Type  string `json:"Type"`
	Value string `json:"Value"`
}

// Entry is a raw queue entry, independent of the SDK shape it was received in.
type Entry struct {
	MessageID     string
	Body          string
	ReceiptHandle string

	// Attributes are queue-level message attributes. They are only consulted when the
	// envelope itself carries none.
	Attributes map[string]Attribute
}

// Message is a decoded queue entry.
type Message struct {
	MessageID     string         `json:"message_id,omitempty"`
	Payload       any            `json:"payload"`
	Attributes    map[string]any `json:"attributes"`
	ReceiptHandle string         `json:"-"`
}

const (
	attributeTypeString = "String"
	attributeTypeNumber = "Number"
)

// ErrMalformedEnvelope matches every *MalformedEnvelopeError via errors.Is.
var ErrMalformedEnvelope = errors.New("envelope: malformed envelope")

// MalformedEnvelopeError reports a queue entry whose body or attributes could not be decoded.
type MalformedEnvelopeError struct {
	MessageID string
	Reason    string
	Cause     error
}

func (e *MalformedEnvelopeError) Error() string {
	if e == nil {
		return ErrMalformedEnvelope.Error()
	}
	msg := "envelope: " + e.Reason
	if e.MessageID != "" {
		msg = fmt.Sprintf("envelope: message %s: %s", e.MessageID, e.Reason)
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *MalformedEnvelopeError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

func (e *MalformedEnvelopeError) Is(target error) bool {
	return target == ErrMalformedEnvelope
}

func malformed(entry Entry, reason string, cause error) *MalformedEnvelopeError {
	return &MalformedEnvelopeError{MessageID: entry.MessageID, Reason: reason, Cause: cause}
}
