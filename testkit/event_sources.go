package testkit

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/aws"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

// SNSAttribute is one MessageAttributes value in an SNS notification.
type SNSAttribute struct {
	Type  string `json:"Type"`
	Value string `json:"Value"`
}

type SNSEnvelopeOptions struct {
	MessageID  string
	TopicARN   string
	Subject    string
	Timestamp  time.Time
	Attributes map[string]SNSAttribute
}

// SNSEnvelope returns the JSON body SNS delivers to a subscribed queue. A string
// payload is used as the Message verbatim; anything else is JSON-encoded into it.
func SNSEnvelope(payload any, opts SNSEnvelopeOptions) string {
	message, ok := payload.(string)
	if !ok {
		b, err := json.Marshal(payload)
		if err != nil {
			panic(fmt.Sprintf("testkit: encode sns payload: %v", err))
		}
		message = string(b)
	}

	id := strings.TrimSpace(opts.MessageID)
	if id == "" {
		id = "sns-1"
	}
	topicARN := strings.TrimSpace(opts.TopicARN)
	if topicARN == "" {
		topicARN = "arn:aws:sns:us-east-1:000000000000:bulk-topic"
	}
	ts := opts.Timestamp
	if ts.IsZero() {
		ts = time.Unix(0, 0).UTC()
	}

	body := map[string]any{
		"Type":      "Notification",
		"MessageId": id,
		"TopicArn":  topicARN,
		"Message":   message,
		"Timestamp": ts.Format(time.RFC3339Nano),
	}
	if opts.Subject != "" {
		body["Subject"] = opts.Subject
	}
	if len(opts.Attributes) > 0 {
		body["MessageAttributes"] = opts.Attributes
	}

	b, err := json.Marshal(body)
	if err != nil {
		panic(fmt.Sprintf("testkit: encode sns envelope: %v", err))
	}
	return string(b)
}

// SQSMessage builds an SDK queue message with a receipt handle derived from the ID.
func SQSMessage(id, body string) sqstypes.Message {
	return sqstypes.Message{
		MessageId:     aws.String(id),
		Body:          aws.String(body),
		ReceiptHandle: aws.String("rh-" + id),
	}
}

type SQSEventOptions struct {
	QueueARN string
	Records  []SQSMessageOptions
}

type SQSMessageOptions struct {
	MessageID         string
	Body              string
	EventSourceARN    string
	MessageAttributes map[string]events.SQSMessageAttribute
}

func SQSEvent(opts SQSEventOptions) events.SQSEvent {
	queueARN := strings.TrimSpace(opts.QueueARN)
	out := events.SQSEvent{Records: make([]events.SQSMessage, 0, len(opts.Records))}
	for _, rec := range opts.Records {
		id := strings.TrimSpace(rec.MessageID)
		if id == "" {
			id = fmt.Sprintf("msg-%d", len(out.Records)+1)
		}
		arn := strings.TrimSpace(rec.EventSourceARN)
		if arn == "" {
			arn = queueARN
		}
		out.Records = append(out.Records, events.SQSMessage{
			MessageId:         id,
			ReceiptHandle:     "rh-" + id,
			Body:              rec.Body,
			EventSource:       "aws:sqs",
			EventSourceARN:    arn,
			MessageAttributes: rec.MessageAttributes,
		})
	}
	return out
}

type EventBridgeEventOptions struct {
	ID         string
	Source     string
	DetailType string
	Resources  []string
	Detail     any
	Time       time.Time
	Region     string
	AccountID  string
}

// EventBridgeEvent builds a scheduled-rule event unless overridden.
func EventBridgeEvent(opts EventBridgeEventOptions) events.EventBridgeEvent {
	id := strings.TrimSpace(opts.ID)
	if id == "" {
		id = "evt-1"
	}
	source := strings.TrimSpace(opts.Source)
	if source == "" {
		source = "aws.events"
	}
	detailType := strings.TrimSpace(opts.DetailType)
	if detailType == "" {
		detailType = "Scheduled Event"
	}
	region := strings.TrimSpace(opts.Region)
	if region == "" {
		region = "us-east-1"
	}
	accountID := strings.TrimSpace(opts.AccountID)
	if accountID == "" {
		accountID = "000000000000"
	}
	eventTime := opts.Time
	if eventTime.IsZero() {
		eventTime = time.Unix(0, 0).UTC()
	}

	detail := json.RawMessage("{}")
	if opts.Detail != nil {
		if b, err := json.Marshal(opts.Detail); err == nil {
			detail = b
		}
	}

	return events.EventBridgeEvent{
		Version:    "0",
		ID:         id,
		DetailType: detailType,
		Source:     source,
		AccountID:  accountID,
		Time:       eventTime,
		Region:     region,
		Resources:  append([]string(nil), opts.Resources...),
		Detail:     detail,
	}
}
