package zap

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"

	"github.com/theory-cloud/bulktransition/pkg/observability"
	"github.com/theory-cloud/bulktransition/pkg/sanitization"
)

const (
	defaultAlertSubject = "bulk transition error"

	// SNS limits.
	maxSubjectLength = 100
	maxMessageBytes  = 256 * 1024
)

type snsAPI interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

type SNSNotifierOptions struct {
	// Subject overrides "bulk transition error: <service>".
	Subject string
}

// alertMessage is the JSON document published for each error entry.
type alertMessage struct {
	Service      string         `json:"service,omitempty"`
	InvocationID string         `json:"invocation_id,omitempty"`
	RequestID    string         `json:"request_id,omitempty"`
	Message      string         `json:"message"`
	Timestamp    time.Time      `json:"timestamp"`
	Fields       map[string]any `json:"fields,omitempty"`
	Truncated    bool           `json:"fields_truncated,omitempty"`

	Function string `json:"function,omitempty"`
	Region   string `json:"region,omitempty"`
}

type snsNotifier struct {
	client   snsAPI
	topicARN string
	subject  string
}

var _ observability.ErrorNotifier = (*snsNotifier)(nil)

func NewSNSNotifier(client snsAPI, topicARN string, opts SNSNotifierOptions) observability.ErrorNotifier {
	return &snsNotifier{
		client:   client,
		topicARN: strings.TrimSpace(topicARN),
		subject:  strings.TrimSpace(opts.Subject),
	}
}

// Notify publishes entry to the topic. Fields are omitted when the document would
// exceed the SNS message size limit.
func (n *snsNotifier) Notify(ctx context.Context, entry observability.LogEntry) error {
	if n == nil || n.client == nil {
		return errors.New("observability/zap: sns notifier is nil")
	}
	if n.topicARN == "" {
		return errors.New("observability/zap: sns topic arn is empty")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	body, err := encodeAlert(entry)
	if err != nil {
		return err
	}

	_, err = n.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(n.topicARN),
		Subject:  aws.String(n.subjectFor(entry)),
		Message:  aws.String(body),
	})
	if err != nil {
		return fmt.Errorf("publish alert: %w", err)
	}
	return nil
}

func (n *snsNotifier) subjectFor(entry observability.LogEntry) string {
	subject := n.subject
	if subject == "" {
		subject = defaultAlertSubject
		if entry.Service != "" {
			subject += ": " + entry.Service
		}
	}
	return sanitization.Truncate(sanitization.SanitizeLogString(subject), maxSubjectLength)
}

func encodeAlert(entry observability.LogEntry) (string, error) {
	msg := alertMessage{
		Service:      entry.Service,
		InvocationID: entry.InvocationID,
		RequestID:    entry.RequestID,
		Message:      entry.Message,
		Timestamp:    entry.Timestamp,
		Fields:       entry.Fields,
		Function:     os.Getenv("AWS_LAMBDA_FUNCTION_NAME"),
		Region:       os.Getenv("AWS_REGION"),
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return "", fmt.Errorf("encode alert: %w", err)
	}
	if len(body) <= maxMessageBytes {
		return string(body), nil
	}

	msg.Fields = nil
	msg.Truncated = true
	msg.Message = sanitization.Truncate(msg.Message, maxMessageBytes/2)
	if body, err = json.Marshal(msg); err != nil {
		return "", fmt.Errorf("encode alert: %w", err)
	}
	return string(body), nil
}
