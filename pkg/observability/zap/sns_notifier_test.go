package zap

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/require"

	"github.com/theory-cloud/bulktransition/pkg/observability"
)

const alertTopic = "arn:aws:sns:us-east-1:000000000000:bulk-alerts"

type publishRecorder struct {
	inputs []*sns.PublishInput
	err    error
}

func (p *publishRecorder) Publish(_ context.Context, params *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
	p.inputs = append(p.inputs, params)
	if p.err != nil {
		return nil, p.err
	}
	return &sns.PublishOutput{MessageId: aws.String("m-1")}, nil
}

func decodeAlert(t *testing.T, input *sns.PublishInput) alertMessage {
	t.Helper()
	var msg alertMessage
	require.NoError(t, json.Unmarshal([]byte(aws.ToString(input.Message)), &msg))
	return msg
}

func TestSNSNotifier_PublishesAlertDocument(t *testing.T) {
	t.Setenv("AWS_LAMBDA_FUNCTION_NAME", "payments-bulk-transition")
	t.Setenv("AWS_REGION", "us-east-1")

	client := &publishRecorder{}
	notifier := NewSNSNotifier(client, "  "+alertTopic+"  ", SNSNotifierOptions{})

	at := time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)
	err := notifier.Notify(context.Background(), observability.LogEntry{
		Timestamp:    at,
		Level:        levelError,
		Message:      "bulk transition failed",
		Fields:       map[string]any{"stage": "fetch"},
		InvocationID: "inv-1",
		Service:      "payments",
	})
	require.NoError(t, err)
	require.Len(t, client.inputs, 1)

	input := client.inputs[0]
	require.Equal(t, alertTopic, aws.ToString(input.TopicArn))
	require.Equal(t, "bulk transition error: payments", aws.ToString(input.Subject))

	msg := decodeAlert(t, input)
	require.Equal(t, "payments", msg.Service)
	require.Equal(t, "inv-1", msg.InvocationID)
	require.Equal(t, "bulk transition failed", msg.Message)
	require.True(t, at.Equal(msg.Timestamp))
	require.Equal(t, map[string]any{"stage": "fetch"}, msg.Fields)
	require.Equal(t, "payments-bulk-transition", msg.Function)
	require.Equal(t, "us-east-1", msg.Region)
	require.False(t, msg.Truncated)
}

func TestSNSNotifier_SubjectIsSanitizedAndBounded(t *testing.T) {
	client := &publishRecorder{}

	custom := NewSNSNotifier(client, alertTopic, SNSNotifierOptions{Subject: "line1\r\nline2"})
	require.NoError(t, custom.Notify(context.Background(), observability.LogEntry{Service: "payments"}))
	require.Equal(t, "line1line2", aws.ToString(client.inputs[0].Subject))

	long := NewSNSNotifier(client, alertTopic, SNSNotifierOptions{})
	require.NoError(t, long.Notify(context.Background(), observability.LogEntry{Service: strings.Repeat("s", 200)}))
	require.LessOrEqual(t, len(aws.ToString(client.inputs[1].Subject)), maxSubjectLength)
}

func TestSNSNotifier_OversizedFieldsAreDropped(t *testing.T) {
	client := &publishRecorder{}
	notifier := NewSNSNotifier(client, alertTopic, SNSNotifierOptions{})

	err := notifier.Notify(context.Background(), observability.LogEntry{
		Message: "message failed",
		Service: "payments",
		Fields:  map[string]any{"body": strings.Repeat("x", 300*1024)},
	})
	require.NoError(t, err)

	body := aws.ToString(client.inputs[0].Message)
	require.LessOrEqual(t, len(body), maxMessageBytes)

	msg := decodeAlert(t, client.inputs[0])
	require.True(t, msg.Truncated)
	require.Nil(t, msg.Fields)
	require.Equal(t, "message failed", msg.Message)
}

func TestSNSNotifier_Errors(t *testing.T) {
	var nilNotifier *snsNotifier
	require.Error(t, nilNotifier.Notify(context.Background(), observability.LogEntry{}))

	require.ErrorContains(t,
		NewSNSNotifier(&publishRecorder{}, " ", SNSNotifierOptions{}).Notify(context.Background(), observability.LogEntry{}),
		"topic arn is empty")

	cause := errors.New("throttled")
	err := NewSNSNotifier(&publishRecorder{err: cause}, alertTopic, SNSNotifierOptions{}).
		Notify(context.Background(), observability.LogEntry{})
	require.ErrorIs(t, err, cause)
}
