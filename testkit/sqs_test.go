package testkit

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/stretchr/testify/require"
)

func TestFakeSQSClient_ReceiveSendDelete(t *testing.T) {
	const q = "https://q/1/svc-bulktq"
	client := NewFakeSQSClient()
	client.Enqueue(q, SQSMessage("a", "1"), SQSMessage("b", "2"), SQSMessage("c", "3"))

	out, err := client.ReceiveMessage(context.Background(), &sqs.ReceiveMessageInput{
		QueueUrl:            aws.String(q),
		MaxNumberOfMessages: 2,
		VisibilityTimeout:   900,
		WaitTimeSeconds:     10,
	})
	require.NoError(t, err)
	require.Len(t, out.Messages, 2)
	require.Equal(t, "rh-a", aws.ToString(out.Messages[0].ReceiptHandle))
	require.Equal(t, 1, client.Depth(q))
	require.Equal(t, []ReceiveCall{{QueueURL: q, MaxNumberOfMessages: 2, VisibilityTimeoutSeconds: 900, WaitTimeSeconds: 10, Returned: 2}}, client.Receives())

	client.MaxPerReceive = 0
	out, err = client.ReceiveMessage(context.Background(), &sqs.ReceiveMessageInput{QueueUrl: aws.String(q), MaxNumberOfMessages: 10})
	require.NoError(t, err)
	require.Len(t, out.Messages, 1)

	_, err = client.SendMessage(context.Background(), &sqs.SendMessageInput{QueueUrl: aws.String(q), MessageBody: aws.String("x")})
	require.NoError(t, err)
	require.Equal(t, []SendCall{{QueueURL: q, Body: "x"}}, client.Sends())
	require.Equal(t, 1, client.Depth(q))

	_, err = client.DeleteMessage(context.Background(), &sqs.DeleteMessageInput{QueueUrl: aws.String(q), ReceiptHandle: aws.String("rh-a")})
	require.NoError(t, err)
	require.Equal(t, []DeleteCall{{QueueURL: q, ReceiptHandle: "rh-a"}}, client.Deletes())
}

func TestFakeSQSClient_MaxPerReceiveAndErrors(t *testing.T) {
	const q = "https://q/1/svc-bulktq"
	client := NewFakeSQSClient()
	client.MaxPerReceive = 1
	client.Enqueue(q, SQSMessage("a", "1"), SQSMessage("b", "2"))

	out, err := client.ReceiveMessage(context.Background(), &sqs.ReceiveMessageInput{QueueUrl: aws.String(q), MaxNumberOfMessages: 10})
	require.NoError(t, err)
	require.Len(t, out.Messages, 1)

	boom := errors.New("boom")
	client.ReceiveErr = boom
	client.SendErr = boom
	client.DeleteErr = boom

	_, err = client.ReceiveMessage(context.Background(), &sqs.ReceiveMessageInput{QueueUrl: aws.String(q)})
	require.ErrorIs(t, err, boom)
	_, err = client.SendMessage(context.Background(), &sqs.SendMessageInput{QueueUrl: aws.String(q)})
	require.ErrorIs(t, err, boom)
	_, err = client.DeleteMessage(context.Background(), &sqs.DeleteMessageInput{QueueUrl: aws.String(q)})
	require.ErrorIs(t, err, boom)

	_, err = client.ReceiveMessage(context.Background(), nil)
	require.Error(t, err)
	var nilClient *FakeSQSClient
	_, err = nilClient.SendMessage(context.Background(), &sqs.SendMessageInput{})
	require.Error(t, err)
}
