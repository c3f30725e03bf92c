package testkit

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

// ReceiveCall records one ReceiveMessage request.
type ReceiveCall struct {
	QueueURL                 string
	MaxNumberOfMessages      int32
	VisibilityTimeoutSeconds int32
	WaitTimeSeconds          int32
	Returned                 int
}

type SendCall struct {
	QueueURL string
	Body     string
}

type DeleteCall struct {
	QueueURL      string
	ReceiptHandle string
}

// FakeSQSClient is an in-memory queue backend. Received messages leave the queue,
// as if their visibility window never lapses.
type FakeSQSClient struct {
	mu sync.Mutex

	queues map[string][]sqstypes.Message

	ReceiveCalls []ReceiveCall
	SendCalls    []SendCall
	DeleteCalls  []DeleteCall

	ReceiveErr error
	SendErr    error
	DeleteErr  error

	// MaxPerReceive caps each response below the requested size when positive.
	MaxPerReceive int

	nextID int
}

func NewFakeSQSClient() *FakeSQSClient {
	return &FakeSQSClient{
		queues: map[string][]sqstypes.Message{},
		nextID: 1,
	}
}

// Enqueue appends messages to a queue.
func (f *FakeSQSClient) Enqueue(queueURL string, msgs ...sqstypes.Message) {
	f.mu.Lock()
	f.queues[queueURL] = append(f.queues[queueURL], msgs...)
	f.mu.Unlock()
}

// Depth returns the number of messages waiting on a queue.
func (f *FakeSQSClient) Depth(queueURL string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queues[queueURL])
}

func (f *FakeSQSClient) Receives() []ReceiveCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]ReceiveCall(nil), f.ReceiveCalls...)
}

func (f *FakeSQSClient) Sends() []SendCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]SendCall(nil), f.SendCalls...)
}

func (f *FakeSQSClient) Deletes() []DeleteCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]DeleteCall(nil), f.DeleteCalls...)
}

func (f *FakeSQSClient) ReceiveMessage(
	_ context.Context,
	params *sqs.ReceiveMessageInput,
	_ ...func(*sqs.Options),
) (*sqs.ReceiveMessageOutput, error) {
	if f == nil {
		return nil, errors.New("testkit: sqs client is nil")
	}
	if params == nil {
		return nil, errors.New("testkit: receive input is nil")
	}
	queueURL := strings.TrimSpace(aws.ToString(params.QueueUrl))

	f.mu.Lock()
	defer f.mu.Unlock()

	call := ReceiveCall{
		QueueURL:                 queueURL,
		MaxNumberOfMessages:      params.MaxNumberOfMessages,
		VisibilityTimeoutSeconds: params.VisibilityTimeout,
		WaitTimeSeconds:          params.WaitTimeSeconds,
	}
	if f.ReceiveErr != nil {
		f.ReceiveCalls = append(f.ReceiveCalls, call)
		return nil, f.ReceiveErr
	}

	n := int(params.MaxNumberOfMessages)
	if f.MaxPerReceive > 0 && n > f.MaxPerReceive {
		n = f.MaxPerReceive
	}
	pending := f.queues[queueURL]
	if n > len(pending) {
		n = len(pending)
	}
	out := append([]sqstypes.Message(nil), pending[:n]...)
	f.queues[queueURL] = pending[n:]

	call.Returned = n
	f.ReceiveCalls = append(f.ReceiveCalls, call)
	return &sqs.ReceiveMessageOutput{Messages: out}, nil
}

func (f *FakeSQSClient) SendMessage(
	_ context.Context,
	params *sqs.SendMessageInput,
	_ ...func(*sqs.Options),
) (*sqs.SendMessageOutput, error) {
	if f == nil {
		return nil, errors.New("testkit: sqs client is nil")
	}
	if params == nil {
		return nil, errors.New("testkit: send input is nil")
	}
	queueURL := strings.TrimSpace(aws.ToString(params.QueueUrl))
	body := aws.ToString(params.MessageBody)

	f.mu.Lock()
	defer f.mu.Unlock()

	f.SendCalls = append(f.SendCalls, SendCall{QueueURL: queueURL, Body: body})
	if f.SendErr != nil {
		return nil, f.SendErr
	}

	id := "sent-" + strconv.Itoa(f.nextID)
	f.nextID++
	f.queues[queueURL] = append(f.queues[queueURL], SQSMessage(id, body))
	return &sqs.SendMessageOutput{MessageId: aws.String(id)}, nil
}

func (f *FakeSQSClient) DeleteMessage(
	_ context.Context,
	params *sqs.DeleteMessageInput,
	_ ...func(*sqs.Options),
) (*sqs.DeleteMessageOutput, error) {
	if f == nil {
		return nil, errors.New("testkit: sqs client is nil")
	}
	if params == nil {
		return nil, errors.New("testkit: delete input is nil")
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.DeleteCalls = append(f.DeleteCalls, DeleteCall{
		QueueURL:      strings.TrimSpace(aws.ToString(params.QueueUrl)),
		ReceiptHandle: aws.ToString(params.ReceiptHandle),
	})
	if f.DeleteErr != nil {
		return nil, f.DeleteErr
	}
	return &sqs.DeleteMessageOutput{}, nil
}
