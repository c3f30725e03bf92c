package queue

import (
	"context"
	"sync"

	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

// mockSQSClient is a mock implementation of the API interface for testing.
type mockSQSClient struct {
	mu sync.Mutex

	receiveInputs []*sqs.ReceiveMessageInput
	sendInputs    []*sqs.SendMessageInput
	deleteInputs  []*sqs.DeleteMessageInput

	receiveMessageFunc func(ctx context.Context, input *sqs.ReceiveMessageInput) (*sqs.ReceiveMessageOutput, error)
	sendMessageFunc    func(ctx context.Context, input *sqs.SendMessageInput) (*sqs.SendMessageOutput, error)
	deleteMessageFunc  func(ctx context.Context, input *sqs.DeleteMessageInput) (*sqs.DeleteMessageOutput, error)
}

func (m *mockSQSClient) ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, _ ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error) {
	m.mu.Lock()
	m.receiveInputs = append(m.receiveInputs, params)
	fn := m.receiveMessageFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, params)
	}
	return &sqs.ReceiveMessageOutput{}, nil
}

func (m *mockSQSClient) SendMessage(ctx context.Context, params *sqs.SendMessageInput, _ ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	m.mu.Lock()
	m.sendInputs = append(m.sendInputs, params)
	fn := m.sendMessageFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, params)
	}
	return &sqs.SendMessageOutput{}, nil
}

func (m *mockSQSClient) DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, _ ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error) {
	m.mu.Lock()
	m.deleteInputs = append(m.deleteInputs, params)
	fn := m.deleteMessageFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, params)
	}
	return &sqs.DeleteMessageOutput{}, nil
}

func (m *mockSQSClient) receiveCalls() []*sqs.ReceiveMessageInput {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*sqs.ReceiveMessageInput(nil), m.receiveInputs...)
}
