package queue

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

const testQueueURL = "https://sqs.us-east-1.amazonaws.com/123456789012/orders-bulktq"

func messages(prefix string, n int) []sqstypes.Message {
	out := make([]sqstypes.Message, 0, n)
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("%s-%d", prefix, i)
		out = append(out, sqstypes.Message{
			MessageId:     aws.String(id),
			Body:          aws.String(`{"Message":"` + id + `"}`),
			ReceiptHandle: aws.String("rh-" + id),
		})
	}
	return out
}

func TestPlanChunks(t *testing.T) {
	require.Nil(t, PlanChunks(0, 10))
	require.Nil(t, PlanChunks(-3, 10))
	require.Nil(t, PlanChunks(5, 0))
	require.Equal(t, []int{7}, PlanChunks(7, 10))
	require.Equal(t, []int{10}, PlanChunks(10, 10))
	require.Equal(t, []int{10, 10, 3}, PlanChunks(23, 10))
	require.Equal(t, []int{3, 3, 1}, PlanChunks(7, 3))
}

func TestProperty_PlanChunks(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		budget := rapid.IntRange(0, 500).Draw(t, "budget")
		plan := PlanChunks(budget, MaxChunkSize)

		want := (budget + MaxChunkSize - 1) / MaxChunkSize
		if len(plan) != want {
			t.Fatalf("budget %d: got %d chunks, want %d", budget, len(plan), want)
		}

		sum := 0
		for _, size := range plan {
			if size < 1 || size > MaxChunkSize {
				t.Fatalf("budget %d: chunk size %d out of range", budget, size)
			}
			sum += size
		}
		if sum != budget {
			t.Fatalf("budget %d: chunks sum to %d", budget, sum)
		}
	})
}

func TestNew_ValidatesOptions(t *testing.T) {
	_, err := New(nil)
	require.Error(t, err)

	api := &mockSQSClient{}
	_, err = New(api, WithChunkSize(11))
	require.Error(t, err)
	_, err = New(api, WithChunkSize(0))
	require.Error(t, err)
	_, err = New(api, WithWaitTime(21))
	require.Error(t, err)
	_, err = New(api, WithVisibilityTimeout(-1))
	require.Error(t, err)

	client, err := New(api, nil, WithMessageAttributeNames("tenant"))
	require.NoError(t, err)
	require.Equal(t, []string{"tenant"}, client.opts.messageAttributeNames)
}

func TestFetch_ChunksBudgetAndMerges(t *testing.T) {
	var calls atomic.Int32
	api := &mockSQSClient{
		receiveMessageFunc: func(_ context.Context, input *sqs.ReceiveMessageInput) (*sqs.ReceiveMessageOutput, error) {
			n := calls.Add(1)
			return &sqs.ReceiveMessageOutput{Messages: messages(fmt.Sprintf("c%d", n), int(input.MaxNumberOfMessages))}, nil
		},
	}

	client, err := New(api)
	require.NoError(t, err)

	entries, err := client.Fetch(context.Background(), 23, testQueueURL)
	require.NoError(t, err)
	require.Len(t, entries, 23)

	inputs := api.receiveCalls()
	require.Len(t, inputs, 3)

	sizes := make([]int, 0, len(inputs))
	for _, in := range inputs {
		sizes = append(sizes, int(in.MaxNumberOfMessages))
		require.Equal(t, testQueueURL, aws.ToString(in.QueueUrl))
		require.Equal(t, int32(900), in.VisibilityTimeout)
		require.Equal(t, int32(10), in.WaitTimeSeconds)
	}
	sort.Ints(sizes)
	require.Equal(t, []int{3, 10, 10}, sizes)

	seen := map[string]bool{}
	for _, e := range entries {
		require.False(t, seen[e.MessageID], "duplicate entry %s", e.MessageID)
		seen[e.MessageID] = true
		require.Equal(t, "rh-"+e.MessageID, e.ReceiptHandle)
	}
}

func TestFetch_IssuesChunksConcurrently(t *testing.T) {
	const budget = 23
	chunks := (budget + MaxChunkSize - 1) / MaxChunkSize

	var arrived sync.WaitGroup
	arrived.Add(chunks)
	all := make(chan struct{})
	go func() {
		arrived.Wait()
		close(all)
	}()

	var calls atomic.Int32
	api := &mockSQSClient{
		receiveMessageFunc: func(_ context.Context, input *sqs.ReceiveMessageInput) (*sqs.ReceiveMessageOutput, error) {
			n := calls.Add(1)
			arrived.Done()
			select {
			case <-all:
			case <-time.After(5 * time.Second):
				return nil, errors.New("receive requests were issued one at a time")
			}
			return &sqs.ReceiveMessageOutput{Messages: messages(fmt.Sprintf("c%d", n), int(input.MaxNumberOfMessages))}, nil
		},
	}

	client, err := New(api)
	require.NoError(t, err)

	entries, err := client.Fetch(context.Background(), budget, testQueueURL)
	require.NoError(t, err)
	require.Len(t, entries, budget)
	require.Len(t, api.receiveCalls(), chunks)
}

func TestFetch_ToleratesUnderSupply(t *testing.T) {
	var calls atomic.Int32
	api := &mockSQSClient{
		receiveMessageFunc: func(_ context.Context, input *sqs.ReceiveMessageInput) (*sqs.ReceiveMessageOutput, error) {
			n := calls.Add(1)
			if n == 1 {
				return &sqs.ReceiveMessageOutput{}, nil
			}
			return &sqs.ReceiveMessageOutput{Messages: messages(fmt.Sprintf("c%d", n), int(input.MaxNumberOfMessages)-1)}, nil
		},
	}

	client, err := New(api)
	require.NoError(t, err)

	entries, err := client.Fetch(context.Background(), 23, testQueueURL)
	require.NoError(t, err)
	require.Less(t, len(entries), 23)
	require.Len(t, api.receiveCalls(), 3)
}

func TestFetch_ZeroBudgetIssuesNoRequests(t *testing.T) {
	api := &mockSQSClient{}
	client, err := New(api)
	require.NoError(t, err)

	entries, err := client.Fetch(context.Background(), 0, testQueueURL)
	require.NoError(t, err)
	require.Empty(t, entries)
	require.Empty(t, api.receiveCalls())
}

func TestFetch_PropagatesBackendError(t *testing.T) {
	boom := errors.New("throttled")
	api := &mockSQSClient{
		receiveMessageFunc: func(_ context.Context, input *sqs.ReceiveMessageInput) (*sqs.ReceiveMessageOutput, error) {
			if input.MaxNumberOfMessages < 10 {
				return nil, boom
			}
			return &sqs.ReceiveMessageOutput{Messages: messages("ok", 10)}, nil
		},
	}

	client, err := New(api)
	require.NoError(t, err)

	_, err = client.Fetch(context.Background(), 15, testQueueURL)
	require.ErrorIs(t, err, boom)
	require.Len(t, api.receiveCalls(), 2)

	_, err = client.Fetch(context.Background(), 5, " ")
	require.Error(t, err)
}

func TestSendAndDelete(t *testing.T) {
	api := &mockSQSClient{}
	client, err := New(api)
	require.NoError(t, err)

	require.NoError(t, client.Send(context.Background(), testQueueURL, "hello"))
	require.Len(t, api.sendInputs, 1)
	require.Equal(t, "hello", aws.ToString(api.sendInputs[0].MessageBody))

	require.NoError(t, client.Delete(context.Background(), testQueueURL, "rh-1"))
	require.Len(t, api.deleteInputs, 1)
	require.Equal(t, "rh-1", aws.ToString(api.deleteInputs[0].ReceiptHandle))

	require.Error(t, client.Send(context.Background(), "", "hello"))
	require.Error(t, client.Send(context.Background(), testQueueURL, ""))
	require.Error(t, client.Delete(context.Background(), testQueueURL, ""))
	require.Error(t, client.Delete(context.Background(), "", "rh"))

	boom := errors.New("denied")
	api.sendMessageFunc = func(context.Context, *sqs.SendMessageInput) (*sqs.SendMessageOutput, error) { return nil, boom }
	api.deleteMessageFunc = func(context.Context, *sqs.DeleteMessageInput) (*sqs.DeleteMessageOutput, error) { return nil, boom }
	require.ErrorIs(t, client.Send(context.Background(), testQueueURL, "x"), boom)
	require.ErrorIs(t, client.Delete(context.Background(), testQueueURL, "rh"), boom)
}
