package envelope

import (
	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/aws"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

// FromSQS converts a message returned by the SQS ReceiveMessage API.
func FromSQS(msg sqstypes.Message) Entry {
	entry := Entry{
		MessageID:     aws.ToString(msg.MessageId),
		Body:          aws.ToString(msg.Body),
		ReceiptHandle: aws.ToString(msg.ReceiptHandle),
	}
	if len(msg.MessageAttributes) > 0 {
		entry.Attributes = make(map[string]Attribute, len(msg.MessageAttributes))
		for name, attr := range msg.MessageAttributes {
			entry.Attributes[name] = Attribute{
				Type:  aws.ToString(attr.DataType),
				Value: aws.ToString(attr.StringValue),
			}
		}
	}
	return entry
}

// FromLambda converts a record delivered by an SQS Lambda event source mapping.
func FromLambda(msg events.SQSMessage) Entry {
	entry := Entry{
		MessageID:     msg.MessageId,
		Body:          msg.Body,
		ReceiptHandle: msg.ReceiptHandle,
	}
	if len(msg.MessageAttributes) > 0 {
		entry.Attributes = make(map[string]Attribute, len(msg.MessageAttributes))
		for name, attr := range msg.MessageAttributes {
			entry.Attributes[name] = Attribute{
				Type:  attr.DataType,
				Value: aws.ToString(attr.StringValue),
			}
		}
	}
	return entry
}
