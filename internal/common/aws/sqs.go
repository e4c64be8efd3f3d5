// internal/common/aws/sqs.go
package aws

import (
	"context"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

// Message is one received queue message.
type Message struct {
	ID            string
	Body          string
	ReceiptHandle string
}

// SQSClient wraps the SQS client for a single queue.
type SQSClient struct {
	client   *sqs.Client
	queueURL string
}

func NewSQSClient(ctx context.Context, region, queueURL string) (*SQSClient, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, err
	}
	return &SQSClient{client: sqs.NewFromConfig(cfg), queueURL: queueURL}, nil
}

// Send publishes one message body and returns the message id.
func (c *SQSClient) Send(ctx context.Context, body string) (string, error) {
	out, err := c.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    awssdk.String(c.queueURL),
		MessageBody: awssdk.String(body),
	})
	if err != nil {
		return "", err
	}
	return awssdk.ToString(out.MessageId), nil
}

// Receive long-polls the queue for up to max messages.
func (c *SQSClient) Receive(ctx context.Context, max int32, waitSeconds int32) ([]Message, error) {
	out, err := c.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:            awssdk.String(c.queueURL),
		MaxNumberOfMessages: max,
		WaitTimeSeconds:     waitSeconds,
	})
	if err != nil {
		return nil, err
	}
	msgs := make([]Message, 0, len(out.Messages))
	for _, m := range out.Messages {
		msgs = append(msgs, Message{
			ID:            awssdk.ToString(m.MessageId),
			Body:          awssdk.ToString(m.Body),
			ReceiptHandle: awssdk.ToString(m.ReceiptHandle),
		})
	}
	return msgs, nil
}

// Delete removes a consumed message from the queue.
func (c *SQSClient) Delete(ctx context.Context, receiptHandle string) error {
	_, err := c.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      awssdk.String(c.queueURL),
		ReceiptHandle: awssdk.String(receiptHandle),
	})
	return err
}
