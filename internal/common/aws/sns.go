// internal/common/aws/sns.go
package aws

import (
	"context"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
)

// SNSClient wraps the SNS client for a single topic.
type SNSClient struct {
	client   *sns.Client
	topicARN string
}

func NewSNSClient(ctx context.Context, region, topicARN string) (*SNSClient, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, err
	}
	return &SNSClient{client: sns.NewFromConfig(cfg), topicARN: topicARN}, nil
}

// Publish sends one notification to the topic.
func (c *SNSClient) Publish(ctx context.Context, subject, message string) error {
	_, err := c.client.Publish(ctx, &sns.PublishInput{
		TopicArn: awssdk.String(c.topicARN),
		Subject:  awssdk.String(subject),
		Message:  awssdk.String(message),
	})
	return err
}
