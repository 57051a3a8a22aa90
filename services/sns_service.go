package services

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
)

// Publisher sends one fan-out message to a pub/sub topic.
type Publisher interface {
	Publish(ctx context.Context, topicARN, message string) error
}

// SNSService publishes messages to an SNS topic.
type SNSService struct {
	Client *sns.Client
}

// InitializeSNSClient initializes the SNS client.
func InitializeSNSClient(ctx context.Context, region string) (*sns.Client, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return sns.NewFromConfig(cfg), nil
}

func (ss *SNSService) Publish(ctx context.Context, topicARN, message string) error {
	_, err := ss.Client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(topicARN),
		Message:  aws.String(message),
	})
	if err != nil {
		return fmt.Errorf("failed to publish message to '%s': %w", topicARN, err)
	}
	return nil
}
