package infrastructure

import (
	"context"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/pkg/errors"
)

// AWSConfig selects the region and, for LocalStack, the service endpoints
type AWSConfig struct {
	Region      string
	EndpointSNS string
	EndpointSQS string
}

// LoadAWSConfig loads the default AWS config for the given region
func LoadAWSConfig(ctx context.Context, cfg AWSConfig) (aws.Config, error) {
	var opts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, errors.Wrap(err, "failed to load AWS config")
	}
	return awsCfg, nil
}

// NewSNSClient creates an SNS client, pointed at endpoint when one is set
func NewSNSClient(awsCfg aws.Config, endpoint string) *sns.Client {
	return sns.NewFromConfig(awsCfg, func(o *sns.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})
}

// NewSQSClient creates an SQS client, pointed at endpoint when one is set
func NewSQSClient(awsCfg aws.Config, endpoint string) *sqs.Client {
	return sqs.NewFromConfig(awsCfg, func(o *sqs.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})
}

// NewSNSPublisherAdapter creates an SNS publisher for topicArn from the AWS config
func NewSNSPublisherAdapter(ctx context.Context, cfg AWSConfig, topicArn string, logger *slog.Logger) (*SNSEventPublisher, error) {
	if topicArn == "" {
		return nil, errors.New("sns topic ARN is required")
	}

	awsCfg, err := LoadAWSConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return NewSNSEventPublisher(NewSNSClient(awsCfg, cfg.EndpointSNS), topicArn, logger), nil
}
