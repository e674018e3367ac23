// Package mainconfig centralizes AWS SDK initialization so the API binary
// and any future workers share the same local-endpoint and credential
// wiring.
package mainconfig

import (
	"context"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"

	appconfig "github.com/brightsmile-dental/clinic-platform/internal/config"
)

// LoadAWSConfig builds the SDK config from the application settings. Static
// credentials and the endpoint override are only applied when set, so the
// default chain still works in production.
func LoadAWSConfig(ctx context.Context, cfg *appconfig.Config) (aws.Config, error) {
	loaders := []func(*config.LoadOptions) error{config.WithRegion(cfg.AWSRegion)}

	if strings.TrimSpace(cfg.AWSAccessKeyID) != "" && strings.TrimSpace(cfg.AWSSecretAccessKey) != "" {
		loaders = append(loaders, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AWSAccessKeyID, cfg.AWSSecretAccessKey, ""),
		))
	}

	if endpoint := strings.TrimSpace(cfg.AWSEndpointOverride); endpoint != "" {
		loaders = append(loaders, config.WithEndpointResolverWithOptions(
			dynamoEndpoint(endpoint, cfg.AWSRegion),
		))
	}

	return config.LoadDefaultConfig(ctx, loaders...)
}

// dynamoEndpoint points only the document store at the override (a local
// DynamoDB container); every other service stays on the default resolver.
func dynamoEndpoint(url, region string) aws.EndpointResolverWithOptionsFunc {
	return func(service, _ string, _ ...interface{}) (aws.Endpoint, error) {
		if service != dynamodb.ServiceID {
			return aws.Endpoint{}, &aws.EndpointNotFoundError{}
		}
		return aws.Endpoint{
			URL:           url,
			PartitionID:   "aws",
			SigningRegion: region,
		}, nil
	}
}
