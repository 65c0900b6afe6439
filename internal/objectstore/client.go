package objectstore

import (
	"context"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Endpoint describes one S3-compatible bucket's connection parameters,
// grounded on s3_copier.py's S3Copier.__init__ (boto3.Session plus a
// botocore.Config carrying max_pool_connections/retries).
type Endpoint struct {
	Region          string
	EndpointURL     string // non-empty for MinIO / other S3-compatible stores
	AccessKeyID     string
	SecretAccessKey string
	PathStyle       bool
	MaxConnections  int
}

// NewClient builds an s3.Client for one Endpoint.
func NewClient(ctx context.Context, ep Endpoint) (*s3.Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{}
	if ep.Region != "" {
		opts = append(opts, awsconfig.WithRegion(ep.Region))
	}
	if ep.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(ep.AccessKeyID, ep.SecretAccessKey, ""),
		))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}

	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		if ep.EndpointURL != "" {
			o.BaseEndpoint = &ep.EndpointURL
		}
		o.UsePathStyle = ep.PathStyle
	}), nil
}
