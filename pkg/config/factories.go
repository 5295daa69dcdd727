package config

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/mvandenburgh/dandidav/internal/logger"
	"github.com/mvandenburgh/dandidav/pkg/dandi/api"
	"github.com/mvandenburgh/dandidav/pkg/s3"
)

// NewAPIClient creates the metadata API client.
//
// Parameters:
//   - cfg: Metadata API configuration
//   - metrics: Optional API metrics (nil = no metrics)
//   - userAgent: Sent with every request
func NewAPIClient(cfg *DandiConfig, metrics api.APIMetrics, userAgent string) (*api.Client, error) {
	client, err := api.New(api.Config{
		BaseURL:   cfg.APIURL,
		Timeout:   cfg.Timeout,
		PageSize:  cfg.PageSize,
		UserAgent: userAgent,
		Metrics:   metrics,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create metadata API client: %w", err)
	}

	logger.Info("Metadata API client initialized: url=%s, page_size=%d", cfg.APIURL, cfg.PageSize)
	return client, nil
}

// NewS3Client creates the S3 listing client used for Zarr assets.
//
// Credentials, in order:
//  1. Anonymous: unsigned requests
//  2. Static access key and secret from the config
//  3. The default AWS credential chain
//
// Parameters:
//   - ctx: Context for loading the AWS configuration
//   - cfg: S3 configuration
//   - metrics: Optional S3 metrics (nil = no metrics)
func NewS3Client(ctx context.Context, cfg *S3Config, metrics s3.S3Metrics) (*s3.Client, error) {
	awsCfg, err := loadAWSConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}

	client := awss3.NewFromConfig(awsCfg, func(o *awss3.Options) {
		// Custom endpoints (MinIO, Localstack) need path-style addressing
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	clientCfg := s3.ClientConfig{
		API:           client,
		PresignExpiry: cfg.PresignExpiry,
		Metrics:       metrics,
	}
	if cfg.Presign {
		clientCfg.Presigner = awss3.NewPresignClient(client)
	}

	c, err := s3.NewClient(clientCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 client: %w", err)
	}

	logger.Info("S3 client initialized: region=%s, anonymous=%v, presign=%v",
		cfg.Region, cfg.Anonymous, cfg.Presign)
	return c, nil
}

// loadAWSConfig builds the AWS configuration for cfg.
func loadAWSConfig(ctx context.Context, cfg *S3Config) (aws.Config, error) {
	configOptions := []func(*awsConfig.LoadOptions) error{
		awsConfig.WithRegion(cfg.Region),
	}

	switch {
	case cfg.Anonymous:
		configOptions = append(configOptions,
			awsConfig.WithCredentialsProvider(aws.AnonymousCredentials{}))
	case cfg.AccessKeyID != "":
		configOptions = append(configOptions,
			awsConfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
				cfg.AccessKeyID,
				cfg.SecretAccessKey,
				"", // session token (empty for static credentials)
			)))
	}

	maxAttempts := cfg.MaxRetries
	configOptions = append(configOptions, awsConfig.WithRetryer(func() aws.Retryer {
		return retry.NewStandard(func(o *retry.StandardOptions) {
			o.MaxAttempts = maxAttempts
		})
	}))

	awsCfg, err := awsConfig.LoadDefaultConfig(ctx, configOptions...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return awsCfg, nil
}
