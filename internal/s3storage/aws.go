package s3storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/dharsanguruparan/SalesDrop/internal/config"
	"github.com/dharsanguruparan/SalesDrop/internal/filereader"
)

const backendS3 = "s3"

// GetObjectAPI is the slice of *s3.Client the reader needs.
type GetObjectAPI interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// AWSReader reads sales files through the AWS SDK.
type AWSReader struct {
	client GetObjectAPI
	logger *slog.Logger
}

var _ filereader.Source = (*AWSReader)(nil)

// NewAWSReader builds an S3 client from cfg. Static credentials are used when
// both keys are set; otherwise the default AWS credential chain applies.
func NewAWSReader(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*AWSReader, error) {
	awsCfg, err := buildAWSConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("build aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3EndpointURL != "" {
			o.BaseEndpoint = aws.String(cfg.S3EndpointURL)
			o.UsePathStyle = true
		}
	})
	return NewAWSReaderWithClient(client, logger), nil
}

// NewAWSReaderWithClient wraps an existing client.
func NewAWSReaderWithClient(client GetObjectAPI, logger *slog.Logger) *AWSReader {
	if logger == nil {
		logger = slog.Default()
	}
	return &AWSReader{client: client, logger: logger}
}

func buildAWSConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	var optFns []func(*awsconfig.LoadOptions) error
	if cfg.S3Region != "" {
		optFns = append(optFns, awsconfig.WithRegion(cfg.S3Region))
	}
	if cfg.S3AccessKey != "" && cfg.S3SecretKey != "" {
		optFns = append(optFns, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.S3AccessKey, cfg.S3SecretKey, ""),
		))
	}
	optFns = append(optFns, awsconfig.WithHTTPClient(&http.Client{Timeout: 30 * time.Second}))
	return awsconfig.LoadDefaultConfig(ctx, optFns...)
}

// ReadObject implements filereader.ObjectReader.
func (r *AWSReader) ReadObject(ctx context.Context, bucket, key string) ([]byte, error) {
	if err := filereader.ValidateLocation(bucket, key); err != nil {
		return nil, err
	}
	start := time.Now()
	data, err := r.readObject(ctx, bucket, key)
	observeRead(backendS3, start, err)
	if err != nil {
		r.logger.Warn("object read failed", "bucket", bucket, "key", key, "kind", filereader.KindOf(err), "error", err)
		return nil, err
	}
	return data, nil
}

func (r *AWSReader) readObject(ctx context.Context, bucket, key string) ([]byte, error) {
	out, err := r.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, filereader.NewError(classifyAWS(err), bucket, key, err)
	}
	defer out.Body.Close()
	return filereader.Drain(out.Body, bucket, key, nil)
}

// ReadFile implements filereader.Reader.
func (r *AWSReader) ReadFile(ctx context.Context, bucket, key string) (string, error) {
	data, err := r.ReadObject(ctx, bucket, key)
	if err != nil {
		return "", err
	}
	return filereader.DecodeText(data, bucket, key)
}

func classifyAWS(err error) filereader.Kind {
	var nsk *s3types.NoSuchKey
	var nf *s3types.NotFound
	var nsb *s3types.NoSuchBucket
	switch {
	case errors.As(err, &nsk), errors.As(err, &nf):
		return filereader.KindNotFound
	case errors.As(err, &nsb):
		return filereader.KindBucketNotFound
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return filereader.KindNotFound
		case "NoSuchBucket":
			return filereader.KindBucketNotFound
		case "AccessDenied", "Forbidden", "AllAccessDisabled":
			return filereader.KindAccessDenied
		}
	}
	var status interface{ HTTPStatusCode() int }
	if errors.As(err, &status) && status.HTTPStatusCode() == http.StatusForbidden {
		return filereader.KindAccessDenied
	}
	return filereader.KindReadFailure
}

// NewSource picks the read backend named by cfg.StorageProvider.
func NewSource(ctx context.Context, cfg *config.Config, logger *slog.Logger) (filereader.Source, error) {
	switch cfg.StorageProvider {
	case config.ProviderS3:
		return NewAWSReader(ctx, cfg, logger)
	case config.ProviderMinIO:
		return New(cfg, logger)
	default:
		return nil, fmt.Errorf("unsupported storage provider %q", cfg.StorageProvider)
	}
}
