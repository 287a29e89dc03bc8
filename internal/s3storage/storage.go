// Package s3storage talks to S3-compatible object storage. Storage wraps a
// MinIO client for uploads, archives and presigned links; AWSReader reads
// through the AWS SDK when the deployment targets Amazon S3 directly.
package s3storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/dharsanguruparan/SalesDrop/internal/config"
	"github.com/dharsanguruparan/SalesDrop/internal/filereader"
	"github.com/dharsanguruparan/SalesDrop/internal/metrics"
	"github.com/dharsanguruparan/SalesDrop/internal/model"
)

const backendMinIO = "minio"

// Storage wraps MinIO/S3 interactions for raw uploads and archived reports.
type Storage struct {
	client          *minio.Client
	rawBucket       string
	processedBucket string
	region          string
	logger          *slog.Logger
}

var _ filereader.Source = (*Storage)(nil)

// New creates a MinIO client from the Config.
func New(cfg *config.Config, logger *slog.Logger) (*Storage, error) {
	client, err := minio.New(cfg.S3Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.S3AccessKey, cfg.S3SecretKey, ""),
		Secure: cfg.S3UseSSL,
		Region: cfg.S3Region,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Storage{
		client:          client,
		rawBucket:       cfg.RawBucket,
		processedBucket: cfg.ProcessedBucket,
		region:          cfg.S3Region,
		logger:          logger,
	}, nil
}

// RawBucket names the bucket uploads land in.
func (s *Storage) RawBucket() string { return s.rawBucket }

// EnsureBuckets makes sure the raw/processed buckets exist before use.
func (s *Storage) EnsureBuckets(ctx context.Context) error {
	for _, bucket := range []string{s.rawBucket, s.processedBucket} {
		exists, err := s.client.BucketExists(ctx, bucket)
		if err != nil {
			return fmt.Errorf("check bucket %s: %w", bucket, err)
		}
		if !exists {
			if err := s.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: s.region}); err != nil {
				return fmt.Errorf("make bucket %s: %w", bucket, err)
			}
			s.logger.Info("bucket created", "bucket", bucket)
		}
	}
	return nil
}

// UploadRaw uploads a sales file into the raw bucket and returns where it went.
func (s *Storage) UploadRaw(ctx context.Context, objectKey string, reader io.Reader, size int64, contentType string) (model.Location, error) {
	opts := minio.PutObjectOptions{ContentType: contentType}
	if _, err := s.client.PutObject(ctx, s.rawBucket, objectKey, reader, size, opts); err != nil {
		return model.Location{}, fmt.Errorf("upload raw object: %w", err)
	}
	return model.Location{Bucket: s.rawBucket, Key: objectKey}, nil
}

// ArchiveReport writes the serialized report into the processed bucket under
// reports/<id>.json.
func (s *Storage) ArchiveReport(ctx context.Context, report *model.SalesReport) (model.Location, error) {
	data, err := json.Marshal(report.Serialize())
	if err != nil {
		return model.Location{}, fmt.Errorf("encode report %s: %w", report.ID(), err)
	}
	objectKey := ArchiveKey(report.ID())
	opts := minio.PutObjectOptions{ContentType: "application/json"}
	if _, err := s.client.PutObject(ctx, s.processedBucket, objectKey, bytes.NewReader(data), int64(len(data)), opts); err != nil {
		return model.Location{}, fmt.Errorf("upload processed object: %w", err)
	}
	return model.Location{Bucket: s.processedBucket, Key: objectKey}, nil
}

// ArchiveKey is the processed-bucket key for a report id.
func ArchiveKey(id string) string {
	return "reports/" + id + ".json"
}

// ReadObject implements filereader.ObjectReader.
func (s *Storage) ReadObject(ctx context.Context, bucket, key string) ([]byte, error) {
	if err := filereader.ValidateLocation(bucket, key); err != nil {
		return nil, err
	}
	start := time.Now()
	data, err := s.readObject(ctx, bucket, key)
	observeRead(backendMinIO, start, err)
	if err != nil {
		s.logger.Warn("object read failed", "bucket", bucket, "key", key, "kind", filereader.KindOf(err), "error", err)
		return nil, err
	}
	return data, nil
}

func (s *Storage) readObject(ctx context.Context, bucket, key string) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, filereader.NewError(classifyMinIO(err), bucket, key, err)
	}
	defer obj.Close()
	return filereader.Drain(obj, bucket, key, classifyMinIO)
}

// ReadFile implements filereader.Reader.
func (s *Storage) ReadFile(ctx context.Context, bucket, key string) (string, error) {
	data, err := s.ReadObject(ctx, bucket, key)
	if err != nil {
		return "", err
	}
	return filereader.DecodeText(data, bucket, key)
}

// Describe stats an existing object and returns a descriptor for it, so files
// placed in the bucket out of band can be queued like API uploads.
func (s *Storage) Describe(ctx context.Context, bucket, key string) (*model.FileDescriptor, error) {
	if err := filereader.ValidateLocation(bucket, key); err != nil {
		return nil, err
	}
	info, err := s.client.StatObject(ctx, bucket, key, minio.StatObjectOptions{})
	if err != nil {
		return nil, filereader.NewError(classifyMinIO(err), bucket, key, err)
	}
	contentType := info.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	modified := info.LastModified.UTC()
	if modified.IsZero() {
		modified = time.Now().UTC()
	}
	return model.NewFileDescriptor(model.FileParams{
		Name:        path.Base(key),
		Size:        info.Size,
		ContentType: contentType,
		Bucket:      bucket,
		Key:         key,
		CreatedAt:   modified,
		UpdatedAt:   modified,
	})
}

// PresignURL returns a signed GET URL for any object this deployment can read.
func (s *Storage) PresignURL(ctx context.Context, loc model.Location, ttl time.Duration) (string, error) {
	u, err := s.client.PresignedGetObject(ctx, loc.Bucket, loc.Key, ttl, url.Values{})
	if err != nil {
		return "", fmt.Errorf("presign %s: %w", loc, err)
	}
	return u.String(), nil
}

func classifyMinIO(err error) filereader.Kind {
	var resp minio.ErrorResponse
	if !errors.As(err, &resp) {
		return filereader.KindReadFailure
	}
	switch resp.Code {
	case "NoSuchKey":
		return filereader.KindNotFound
	case "NoSuchBucket":
		return filereader.KindBucketNotFound
	case "AccessDenied":
		return filereader.KindAccessDenied
	}
	if resp.StatusCode == http.StatusForbidden {
		return filereader.KindAccessDenied
	}
	return filereader.KindReadFailure
}

func observeRead(backend string, start time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = string(filereader.KindOf(err))
	}
	metrics.ReadDuration.WithLabelValues(backend, outcome).Observe(time.Since(start).Seconds())
}
