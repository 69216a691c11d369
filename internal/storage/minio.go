package storage

import (
	"Go_Shelf/config"
	"Go_Shelf/internal/logger"
	"context"
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const defaultContentType = "application/octet-stream"

// MinioStore is the S3-compatible Store used outside tests.
type MinioStore struct {
	client *minio.Client
}

func NewMinioStore(client *minio.Client) *MinioStore {
	return &MinioStore{client: client}
}

func (s *MinioStore) PutObject(ctx context.Context, bucket, object string, reader io.Reader, size int64, opts PutOptions) error {
	contentType := opts.ContentType
	if contentType == "" {
		contentType = defaultContentType
	}
	if _, err := s.client.PutObject(ctx, bucket, object, reader, size, minio.PutObjectOptions{ContentType: contentType}); err != nil {
		return fmt.Errorf("put %s/%s: %w", bucket, object, err)
	}
	return nil
}

// RemoveObject succeeds for keys that are already gone, so cleanup can be retried.
func (s *MinioStore) RemoveObject(ctx context.Context, bucket, object string) error {
	if err := s.client.RemoveObject(ctx, bucket, object, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("remove %s/%s: %w", bucket, object, err)
	}
	return nil
}

func (s *MinioStore) PresignedGetObject(ctx context.Context, bucket, object string, expiry time.Duration) (string, error) {
	return s.presign(ctx, bucket, object, expiry, nil)
}

// PresignedGetObjectWithResponse signs response-* overrides into the URL.
// Empty values are left out.
func (s *MinioStore) PresignedGetObjectWithResponse(ctx context.Context, bucket, object string, expiry time.Duration, params map[string]string) (string, error) {
	values := make(url.Values, len(params))
	for key, value := range params {
		if value != "" {
			values.Set(key, value)
		}
	}
	return s.presign(ctx, bucket, object, expiry, values)
}

func (s *MinioStore) presign(ctx context.Context, bucket, object string, expiry time.Duration, values url.Values) (string, error) {
	signed, err := s.client.PresignedGetObject(ctx, bucket, object, expiry, values)
	if err != nil {
		return "", fmt.Errorf("presign %s/%s: %w", bucket, object, err)
	}
	return signed.String(), nil
}

func (s *MinioStore) BucketExists(ctx context.Context, bucket string) (bool, error) {
	return s.client.BucketExists(ctx, bucket)
}

// InitMinio connects to MinIO and creates the catalog bucket if needed.
// On failure Default stays nil and blob operations answer 503.
func InitMinio() {
	cfg := config.AppConfig
	client, err := minio.New(fmt.Sprintf("%s:%s", cfg.MinioHost, cfg.MinioPort), &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioUsername, cfg.MinioPassword, ""),
		Secure: cfg.MinioUseSSL,
		Region: cfg.MinioRegion,
	})
	if err != nil {
		logger.L.Error("minio client error", "error", err)
		return
	}
	bucket := config.Policy().BucketName
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := ensureBucket(ctx, client, bucket, cfg.MinioRegion); err != nil {
		logger.L.Error("prepare bucket fail", "bucket", bucket, "error", err)
		return
	}
	logger.L.Info("init minio success", "endpoint", client.EndpointURL().Host, "bucket", bucket)
	Default = NewMinioStore(client)
}

func ensureBucket(ctx context.Context, client *minio.Client, bucket, region string) error {
	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: region}); err != nil {
		return err
	}
	logger.L.Info("bucket created", "bucket", bucket)
	return nil
}
