package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/clikanban/kanban/config"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioClient keeps board snapshots in a MinIO or other S3 compatible
// bucket.
type MinioClient struct {
	client *minio.Client
	bucket string
}

func NewMinioClient(cfg config.MinioConfig) (*MinioClient, error) {
	if err := requireSettings("minio",
		setting{"MINIO_ENDPOINT", cfg.Endpoint},
		setting{"MINIO_ACCESS_KEY", cfg.AccessKey},
		setting{"MINIO_SECRET_KEY", cfg.SecretKey},
		setting{"MINIO_BUCKET", cfg.Bucket},
	); err != nil {
		return nil, err
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client for %s: %w", cfg.Endpoint, err)
	}
	return &MinioClient{client: client, bucket: cfg.Bucket}, nil
}

// EnsureBucket creates the archive bucket on first use. Losing a creation
// race to another server is fine.
func (m *MinioClient) EnsureBucket(ctx context.Context) error {
	exists, err := m.client.BucketExists(ctx, m.bucket)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	err = m.client.MakeBucket(ctx, m.bucket, minio.MakeBucketOptions{})
	if minio.ToErrorResponse(err).Code == "BucketAlreadyOwnedByYou" {
		return nil
	}
	return err
}

func (m *MinioClient) Put(ctx context.Context, obj Object, body io.Reader) error {
	_, err := m.client.PutObject(ctx, m.bucket, obj.Key, body, obj.Size, minio.PutObjectOptions{
		ContentType: obj.ContentType,
	})
	return err
}

// Get stats the key first because GetObject only fails on the first read.
func (m *MinioClient) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	if _, err := m.client.StatObject(ctx, m.bucket, key, minio.StatObjectOptions{}); err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, ErrObjectNotFound
		}
		return nil, err
	}
	return m.client.GetObject(ctx, m.bucket, key, minio.GetObjectOptions{})
}

func (m *MinioClient) List(ctx context.Context, prefix string) ([]Object, error) {
	// Cancelling stops the listing goroutine when we return early.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var objects []Object
	for info := range m.client.ListObjects(ctx, m.bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if info.Err != nil {
			return nil, info.Err
		}
		objects = append(objects, Object{
			Key:         info.Key,
			Size:        info.Size,
			ContentType: info.ContentType,
			Updated:     info.LastModified,
		})
	}
	return objects, nil
}

func (m *MinioClient) Delete(ctx context.Context, key string) error {
	return m.client.RemoveObject(ctx, m.bucket, key, minio.RemoveObjectOptions{})
}

func (m *MinioClient) Bucket() string {
	return m.bucket
}

// Close is a no-op. The SDK client holds no long-lived connection.
func (m *MinioClient) Close() error {
	return nil
}
