package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
	"github.com/clikanban/kanban/config"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// GCSClient keeps board snapshots in a Google Cloud Storage bucket.
// Credentials come from CredentialsFile or the ambient environment.
type GCSClient struct {
	client    *storage.Client
	bucket    string
	projectID string
}

func NewGCSClient(ctx context.Context, cfg config.GCSConfig) (*GCSClient, error) {
	if err := requireSettings("gcs", setting{"GCS_BUCKET", cfg.Bucket}); err != nil {
		return nil, err
	}

	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("gcs client: %w", err)
	}
	return &GCSClient{client: client, bucket: cfg.Bucket, projectID: cfg.ProjectID}, nil
}

func (g *GCSClient) handle() *storage.BucketHandle {
	return g.client.Bucket(g.bucket)
}

// EnsureBucket creates the archive bucket when it is missing, which needs
// a project id.
func (g *GCSClient) EnsureBucket(ctx context.Context) error {
	_, err := g.handle().Attrs(ctx)
	if err == nil || !errors.Is(err, storage.ErrBucketNotExist) {
		return err
	}
	if err := requireSettings("gcs", setting{"GCS_PROJECT_ID", g.projectID}); err != nil {
		return err
	}
	return g.handle().Create(ctx, g.projectID, nil)
}

func (g *GCSClient) Put(ctx context.Context, obj Object, body io.Reader) error {
	w := g.handle().Object(obj.Key).NewWriter(ctx)
	w.ContentType = obj.ContentType
	if _, err := io.Copy(w, body); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}

func (g *GCSClient) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	r, err := g.handle().Object(key).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, ErrObjectNotFound
	}
	return r, err
}

func (g *GCSClient) List(ctx context.Context, prefix string) ([]Object, error) {
	it := g.handle().Objects(ctx, &storage.Query{Prefix: prefix})
	var objects []Object
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			return objects, nil
		}
		if err != nil {
			return nil, err
		}
		objects = append(objects, Object{
			Key:         attrs.Name,
			Size:        attrs.Size,
			ContentType: attrs.ContentType,
			Updated:     attrs.Updated,
		})
	}
}

// Delete treats a missing key as already deleted, matching S3.
func (g *GCSClient) Delete(ctx context.Context, key string) error {
	err := g.handle().Object(key).Delete(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil
	}
	return err
}

func (g *GCSClient) Bucket() string {
	return g.bucket
}

func (g *GCSClient) Close() error {
	return g.client.Close()
}
