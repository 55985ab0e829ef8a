// Package storage abstracts the object stores that hold board archives.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/clikanban/kanban/config"
)

// ErrObjectNotFound is returned by Get for a missing key.
var ErrObjectNotFound = errors.New("object not found")

// Object describes a stored archive. Put reads Key, Size and ContentType;
// List fills every field.
type Object struct {
	Key         string
	Size        int64
	ContentType string
	Updated     time.Time
}

// ObjectStorage is implemented by each archive backend.
type ObjectStorage interface {
	EnsureBucket(ctx context.Context) error
	Put(ctx context.Context, obj Object, body io.Reader) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	List(ctx context.Context, prefix string) ([]Object, error)
	Delete(ctx context.Context, key string) error
	Bucket() string
	Close() error
}

// Storage is the backend-neutral handle the archiver writes through.
type Storage struct {
	backend ObjectStorage
}

func NewStorage(backend ObjectStorage) *Storage {
	return &Storage{backend: backend}
}

// Open builds the backend selected by cfg and makes sure its bucket exists.
// It returns nil, nil when the backend is "none".
func Open(ctx context.Context, cfg config.ObjectStorageConfig) (*Storage, error) {
	var (
		backend ObjectStorage
		err     error
	)
	switch cfg.Backend {
	case "", config.StorageBackendNone:
		return nil, nil
	case config.StorageBackendMinio:
		backend, err = NewMinioClient(cfg.Minio)
	case config.StorageBackendGCS:
		backend, err = NewGCSClient(ctx, cfg.GCS)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", cfg.Backend, err)
	}
	if err := backend.EnsureBucket(ctx); err != nil {
		_ = backend.Close()
		return nil, fmt.Errorf("ensure bucket %s: %w", backend.Bucket(), err)
	}
	return NewStorage(backend), nil
}

func (s *Storage) EnsureBucket(ctx context.Context) error {
	return s.backend.EnsureBucket(ctx)
}

func (s *Storage) Put(ctx context.Context, obj Object, body io.Reader) error {
	if strings.TrimSpace(obj.Key) == "" {
		return errors.New("object key is required")
	}
	return s.backend.Put(ctx, obj, body)
}

func (s *Storage) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	return s.backend.Get(ctx, key)
}

// List returns the objects under prefix ordered by key.
func (s *Storage) List(ctx context.Context, prefix string) ([]Object, error) {
	objects, err := s.backend.List(ctx, prefix)
	if err != nil {
		return nil, err
	}
	slices.SortFunc(objects, func(a, b Object) int {
		return strings.Compare(a.Key, b.Key)
	})
	return objects, nil
}

func (s *Storage) Delete(ctx context.Context, key string) error {
	return s.backend.Delete(ctx, key)
}

func (s *Storage) Bucket() string {
	return s.backend.Bucket()
}

func (s *Storage) Close() error {
	return s.backend.Close()
}

// setting is one named configuration value a backend cannot run without.
type setting struct {
	env   string
	value string
}

// requireSettings reports every blank setting of backend by its
// environment variable.
func requireSettings(backend string, settings ...setting) error {
	var missing []string
	for _, s := range settings {
		if strings.TrimSpace(s.value) == "" {
			missing = append(missing, s.env)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%s archive storage needs %s", backend, strings.Join(missing, ", "))
	}
	return nil
}
