package storage

import (
	"bytes"
	"context"
	"io"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryStorage keeps objects in process memory.
type MemoryStorage struct {
	mu      sync.Mutex
	bucket  string
	objects map[string]memoryObject
}

type memoryObject struct {
	data        []byte
	contentType string
	updated     time.Time
}

func NewMemoryStorage(bucket string) *MemoryStorage {
	return &MemoryStorage{bucket: bucket, objects: make(map[string]memoryObject)}
}

func (m *MemoryStorage) EnsureBucket(context.Context) error {
	return nil
}

func (m *MemoryStorage) Put(_ context.Context, obj Object, body io.Reader) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[obj.Key] = memoryObject{data: data, contentType: obj.ContentType, updated: time.Now().UTC()}
	return nil
}

func (m *MemoryStorage) Get(_ context.Context, key string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	obj, ok := m.objects[key]
	if !ok {
		return nil, ErrObjectNotFound
	}
	return io.NopCloser(bytes.NewReader(obj.data)), nil
}

func (m *MemoryStorage) List(_ context.Context, prefix string) ([]Object, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var objects []Object
	for key, obj := range m.objects {
		if strings.HasPrefix(key, prefix) {
			objects = append(objects, Object{
				Key:         key,
				Size:        int64(len(obj.data)),
				ContentType: obj.contentType,
				Updated:     obj.updated,
			})
		}
	}
	return objects, nil
}

func (m *MemoryStorage) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

func (m *MemoryStorage) Bucket() string {
	return m.bucket
}

func (m *MemoryStorage) Close() error {
	return nil
}

// Keys lists stored keys in lexical order.
func (m *MemoryStorage) Keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.objects))
	for k := range m.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
