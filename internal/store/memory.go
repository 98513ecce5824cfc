package store

import (
	"context"
	"fmt"
	"sync"
)

// Object is a stored body and its content type.
type Object struct {
	Body        []byte
	ContentType string
}

// MemoryStore is an in-process Store used for tests and local runs.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string]Object
	denied  map[string]bool
	puts    int

	// GetErr and PutErr, when set, are returned by every Get or Put call.
	GetErr error
	PutErr error
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		objects: make(map[string]Object),
		denied:  make(map[string]bool),
	}
}

func objectPath(bucket, key string) string {
	return bucket + "/" + key
}

// Seed stores body at bucket/key without counting it as a Put.
func (m *MemoryStore) Seed(bucket, key string, body []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[objectPath(bucket, key)] = Object{Body: append([]byte(nil), body...)}
}

// Deny makes every access to bucket/key fail with ErrAccessDenied.
func (m *MemoryStore) Deny(bucket, key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.denied[objectPath(bucket, key)] = true
}

// Object returns the stored object at bucket/key.
func (m *MemoryStore) Object(bucket, key string) (Object, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, ok := m.objects[objectPath(bucket, key)]
	return obj, ok
}

// Puts returns the number of successful Put calls.
func (m *MemoryStore) Puts() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.puts
}

func (m *MemoryStore) Get(ctx context.Context, bucket, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("get %s/%s: %w: %v", bucket, key, ErrStoreUnavailable, err)
	}
	if m.GetErr != nil {
		return nil, fmt.Errorf("get %s/%s: %w", bucket, key, m.GetErr)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	path := objectPath(bucket, key)
	if m.denied[path] {
		return nil, fmt.Errorf("get %s: %w", path, ErrAccessDenied)
	}
	obj, ok := m.objects[path]
	if !ok {
		return nil, fmt.Errorf("get %s: %w", path, ErrObjectNotFound)
	}
	return append([]byte(nil), obj.Body...), nil
}

func (m *MemoryStore) Put(ctx context.Context, bucket, key string, body []byte, contentType string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("put %s/%s: %w: %v", bucket, key, ErrStoreUnavailable, err)
	}
	if m.PutErr != nil {
		return fmt.Errorf("put %s/%s: %w", bucket, key, m.PutErr)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	path := objectPath(bucket, key)
	if m.denied[path] {
		return fmt.Errorf("put %s: %w", path, ErrAccessDenied)
	}
	m.objects[path] = Object{Body: append([]byte(nil), body...), ContentType: contentType}
	m.puts++
	return nil
}

var _ Store = (*MemoryStore)(nil)
