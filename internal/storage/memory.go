package storage

import (
	"context"
	"fmt"
	"sync"
)

type memObject struct {
	contentType string
	body        []byte
}

// MemoryBlobStore keeps blobs in memory. Used by tests and local runs.
type MemoryBlobStore struct {
	mu      sync.Mutex
	objects map[string]memObject
	baseURL string
}

func NewMemoryBlobStore(baseURL string) *MemoryBlobStore {
	return &MemoryBlobStore{
		objects: make(map[string]memObject),
		baseURL: baseURL,
	}
}

func (m *MemoryBlobStore) Upload(ctx context.Context, path, contentType string, body []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := make([]byte, len(body))
	copy(cp, body)
	m.objects[path] = memObject{contentType: contentType, body: cp}
	return nil
}

func (m *MemoryBlobStore) URL(ctx context.Context, path string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.objects[path]; !ok {
		return "", fmt.Errorf("%s: %w", path, ErrNotFound)
	}
	return m.baseURL + "/" + path, nil
}

func (m *MemoryBlobStore) Delete(ctx context.Context, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.objects[path]; !ok {
		return fmt.Errorf("%s: %w", path, ErrNotFound)
	}
	delete(m.objects, path)
	return nil
}

// Object returns the stored bytes and content type.
func (m *MemoryBlobStore) Object(path string) ([]byte, string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	o, ok := m.objects[path]
	return o.body, o.contentType, ok
}

func (m *MemoryBlobStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}
