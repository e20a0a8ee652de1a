package storage

import (
	"bytes"
	"context"
	"io"
	"sync"
)

// MemoryStorage keeps objects in process memory. It backs STORAGE_BACKEND=memory
// and tests.
type MemoryStorage struct {
	mu      sync.RWMutex
	bucket  string
	objects map[string]memoryObject
}

type memoryObject struct {
	info Object
	data []byte
}

func NewMemoryStorage(bucket string) *MemoryStorage {
	return &MemoryStorage{bucket: bucket, objects: make(map[string]memoryObject)}
}

func (m *MemoryStorage) EnsureBucket(context.Context) error {
	return nil
}

func (m *MemoryStorage) Put(_ context.Context, obj Object, r io.Reader, _ int64) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.objects[obj.Key] = memoryObject{info: obj, data: data}
	m.mu.Unlock()
	return nil
}

func (m *MemoryStorage) Get(_ context.Context, key string) (io.ReadCloser, error) {
	m.mu.RLock()
	obj, ok := m.objects[key]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrObjectNotFound
	}
	return io.NopCloser(bytes.NewReader(obj.data)), nil
}

// Stat returns what was written under key.
func (m *MemoryStorage) Stat(key string) (Object, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, ok := m.objects[key]
	return obj.info, ok
}

func (m *MemoryStorage) Bucket() string {
	return m.bucket
}

func (m *MemoryStorage) Close() error {
	return nil
}
