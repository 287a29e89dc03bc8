package filereader

import (
	"bytes"
	"context"
	"sync"
)

// MemoryReader serves objects from memory. It backs tests and offline runs
// of the CLI, and follows the same validation and error rules as the remote
// implementations.
type MemoryReader struct {
	mu      sync.RWMutex
	buckets map[string]map[string][]byte
	denied  map[string]bool
}

// NewMemoryReader constructs an empty MemoryReader.
func NewMemoryReader() *MemoryReader {
	return &MemoryReader{
		buckets: make(map[string]map[string][]byte),
		denied:  make(map[string]bool),
	}
}

// CreateBucket makes an empty bucket.
func (m *MemoryReader) CreateBucket(bucket string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.buckets[bucket]; !ok {
		m.buckets[bucket] = make(map[string][]byte)
	}
}

// Put stores data under bucket/key, creating the bucket when needed.
func (m *MemoryReader) Put(bucket, key string, data []byte) {
	m.CreateBucket(bucket)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.buckets[bucket][key] = bytes.Clone(data)
}

// Deny makes every read from bucket fail with AccessDenied.
func (m *MemoryReader) Deny(bucket string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.denied[bucket] = true
}

// ReadObject implements ObjectReader.
func (m *MemoryReader) ReadObject(ctx context.Context, bucket, key string) ([]byte, error) {
	if err := ValidateLocation(bucket, key); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, NewError(KindReadFailure, bucket, key, err)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.denied[bucket] {
		return nil, NewError(KindAccessDenied, bucket, key, nil)
	}
	objects, ok := m.buckets[bucket]
	if !ok {
		return nil, NewError(KindBucketNotFound, bucket, key, nil)
	}
	data, ok := objects[key]
	if !ok {
		return nil, NewError(KindNotFound, bucket, key, nil)
	}
	return bytes.Clone(data), nil
}

// ReadFile implements Reader.
func (m *MemoryReader) ReadFile(ctx context.Context, bucket, key string) (string, error) {
	data, err := m.ReadObject(ctx, bucket, key)
	if err != nil {
		return "", err
	}
	return DecodeText(data, bucket, key)
}
