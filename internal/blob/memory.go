package blob

import (
	"bytes"
	"context"
	"io"
	"sort"
	"strings"
	"sync"
)

type memoryObject struct {
	data        []byte
	contentType string
	metadata    map[string]string
}

// MemoryStore keeps objects in a map. Used by tests and by the server when
// no bucket is configured.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string]*memoryObject
	copies  int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string]*memoryObject)}
}

// Copies counts CopyInPlace calls that succeeded.
func (m *MemoryStore) Copies() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.copies
}

func (m *MemoryStore) List(ctx context.Context, prefix, cursor string, limit int) (*Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]string, 0)
	for k := range m.objects {
		if strings.HasPrefix(k, prefix) && k > cursor {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	page := &Page{Keys: keys}
	if limit > 0 && len(keys) > limit {
		page.Keys = keys[:limit]
		page.Next = keys[limit-1]
	}
	return page, nil
}

func (m *MemoryStore) get(key string) (*memoryObject, error) {
	obj, ok := m.objects[key]
	if !ok {
		return nil, ErrNotFound
	}
	return obj, nil
}

func (m *MemoryStore) Head(ctx context.Context, key string) (*ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	obj, err := m.get(key)
	if err != nil {
		return nil, err
	}
	return &ObjectInfo{
		Key:         key,
		ContentType: obj.contentType,
		Size:        int64(len(obj.data)),
		Metadata:    cloneMetadata(obj.metadata),
	}, nil
}

func (m *MemoryStore) GetRange(ctx context.Context, key string, start, end int64) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	obj, err := m.get(key)
	if err != nil {
		return nil, err
	}
	size := int64(len(obj.data))
	if start >= size {
		return []byte{}, nil
	}
	end = min(end+1, size)
	return bytes.Clone(obj.data[start:end]), nil
}

func (m *MemoryStore) CopyInPlace(ctx context.Context, key, contentType string, metadata map[string]string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	obj, err := m.get(key)
	if err != nil {
		return err
	}
	m.objects[key] = &memoryObject{data: obj.data, contentType: contentType, metadata: cloneMetadata(metadata)}
	m.copies++
	return nil
}

func (m *MemoryStore) Put(ctx context.Context, key string, data []byte, contentType string, metadata map[string]string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.objects[key] = &memoryObject{data: bytes.Clone(data), contentType: contentType, metadata: cloneMetadata(metadata)}
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	obj, err := m.get(key)
	if err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(obj.data)), nil
}
