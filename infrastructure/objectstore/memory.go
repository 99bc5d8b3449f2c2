package objectstore

import (
	"bytes"
	"context"
	"io"
	"strings"
	"sync"

	domainStorage "github.com/AzielCF/az-mediahub/domains/storage"
)

// MemoryStore is an in-process ObjectStore used by tests and by local
// development without a bucket. Objects are immutable once written, matching
// the durable store's contract.
type MemoryStore struct {
	mu            sync.RWMutex
	objects       map[string]memoryObject
	publicBaseURL string

	// FailPuts forces every Put to fail; used to exercise the pipeline's
	// degrade-to-original path.
	FailPuts bool
}

type memoryObject struct {
	data        []byte
	contentType string
}

func NewMemoryStore(publicBaseURL string) *MemoryStore {
	return &MemoryStore{
		objects:       make(map[string]memoryObject),
		publicBaseURL: publicBaseURL,
	}
}

func (m *MemoryStore) Put(_ context.Context, input domainStorage.PutInput) error {
	if m.FailPuts {
		return io.ErrClosedPipe
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	data := make([]byte, len(input.Body))
	copy(data, input.Body)
	m.objects[input.Key] = memoryObject{data: data, contentType: input.ContentType}
	return nil
}

func (m *MemoryStore) Head(_ context.Context, key string) (domainStorage.ObjectInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, ok := m.objects[key]
	if !ok {
		return domainStorage.ObjectInfo{}, domainStorage.ErrNotFound{Key: key}
	}
	return domainStorage.ObjectInfo{Key: key, ContentType: obj.contentType, Size: int64(len(obj.data))}, nil
}

func (m *MemoryStore) Get(_ context.Context, key string) (domainStorage.ObjectInfo, io.ReadCloser, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, ok := m.objects[key]
	if !ok {
		return domainStorage.ObjectInfo{}, nil, domainStorage.ErrNotFound{Key: key}
	}
	info := domainStorage.ObjectInfo{Key: key, ContentType: obj.contentType, Size: int64(len(obj.data))}
	return info, io.NopCloser(bytes.NewReader(obj.data)), nil
}

func (m *MemoryStore) PublicURL(key string) string {
	return strings.TrimSuffix(m.publicBaseURL, "/") + "/" + key
}

// Len reports how many objects have been written.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}
