package mediacache

import (
	"context"
	"sync"
	"time"

	domainCache "github.com/AzielCF/az-mediahub/domains/cache"
)

// MemoryDedupStore keeps dedup entries in-process with per-entry expiry.
// Used when no Valkey backend is configured and in tests.
type MemoryDedupStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
}

type memoryEntry struct {
	entry     domainCache.Entry
	expiresAt time.Time
}

func NewMemoryDedupStore() *MemoryDedupStore {
	return &MemoryDedupStore{entries: make(map[string]memoryEntry)}
}

func (m *MemoryDedupStore) Get(_ context.Context, messageID string) (*domainCache.Entry, error) {
	m.mu.RLock()
	item, ok := m.entries[messageID]
	m.mu.RUnlock()
	if !ok {
		return nil, nil
	}

	if time.Now().After(item.expiresAt) {
		m.mu.Lock()
		delete(m.entries, messageID)
		m.mu.Unlock()
		return nil, nil
	}

	entry := item.entry
	return &entry, nil
}

func (m *MemoryDedupStore) Set(_ context.Context, messageID string, entry domainCache.Entry, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Opportunistic sweep so the map cannot grow unbounded between hits.
	now := time.Now()
	for key, item := range m.entries {
		if now.After(item.expiresAt) {
			delete(m.entries, key)
		}
	}

	m.entries[messageID] = memoryEntry{entry: entry, expiresAt: now.Add(ttl)}
	return nil
}
