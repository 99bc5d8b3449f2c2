package mediacache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	domainCache "github.com/AzielCF/az-mediahub/domains/cache"
	"github.com/AzielCF/az-mediahub/infrastructure/valkey"
)

// ValkeyDedupStore backs the dedup cache with Valkey so multiple ingestion
// processes share one view of recently completed work.
type ValkeyDedupStore struct {
	client *valkey.Client
}

func NewValkeyDedupStore(client *valkey.Client) *ValkeyDedupStore {
	return &ValkeyDedupStore{client: client}
}

func (s *ValkeyDedupStore) key(messageID string) string {
	return s.client.Key("media", "dedup", messageID)
}

func (s *ValkeyDedupStore) Get(ctx context.Context, messageID string) (*domainCache.Entry, error) {
	inner := s.client.Inner()
	raw, err := inner.Do(ctx, inner.B().Get().Key(s.key(messageID)).Build()).AsBytes()
	if err != nil {
		if valkey.IsNil(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read dedup entry: %w", err)
	}

	var entry domainCache.Entry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nil, fmt.Errorf("failed to decode dedup entry: %w", err)
	}
	return &entry, nil
}

func (s *ValkeyDedupStore) Set(ctx context.Context, messageID string, entry domainCache.Entry, ttl time.Duration) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to encode dedup entry: %w", err)
	}

	inner := s.client.Inner()
	cmd := inner.B().Set().Key(s.key(messageID)).Value(string(data)).Ex(ttl).Build()
	if err := inner.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("failed to write dedup entry: %w", err)
	}
	return nil
}
