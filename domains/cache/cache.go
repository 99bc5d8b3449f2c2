package cache

import (
	"context"
	"time"
)

// Entry is the cached outcome of a completed ingestion, keyed by message ID.
// It lets the pipeline short-circuit duplicate webhook deliveries without
// re-downloading the payload.
type Entry struct {
	PublicURL   string `json:"public_url"`
	StorageKey  string `json:"storage_key"`
	ContentType string `json:"content_type"`
}

// IDedupStore is an injected keyed cache with an explicit TTL, instead of a
// process-wide mutable map, so lifecycle and test isolation stay explicit.
type IDedupStore interface {
	Get(ctx context.Context, messageID string) (*Entry, error)
	Set(ctx context.Context, messageID string, entry Entry, ttl time.Duration) error
}
