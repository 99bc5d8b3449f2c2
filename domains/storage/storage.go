package storage

import (
	"context"
	"io"
)

// ObjectInfo describes a stored object without its body.
type ObjectInfo struct {
	Key         string
	ContentType string
	Size        int64
}

// PutInput carries one immutable write. Objects are never updated in place;
// keys are unique per ingestion so distinct writes cannot interfere.
type PutInput struct {
	Key         string
	ContentType string
	Metadata    map[string]string
	Body        []byte
}

// ObjectStore is the write/read surface of the backing object store.
// Implementations must be safe for concurrent use.
type ObjectStore interface {
	Put(ctx context.Context, input PutInput) error
	Head(ctx context.Context, key string) (ObjectInfo, error)
	Get(ctx context.Context, key string) (ObjectInfo, io.ReadCloser, error)

	// PublicURL returns the stable proxy URL for a stored key, independent
	// of the store's native URL scheme.
	PublicURL(key string) string
}

// ErrNotFound is returned by Head/Get when the key does not exist.
// Implementations wrap their native not-found errors into this one.
type ErrNotFound struct {
	Key string
}

func (e ErrNotFound) Error() string {
	return "object not found: " + e.Key
}

// IsNotFound reports whether err denotes a missing object.
func IsNotFound(err error) bool {
	_, ok := err.(ErrNotFound)
	return ok
}
