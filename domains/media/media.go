package media

import (
	"context"
	"mime/multipart"
	"time"
)

// Category is the coarse classification a message declares for its attachment.
type Category string

const (
	CategoryImage    Category = "image"
	CategoryVideo    Category = "video"
	CategoryAudio    Category = "audio"
	CategorySticker  Category = "sticker"
	CategoryDocument Category = "document"
)

// Valid reports whether the category is one of the known values.
func (c Category) Valid() bool {
	switch c {
	case CategoryImage, CategoryVideo, CategoryAudio, CategorySticker, CategoryDocument:
		return true
	}
	return false
}

// DefaultContentType returns the safe generic MIME type for a category,
// used when neither the store nor the key extension can resolve one.
func DefaultContentType(category string) string {
	switch Category(category) {
	case CategoryImage:
		return "image/jpeg"
	case CategoryVideo:
		return "video/mp4"
	case CategoryAudio:
		return "audio/ogg"
	case CategorySticker:
		return "image/webp"
	default:
		return "application/octet-stream"
	}
}

// DecryptionContext carries the symmetric key material and integrity hashes
// needed to unwrap a payload stored on the protocol's encrypted CDN. The
// upstream transport may serialize the binary fields as JSON arrays of byte
// values or as base64 strings; both forms are accepted and normalized once
// at the decryptor boundary.
type DecryptionContext struct {
	MediaKey      any `json:"media_key"`
	FileEncSHA256 any `json:"file_enc_sha256,omitempty"`
	FileSHA256    any `json:"file_sha256,omitempty"`
}

// Reference is the ephemeral input tuple handed in by the webhook receiver.
// It is consumed exactly once by the ingestion pipeline.
type Reference struct {
	MessageID        string             `json:"message_id"`
	RemoteURL        string             `json:"remote_url"`
	Category         Category           `json:"category"`
	DeclaredMimeType string             `json:"mime_type,omitempty"`
	OriginalFileName string             `json:"file_name,omitempty"`
	Decryption       *DecryptionContext `json:"decryption,omitempty"`

	// Data short-circuits the fetcher when the payload arrived in-process
	// (direct multipart upload). RemoteURL may be empty in that case.
	Data []byte `json:"-"`
}

// RawPayload is the fetched (and, if needed, decrypted) byte buffer plus the
// type the sniffer determined for it. In-memory only, owned by a single
// pipeline invocation.
type RawPayload struct {
	Data            []byte
	SniffedMimeType string
}

// TransformDecision records whether a payload is a multi-frame animated
// raster image. Animated payloads must never be routed through the
// optimizer: re-encoding keeps only the first frame and silently destroys
// the animation.
type TransformDecision struct {
	IsAnimated   bool   `json:"is_animated"`
	FrameCount   int    `json:"frame_count"`
	SourceFormat string `json:"source_format"`
}

// StoredObject describes a durably stored payload.
type StoredObject struct {
	StorageKey  string `json:"storage_key"`
	PublicURL   string `json:"public_url"`
	ContentType string `json:"content_type"`
	ByteSize    int    `json:"byte_size"`
}

// IngestResult is what the pipeline hands back to the caller. A failed
// ingestion yields an empty PublicURL and a failure reason; the caller keeps
// the original upstream reference (degrade-to-original policy).
type IngestResult struct {
	MessageID    string        `json:"message_id"`
	PublicURL    string        `json:"public_url,omitempty"`
	Stored       *StoredObject `json:"stored,omitempty"`
	Deduplicated bool          `json:"deduplicated,omitempty"`
	FailureCode  string        `json:"failure_code,omitempty"`
	Failure      string        `json:"failure,omitempty"`
}

// Ok reports whether the ingestion produced a durable public URL.
func (r *IngestResult) Ok() bool {
	return r != nil && r.PublicURL != ""
}

// Record is the persisted trace of one ingestion attempt.
type Record struct {
	ID          uint      `gorm:"primarykey" json:"id"`
	MessageID   string    `gorm:"index" json:"message_id"`
	Category    string    `json:"category"`
	StorageKey  string    `json:"storage_key,omitempty"`
	PublicURL   string    `json:"public_url,omitempty"`
	ContentType string    `json:"content_type,omitempty"`
	SourceBytes int       `json:"source_bytes"`
	StoredBytes int       `json:"stored_bytes"`
	Animated    bool      `json:"animated"`
	Status      string    `json:"status"`
	FailureCode string    `json:"failure_code,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

const (
	RecordStatusStored = "stored"
	RecordStatusFailed = "failed"
)

// IRecordRepository persists ingestion records. The relational store itself
// is a collaborator; only this surface belongs to the pipeline.
type IRecordRepository interface {
	Save(ctx context.Context, record *Record) error
	FindByMessageID(ctx context.Context, messageID string) ([]Record, error)
}

// IngestRequest is the REST body for the ingest endpoint.
type IngestRequest struct {
	MessageID  string                `json:"message_id" form:"message_id"`
	RemoteURL  string                `json:"remote_url" form:"remote_url"`
	Category   string                `json:"category" form:"category"`
	MimeType   string                `json:"mime_type" form:"mime_type"`
	FileName   string                `json:"file_name" form:"file_name"`
	Decryption *DecryptionContext    `json:"decryption" form:"-"`
	File       *multipart.FileHeader `json:"-" form:"file"`
}

type IMediaUsecase interface {
	// Ingest runs the full pipeline for one reference. It never returns an
	// error: every failure is converted to a result with an empty PublicURL.
	Ingest(ctx context.Context, ref Reference) *IngestResult

	// IngestAsync dispatches the reference to the worker pool and returns
	// immediately. Returns false when the queue is saturated.
	IngestAsync(ctx context.Context, ref Reference) bool

	Records(ctx context.Context, messageID string) ([]Record, error)
}
