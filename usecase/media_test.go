package usecase

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainMedia "github.com/AzielCF/az-mediahub/domains/media"
	"github.com/AzielCF/az-mediahub/infrastructure/fetch"
	"github.com/AzielCF/az-mediahub/infrastructure/mediacache"
	"github.com/AzielCF/az-mediahub/infrastructure/objectstore"
)

type memoryRecordRepo struct {
	mu      sync.Mutex
	records []domainMedia.Record
}

func (r *memoryRecordRepo) Save(_ context.Context, record *domainMedia.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, *record)
	return nil
}

func (r *memoryRecordRepo) FindByMessageID(_ context.Context, messageID string) ([]domainMedia.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domainMedia.Record
	for _, rec := range r.records {
		if rec.MessageID == messageID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func encodeJpegFixture(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	return buf.Bytes()
}

func encodeAnimatedGifFixture(t *testing.T, frames int) []byte {
	t.Helper()
	palette := []color.Color{color.Black, color.White}
	anim := &gif.GIF{}
	for i := 0; i < frames; i++ {
		anim.Image = append(anim.Image, image.NewPaletted(image.Rect(0, 0, 8, 8), palette))
		anim.Delay = append(anim.Delay, 10)
	}
	var buf bytes.Buffer
	require.NoError(t, gif.EncodeAll(&buf, anim))
	return buf.Bytes()
}

type pipeline struct {
	service domainMedia.IMediaUsecase
	store   *objectstore.MemoryStore
	records *memoryRecordRepo
	dedup   *mediacache.MemoryDedupStore
}

func newPipeline(t *testing.T) *pipeline {
	t.Helper()
	store := objectstore.NewMemoryStore("https://media.example.com/media")
	records := &memoryRecordRepo{}
	dedup := mediacache.NewMemoryDedupStore()
	service := NewMediaUsecase(fetch.NewFetcher(fetch.Config{}), store, records, dedup, nil, MediaOptions{
		MaxImageDimension: 1920,
		JpegQuality:       85,
	})
	return &pipeline{service: service, store: store, records: records, dedup: dedup}
}

func serveBytes(t *testing.T, payload []byte) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(payload)
	}))
	t.Cleanup(server.Close)
	return server
}

func TestIngest_HappyPathImage(t *testing.T) {
	p := newPipeline(t)
	server := serveBytes(t, encodeJpegFixture(t, 2400, 1800))

	result := p.service.Ingest(context.Background(), domainMedia.Reference{
		MessageID:        "3EB0538DA65A59266C2D",
		RemoteURL:        server.URL + "/photo.jpg",
		Category:         domainMedia.CategoryImage,
		DeclaredMimeType: "image/jpeg",
		OriginalFileName: "vacation photo.jpg",
	})

	require.True(t, result.Ok(), "failure: %s %s", result.FailureCode, result.Failure)
	assert.Equal(t, 1, p.store.Len())
	assert.Contains(t, result.PublicURL, "incoming/image/")
	assert.True(t, strings.HasSuffix(result.Stored.StorageKey, ".jpg"))
	assert.Equal(t, "image/jpeg", result.Stored.ContentType)

	// The optimizer downscaled, so the stored object is smaller than the
	// source and was re-encoded.
	info, _, err := p.store.Get(context.Background(), result.Stored.StorageKey)
	require.NoError(t, err)
	assert.Equal(t, int64(result.Stored.ByteSize), info.Size)

	records, err := p.service.Records(context.Background(), "3EB0538DA65A59266C2D")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, domainMedia.RecordStatusStored, records[0].Status)
}

func TestIngest_AnimatedGifBypassesOptimizer(t *testing.T) {
	p := newPipeline(t)
	payload := encodeAnimatedGifFixture(t, 3)
	server := serveBytes(t, payload)

	result := p.service.Ingest(context.Background(), domainMedia.Reference{
		MessageID:        "ANIM1",
		RemoteURL:        server.URL + "/fun.gif",
		Category:         domainMedia.CategoryImage,
		DeclaredMimeType: "image/gif",
	})

	require.True(t, result.Ok(), "failure: %s %s", result.FailureCode, result.Failure)

	// Bit-identical storage: the animation must survive untouched.
	_, body, err := p.store.Get(context.Background(), result.Stored.StorageKey)
	require.NoError(t, err)
	stored, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, payload, stored)

	records, _ := p.service.Records(context.Background(), "ANIM1")
	require.Len(t, records, 1)
	assert.True(t, records[0].Animated)
}

func buildAnimatedWebpFixture(frames int) []byte {
	writeChunk := func(buf *bytes.Buffer, fourCC string, payload []byte) {
		buf.WriteString(fourCC)
		size := len(payload)
		buf.Write([]byte{byte(size), byte(size >> 8), byte(size >> 16), byte(size >> 24)})
		buf.Write(payload)
		if size%2 == 1 {
			buf.WriteByte(0)
		}
	}

	var chunks bytes.Buffer
	header := make([]byte, 10)
	header[0] = 0x02
	writeChunk(&chunks, "VP8X", header)
	for i := 0; i < frames; i++ {
		writeChunk(&chunks, "ANMF", make([]byte, 16))
	}

	var out bytes.Buffer
	out.WriteString("RIFF")
	total := 4 + chunks.Len()
	out.Write([]byte{byte(total), byte(total >> 8), byte(total >> 16), byte(total >> 24)})
	out.WriteString("WEBP")
	out.Write(chunks.Bytes())
	return out.Bytes()
}

func TestIngest_AnimatedWebpStickerBypassesOptimizer(t *testing.T) {
	p := newPipeline(t)
	payload := buildAnimatedWebpFixture(3)
	server := serveBytes(t, payload)

	result := p.service.Ingest(context.Background(), domainMedia.Reference{
		MessageID:        "WEBP1",
		RemoteURL:        server.URL + "/sticker.webp",
		Category:         domainMedia.CategorySticker,
		DeclaredMimeType: "image/webp",
	})

	require.True(t, result.Ok(), "failure: %s %s", result.FailureCode, result.Failure)

	_, body, err := p.store.Get(context.Background(), result.Stored.StorageKey)
	require.NoError(t, err)
	stored, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, payload, stored)
	assert.Equal(t, "image/webp", result.Stored.ContentType)
}

func TestIngest_TypeConfusionRejected(t *testing.T) {
	p := newPipeline(t)
	server := serveBytes(t, encodeJpegFixture(t, 10, 10))

	result := p.service.Ingest(context.Background(), domainMedia.Reference{
		MessageID:        "SPOOF1",
		RemoteURL:        server.URL + "/not-audio.ogg",
		Category:         domainMedia.CategoryAudio,
		DeclaredMimeType: "audio/ogg",
	})

	assert.False(t, result.Ok())
	assert.Equal(t, "TYPE_CONFUSION_ERROR", result.FailureCode)
	assert.Empty(t, result.PublicURL)
	assert.Zero(t, p.store.Len(), "rejected payload must never reach storage")

	records, _ := p.service.Records(context.Background(), "SPOOF1")
	require.Len(t, records, 1)
	assert.Equal(t, domainMedia.RecordStatusFailed, records[0].Status)
}

func TestIngest_CorruptImageRejected(t *testing.T) {
	p := newPipeline(t)
	truncated := encodeJpegFixture(t, 100, 100)[:50]
	server := serveBytes(t, truncated)

	result := p.service.Ingest(context.Background(), domainMedia.Reference{
		MessageID:        "CORRUPT1",
		RemoteURL:        server.URL + "/broken.jpg",
		Category:         domainMedia.CategoryImage,
		DeclaredMimeType: "image/jpeg",
	})

	assert.False(t, result.Ok())
	assert.Equal(t, "CORRUPT_IMAGE_ERROR", result.FailureCode)
	assert.Zero(t, p.store.Len())
}

func TestIngest_UploadFailureDegradesToOriginal(t *testing.T) {
	p := newPipeline(t)
	p.store.FailPuts = true
	server := serveBytes(t, encodeJpegFixture(t, 10, 10))

	result := p.service.Ingest(context.Background(), domainMedia.Reference{
		MessageID:        "UP1",
		RemoteURL:        server.URL + "/photo.jpg",
		Category:         domainMedia.CategoryImage,
		DeclaredMimeType: "image/jpeg",
	})

	assert.False(t, result.Ok())
	assert.Equal(t, "UPLOAD_ERROR", result.FailureCode)
	assert.Empty(t, result.PublicURL)
}

func TestIngest_MissingDecryptionContext(t *testing.T) {
	store := objectstore.NewMemoryStore("https://media.example.com/media")
	fetcher := fetch.NewFetcher(fetch.Config{EncryptedHostSuffixes: []string{"127.0.0.1"}})
	service := NewMediaUsecase(fetcher, store, nil, nil, nil, MediaOptions{})

	result := service.Ingest(context.Background(), domainMedia.Reference{
		MessageID: "ENC1",
		RemoteURL: "https://127.0.0.1:9/enc.jpg",
		Category:  domainMedia.CategoryImage,
	})

	assert.False(t, result.Ok())
	assert.Equal(t, "DECRYPTION_ERROR", result.FailureCode)
	assert.Zero(t, store.Len())
}

func TestIngest_DedupShortCircuits(t *testing.T) {
	p := newPipeline(t)
	var hits int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		_, _ = w.Write(encodeJpegFixture(t, 10, 10))
	}))
	defer server.Close()

	ref := domainMedia.Reference{
		MessageID:        "DUP1",
		RemoteURL:        server.URL + "/photo.jpg",
		Category:         domainMedia.CategoryImage,
		DeclaredMimeType: "image/jpeg",
	}

	first := p.service.Ingest(context.Background(), ref)
	require.True(t, first.Ok())
	second := p.service.Ingest(context.Background(), ref)
	require.True(t, second.Ok())

	assert.True(t, second.Deduplicated)
	assert.Equal(t, first.PublicURL, second.PublicURL)
	assert.Equal(t, 1, hits, "duplicate delivery must not re-download")
	assert.Equal(t, 1, p.store.Len())
}

func TestIngest_DirectPayloadSkipsFetcher(t *testing.T) {
	p := newPipeline(t)

	result := p.service.Ingest(context.Background(), domainMedia.Reference{
		MessageID:        "DIRECT1",
		Category:         domainMedia.CategoryImage,
		DeclaredMimeType: "image/jpeg",
		OriginalFileName: "upload.jpg",
		Data:             encodeJpegFixture(t, 10, 10),
	})

	require.True(t, result.Ok(), "failure: %s %s", result.FailureCode, result.Failure)
	assert.Equal(t, 1, p.store.Len())
}

func TestIngest_InvalidCategory(t *testing.T) {
	p := newPipeline(t)

	result := p.service.Ingest(context.Background(), domainMedia.Reference{
		MessageID: "BAD1",
		Category:  domainMedia.Category("carousel"),
	})

	assert.False(t, result.Ok())
	assert.Equal(t, "VALIDATION_ERROR", result.FailureCode)
}

func TestIngest_DocumentStoredVerbatim(t *testing.T) {
	p := newPipeline(t)
	payload := []byte("%PDF-1.4\n%\xE2\xE3\xCF\xD3\nfake pdf body")
	server := serveBytes(t, payload)

	result := p.service.Ingest(context.Background(), domainMedia.Reference{
		MessageID:        "DOC1",
		RemoteURL:        server.URL + "/contract.pdf",
		Category:         domainMedia.CategoryDocument,
		DeclaredMimeType: "application/pdf",
		OriginalFileName: "contract.pdf",
	})

	require.True(t, result.Ok(), "failure: %s %s", result.FailureCode, result.Failure)

	_, body, err := p.store.Get(context.Background(), result.Stored.StorageKey)
	require.NoError(t, err)
	stored, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, payload, stored)
	assert.Equal(t, "application/pdf", result.Stored.ContentType)
}
