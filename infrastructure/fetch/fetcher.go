package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	domainMedia "github.com/AzielCF/az-mediahub/domains/media"
	pkgError "github.com/AzielCF/az-mediahub/pkg/error"
	"github.com/AzielCF/az-mediahub/pkg/mediacrypt"
)

const (
	DefaultTimeout  = 30 * time.Second
	DefaultMaxBytes = 50 * 1024 * 1024
)

// Fetcher retrieves the raw bytes for a remote media reference. References
// on the protocol's encrypted CDN are decrypted before being returned; the
// rest of the pipeline never sees ciphertext.
type Fetcher struct {
	client         *http.Client
	maxBytes       int64
	encryptedHosts []string
}

// Config for the fetcher. EncryptedHostSuffixes lists the host suffixes of
// the protocol CDN whose payloads are always encrypted.
type Config struct {
	Timeout               time.Duration
	MaxBytes              int64
	EncryptedHostSuffixes []string
}

func NewFetcher(cfg Config) *Fetcher {
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxBytes == 0 {
		cfg.MaxBytes = DefaultMaxBytes
	}
	return &Fetcher{
		client:         &http.Client{Timeout: cfg.Timeout},
		maxBytes:       cfg.MaxBytes,
		encryptedHosts: cfg.EncryptedHostSuffixes,
	}
}

// Fetch downloads (and if needed decrypts) the payload for the reference.
// Returns pkgError.DownloadError or pkgError.DecryptionError.
func (f *Fetcher) Fetch(ctx context.Context, ref domainMedia.Reference) ([]byte, error) {
	encrypted := f.IsEncryptedHost(ref.RemoteURL)

	// Serving still-encrypted bytes to a consumer is worse than failing
	// loudly, so a missing context fails before any network call.
	if encrypted && ref.Decryption == nil {
		return nil, pkgError.DecryptionError(fmt.Sprintf(
			"reference %s points at encrypted storage but carries no decryption context", ref.MessageID))
	}

	data, err := f.download(ctx, ref.RemoteURL)
	if err != nil {
		return nil, err
	}

	if !encrypted {
		return data, nil
	}

	plaintext, err := f.decrypt(data, ref)
	if err != nil {
		return nil, err
	}
	logrus.Debugf("[FETCH] Decrypted %d bytes for message %s", len(plaintext), ref.MessageID)
	return plaintext, nil
}

// IsEncryptedHost reports whether the URL belongs to the encrypted CDN.
func (f *Fetcher) IsEncryptedHost(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return false
	}
	host := strings.ToLower(u.Hostname())
	for _, suffix := range f.encryptedHosts {
		suffix = strings.ToLower(strings.TrimSpace(suffix))
		if suffix == "" {
			continue
		}
		if host == strings.TrimPrefix(suffix, ".") || strings.HasSuffix(host, suffix) {
			return true
		}
	}
	return false
}

func (f *Fetcher) download(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, pkgError.DownloadError(fmt.Sprintf("invalid media URL: %v", err))
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, pkgError.DownloadError(fmt.Sprintf("failed to fetch media: %v", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, pkgError.DownloadError(fmt.Sprintf("media host returned status %d", resp.StatusCode))
	}

	if resp.ContentLength > f.maxBytes {
		return nil, pkgError.DownloadError(fmt.Sprintf(
			"media size %d exceeds the %d byte limit", resp.ContentLength, f.maxBytes))
	}

	// Read at most one byte past the ceiling so an oversized body is
	// rejected without ever retaining a buffer above the limit.
	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, pkgError.DownloadError(fmt.Sprintf("failed to read media body: %v", err))
	}
	if int64(len(data)) > f.maxBytes {
		return nil, pkgError.DownloadError(fmt.Sprintf(
			"media body exceeds the %d byte limit", f.maxBytes))
	}

	return data, nil
}

func (f *Fetcher) decrypt(data []byte, ref domainMedia.Reference) ([]byte, error) {
	mediaKey, err := mediacrypt.NormalizeKeyMaterial(ref.Decryption.MediaKey)
	if err != nil {
		return nil, pkgError.DecryptionError(fmt.Sprintf("invalid media key material: %v", err))
	}
	expectedSHA, err := mediacrypt.NormalizeKeyMaterial(ref.Decryption.FileSHA256)
	if err != nil {
		return nil, pkgError.DecryptionError(fmt.Sprintf("invalid file hash material: %v", err))
	}

	plaintext, err := mediacrypt.Decrypt(data, mediaKey, mediacrypt.KeyInfo(string(ref.Category)), expectedSHA)
	if err != nil {
		return nil, pkgError.DecryptionError(fmt.Sprintf("failed to decrypt media: %v", err))
	}
	return plaintext, nil
}
