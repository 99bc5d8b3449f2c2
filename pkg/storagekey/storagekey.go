package storagekey

import (
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	prefix      = "incoming"
	maxNameLen  = 48
	fallbackExt = "bin"
)

// Build derives the collision-resistant storage key for one ingestion:
//
//	incoming/{category}/{timestamp}_{token}_{derivedName}.{ext}
//
// The random token guarantees two invocations never race to the same key
// even for identical filenames and timestamps. The extension comes from the
// sniffed/declared MIME type, never from the attacker-influenced filename.
func Build(category string, ts time.Time, originalName, ext string) string {
	token := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	if ext == "" {
		ext = fallbackExt
	}
	return fmt.Sprintf("%s/%s/%d_%s_%s.%s",
		prefix, category, ts.UnixMilli(), token, deriveName(originalName), ext)
}

// deriveName reduces the original filename to a safe slug: extension and
// path components dropped, anything outside [a-z0-9-_] replaced, length
// bounded.
func deriveName(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	if idx := strings.LastIndex(name, "."); idx > 0 {
		name = name[:idx]
	}

	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ', r == '.':
			b.WriteRune('-')
		}
	}

	slug := strings.Trim(b.String(), "-_")
	if slug == "" {
		return "media"
	}
	if len(slug) > maxNameLen {
		slug = slug[:maxNameLen]
	}
	return slug
}
