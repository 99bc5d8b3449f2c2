package sniff

import (
	"fmt"
	"strings"

	pkgError "github.com/AzielCF/az-mediahub/pkg/error"
	"github.com/sirupsen/logrus"
)

// mimeAliases groups MIME strings that denote the same underlying format.
var mimeAliases = [][]string{
	{"image/jpeg", "image/jpg", "image/pjpeg"},
	{"audio/ogg", "application/ogg", "audio/ogg; codecs=opus"},
	{"audio/mpeg", "audio/mp3"},
	{"audio/mp4", "audio/m4a", "audio/x-m4a"},
	{"video/mp4", "application/mp4"},
	{"application/zip", "application/x-zip-compressed"},
}

// Authorize compares the sniffed type against what the sender declared.
// A cross-category mismatch (declared image/png, detected executable) is the
// anti-spoofing check protecting the optimizer and every downstream consumer
// from processing disguised payloads; it fails hard with a
// TypeConfusionError. Same-category mismatches pass with a warning.
func Authorize(detected DetectedType, declaredMime string, category string) error {
	declaredMime = normalizeMime(declaredMime)

	// Neither side determinable: best effort on the declared category alone.
	if !detected.Recognized {
		if declaredMime == "" {
			logrus.Debugf("[SNIFF] No detected or declared type, proceeding on category %q", category)
		}
		return nil
	}

	// Detected but nothing declared: adopt the detected type.
	if declaredMime == "" {
		return nil
	}

	detectedMime := normalizeMime(detected.Mime)
	if detectedMime == declaredMime || isAlias(detectedMime, declaredMime) {
		return nil
	}

	if topLevel(detectedMime) == topLevel(declaredMime) {
		// Same top-level type (e.g. image/png declared, image/webp found).
		// Kept permissive: flagged, not rejected.
		logrus.Warnf("[SNIFF] Declared type %q does not match detected %q (same category, allowing)", declaredMime, detectedMime)
		return nil
	}

	return pkgError.TypeConfusionError(fmt.Sprintf(
		"declared type %q but content is %q", declaredMime, detectedMime))
}

func normalizeMime(mime string) string {
	mime = strings.TrimSpace(strings.ToLower(mime))
	// Strip parameters such as "; codecs=opus" for comparison.
	if idx := strings.Index(mime, ";"); idx >= 0 {
		mime = strings.TrimSpace(mime[:idx])
	}
	return mime
}

func isAlias(a, b string) bool {
	for _, group := range mimeAliases {
		foundA, foundB := false, false
		for _, m := range group {
			if normalizeMime(m) == a {
				foundA = true
			}
			if normalizeMime(m) == b {
				foundB = true
			}
		}
		if foundA && foundB {
			return true
		}
	}
	return false
}

func topLevel(mime string) string {
	if idx := strings.Index(mime, "/"); idx >= 0 {
		return mime[:idx]
	}
	return mime
}
