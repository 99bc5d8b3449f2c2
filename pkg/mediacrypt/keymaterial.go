package mediacrypt

import (
	"encoding/base64"
	"fmt"
	"math"
)

// NormalizeKeyMaterial converts upstream key material into raw bytes.
// Transports serialize binary fields inconsistently: some send base64
// strings, some JSON arrays of byte values, some a JSON object of
// index->value pairs (the result of serializing a Node Buffer). This is the
// single decode step at the decryptor boundary; the rest of the pipeline
// only ever sees proper byte buffers.
func NormalizeKeyMaterial(raw any) ([]byte, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case []byte:
		return v, nil
	case string:
		decoded, err := base64.StdEncoding.DecodeString(v)
		if err != nil {
			decoded, err = base64.RawStdEncoding.DecodeString(v)
		}
		if err != nil {
			return nil, fmt.Errorf("key material is not valid base64: %w", err)
		}
		return decoded, nil
	case []any:
		buf := make([]byte, len(v))
		for i, item := range v {
			b, err := toByte(item)
			if err != nil {
				return nil, fmt.Errorf("key material array index %d: %w", i, err)
			}
			buf[i] = b
		}
		return buf, nil
	case map[string]any:
		// {"0": 12, "1": 250, ...} — indexed object form.
		buf := make([]byte, len(v))
		for key, item := range v {
			var idx int
			if _, err := fmt.Sscanf(key, "%d", &idx); err != nil || idx < 0 || idx >= len(buf) {
				return nil, fmt.Errorf("key material object has non-index key %q", key)
			}
			b, err := toByte(item)
			if err != nil {
				return nil, fmt.Errorf("key material object index %s: %w", key, err)
			}
			buf[idx] = b
		}
		return buf, nil
	default:
		return nil, fmt.Errorf("unsupported key material type %T", raw)
	}
}

func toByte(item any) (byte, error) {
	switch n := item.(type) {
	case float64:
		if n < 0 || n > 255 || n != math.Trunc(n) {
			return 0, fmt.Errorf("value %v out of byte range", n)
		}
		return byte(n), nil
	case int:
		if n < 0 || n > 255 {
			return 0, fmt.Errorf("value %d out of byte range", n)
		}
		return byte(n), nil
	default:
		return 0, fmt.Errorf("unsupported element type %T", item)
	}
}
