package imageops

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodeTestJpeg(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 90, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	return buf.Bytes()
}

func encodeTestPng(t *testing.T, w, h int, alpha uint8) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: 200, G: 10, B: 10, A: alpha})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestOptimize_DownscalesOversizedImage(t *testing.T) {
	result, err := Optimize(encodeTestJpeg(t, 2400, 1200), "image/jpeg", Options{MaxDimension: 1920})
	require.NoError(t, err)

	assert.True(t, result.Resized)
	assert.Equal(t, 1920, result.Width)
	assert.Equal(t, 960, result.Height)
	assert.Equal(t, "image/jpeg", result.ContentType)
}

func TestOptimize_NeverUpscales(t *testing.T) {
	result, err := Optimize(encodeTestJpeg(t, 640, 480), "image/jpeg", Options{MaxDimension: 1920})
	require.NoError(t, err)

	assert.False(t, result.Resized)
	assert.Equal(t, 640, result.Width)
	assert.Equal(t, 480, result.Height)
}

func TestOptimize_PreservesFormatByDefault(t *testing.T) {
	result, err := Optimize(encodeTestPng(t, 100, 100, 255), "image/png", Options{})
	require.NoError(t, err)

	assert.False(t, result.Converted)
	assert.Equal(t, "image/png", result.ContentType)
}

func TestOptimize_ConvertsOpaquePngWhenRequested(t *testing.T) {
	result, err := Optimize(encodeTestPng(t, 100, 100, 255), "image/png", Options{ConvertToJpeg: true})
	require.NoError(t, err)

	assert.True(t, result.Converted)
	assert.Equal(t, "image/jpeg", result.ContentType)
}

func TestOptimize_KeepsPngWithTransparency(t *testing.T) {
	// Transparency would be flattened by a JPEG re-encode, so conversion
	// must not apply.
	result, err := Optimize(encodeTestPng(t, 100, 100, 128), "image/png", Options{ConvertToJpeg: true})
	require.NoError(t, err)

	assert.False(t, result.Converted)
	assert.Equal(t, "image/png", result.ContentType)
}

func TestOptimize_CorruptBufferFails(t *testing.T) {
	_, err := Optimize([]byte("definitely not an image"), "image/jpeg", Options{})
	assert.Error(t, err)
}

func TestOptimize_TruncatedJpegFails(t *testing.T) {
	full := encodeTestJpeg(t, 200, 200)
	_, err := Optimize(full[:40], "image/jpeg", Options{})
	assert.Error(t, err)
}
