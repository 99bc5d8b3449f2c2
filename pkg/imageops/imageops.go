package imageops

import (
	"bytes"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

const (
	DefaultMaxDimension = 1920
	DefaultJpegQuality  = 85
)

// Options bounds the optimizer. Zero values fall back to the defaults.
type Options struct {
	MaxDimension  int
	JpegQuality   int
	ConvertToJpeg bool // re-encode non-transparent sources as JPEG
}

// Result reports what the optimizer did, for observability.
type Result struct {
	Data        []byte
	ContentType string
	Width       int
	Height      int
	Resized     bool
	Converted   bool
}

// Optimize re-encodes a static raster image: auto-orients using embedded
// orientation metadata, downscales so neither dimension exceeds the bound
// (never upscales), recompresses at the quality target, and strips all other
// metadata by virtue of the re-encode. The source format is preserved unless
// ConvertToJpeg applies and the image has no transparency.
//
// A buffer that cannot be decoded at all is reported as an error; such a
// payload is not safe to store or serve.
func Optimize(buf []byte, sourceMime string, opts Options) (*Result, error) {
	if opts.MaxDimension <= 0 {
		opts.MaxDimension = DefaultMaxDimension
	}
	if opts.JpegQuality <= 0 {
		opts.JpegQuality = DefaultJpegQuality
	}

	img, err := imaging.Decode(bytes.NewReader(buf), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	bounds := img.Bounds()
	resized := false
	if bounds.Dx() > opts.MaxDimension || bounds.Dy() > opts.MaxDimension {
		img = imaging.Fit(img, opts.MaxDimension, opts.MaxDimension, imaging.Lanczos)
		resized = true
	}

	format, contentType, converted := targetFormat(sourceMime, img, opts)

	var out bytes.Buffer
	switch format {
	case imaging.JPEG:
		err = imaging.Encode(&out, img, format, imaging.JPEGQuality(opts.JpegQuality))
	default:
		err = imaging.Encode(&out, img, format)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}

	final := img.Bounds()
	return &Result{
		Data:        out.Bytes(),
		ContentType: contentType,
		Width:       final.Dx(),
		Height:      final.Dy(),
		Resized:     resized,
		Converted:   converted,
	}, nil
}

// targetFormat picks the output encoding. WebP sources are always converted
// (no encoder available); PNG/GIF only when conversion is requested and the
// image is fully opaque.
func targetFormat(sourceMime string, img image.Image, opts Options) (imaging.Format, string, bool) {
	switch sourceMime {
	case "image/jpeg":
		return imaging.JPEG, "image/jpeg", false
	case "image/png":
		if opts.ConvertToJpeg && isOpaque(img) {
			return imaging.JPEG, "image/jpeg", true
		}
		return imaging.PNG, "image/png", false
	case "image/gif":
		if opts.ConvertToJpeg && isOpaque(img) {
			return imaging.JPEG, "image/jpeg", true
		}
		return imaging.GIF, "image/gif", false
	case "image/webp":
		if isOpaque(img) {
			return imaging.JPEG, "image/jpeg", true
		}
		return imaging.PNG, "image/png", true
	default:
		return imaging.JPEG, "image/jpeg", sourceMime != "image/jpeg"
	}
}

func isOpaque(img image.Image) bool {
	if o, ok := img.(interface{ Opaque() bool }); ok {
		return o.Opaque()
	}
	return false
}
