package sniff

import (
	"bytes"
	"encoding/binary"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/gabriel-vasile/mimetype"
	_ "golang.org/x/image/webp"
)

// Format identifies the raster containers the pipeline reasons about
// structurally. Everything else is carried by the MIME string alone.
type Format int

const (
	FormatUnknown Format = iota
	FormatJpeg
	FormatPng
	FormatGif
	FormatWebp
)

func (f Format) String() string {
	switch f {
	case FormatJpeg:
		return "jpeg"
	case FormatPng:
		return "png"
	case FormatGif:
		return "gif"
	case FormatWebp:
		return "webp"
	}
	return "unknown"
}

// DetectedType is the result of sniffing a payload's magic numbers and
// container structure. Recognized is false when the content matched no known
// signature; that is not an error, the caller proceeds on declared data.
type DetectedType struct {
	Recognized bool
	Mime       string
	Extension  string
	Format     Format
	Animated   bool
	Frames     int
	Width      int
	Height     int
}

// Detect inspects the buffer's content and returns its actual type,
// independent of anything the sender declared. For multi-frame capable
// raster containers it also extracts the frame count from the container
// metadata without decoding pixel data.
func Detect(buf []byte) DetectedType {
	if len(buf) == 0 {
		return DetectedType{}
	}

	mtype := mimetype.Detect(buf)
	detected := DetectedType{
		Recognized: mtype.String() != "application/octet-stream",
		Mime:       mtype.String(),
		Extension:  trimDot(mtype.Extension()),
	}

	switch detected.Mime {
	case "image/jpeg":
		detected.Format = FormatJpeg
		detected.Frames = 1
	case "image/png":
		detected.Format = FormatPng
		detected.Frames = 1
	case "image/gif":
		detected.Format = FormatGif
		detected.Frames = countGifFrames(buf)
		detected.Animated = detected.Frames > 1
	case "image/webp":
		detected.Format = FormatWebp
		detected.Frames = countWebpFrames(buf)
		detected.Animated = detected.Frames > 1
	}

	if detected.Format != FormatUnknown {
		if cfg, _, err := image.DecodeConfig(bytes.NewReader(buf)); err == nil {
			detected.Width = cfg.Width
			detected.Height = cfg.Height
		}
	}

	return detected
}

func trimDot(ext string) string {
	if len(ext) > 0 && ext[0] == '.' {
		return ext[1:]
	}
	return ext
}

// countWebpFrames walks the RIFF chunk list of a WebP container and counts
// ANMF (animation frame) chunks. A static WebP (VP8/VP8L payload, or VP8X
// without the animation flag) reports one frame.
func countWebpFrames(buf []byte) int {
	if len(buf) < 16 || string(buf[0:4]) != "RIFF" || string(buf[8:12]) != "WEBP" {
		return 1
	}

	animated := false
	frames := 0
	off := 12
	for off+8 <= len(buf) {
		fourCC := string(buf[off : off+4])
		size := int(binary.LittleEndian.Uint32(buf[off+4 : off+8]))
		if size < 0 || off+8+size > len(buf) {
			break
		}

		switch fourCC {
		case "VP8X":
			// Flags byte: bit 0x02 marks an animated container.
			if size >= 1 && buf[off+8]&0x02 != 0 {
				animated = true
			}
		case "ANMF":
			frames++
		}

		// Chunks are padded to even sizes.
		off += 8 + size + (size & 1)
	}

	if !animated || frames == 0 {
		return 1
	}
	return frames
}

// countGifFrames scans the GIF block stream and counts image descriptors.
// Only block lengths are read, no pixel data is decoded.
func countGifFrames(buf []byte) int {
	if len(buf) < 13 || (string(buf[0:6]) != "GIF87a" && string(buf[0:6]) != "GIF89a") {
		return 1
	}

	// Logical screen descriptor, then optional global color table.
	off := 13
	packed := buf[10]
	if packed&0x80 != 0 {
		off += 3 * (1 << ((packed & 0x07) + 1))
	}

	frames := 0
	for off < len(buf) {
		switch buf[off] {
		case 0x3B: // trailer
			return max(frames, 1)
		case 0x21: // extension block
			off += 2
			off = skipGifSubBlocks(buf, off)
		case 0x2C: // image descriptor
			frames++
			if off+10 > len(buf) {
				return max(frames, 1)
			}
			localPacked := buf[off+9]
			off += 10
			if localPacked&0x80 != 0 {
				off += 3 * (1 << ((localPacked & 0x07) + 1))
			}
			off++ // LZW minimum code size
			off = skipGifSubBlocks(buf, off)
		default:
			return max(frames, 1)
		}
		if off < 0 {
			return max(frames, 1)
		}
	}
	return max(frames, 1)
}

func skipGifSubBlocks(buf []byte, off int) int {
	for off < len(buf) {
		size := int(buf[off])
		off++
		if size == 0 {
			return off
		}
		off += size
	}
	return off
}
