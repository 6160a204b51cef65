// Package imagecodec decodes, encodes and recognizes the image formats
// notes can carry, and answers which formats can be produced.
package imagecodec

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	"image/png"
	"math"

	"github.com/HugoSmits86/nativewebp"
	_ "golang.org/x/image/webp"
)

// Format identifies an image encoding.
type Format string

const (
	PNG  Format = "png"
	JPEG Format = "jpeg"
	WebP Format = "webp"
	GIF  Format = "gif"
	HEIC Format = "heic"
)

// ErrUnsupported is returned by Encode for formats the codec cannot produce.
var ErrUnsupported = errors.New("imagecodec: unsupported format")

// Codec is the platform image capability used by the export encoder.
type Codec interface {
	Decode(data []byte) (image.Image, error)
	Encode(img image.Image, f Format, quality float64) ([]byte, error)
	Supports(f Format) bool
}

// Standard encodes PNG and JPEG, and WebP when enabled.
type Standard struct {
	webp bool
}

// Option configures a Standard codec.
type Option func(*Standard)

// WithWebP toggles WebP encoding.
func WithWebP(enabled bool) Option {
	return func(s *Standard) { s.webp = enabled }
}

// NewStandard returns a codec with WebP encoding enabled unless turned off.
func NewStandard(opts ...Option) *Standard {
	s := &Standard{webp: true}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Decode decodes any registered format (PNG, JPEG, GIF, WebP).
func (s *Standard) Decode(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("imagecodec: decode: %w", err)
	}
	return img, nil
}

// Supports reports whether Encode can produce f.
func (s *Standard) Supports(f Format) bool {
	switch f {
	case PNG, JPEG:
		return true
	case WebP:
		return s.webp
	default:
		return false
	}
}

// Encode writes img in format f. quality in [0,1] applies to JPEG only;
// WebP output is lossless.
func (s *Standard) Encode(img image.Image, f Format, quality float64) ([]byte, error) {
	if img == nil {
		return nil, errors.New("imagecodec: encode: nil image")
	}
	if !s.Supports(f) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, f)
	}

	var buf bytes.Buffer
	var err error
	switch f {
	case PNG:
		err = png.Encode(&buf, img)
	case JPEG:
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: JPEGQuality(quality)})
	case WebP:
		err = nativewebp.Encode(&buf, img, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("imagecodec: encode %s: %w", f, err)
	}
	return buf.Bytes(), nil
}

// JPEGQuality maps a 0..1 quality onto the 1..100 JPEG scale.
func JPEGQuality(q float64) int {
	v := int(math.Round(q * 100))
	return max(1, min(100, v))
}

// Sniff identifies an image format from its leading bytes.
func Sniff(data []byte) (Format, bool) {
	switch {
	case bytes.HasPrefix(data, []byte("\x89PNG\r\n\x1a\n")):
		return PNG, true
	case bytes.HasPrefix(data, []byte{0xFF, 0xD8, 0xFF}):
		return JPEG, true
	case bytes.HasPrefix(data, []byte("GIF87a")), bytes.HasPrefix(data, []byte("GIF89a")):
		return GIF, true
	case len(data) >= 12 && string(data[0:4]) == "RIFF" && string(data[8:12]) == "WEBP":
		return WebP, true
	case len(data) >= 12 && string(data[4:8]) == "ftyp" && isHEICBrand(string(data[8:12])):
		return HEIC, true
	}
	return "", false
}

func isHEICBrand(b string) bool {
	switch b {
	case "heic", "heix", "hevc", "hevx", "mif1", "msf1":
		return true
	}
	return false
}

// ContentType returns the MIME type for f.
func ContentType(f Format) string {
	switch f {
	case PNG:
		return "image/png"
	case JPEG:
		return "image/jpeg"
	case WebP:
		return "image/webp"
	case GIF:
		return "image/gif"
	case HEIC:
		return "image/heic"
	}
	return "application/octet-stream"
}

// Ext returns the file extension for f, including the dot.
func Ext(f Format) string {
	if f == JPEG {
		return ".jpg"
	}
	if f == "" {
		return ".bin"
	}
	return "." + string(f)
}
