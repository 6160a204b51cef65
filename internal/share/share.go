// Package share delivers share payloads to a destination: a local export
// directory, a WebDAV collection or an S3 bucket.
package share

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/starford/argument/internal/export"
	"github.com/starford/argument/internal/imagecodec"
)

// Sink presents a payload and returns where it ended up.
type Sink interface {
	Present(ctx context.Context, p export.Payload) (string, error)
}

// File is a rendered payload ready to be stored.
type File struct {
	Name        string
	Data        []byte
	ContentType string
}

// ErrEmptyPayload is returned when a payload carries neither image nor text.
var ErrEmptyPayload = errors.New("share: empty payload")

var pngCodec = imagecodec.NewStandard(imagecodec.WithWebP(false))

// Render turns a payload into a file: the original image file when the
// payload carries one in a known format, a PNG for other images, UTF-8 text
// otherwise.
func Render(p export.Payload) (File, error) {
	base := Slug(p.Title) + "-" + uuid.NewString()[:8]
	if p.IsImage() && len(p.Source) > 0 && p.Format != "" {
		return File{Name: base + imagecodec.Ext(p.Format), Data: p.Source, ContentType: imagecodec.ContentType(p.Format)}, nil
	}
	if p.IsImage() {
		data, err := pngCodec.Encode(p.Image, imagecodec.PNG, 1)
		if err != nil {
			return File{}, fmt.Errorf("share: render image: %w", err)
		}
		return File{Name: base + ".png", Data: data, ContentType: imagecodec.ContentType(imagecodec.PNG)}, nil
	}
	if p.Text == "" {
		return File{}, ErrEmptyPayload
	}
	return File{Name: base + ".txt", Data: []byte(p.Text), ContentType: "text/plain; charset=utf-8"}, nil
}

// Slug returns a lowercase ASCII file stem for title, or "note" when nothing
// usable remains.
func Slug(title string) string {
	stripMarks := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(stripMarks, title)
	if err != nil {
		folded = title
	}
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(folded) {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(r)
			dash = false
		case b.Len() > 0 && !dash:
			b.WriteByte('-')
			dash = true
		}
	}
	s := strings.TrimSuffix(b.String(), "-")
	if len(s) > 48 {
		s = strings.TrimSuffix(s[:48], "-")
	}
	if s == "" {
		return "note"
	}
	return s
}
