// Package note defines the Argument note entity and the pure list
// projections (ordering, search, add/remove) computed over it.
package note

import (
	"bytes"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	_ "golang.org/x/image/webp"
)

// Preview rendering.
const (
	PreviewLength    = 100
	ImagePlaceholder = "📷 Image"
	EmptyPlaceholder = "Note vide"
)

// Now is the clock used for note timestamps. It reports UTC without a
// monotonic reading, matching what the store reads back.
var Now = func() time.Time { return time.Now().UTC() }

// Note is a single text or image note.
//
// A note is an image note whenever ImageData is non-nil. Content and
// ImageData may both be set; every derived view treats the image as the
// note's kind and the text as its preview.
type Note struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Content    string    `json:"content"`
	ImageData  []byte    `json:"-"`
	CreatedAt  time.Time `json:"created_at"`
	ModifiedAt time.Time `json:"modified_at"`
}

// New returns a note with a fresh ID and CreatedAt == ModifiedAt == now.
// No validation is applied; callers trim and check the title.
func New(title, content string, imageData []byte) *Note {
	now := Now()
	return &Note{
		ID:         uuid.New().String(),
		Title:      title,
		Content:    content,
		ImageData:  imageData,
		CreatedAt:  now,
		ModifiedAt: now,
	}
}

// IsImageNote reports whether the note carries image bytes, decodable or not.
func (n *Note) IsImageNote() bool {
	return n.ImageData != nil
}

// DecodedImage decodes ImageData. It returns nil when there is no image or
// the bytes are not a supported image.
func (n *Note) DecodedImage() image.Image {
	if n.ImageData == nil {
		return nil
	}
	img, _, err := image.Decode(bytes.NewReader(n.ImageData))
	if err != nil {
		return nil
	}
	return img
}

// ContentPreview returns the first PreviewLength runes of the content, or a
// placeholder when the content is empty.
func (n *Note) ContentPreview() string {
	switch {
	case n.Content != "":
		return truncateRunes(n.Content, PreviewLength)
	case n.ImageData != nil:
		return ImagePlaceholder
	default:
		return EmptyPlaceholder
	}
}

// Touch marks the note as edited. ModifiedAt never moves backwards.
func (n *Note) Touch() {
	now := Now()
	if now.After(n.ModifiedAt) {
		n.ModifiedAt = now
	}
}

// Shareable reports whether there is anything to share or copy.
func (n *Note) Shareable() bool {
	return n.Content != "" || n.IsImageNote()
}

func truncateRunes(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	i := 0
	for pos := range s {
		if i == limit {
			return s[:pos]
		}
		i++
	}
	return s
}
