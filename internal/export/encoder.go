// Package export turns notes into clipboard and share representations.
package export

import (
	"errors"
	"image"
	"log/slog"

	"github.com/starford/argument/internal/imagecodec"
	"github.com/starford/argument/internal/note"
)

// Representation tags offered to clipboard consumers.
const (
	TagPNG  = "public.png"
	TagJPEG = "public.jpeg"
	TagWebP = "org.webmproject.webp"
	TagText = "public.utf8-plain-text"
)

// DefaultQuality is the compression quality for lossy encodings, on a 0..1 scale.
const DefaultQuality = 0.9

// ErrNothingCopyable is returned when no representation could be produced.
var ErrNothingCopyable = errors.New("export: nothing copyable")

type target struct {
	tag    string
	format imagecodec.Format
	// optional targets are skipped when the codec reports no support.
	optional bool
}

var clipboardTargets = []target{
	{tag: TagPNG, format: imagecodec.PNG},
	{tag: TagJPEG, format: imagecodec.JPEG},
	{tag: TagWebP, format: imagecodec.WebP, optional: true},
}

// Representation is one encoding of an image.
type Representation struct {
	Tag  string
	Data []byte
}

// Representations are offered together, richest first.
type Representations []Representation

// Map returns the representations keyed by tag.
func (r Representations) Map() map[string][]byte {
	m := make(map[string][]byte, len(r))
	for _, rep := range r {
		m[rep.Tag] = rep.Data
	}
	return m
}

// Tags returns the tags in offer order.
func (r Representations) Tags() []string {
	tags := make([]string, len(r))
	for i, rep := range r {
		tags[i] = rep.Tag
	}
	return tags
}

// Payload is what gets handed to a share sink: an image or a text block.
// Image payloads built from a note also carry the stored bytes and their
// format so sinks can pass the original file along.
type Payload struct {
	Title  string
	Image  image.Image
	Source []byte
	Format imagecodec.Format
	Text   string
}

// IsImage reports whether the payload carries an image.
func (p Payload) IsImage() bool { return p.Image != nil }

// Encoder produces export representations.
type Encoder struct {
	codec   imagecodec.Codec
	quality float64
	log     *slog.Logger
}

// Option configures an Encoder.
type Option func(*Encoder)

// WithQuality overrides DefaultQuality. It tunes JPEG output; WebP is
// always lossless.
func WithQuality(q float64) Option {
	return func(e *Encoder) { e.quality = q }
}

// WithLogger sets the logger used to report skipped encodings.
func WithLogger(l *slog.Logger) Option {
	return func(e *Encoder) { e.log = l }
}

// NewEncoder returns an Encoder backed by codec.
func NewEncoder(codec imagecodec.Codec, opts ...Option) *Encoder {
	e := &Encoder{codec: codec, quality: DefaultQuality, log: slog.Default()}
	for _, o := range opts {
		o(e)
	}
	return e
}

// EncodeForClipboard encodes img into every supported clipboard format.
// A failing format is dropped and the rest are still attempted.
//
// The encoder quality reaches the JPEG representation only. The WebP
// representation is lossless, so it does not shrink with lower quality.
func (e *Encoder) EncodeForClipboard(img image.Image) (Representations, error) {
	if img == nil {
		return nil, ErrNothingCopyable
	}
	var reps Representations
	for _, t := range clipboardTargets {
		if t.optional && !e.codec.Supports(t.format) {
			continue
		}
		data, err := e.codec.Encode(img, t.format, e.quality)
		if err != nil {
			e.log.Debug("clipboard encoding skipped",
				slog.String("tag", t.tag),
				slog.String("error", err.Error()))
			continue
		}
		if len(data) == 0 {
			continue
		}
		reps = append(reps, Representation{Tag: t.tag, Data: data})
	}
	if len(reps) == 0 {
		return nil, ErrNothingCopyable
	}
	return reps, nil
}

// EncodeForShare returns the decoded image for image notes, or the title and
// content joined by a blank line.
func (e *Encoder) EncodeForShare(n *note.Note) Payload {
	if n.IsImageNote() {
		if img := e.Decode(n.ImageData); img != nil {
			format, _ := imagecodec.Sniff(n.ImageData)
			return Payload{Title: n.Title, Image: img, Source: n.ImageData, Format: format}
		}
	}
	return Payload{Title: n.Title, Text: n.Title + "\n\n" + n.Content}
}

// Decode decodes image bytes, returning nil when they are not a usable image.
func (e *Encoder) Decode(data []byte) image.Image {
	if data == nil {
		return nil
	}
	img, err := e.codec.Decode(data)
	if err != nil {
		e.log.Debug("image decode failed", slog.String("error", err.Error()))
		return nil
	}
	return img
}
