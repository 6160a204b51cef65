// Package noteservice implements the note commands: create, edit, delete,
// list, copy and share. Each command persists before it returns.
package noteservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/argument/internal/apperr"
	"github.com/starford/argument/internal/clipboard"
	"github.com/starford/argument/internal/export"
	"github.com/starford/argument/internal/note"
	"github.com/starford/argument/internal/share"
	"github.com/starford/argument/internal/store"
)

// EventKind names a note change.
type EventKind string

const (
	EventCreated EventKind = "created"
	EventUpdated EventKind = "updated"
	EventDeleted EventKind = "deleted"
	// EventCopied reports a note placed on the clipboard.
	EventCopied EventKind = "copied"
)

// EventFunc is called after a change has been committed.
type EventFunc func(kind EventKind, id string)

// CreateParams are the inputs of CreateNote.
type CreateParams struct {
	Title     string
	Content   string
	ImageData []byte
}

// Validate checks the (already trimmed) params.
func (p CreateParams) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Title, validation.Required.Error("title is required")),
	)
}

// Patch describes an edit. Nil fields are left unchanged.
type Patch struct {
	Title   *string
	Content *string
}

// Validate checks the (already trimmed) patch.
func (p Patch) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Title, validation.NilOrNotEmpty.Error("title cannot be blank")),
	)
}

// CopyResult reports what was placed on the clipboard.
type CopyResult struct {
	Tags []string `json:"tags"`
	Text bool     `json:"text"`
}

// Service coordinates the note store and the export encoder.
type Service struct {
	store   store.NoteStore
	enc     *export.Encoder
	log     *slog.Logger
	onEvent EventFunc

	// mu serializes read-modify-write commands.
	mu sync.Mutex
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.log = l }
}

// WithEvents registers a change callback.
func WithEvents(fn EventFunc) Option {
	return func(s *Service) { s.onEvent = fn }
}

// NewService creates a new note service.
func NewService(st store.NoteStore, enc *export.Encoder, opts ...Option) *Service {
	s := &Service{store: st, enc: enc, log: slog.Default()}
	for _, o := range opts {
		o(s)
	}
	return s
}

// CreateNote validates and stores a new note. Attaching an image clears the
// text content.
func (s *Service) CreateNote(ctx context.Context, p CreateParams) (*note.Note, error) {
	p.Title = strings.TrimSpace(p.Title)
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrInvalidInput, err)
	}
	if p.ImageData != nil {
		p.Content = ""
	}

	n := note.New(p.Title, p.Content, p.ImageData)
	if err := s.store.Insert(ctx, n); err != nil {
		s.log.Error("create note failed", slog.String("id", n.ID), slog.String("error", err.Error()))
		return nil, err
	}
	s.emit(EventCreated, n.ID)
	return n, nil
}

// EditNote applies p to the note and commits it with a fresh ModifiedAt.
func (s *Service) EditNote(ctx context.Context, id string, p Patch) (*note.Note, error) {
	if p.Title != nil {
		t := strings.TrimSpace(*p.Title)
		p.Title = &t
	}
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrInvalidInput, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	n, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Content != nil && n.IsImageNote() && *p.Content != n.Content {
		return nil, fmt.Errorf("%w: image notes have no editable content", apperr.ErrInvalidInput)
	}
	if p.Title != nil {
		n.Title = *p.Title
	}
	if p.Content != nil {
		n.Content = *p.Content
	}
	n.Touch()

	if err := s.store.Update(ctx, n); err != nil {
		s.log.Error("edit note failed", slog.String("id", id), slog.String("error", err.Error()))
		return nil, err
	}
	s.emit(EventUpdated, id)
	return n, nil
}

// DeleteNotes removes notes by id. Unknown ids are ignored.
func (s *Service) DeleteNotes(ctx context.Context, ids ...string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	deleted, err := s.store.Delete(ctx, ids...)
	if err != nil {
		s.log.Error("delete notes failed", slog.Any("ids", ids), slog.String("error", err.Error()))
		return nil, err
	}
	for _, id := range deleted {
		s.emit(EventDeleted, id)
	}
	return deleted, nil
}

// GetNote returns a note by id.
func (s *Service) GetNote(ctx context.Context, id string) (*note.Note, error) {
	return s.store.Get(ctx, id)
}

// ListNotes returns notes most recently modified first, filtered by term.
func (s *Service) ListNotes(ctx context.Context, term string) ([]*note.Note, error) {
	all, err := s.store.QueryAll(ctx)
	if err != nil {
		s.log.Error("list notes failed", slog.String("error", err.Error()))
		return nil, err
	}
	return note.Search(note.List(all), term), nil
}

// CopyNote places the note on sink: every image representation for image
// notes, the content for text notes.
func (s *Service) CopyNote(ctx context.Context, id string, sink clipboard.Sink) (CopyResult, error) {
	n, err := s.store.Get(ctx, id)
	if err != nil {
		return CopyResult{}, err
	}

	if n.IsImageNote() {
		img := s.enc.Decode(n.ImageData)
		if img == nil {
			return CopyResult{}, fmt.Errorf("%w: image cannot be decoded", apperr.ErrNothingToCopy)
		}
		reps, err := s.enc.EncodeForClipboard(img)
		if errors.Is(err, export.ErrNothingCopyable) {
			return CopyResult{}, fmt.Errorf("%w: no image format could be produced", apperr.ErrNothingToCopy)
		}
		if err != nil {
			return CopyResult{}, err
		}
		if err := sink.SetContent(ctx, reps.Map()); err != nil {
			return CopyResult{}, fmt.Errorf("noteservice: copy %s: %w", id, err)
		}
		s.emit(EventCopied, id)
		return CopyResult{Tags: reps.Tags()}, nil
	}

	if n.Content == "" {
		return CopyResult{}, apperr.ErrNothingToCopy
	}
	if err := sink.SetText(ctx, n.Content); err != nil {
		return CopyResult{}, fmt.Errorf("noteservice: copy %s: %w", id, err)
	}
	s.emit(EventCopied, id)
	return CopyResult{Tags: []string{export.TagText}, Text: true}, nil
}

// ShareNote returns the share payload for a note.
func (s *Service) ShareNote(ctx context.Context, id string) (export.Payload, error) {
	n, err := s.store.Get(ctx, id)
	if err != nil {
		return export.Payload{}, err
	}
	if !n.Shareable() {
		return export.Payload{}, apperr.ErrNothingToShare
	}
	return s.enc.EncodeForShare(n), nil
}

// PresentShare hands the note's share payload to sink and returns its location.
func (s *Service) PresentShare(ctx context.Context, id string, sink share.Sink) (string, error) {
	p, err := s.ShareNote(ctx, id)
	if err != nil {
		return "", err
	}
	loc, err := sink.Present(ctx, p)
	if err != nil {
		s.log.Error("share failed", slog.String("id", id), slog.String("error", err.Error()))
		return "", err
	}
	s.log.Info("note shared", slog.String("id", id), slog.String("location", loc))
	return loc, nil
}

func (s *Service) emit(kind EventKind, id string) {
	if s.onEvent != nil {
		s.onEvent(kind, id)
	}
}
