// Package clipboard provides destinations for copied notes.
package clipboard

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"sync"
	"time"

	"github.com/atotto/clipboard"
)

// ErrUnsupported is returned when a sink cannot hold the given content.
var ErrUnsupported = errors.New("clipboard: unsupported content")

// Sink receives copied content. SetContent offers every representation at
// once, keyed by format tag.
type Sink interface {
	SetContent(ctx context.Context, reps map[string][]byte) error
	SetText(ctx context.Context, text string) error
}

// System writes to the operating system clipboard. Only text is supported.
type System struct{}

// NewSystem returns the OS clipboard sink.
func NewSystem() *System { return &System{} }

// SetContent always fails with ErrUnsupported.
func (System) SetContent(context.Context, map[string][]byte) error {
	return fmt.Errorf("%w: system clipboard holds text only", ErrUnsupported)
}

// SetText replaces the OS clipboard with text.
func (System) SetText(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if clipboard.Unsupported {
		return fmt.Errorf("%w: no system clipboard available", ErrUnsupported)
	}
	if err := clipboard.WriteAll(text); err != nil {
		return fmt.Errorf("clipboard: write: %w", err)
	}
	return nil
}

// Entry is the last content placed on a Memory sink.
type Entry struct {
	Representations map[string][]byte `json:"representations,omitempty"`
	Text            string            `json:"text,omitempty"`
	CopiedAt        time.Time         `json:"copied_at"`
}

// Memory keeps the most recent copy in process.
type Memory struct {
	mu    sync.RWMutex
	entry *Entry
}

// NewMemory returns an empty in-memory clipboard.
func NewMemory() *Memory { return &Memory{} }

// SetContent stores a copy of reps as the latest entry. An empty map is
// rejected with ErrUnsupported.
func (m *Memory) SetContent(ctx context.Context, reps map[string][]byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(reps) == 0 {
		return fmt.Errorf("%w: empty content", ErrUnsupported)
	}
	m.mu.Lock()
	m.entry = &Entry{Representations: maps.Clone(reps), CopiedAt: time.Now()}
	m.mu.Unlock()
	return nil
}

// SetText stores text as the latest entry.
func (m *Memory) SetText(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	m.entry = &Entry{Text: text, CopiedAt: time.Now()}
	m.mu.Unlock()
	return nil
}

// Last returns a copy of the latest entry, or false if nothing was copied.
func (m *Memory) Last() (Entry, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.entry == nil {
		return Entry{}, false
	}
	e := *m.entry
	e.Representations = maps.Clone(m.entry.Representations)
	return e, true
}
