// Package inbox imports files dropped into a watched directory as notes.
// Images become image notes; Markdown and plain-text files become text notes.
package inbox

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/starford/argument/internal/checksum"
	"github.com/starford/argument/internal/imagecodec"
	"github.com/starford/argument/internal/note"
	"github.com/starford/argument/internal/noteservice"
	"github.com/starford/argument/internal/parser"
	"github.com/starford/argument/internal/storage"
)

// DefaultSweepSchedule re-scans the inbox for files the watcher missed.
const DefaultSweepSchedule = "@every 5m"

// ErrUnsupportedFile is returned for files that are neither images nor text.
var ErrUnsupportedFile = errors.New("inbox: unsupported file")

var textExts = map[string]bool{".md": true, ".markdown": true, ".txt": true}

// Creator stores imported notes.
type Creator interface {
	CreateNote(ctx context.Context, p noteservice.CreateParams) (*note.Note, error)
}

// Inbox imports files from a directory.
type Inbox struct {
	files    storage.Provider
	root     string
	creator  Creator
	log      *slog.Logger
	debounce time.Duration
	schedule string

	mu sync.Mutex
	// stuck holds checksums of imported files that could not be removed, so
	// sweeps do not import them twice.
	stuck map[string]struct{}
	// unsupported holds path+checksum keys of files already rejected.
	unsupported map[string]struct{}
}

// Option configures an Inbox.
type Option func(*Inbox)

// WithLogger sets the inbox logger.
func WithLogger(l *slog.Logger) Option {
	return func(in *Inbox) { in.log = l }
}

// WithDebounce sets how long a file must stay quiet before it is imported.
func WithDebounce(d time.Duration) Option {
	return func(in *Inbox) { in.debounce = d }
}

// WithSweepSchedule sets the cron schedule of the periodic sweep. An empty
// schedule disables sweeping.
func WithSweepSchedule(spec string) Option {
	return func(in *Inbox) { in.schedule = spec }
}

// New returns an inbox over the directory backing files.
func New(files *storage.FS, creator Creator, opts ...Option) *Inbox {
	in := &Inbox{
		files:       files,
		root:        files.Root(),
		creator:     creator,
		log:         slog.Default(),
		debounce:    300 * time.Millisecond,
		schedule:    DefaultSweepSchedule,
		stuck:       make(map[string]struct{}),
		unsupported: make(map[string]struct{}),
	}
	for _, o := range opts {
		o(in)
	}
	return in
}

// ImportAll imports every file currently in the inbox and returns the number
// of notes created. Failures are logged and the file is left in place.
func (in *Inbox) ImportAll(ctx context.Context) (int, error) {
	items, err := in.files.List("")
	if err != nil {
		return 0, err
	}
	imported := 0
	for _, it := range items {
		if ctx.Err() != nil {
			return imported, ctx.Err()
		}
		n, err := in.ImportFile(ctx, it.Path)
		if err != nil {
			in.log.Warn("inbox: import failed", slog.String("path", it.Path), slog.String("error", err.Error()))
			continue
		}
		if n != nil {
			imported++
		}
	}
	return imported, nil
}

// ImportFile imports one file (relative to the inbox root) and removes it.
// It returns a nil note when the file has already gone, was already imported,
// or was already rejected as unsupported with the same content.
func (in *Inbox) ImportFile(ctx context.Context, rel string) (*note.Note, error) {
	in.mu.Lock()
	defer in.mu.Unlock()

	data, err := in.files.Read(rel)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	sum := checksum.Sum(data)
	if _, ok := in.stuck[sum]; ok {
		return nil, nil
	}
	key := rel + "\x00" + sum
	if _, ok := in.unsupported[key]; ok {
		return nil, nil
	}

	params, err := classify(rel, data)
	if errors.Is(err, ErrUnsupportedFile) {
		in.unsupported[key] = struct{}{}
	}
	if err != nil {
		return nil, err
	}
	// Dismissed before completion: drop the result.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	n, err := in.creator.CreateNote(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("inbox: create note: %w", err)
	}
	if err := in.files.Delete(rel); err != nil {
		in.stuck[sum] = struct{}{}
		in.log.Warn("inbox: remove imported file failed", slog.String("path", rel), slog.String("error", err.Error()))
	}
	in.log.Info("inbox: imported", slog.String("path", rel), slog.String("id", n.ID), slog.Bool("image", n.IsImageNote()))
	return n, nil
}

func classify(rel string, data []byte) (noteservice.CreateParams, error) {
	base := filepath.Base(rel)
	ext := strings.ToLower(filepath.Ext(base))
	stem := strings.TrimSuffix(base, filepath.Ext(base))

	if _, ok := imagecodec.Sniff(data); ok {
		return noteservice.CreateParams{Title: stem, ImageData: data}, nil
	}
	if !textExts[ext] {
		return noteservice.CreateParams{}, fmt.Errorf("%w: %s", ErrUnsupportedFile, base)
	}
	res := parser.Parse(data)
	title := res.Title
	if title == "" {
		title = stem
	}
	return noteservice.CreateParams{Title: title, Content: res.Content}, nil
}
