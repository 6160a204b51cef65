package inbox

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/robfig/cron/v3"
)

// Run imports what is already in the inbox, then watches it and imports new
// files once they settle, until ctx is cancelled. A cron sweep re-imports
// anything the watcher missed.
func (in *Inbox) Run(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := addDirsRecursive(w, in.root); err != nil {
		return err
	}

	if n, err := in.ImportAll(ctx); err != nil {
		in.log.Warn("inbox: initial import failed", slog.String("error", err.Error()))
	} else if n > 0 {
		in.log.Info("inbox: initial import", slog.Int("notes", n))
	}

	if in.schedule != "" {
		c := cron.New()
		if _, err := c.AddFunc(in.schedule, func() { in.sweep(ctx) }); err != nil {
			return err
		}
		c.Start()
		defer func() { <-c.Stop().Done() }()
	}

	in.log.Info("inbox: watching", slog.String("root", in.root))

	pending := make(map[string]struct{})
	var settleTimer *time.Timer
	var settleCh <-chan time.Time

	schedule := func() {
		if settleTimer == nil {
			settleTimer = time.NewTimer(in.debounce)
			settleCh = settleTimer.C
		} else {
			settleTimer.Reset(in.debounce)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if settleTimer != nil {
				settleTimer.Stop()
			}
			in.log.Info("inbox: stopped")
			return nil

		case <-settleCh:
			for rel := range pending {
				delete(pending, rel)
				if _, err := in.ImportFile(ctx, rel); err != nil {
					in.log.Warn("inbox: import failed", slog.String("path", rel), slog.String("error", err.Error()))
				}
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			rel, err := filepath.Rel(in.root, ev.Name)
			if err != nil || hidden(rel) {
				continue
			}
			if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
				if ev.Op&fsnotify.Create == 0 {
					continue
				}
				if err := addDirsRecursive(w, ev.Name); err != nil {
					in.log.Warn("inbox: watch new dir failed", slog.String("path", rel), slog.String("error", err.Error()))
				}
				// Files moved in with the directory produce no events of their own.
				items, err := in.files.List(rel)
				if err != nil {
					in.log.Warn("inbox: list new dir failed", slog.String("path", rel), slog.String("error", err.Error()))
				}
				for _, it := range items {
					pending[it.Path] = struct{}{}
				}
				if len(items) > 0 {
					schedule()
				}
				continue
			}
			pending[rel] = struct{}{}
			schedule()

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			in.log.Error("inbox: watcher error", slog.String("error", watchErr.Error()))
		}
	}
}

// addDirsRecursive watches root and every non-hidden directory below it.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		return w.Add(path)
	})
}

// hidden reports whether any element of rel starts with a dot.
func hidden(rel string) bool {
	for _, part := range strings.Split(filepath.ToSlash(rel), "/") {
		if strings.HasPrefix(part, ".") && part != "." {
			return true
		}
	}
	return false
}

func (in *Inbox) sweep(ctx context.Context) {
	n, err := in.ImportAll(ctx)
	if err != nil {
		in.log.Warn("inbox: sweep failed", slog.String("error", err.Error()))
		return
	}
	if n > 0 {
		in.log.Info("inbox: sweep imported", slog.Int("notes", n))
	}
}
