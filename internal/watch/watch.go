// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Akcio Contributors

// Package watch re-ingests documents as they change on disk.
package watch

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/akcio-dev/akcio/internal/chunker"
	akcioerr "github.com/akcio-dev/akcio/pkg/errors"
)

// DefaultDebounce is how long a path must stay quiet before it is ingested.
const DefaultDebounce = 500 * time.Millisecond

// DefaultExtensions are the file types ingested when no filter is set.
var DefaultExtensions = []string{".md", ".txt", ".html", ".htm"}

// Inserter ingests one source into a project.
type Inserter interface {
	Insert(ctx context.Context, source, project string, sourceType chunker.SourceType) (int64, error)
}

// Watcher ingests regular files created or written in one directory. The
// directory is not watched recursively.
type Watcher struct {
	dir      string
	project  string
	inserter Inserter
	debounce time.Duration
	exts     map[string]bool
	logger   *slog.Logger

	fs     *fsnotify.Watcher
	mu     sync.Mutex
	timers map[string]*time.Timer
	wg     sync.WaitGroup
}

type Option func(*Watcher)

func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithExtensions replaces the extension filter. Matching is case-insensitive.
func WithExtensions(exts ...string) Option {
	return func(w *Watcher) {
		w.exts = extSet(exts)
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(w *Watcher) { w.logger = l }
}

// New starts watching dir. Events are handled once Run is called.
func New(dir, project string, inserter Inserter, opts ...Option) (*Watcher, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, akcioerr.Wrap(err, akcioerr.CodeWatchSetupFailure, "reading watch directory",
			akcioerr.Field("dir", dir))
	}
	if !info.IsDir() {
		return nil, akcioerr.New(akcioerr.CodeWatchSetupFailure, "watch path is not a directory",
			akcioerr.Field("dir", dir))
	}

	w := &Watcher{
		dir:      dir,
		project:  project,
		inserter: inserter,
		debounce: DefaultDebounce,
		exts:     extSet(DefaultExtensions),
		logger:   slog.Default(),
		timers:   make(map[string]*time.Timer),
	}
	for _, opt := range opts {
		opt(w)
	}

	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, akcioerr.Wrap(err, akcioerr.CodeWatchSetupFailure, "creating file watcher")
	}
	if err := fs.Add(dir); err != nil {
		_ = fs.Close()
		return nil, akcioerr.Wrap(err, akcioerr.CodeWatchSetupFailure, "watching directory",
			akcioerr.Field("dir", dir))
	}
	w.fs = fs
	return w, nil
}

// Run handles events until ctx ends, then waits for in-flight ingests.
func (w *Watcher) Run(ctx context.Context) error {
	w.logger.Info("watching directory", "dir", w.dir, "project", w.project)
	defer w.stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			w.handle(ctx, ev)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watcher error", "dir", w.dir, "error", err)
		}
	}
}

func (w *Watcher) handle(ctx context.Context, ev fsnotify.Event) {
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
		return
	}
	if !w.exts[strings.ToLower(filepath.Ext(ev.Name))] {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.timers[ev.Name]; ok && t.Stop() {
		w.wg.Done()
	}
	w.wg.Add(1)
	path := ev.Name
	var t *time.Timer
	t = time.AfterFunc(w.debounce, func() {
		defer w.wg.Done()
		w.mu.Lock()
		if w.timers[path] == t {
			delete(w.timers, path)
		}
		w.mu.Unlock()
		w.ingest(ctx, path)
	})
	w.timers[path] = t
}

func (w *Watcher) ingest(ctx context.Context, path string) {
	if ctx.Err() != nil {
		return
	}
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return
	}

	n, err := w.inserter.Insert(ctx, path, w.project, chunker.SourceFile)
	if err != nil {
		w.logger.Error("ingest failed", "path", path, "project", w.project,
			"code", akcioerr.CodeOf(err), "error", err)
		return
	}
	w.logger.Info("file ingested", "path", path, "project", w.project, "chunks", n)
}

func (w *Watcher) stop() {
	_ = w.fs.Close()

	w.mu.Lock()
	for path, t := range w.timers {
		if t.Stop() {
			w.wg.Done()
		}
		delete(w.timers, path)
	}
	w.mu.Unlock()
	w.wg.Wait()
}

func extSet(exts []string) map[string]bool {
	set := make(map[string]bool, len(exts))
	for _, e := range exts {
		e = strings.ToLower(e)
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		set[e] = true
	}
	return set
}
