package blockcache

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/org-press/org-press-sub001/internal/annotation"
	"github.com/org-press/org-press-sub001/internal/logfields"
)

// Watcher invalidates a document's cache entries when its source file
// changes on disk.
type Watcher struct {
	cache        *Cache
	contentDir   string
	logger       *slog.Logger
	onInvalidate func(ctx context.Context, docPath string)
}

// NewWatcher creates a watcher over the content directory.
func NewWatcher(cache *Cache, contentDir string) *Watcher {
	return &Watcher{cache: cache, contentDir: contentDir, logger: slog.Default()}
}

// WithLogger sets a custom logger.
func (w *Watcher) WithLogger(l *slog.Logger) *Watcher {
	w.logger = l
	return w
}

// WithOnInvalidate sets a hook called after a document's cache entries were
// invalidated; watch mode uses it to rebuild the document.
func (w *Watcher) WithOnInvalidate(fn func(ctx context.Context, docPath string)) *Watcher {
	w.onInvalidate = fn
	return w
}

// Run watches until the context is canceled. Directories created while
// watching are added on the fly.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fsw.Close()

	err = filepath.WalkDir(w.contentDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return fsw.Add(p)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("watch %s: %w", w.contentDir, err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			w.handle(ctx, fsw, ev)
		case werr, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher error", logfields.Error(werr))
		}
	}
}

func (w *Watcher) handle(ctx context.Context, fsw *fsnotify.Watcher, ev fsnotify.Event) {
	if ev.Op&fsnotify.Create != 0 {
		// New directories need their own watch.
		if !strings.Contains(filepath.Base(ev.Name), ".") {
			_ = fsw.Add(ev.Name)
		}
	}
	if !strings.HasSuffix(ev.Name, annotation.NativeExtension) {
		return
	}
	if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}
	rel, err := filepath.Rel(w.contentDir, ev.Name)
	if err != nil {
		rel = ev.Name
	}
	docPath := filepath.ToSlash(rel)
	if err := w.cache.InvalidateDocument(ctx, docPath); err != nil {
		w.logger.Warn("invalidation failed", logfields.Document(docPath), logfields.Error(err))
		return
	}
	w.logger.Debug("cache invalidated", logfields.Document(docPath))
	if w.onInvalidate != nil {
		w.onInvalidate(ctx, docPath)
	}
}
