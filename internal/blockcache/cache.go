// Package blockcache gives every (document, block) pair a deterministic
// location in an injected store, so unchanged work is reused across builds.
// Cache content is a pure function of its key; concurrent writers to the
// same key produce equivalent bytes and last-write-wins is fine.
package blockcache

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/org-press/org-press-sub001/internal/logfields"
	"github.com/org-press/org-press-sub001/internal/storage"
)

// Cache is the file-backed memoization layer for transformed code and
// execution results.
type Cache struct {
	store  storage.Store
	logger *slog.Logger
}

// New creates a cache over the given store.
func New(store storage.Store) *Cache {
	return &Cache{store: store, logger: slog.Default()}
}

// WithLogger sets a custom logger.
func (c *Cache) WithLogger(l *slog.Logger) *Cache {
	c.logger = l
	return c
}

// Store exposes the underlying store; the build step feeds cached files to
// the bundler through it.
func (c *Cache) Store() storage.Store { return c.store }

// WriteTransformed stores a block's transformed code and returns its key.
// Write failures surface to the build.
func (c *Cache) WriteTransformed(ctx context.Context, docPath, name, source string, transformed []byte, ext string) (string, error) {
	key := TransformedKey(docPath, name, source, ext)
	if err := c.store.Write(ctx, key, transformed); err != nil {
		return "", fmt.Errorf("cache transformed code for %s: %w", docPath, err)
	}
	return key, nil
}

// ReadTransformed returns previously cached transformed code, or false when
// the key is absent. Read failures are swallowed into a miss.
func (c *Cache) ReadTransformed(ctx context.Context, key string) ([]byte, bool) {
	data, err := c.store.Read(ctx, key)
	if err != nil {
		if !storage.IsNotFound(err) {
			c.logger.Warn("cache read failed, treating as miss", logfields.CachePath(key), logfields.Error(err))
		}
		return nil, false
	}
	return data, true
}

// InvalidateDocument removes every cache entry belonging to one document,
// transformed code and execution results both. A non-existent cache is a
// no-op.
func (c *Cache) InvalidateDocument(ctx context.Context, docPath string) error {
	dir := SanitizeDocumentPath(docPath) + "/"
	if err := c.store.DeletePrefix(ctx, dir); err != nil {
		return fmt.Errorf("invalidate %s: %w", docPath, err)
	}
	if err := c.store.DeletePrefix(ctx, resultsNamespace+dir); err != nil {
		return fmt.Errorf("invalidate results for %s: %w", docPath, err)
	}
	return nil
}

// Clear removes the whole cache. A non-existent cache is a no-op.
func (c *Cache) Clear(ctx context.Context) error {
	if err := c.store.DeletePrefix(ctx, ""); err != nil {
		return fmt.Errorf("clear cache: %w", err)
	}
	return nil
}
