package storage

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
)

// FSStore persists keys as plain files under a base directory. The layout is
// disposable: deleting the directory only costs rebuild time.
type FSStore struct {
	basePath string
}

// NewFSStore creates a filesystem-backed store rooted at basePath.
func NewFSStore(basePath string) (*FSStore, error) {
	if err := os.MkdirAll(basePath, 0o750); err != nil {
		return nil, fmt.Errorf("create store directory %s: %w", basePath, err)
	}
	return &FSStore{basePath: basePath}, nil
}

func (s *FSStore) keyPath(key string) string {
	return filepath.Join(s.basePath, filepath.FromSlash(path.Clean("/"+key)))
}

// Read returns the bytes stored under key.
func (s *FSStore) Read(ctx context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(s.keyPath(key)) // #nosec G304 - key is cache-derived
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	return data, nil
}

// Write stores data under key, creating parent directories as needed.
func (s *FSStore) Write(ctx context.Context, key string, data []byte) error {
	p := s.keyPath(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o750); err != nil {
		return fmt.Errorf("create directory for %s: %w", key, err)
	}
	if err := os.WriteFile(p, data, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

// Delete removes a key; an absent key is a no-op.
func (s *FSStore) Delete(ctx context.Context, key string) error {
	if err := os.Remove(s.keyPath(key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// DeletePrefix removes all keys under prefix. A missing directory is a no-op.
func (s *FSStore) DeletePrefix(ctx context.Context, prefix string) error {
	keys, err := s.List(ctx, prefix)
	if err != nil {
		return err
	}
	for _, k := range keys {
		if err := s.Delete(ctx, k); err != nil {
			return err
		}
	}
	// Sweep now-empty directories; best effort only.
	_ = filepath.WalkDir(s.basePath, func(p string, d fs.DirEntry, err error) error {
		if err == nil && d.IsDir() && p != s.basePath {
			_ = os.Remove(p)
		}
		return nil
	})
	return nil
}

// List returns every key with the given prefix, sorted.
func (s *FSStore) List(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	err := filepath.WalkDir(s.basePath, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(s.basePath, p)
		if relErr != nil {
			return relErr
		}
		key := filepath.ToSlash(rel)
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
		return nil
	})
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list %s: %w", prefix, err)
	}
	sort.Strings(keys)
	return keys, nil
}

// Close is a no-op for the filesystem store.
func (s *FSStore) Close() error { return nil }
