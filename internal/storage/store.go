// Package storage provides the injected persistence backend for the block
// cache. Keys are slash-separated relative paths; the block cache derives
// them deterministically, so any two writers of the same key produce
// equivalent content and last-write-wins is acceptable.
package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a key has no stored value.
var ErrNotFound = errors.New("storage: key not found")

// Store is the persistence interface behind the block cache. Implementations
// must be safe for concurrent use; independently addressed keys never
// contend logically.
type Store interface {
	// Read returns the bytes stored under key, or ErrNotFound.
	Read(ctx context.Context, key string) ([]byte, error)

	// Write stores data under key, creating or replacing it.
	Write(ctx context.Context, key string, data []byte) error

	// Delete removes a key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// DeletePrefix removes every key with the given prefix. A prefix
	// matching nothing (including an absent backing directory) is a no-op.
	DeletePrefix(ctx context.Context, prefix string) error

	// List returns all keys with the given prefix, sorted.
	List(ctx context.Context, prefix string) ([]string, error)

	// Close releases any resources held by the store.
	Close() error
}

// IsNotFound reports whether err means "no such key".
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
