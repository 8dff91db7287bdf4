// Package hydrate aggregates the client-hydratable blocks discovered per
// document and turns them into loader sources and a build manifest.
package hydrate

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strconv"
	"sync"
)

// CollectedBlock is one client-track block awaiting hydration.
type CollectedBlock struct {
	ID              string `json:"id"`
	ContainerID     string `json:"containerId"`
	CachePath       string `json:"cachePath"`
	ModuleReference string `json:"moduleReference"`
	Name            string `json:"name,omitempty"`
	Language        string `json:"language"`
	RenderMode      string `json:"renderMode"`
}

// BlockID derives the deterministic block identity: a function of the
// document path and the explicit name when present, else the block index.
// Repeated builds of an unchanged document yield identical ids.
func BlockID(documentPath string, index int, name string) string {
	discriminator := name
	if discriminator == "" {
		discriminator = strconv.Itoa(index)
	}
	sum := sha256.Sum256([]byte(documentPath + "\x00" + discriminator))
	return "blk-" + hex.EncodeToString(sum[:])[:12]
}

// Registry accumulates collected blocks per document. It is safe for
// concurrent use across documents; each document's slice is keyed
// independently, never behind a shared counter.
type Registry struct {
	mu   sync.Mutex
	docs map[string][]CollectedBlock
}

// NewRegistry creates an empty hydration registry.
func NewRegistry() *Registry {
	return &Registry{docs: make(map[string][]CollectedBlock)}
}

// Add appends a block to its document's ordered entry list.
func (r *Registry) Add(documentPath string, b CollectedBlock) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.docs[documentPath] = append(r.docs[documentPath], b)
}

// Drain removes and returns one document's blocks; entries are consumed
// exactly once, at bundle-generation time.
func (r *Registry) Drain(documentPath string) []CollectedBlock {
	r.mu.Lock()
	defer r.mu.Unlock()
	blocks := r.docs[documentPath]
	delete(r.docs, documentPath)
	return blocks
}

// Documents returns the paths with pending blocks, sorted.
func (r *Registry) Documents() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	paths := make([]string, 0, len(r.docs))
	for p := range r.docs {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}
