package hydrate

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/org-press/org-press-sub001/internal/storage"
)

// manifestKey is where the build manifest lives in the store.
const manifestKey = "hydration/manifest.json"

// loaderNamespace prefixes generated loader sources in the store.
const loaderNamespace = "hydration/loaders/"

// DocumentEntry is one document's hydration description in the manifest.
type DocumentEntry struct {
	Loader string           `json:"loader"`
	Blocks []CollectedBlock `json:"blocks"`
}

// Manifest maps document paths to their loader descriptors. It is a bundler
// input, so it stays textual JSON.
type Manifest struct {
	GeneratedAt time.Time                `json:"generatedAt"`
	Documents   map[string]DocumentEntry `json:"documents"`
}

// ToJSON serializes the manifest.
func (m *Manifest) ToJSON() ([]byte, error) {
	return json.MarshalIndent(m, "", "  ")
}

// FromJSON deserializes a manifest.
func FromJSON(data []byte) (*Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse hydration manifest: %w", err)
	}
	return &m, nil
}

// Flush drains the registry into loader sources and a manifest, writing both
// through the store. Documents with zero hydratable blocks get no loader and
// no manifest entry. An existing manifest is merged into, so flushing a
// single rebuilt document keeps the other documents' entries.
func Flush(ctx context.Context, reg *Registry, store storage.Store) (*Manifest, error) {
	m := &Manifest{
		GeneratedAt: time.Now().UTC(),
		Documents:   make(map[string]DocumentEntry),
	}
	if prev, err := store.Read(ctx, manifestKey); err == nil {
		if parsed, perr := FromJSON(prev); perr == nil {
			m.Documents = parsed.Documents
		}
	}

	drained := 0
	for _, doc := range reg.Documents() {
		blocks := reg.Drain(doc)
		if len(blocks) == 0 {
			continue
		}
		drained++
		loaderName := LoaderFileName(doc)
		source := GenerateLoader(doc, blocks)
		if err := store.Write(ctx, loaderNamespace+loaderName, []byte(source)); err != nil {
			return nil, fmt.Errorf("write loader for %s: %w", doc, err)
		}
		m.Documents[doc] = DocumentEntry{Loader: loaderName, Blocks: blocks}
	}
	if drained == 0 {
		return m, nil
	}
	data, err := m.ToJSON()
	if err != nil {
		return nil, fmt.Errorf("serialize hydration manifest: %w", err)
	}
	if err := store.Write(ctx, manifestKey, data); err != nil {
		return nil, fmt.Errorf("write hydration manifest: %w", err)
	}
	return m, nil
}
