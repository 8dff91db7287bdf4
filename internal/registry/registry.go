// Package registry maps mode and wrapper names to their factories. A
// Registry is an explicit object passed by reference; nothing in this
// package is process-global, so tests and embeddings can run several
// independent registries side by side.
package registry

import (
	"fmt"
	"sync"

	"github.com/org-press/org-press-sub001/internal/block"
)

// RenderFunc turns one execution result into renderable markup. An empty
// string means "render nothing". Errors pass through uncaught unless an
// error-boundary wrapper is placed around the function.
type RenderFunc func(res block.ExecutionResult, ctx block.Context) (string, error)

// Wrapper transforms a render function into a new one, adding presentation
// behavior around it.
type Wrapper func(RenderFunc) RenderFunc

// ModeFactory builds the base render function of a pipeline from the mode
// segment's configuration.
type ModeFactory func(config map[string]any) RenderFunc

// WrapperFactory builds a Wrapper from a pipe segment's configuration.
type WrapperFactory func(config map[string]any) Wrapper

// Registry is a name→factory lookup for modes and wrappers.
type Registry struct {
	mu       sync.RWMutex
	modes    map[string]ModeFactory
	wrappers map[string]WrapperFactory
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		modes:    make(map[string]ModeFactory),
		wrappers: make(map[string]WrapperFactory),
	}
}

// RegisterMode adds a mode factory. Re-registering a name replaces it.
func (r *Registry) RegisterMode(name string, f ModeFactory) error {
	if name == "" || f == nil {
		return fmt.Errorf("mode registration requires a name and a factory")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.modes[name] = f
	return nil
}

// RegisterWrapper adds a wrapper factory. Re-registering a name replaces it.
func (r *Registry) RegisterWrapper(name string, f WrapperFactory) error {
	if name == "" || f == nil {
		return fmt.Errorf("wrapper registration requires a name and a factory")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.wrappers[name] = f
	return nil
}

// Mode returns the factory for a mode name, or false when unknown.
func (r *Registry) Mode(name string) (ModeFactory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.modes[name]
	return f, ok
}

// Wrapper returns the factory for a wrapper name, or false when unknown.
func (r *Registry) Wrapper(name string) (WrapperFactory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.wrappers[name]
	return f, ok
}

// ModeNames returns the registered mode names; test helper.
func (r *Registry) ModeNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.modes))
	for n := range r.modes {
		names = append(names, n)
	}
	return names
}
