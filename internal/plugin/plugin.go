// Package plugin resolves a handling plugin for each code block and defines
// the transform contracts of the client and server tracks.
package plugin

import (
	"sync"

	"github.com/org-press/org-press-sub001/internal/annotation"
	"github.com/org-press/org-press-sub001/internal/block"
)

// Context carries document-level information into a transform.
type Context struct {
	DocumentPath string
	Development  bool
}

// TransformResult is the client-track output of a plugin. A nil result from
// Transform means the block opted out and the node stays untouched.
type TransformResult struct {
	Code []byte

	// ExportsRender reports whether the module exports a custom render
	// function. This is an explicit capability declared by the transform,
	// not a text scan of the source, so commented-out exports do not
	// false-positive.
	ExportsRender bool
}

// ServerResult is the server-track output of a plugin.
type ServerResult struct {
	Code            string
	ExecuteOnServer bool
}

// Plugin handles one family of block languages.
type Plugin interface {
	Name() string

	// OutputExtension is the extension of files this plugin emits (".js",
	// ".css").
	OutputExtension() string

	// Match reports whether this plugin claims the block.
	Match(language, rawCode, annotationString string) bool

	// Transform produces the client-loadable form of the block, or nil when
	// the block opts out.
	Transform(b block.ParsedCodeBlock, ctx Context) (*TransformResult, error)
}

// ServerPlugin is implemented by plugins whose blocks can execute during the
// build.
type ServerPlugin interface {
	Plugin
	OnServer(b block.ParsedCodeBlock, ctx Context) (*ServerResult, error)
}

// StylesheetPlugin marks plugins whose output is a stylesheet; their blocks
// become inline style elements and never hydrate.
type StylesheetPlugin interface {
	Plugin
	Stylesheet() bool
}

// Resolver picks the handling plugin for a block. Plugins are consulted in
// registration order; an explicit :plugin annotation overrides matching. A
// nil resolution is not an error; the block passes through untouched.
type Resolver struct {
	mu      sync.RWMutex
	plugins []Plugin
}

// NewResolver creates a resolver with the given plugins, in order.
func NewResolver(plugins ...Plugin) *Resolver {
	return &Resolver{plugins: plugins}
}

// Register appends a plugin.
func (r *Resolver) Register(p Plugin) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.plugins = append(r.plugins, p)
}

// Resolve returns the plugin claiming the block, or nil.
func (r *Resolver) Resolve(language, rawCode, annotationString string) Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if override := annotation.Parse(annotationString)["plugin"]; override != "" {
		for _, p := range r.plugins {
			if p.Name() == override {
				return p
			}
		}
		return nil
	}
	for _, p := range r.plugins {
		if p.Match(language, rawCode, annotationString) {
			return p
		}
	}
	return nil
}
