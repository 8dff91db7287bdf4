// Package exporter drives the block pipeline over one parsed document:
// per block it parses the annotation, picks a disposition, runs the server
// or client track, and finally rewrites the tree in one pass.
package exporter

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"time"

	gmast "github.com/yuin/goldmark/ast"

	"github.com/org-press/org-press-sub001/internal/annotation"
	"github.com/org-press/org-press-sub001/internal/block"
	"github.com/org-press/org-press-sub001/internal/blockcache"
	"github.com/org-press/org-press-sub001/internal/compose"
	"github.com/org-press/org-press-sub001/internal/doctree"
	"github.com/org-press/org-press-sub001/internal/hydrate"
	"github.com/org-press/org-press-sub001/internal/logfields"
	"github.com/org-press/org-press-sub001/internal/metrics"
	"github.com/org-press/org-press-sub001/internal/plugin"
	"github.com/org-press/org-press-sub001/internal/registry"
	"github.com/org-press/org-press-sub001/internal/sandbox"
)

// Modes with dispositions of their own.
const (
	modeSilent     = "silent"
	modeSourceOnly = "sourceOnly"
	modeServer     = "server"
)

// Config wires an Exporter. Registry, Plugins, Sandbox, Cache and Hydrate
// are required; the rest default sensibly.
type Config struct {
	Registry *registry.Registry
	Plugins  *plugin.Resolver
	Sandbox  *sandbox.Sandbox
	Cache    *blockcache.Cache
	Hydrate  *hydrate.Registry

	// Resolver resolves cross-file wrapper references; nil means such
	// references are skipped like unknown wrappers.
	Resolver compose.ExternalResolver

	Logger      *slog.Logger
	Recorder    metrics.Recorder
	Development bool
}

// Exporter processes documents one at a time. A single Exporter may be used
// from several goroutines as long as each call gets its own document; all
// per-document state lives on the stack of ExportDocument.
type Exporter struct {
	cfg Config
}

// New creates an exporter.
func New(cfg Config) (*Exporter, error) {
	if cfg.Registry == nil || cfg.Plugins == nil || cfg.Sandbox == nil || cfg.Cache == nil || cfg.Hydrate == nil {
		return nil, fmt.Errorf("exporter requires registry, plugins, sandbox, cache and hydrate registry")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Recorder == nil {
		cfg.Recorder = metrics.Noop{}
	}
	return &Exporter{cfg: cfg}, nil
}

// ExportDocument runs the single pass over one document. Execution errors
// recover locally (the block keeps its source, fail open); only structural
// problems such as a duplicate explicit block name or a cache write failure
// fail the document.
func (e *Exporter) ExportDocument(ctx context.Context, doc *doctree.Document) error {
	removals := map[gmast.Node]bool{}
	replacements := map[gmast.Node][]gmast.Node{}
	seenNames := map[string]int{}

	for _, cb := range doc.CodeBlocks() {
		if cb.Name != "" {
			if prev, dup := seenNames[cb.Name]; dup {
				return fmt.Errorf("document %s: blocks %d and %d share the explicit name %q",
					doc.Path, prev, cb.Index, cb.Name)
			}
			seenNames[cb.Name] = cb.Index
		}

		ann := annotation.Parse(cb.Annotation)
		segments := annotation.ParsePipe(ann.Use())
		mode := annotation.DefaultMode
		if len(segments) > 0 {
			mode = segments[0].Name
		}

		if mode == modeSilent {
			// Removed from markup and hydration; the index already advanced.
			removals[cb.Node] = true
			continue
		}
		if mode == modeSourceOnly || ann["source"] == "only" {
			// Source stays visible as-is; never executes, never hydrates.
			continue
		}

		p := e.cfg.Plugins.Resolve(cb.Language, cb.RawCode, cb.Annotation)
		if p == nil {
			// No plugin claims the block; silent passthrough.
			continue
		}

		pcb := block.ParsedCodeBlock{
			Language:   cb.Language,
			RawCode:    cb.RawCode,
			Annotation: ann,
			Index:      cb.Index,
			Name:       cb.Name,
		}
		pctx := plugin.Context{DocumentPath: doc.Path, Development: e.cfg.Development}

		if sp, ok := p.(plugin.StylesheetPlugin); ok && sp.Stylesheet() {
			e.exportStylesheet(cb, pcb, pctx, sp, replacements)
			continue
		}

		if mode == modeServer {
			if sp, ok := p.(plugin.ServerPlugin); ok {
				if err := e.exportServer(ctx, doc, cb, pcb, pctx, sp, ann, segments, replacements); err != nil {
					return err
				}
				continue
			}
		}

		if err := e.exportClient(ctx, doc, cb, pcb, pctx, p, ann, mode, replacements); err != nil {
			return err
		}
	}

	doctree.Rewrite(doc.Root, removals, replacements)
	return nil
}

// exportStylesheet turns a stylesheet block into an inline style element; no
// execution, no hydration.
func (e *Exporter) exportStylesheet(
	cb doctree.CodeBlock,
	pcb block.ParsedCodeBlock,
	pctx plugin.Context,
	p plugin.StylesheetPlugin,
	replacements map[gmast.Node][]gmast.Node,
) {
	tr, err := p.Transform(pcb, pctx)
	if err != nil || tr == nil {
		if err != nil {
			e.cfg.Logger.Warn("stylesheet transform failed, keeping source",
				logfields.Document(pctx.DocumentPath), logfields.BlockIndex(cb.Index), logfields.Error(err))
		}
		return
	}
	style := doctree.NewOpaqueHTML("<style>" + string(tr.Code) + "</style>")
	replacements[cb.Node] = []gmast.Node{style}
}

// exportServer executes the block now and replaces it with rendered output.
// On execution or render failure the original node stays, so the raw source
// remains visible.
func (e *Exporter) exportServer(
	ctx context.Context,
	doc *doctree.Document,
	cb doctree.CodeBlock,
	pcb block.ParsedCodeBlock,
	pctx plugin.Context,
	p plugin.ServerPlugin,
	ann annotation.Annotation,
	segments []annotation.Segment,
	replacements map[gmast.Node][]gmast.Node,
) error {
	sr, err := p.OnServer(pcb, pctx)
	if err != nil || sr == nil || !sr.ExecuteOnServer {
		if err != nil {
			e.cfg.Logger.Warn("server transform failed, keeping source",
				logfields.Document(doc.Path), logfields.BlockIndex(cb.Index), logfields.Error(err))
		}
		return nil
	}

	var res block.ExecutionResult
	if rec, hit := e.cfg.Cache.ReadResult(ctx, doc.Path, cb.Index); hit {
		e.cfg.Recorder.CacheLookup(true)
		res = rec.Result
	} else {
		e.cfg.Recorder.CacheLookup(false)
		res = e.cfg.Sandbox.Execute(ctx, sr.Code, cb.Language)
		e.cfg.Recorder.BlockExecuted(time.Duration(res.ExecutionTimeMS*float64(time.Millisecond)), !res.Failed())
		if !res.Failed() {
			if err := e.cfg.Cache.WriteResult(ctx, doc.Path, cb.Index, res); err != nil {
				return err
			}
		}
	}

	if res.Failed() {
		e.cfg.Logger.Warn("block execution failed, keeping source",
			logfields.Document(doc.Path), logfields.BlockIndex(cb.Index),
			logfields.Language(cb.Language), logfields.Error(res.Error))
		return nil
	}

	render := e.composeRender(ctx, segments)
	bctx := block.Context{
		DocumentPath: doc.Path,
		Index:        cb.Index,
		Name:         cb.Name,
		Language:     cb.Language,
		Params:       ann,
	}
	out, err := render(res, bctx)
	if err != nil {
		e.cfg.Logger.Warn("render failed, keeping source",
			logfields.Document(doc.Path), logfields.BlockIndex(cb.Index), logfields.Error(err))
		return nil
	}

	output := doctree.NewOpaqueHTML(`<div class="orgpress-output">` + out + `</div>`)
	replacements[cb.Node] = withSourcePolicy(ann, cb.Node, output)
	return nil
}

// exportClient transforms the block, caches the module, emits a placeholder
// container and registers the block for hydration.
func (e *Exporter) exportClient(
	ctx context.Context,
	doc *doctree.Document,
	cb doctree.CodeBlock,
	pcb block.ParsedCodeBlock,
	pctx plugin.Context,
	p plugin.Plugin,
	ann annotation.Annotation,
	mode string,
	replacements map[gmast.Node][]gmast.Node,
) error {
	tr, err := p.Transform(pcb, pctx)
	if err != nil {
		e.cfg.Logger.Warn("transform failed, keeping source",
			logfields.Document(doc.Path), logfields.BlockIndex(cb.Index),
			logfields.Plugin(p.Name()), logfields.Error(err))
		return nil
	}
	if tr == nil {
		// Block opted out.
		return nil
	}

	key, err := e.cfg.Cache.WriteTransformed(ctx, doc.Path, cb.Name, cb.RawCode, tr.Code, p.OutputExtension())
	if err != nil {
		return err
	}

	id := hydrate.BlockID(doc.Path, cb.Index, cb.Name)
	containerID := id + "-root"
	placeholder := doctree.NewOpaqueHTML(placeholderHTML(id, containerID, mode, ann.Height()))
	replacements[cb.Node] = withSourcePolicy(ann, cb.Node, placeholder)

	e.cfg.Hydrate.Add(doc.Path, hydrate.CollectedBlock{
		ID:              id,
		ContainerID:     containerID,
		CachePath:       key,
		ModuleReference: "/" + key,
		Name:            cb.Name,
		Language:        cb.Language,
		RenderMode:      mode,
	})
	e.cfg.Logger.Debug("block collected for hydration",
		logfields.Document(doc.Path), logfields.BlockIndex(cb.Index),
		logfields.Mode(mode), logfields.CachePath(key))
	return nil
}

// composeRender resolves the mode segment into the base render function and
// wraps it with the remaining segments, right to left.
func (e *Exporter) composeRender(ctx context.Context, segments []annotation.Segment) registry.RenderFunc {
	var base registry.RenderFunc
	var wrappers []annotation.Segment
	if len(segments) > 0 {
		if factory, ok := e.cfg.Registry.Mode(segments[0].Name); ok {
			base = factory(segments[0].Config)
		}
		wrappers = segments[1:]
	}
	if base == nil {
		base = func(res block.ExecutionResult, _ block.Context) (string, error) {
			if res.Error != nil {
				return "", res.Error
			}
			return html.EscapeString(res.Output), nil
		}
	}
	notify := func(name string) {
		e.cfg.Logger.Warn("unknown wrapper skipped", logfields.Wrapper(name))
	}
	return compose.Compose(ctx, base, wrappers, e.cfg.Registry, e.cfg.Resolver, notify)
}

// withSourcePolicy honors the :source display parameter: "above" keeps the
// original block before the emitted node, "below" after, anything else
// replaces it outright.
func withSourcePolicy(ann annotation.Annotation, original gmast.Node, emitted gmast.Node) []gmast.Node {
	switch ann["source"] {
	case "above":
		return []gmast.Node{original, emitted}
	case "below":
		return []gmast.Node{emitted, original}
	default:
		return []gmast.Node{emitted}
	}
}

func placeholderHTML(id, containerID, mode, height string) string {
	style := ""
	if height != "" {
		style = ` style="min-height:` + html.EscapeString(height) + `"`
	}
	return `<div id="` + containerID + `" class="orgpress-block" data-block-id="` + id +
		`" data-render-mode="` + html.EscapeString(mode) + `"` + style + `></div>`
}
