// Package compose builds one render function out of an ordered pipe-segment
// list and a registry. Composition is pure: it resolves factories and nests
// functions, with no side effects, so it is safe to call repeatedly with
// different inputs.
package compose

import (
	"context"

	"github.com/org-press/org-press-sub001/internal/annotation"
	"github.com/org-press/org-press-sub001/internal/registry"
)

// NotifyUnknown is invoked once per wrapper segment that could not be
// resolved. Misses are not fatal; the pipeline proceeds without the segment.
type NotifyUnknown func(name string)

// ExternalResolver resolves a cross-file wrapper reference
// (./other-doc.md#name) into a Wrapper. A nil resolver, or any resolution
// error, is treated exactly like an unknown wrapper name.
type ExternalResolver func(ctx context.Context, docPath, fragment string, config map[string]any) (registry.Wrapper, error)

// Compose applies the wrapper segments around base, right to left: for
// segments [A, B, C] the result is A(B(C(base))), so the first-listed
// segment controls the final structure. The mode segment must already be
// resolved into base by the caller.
func Compose(
	ctx context.Context,
	base registry.RenderFunc,
	segments []annotation.Segment,
	reg *registry.Registry,
	resolver ExternalResolver,
	notify NotifyUnknown,
) registry.RenderFunc {
	composed := base
	for i := len(segments) - 1; i >= 0; i-- {
		seg := segments[i]
		w, ok := resolveWrapper(ctx, seg, reg, resolver)
		if !ok {
			if notify != nil {
				notify(seg.Name)
			}
			continue
		}
		composed = w(composed)
	}
	return composed
}

// ComposeSync is the synchronous variant for call sites that cannot await an
// external resolver; cross-file references are skipped immediately, with the
// same miss notification as unknown names.
func ComposeSync(
	base registry.RenderFunc,
	segments []annotation.Segment,
	reg *registry.Registry,
	notify NotifyUnknown,
) registry.RenderFunc {
	composed := base
	for i := len(segments) - 1; i >= 0; i-- {
		seg := segments[i]
		if seg.IsExternalImport {
			if notify != nil {
				notify(seg.Name)
			}
			continue
		}
		factory, ok := reg.Wrapper(seg.Name)
		if !ok {
			if notify != nil {
				notify(seg.Name)
			}
			continue
		}
		composed = factory(seg.Config)(composed)
	}
	return composed
}

func resolveWrapper(
	ctx context.Context,
	seg annotation.Segment,
	reg *registry.Registry,
	resolver ExternalResolver,
) (registry.Wrapper, bool) {
	if seg.IsExternalImport {
		if resolver == nil {
			return nil, false
		}
		docPath, fragment := annotation.SplitExternalRef(seg.Name)
		w, err := resolver(ctx, docPath, fragment, seg.Config)
		if err != nil || w == nil {
			return nil, false
		}
		return w, true
	}
	factory, ok := reg.Wrapper(seg.Name)
	if !ok {
		return nil, false
	}
	return factory(seg.Config), true
}
