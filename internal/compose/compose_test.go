package compose

import (
	"context"
	"fmt"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/org-press/org-press-sub001/internal/annotation"
	"github.com/org-press/org-press-sub001/internal/block"
	"github.com/org-press/org-press-sub001/internal/registry"
)

// markerWrapper prefixes the inner result with its name, making the nesting
// order visible in the output.
func markerWrapper(name string) registry.WrapperFactory {
	return func(_ map[string]any) registry.Wrapper {
		return func(next registry.RenderFunc) registry.RenderFunc {
			return func(res block.ExecutionResult, ctx block.Context) (string, error) {
				inner, err := next(res, ctx)
				if err != nil {
					return "", err
				}
				return name + "(" + inner + ")", nil
			}
		}
	}
}

func baseFunc(res block.ExecutionResult, _ block.Context) (string, error) {
	return "base:" + res.Output, nil
}

func newTestRegistry(t *testing.T, names ...string) *registry.Registry {
	t.Helper()
	reg := registry.New()
	for _, n := range names {
		require.NoError(t, reg.RegisterWrapper(n, markerWrapper(n)))
	}
	return reg
}

func render(t *testing.T, f registry.RenderFunc) string {
	t.Helper()
	out, err := f(block.ExecutionResult{Output: "x"}, block.Context{})
	require.NoError(t, err)
	return out
}

func TestComposeRightToLeft(t *testing.T) {
	reg := newTestRegistry(t, "A", "B", "C")
	segs := annotation.ParsePipe("A | B | C")

	composed := Compose(context.Background(), baseFunc, segs, reg, nil, nil)

	// For segments [A, B, C] the composed function is A(B(C(base))).
	assert.Equal(t, "A(B(C(base:x)))", render(t, composed))
}

func TestComposeUnknownWrapperSkippedWithNotification(t *testing.T) {
	reg := newTestRegistry(t, "A", "C")
	segs := annotation.ParsePipe("A | missing | C | gone")

	var misses []string
	composed := Compose(context.Background(), baseFunc, segs, reg, nil, func(name string) {
		misses = append(misses, name)
	})

	// Output identical to the pipeline with the unresolved names removed.
	want := render(t, Compose(context.Background(), baseFunc, annotation.ParsePipe("A | C"), reg, nil, nil))
	assert.Equal(t, want, render(t, composed))
	// One notification per unresolved name.
	assert.Equal(t, []string{"gone", "missing"}, sorted(misses))
}

func TestComposeIsPure(t *testing.T) {
	reg := newTestRegistry(t, "A")
	segs := annotation.ParsePipe("A")

	first := Compose(context.Background(), baseFunc, segs, reg, nil, nil)
	second := Compose(context.Background(), baseFunc, segs, reg, nil, nil)

	assert.Equal(t, render(t, first), render(t, second))
	assert.Equal(t, "A(base:x)", render(t, first))
}

func TestComposeExternalResolver(t *testing.T) {
	reg := newTestRegistry(t, "A")
	segs := annotation.ParsePipe("A | ./shared.md#frame")

	resolver := func(_ context.Context, docPath, fragment string, _ map[string]any) (registry.Wrapper, error) {
		assert.Equal(t, "./shared.md", docPath)
		assert.Equal(t, "frame", fragment)
		return markerWrapper("EXT")(nil), nil
	}

	composed := Compose(context.Background(), baseFunc, segs, reg, resolver, nil)
	assert.Equal(t, "A(EXT(base:x))", render(t, composed))
}

func TestComposeExternalResolutionFailureTreatedAsUnknown(t *testing.T) {
	reg := newTestRegistry(t, "A")
	segs := annotation.ParsePipe("A | ./shared.md#frame")

	failing := func(context.Context, string, string, map[string]any) (registry.Wrapper, error) {
		return nil, fmt.Errorf("document not found")
	}

	var misses int
	composed := Compose(context.Background(), baseFunc, segs, reg, failing, func(string) { misses++ })
	assert.Equal(t, "A(base:x)", render(t, composed))
	assert.Equal(t, 1, misses)

	// No resolver at all behaves identically.
	misses = 0
	composed = Compose(context.Background(), baseFunc, segs, reg, nil, func(string) { misses++ })
	assert.Equal(t, "A(base:x)", render(t, composed))
	assert.Equal(t, 1, misses)
}

func TestComposeSyncSkipsExternalReferences(t *testing.T) {
	reg := newTestRegistry(t, "A", "B")
	segs := annotation.ParsePipe("A | ./shared.md#frame | B")

	var misses []string
	composed := ComposeSync(baseFunc, segs, reg, func(name string) { misses = append(misses, name) })

	assert.Equal(t, "A(B(base:x))", render(t, composed))
	assert.Equal(t, []string{"./shared.md#frame"}, misses)
}

func TestComposeDoesNotCatchRenderErrors(t *testing.T) {
	reg := registry.New()
	require.NoError(t, reg.RegisterWrapper("boom", func(_ map[string]any) registry.Wrapper {
		return func(next registry.RenderFunc) registry.RenderFunc {
			return func(block.ExecutionResult, block.Context) (string, error) {
				return "", fmt.Errorf("wrapper exploded")
			}
		}
	}))

	composed := Compose(context.Background(), baseFunc, annotation.ParsePipe("boom"), reg, nil, nil)
	_, err := composed(block.ExecutionResult{}, block.Context{})
	assert.Error(t, err)
}

func sorted(in []string) []string {
	out := append([]string(nil), in...)
	sort.Strings(out)
	return out
}
