package exporter

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/org-press/org-press-sub001/internal/blockcache"
	"github.com/org-press/org-press-sub001/internal/doctree"
	"github.com/org-press/org-press-sub001/internal/hydrate"
	"github.com/org-press/org-press-sub001/internal/plugin"
	"github.com/org-press/org-press-sub001/internal/registry"
	"github.com/org-press/org-press-sub001/internal/sandbox"
	"github.com/org-press/org-press-sub001/internal/storage"
)

type fixture struct {
	exporter *Exporter
	hydrate  *hydrate.Registry
	cache    *blockcache.Cache
	store    *storage.MemStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := storage.NewMemStore()
	cache := blockcache.New(store)
	hyd := hydrate.NewRegistry()

	exp, err := New(Config{
		Registry: registry.NewWithBuiltins(),
		Plugins:  plugin.NewResolver(plugin.NewScriptPlugin(), plugin.NewCSSPlugin()),
		Sandbox:  sandbox.New(sandbox.ContentHelpers{}),
		Cache:    cache,
		Hydrate:  hyd,
	})
	require.NoError(t, err)
	return &fixture{exporter: exp, hydrate: hyd, cache: cache, store: store}
}

func export(t *testing.T, f *fixture, path, markdown string) string {
	t.Helper()
	doc := doctree.Parse(path, []byte(markdown))
	require.NoError(t, f.exporter.ExportDocument(context.Background(), doc))
	html, err := doc.RenderHTML()
	require.NoError(t, err)
	return html
}

func TestSilentBlockVanishesButAdvancesIndex(t *testing.T) {
	f := newFixture(t)
	md := "```js first\n1;\n```\n\n```js :use silent\nconst SECRET_TOKEN = 'hidden';\n```\n\n```js third\n3;\n```\n"

	html := export(t, f, "guides/silent.md", md)

	assert.NotContains(t, html, "SECRET_TOKEN")
	blocks := f.hydrate.Drain("guides/silent.md")
	require.Len(t, blocks, 2)
	assert.Equal(t, "first", blocks[0].Name)
	assert.Equal(t, "third", blocks[1].Name)
	// The silent block still advanced the index counter: the third block's
	// id is derived from index 2, not 1.
	assert.Equal(t, hydrate.BlockID("guides/silent.md", 2, "third"), blocks[1].ID)
}

func TestServerJSONEndToEnd(t *testing.T) {
	f := newFixture(t)
	md := "```js :use server | json\n({a: 1});\n```\n"

	html := export(t, f, "guides/data.md", md)

	// HTML-escaped, JSON-formatted output; never the literal source.
	assert.Contains(t, html, "orgpress-output")
	assert.Contains(t, html, "&#34;a&#34;: 1")
	assert.NotContains(t, html, "({a: 1});")
	// Server-track blocks do not hydrate.
	assert.Empty(t, f.hydrate.Drain("guides/data.md"))
}

func TestServerExecutionErrorFailsOpen(t *testing.T) {
	f := newFixture(t)
	md := "```js :use server\nthrow new Error('kaput');\n```\n"

	html := export(t, f, "guides/broken.md", md)

	// The original source stays visible.
	assert.Contains(t, html, "kaput")
	assert.Contains(t, html, "throw new Error")
	assert.NotContains(t, html, "orgpress-output")
}

func TestServerResultCached(t *testing.T) {
	f := newFixture(t)
	md := "```js :use server\n40 + 2;\n```\n"

	export(t, f, "guides/cached.md", md)

	rec, ok := f.cache.ReadResult(context.Background(), "guides/cached.md", 0)
	require.True(t, ok)
	assert.Equal(t, "42", rec.Result.Output)
}

func TestClientTrackNamedAndUnnamedCachePaths(t *testing.T) {
	f := newFixture(t)
	md := "```js\nconsole.log('unnamed');\n```\n\n```js main\nconsole.log('named');\n```\n"

	html := export(t, f, "guides/client.md", md)

	blocks := f.hydrate.Drain("guides/client.md")
	require.Len(t, blocks, 2)
	assert.NotEqual(t, blocks[0].CachePath, blocks[1].CachePath)
	assert.Equal(t, "guides/client/main.js", blocks[1].CachePath)
	assert.Equal(t, "guides/client/"+blockcache.ContentHash("console.log('unnamed');\n")+".js", blocks[0].CachePath)

	// Both transformed modules landed in the store.
	for _, b := range blocks {
		_, ok := f.cache.ReadTransformed(context.Background(), b.CachePath)
		assert.True(t, ok, b.CachePath)
	}
	// Placeholders replaced the source.
	assert.Contains(t, html, "orgpress-block")
	assert.NotContains(t, html, "console.log")
}

func TestModeDefaultsToPreview(t *testing.T) {
	f := newFixture(t)
	md := "```js\n1;\n```\n"

	export(t, f, "guides/default.md", md)
	withExplicit := newFixture(t)
	export(t, withExplicit, "guides/default.md", "```js :use preview\n1;\n```\n")

	a := f.hydrate.Drain("guides/default.md")
	b := withExplicit.hydrate.Drain("guides/default.md")
	require.Len(t, a, 1)
	require.Len(t, b, 1)
	assert.Equal(t, "preview", a[0].RenderMode)
	assert.Equal(t, a[0].RenderMode, b[0].RenderMode)
	assert.Equal(t, a[0].ID, b[0].ID)
}

func TestPluginMismatchIsPassthrough(t *testing.T) {
	f := newFixture(t)
	md := "```fortran\nPRINT *, 'HELLO'\n```\n"

	html := export(t, f, "guides/fortran.md", md)

	assert.Contains(t, html, "PRINT *,")
	assert.Empty(t, f.hydrate.Drain("guides/fortran.md"))
	assert.Equal(t, 0, f.store.Len())
}

func TestSourceOnlyNeverExecutesOrHydrates(t *testing.T) {
	f := newFixture(t)
	md := "```js :use sourceOnly\nglobalThis.sideEffect = true;\n```\n"

	html := export(t, f, "guides/source.md", md)

	assert.Contains(t, html, "globalThis.sideEffect")
	assert.Empty(t, f.hydrate.Drain("guides/source.md"))
	_, ok := f.cache.ReadResult(context.Background(), "guides/source.md", 0)
	assert.False(t, ok)
}

func TestStylesheetBlockBecomesInlineStyle(t *testing.T) {
	f := newFixture(t)
	md := "```css\n.hero { color: red; }\n```\n"

	html := export(t, f, "guides/style.md", md)

	assert.Contains(t, html, "<style>")
	assert.Contains(t, html, ".hero")
	// Stylesheet blocks never hydrate.
	assert.Empty(t, f.hydrate.Drain("guides/style.md"))
}

func TestDuplicateExplicitNamesRejected(t *testing.T) {
	f := newFixture(t)
	md := "```js main\n1;\n```\n\n```js main\n2;\n```\n"
	doc := doctree.Parse("guides/dup.md", []byte(md))

	err := f.exporter.ExportDocument(context.Background(), doc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"main"`)
}

func TestSourceAbovePolicyKeepsOriginal(t *testing.T) {
	f := newFixture(t)
	md := "```js :use server :source above\n'output text';\n```\n"

	html := export(t, f, "guides/both.md", md)

	assert.Contains(t, html, "output text&#39;;", "source fence must remain")
	assert.Contains(t, html, "orgpress-output")
	srcAt := strings.Index(html, "<pre>")
	outAt := strings.Index(html, "orgpress-output")
	require.GreaterOrEqual(t, srcAt, 0)
	assert.Less(t, srcAt, outAt)
}

func TestHeightParameterOnPlaceholder(t *testing.T) {
	f := newFixture(t)
	md := "```js :use client :height 400px\n1;\n```\n"

	html := export(t, f, "guides/tall.md", md)
	assert.Contains(t, html, "min-height:400px")
}

func TestUnknownWrapperToleratedInServerPipeline(t *testing.T) {
	f := newFixture(t)
	md := "```js :use server | doesNotExist | json\n({b: 2});\n```\n"

	html := export(t, f, "guides/tolerant.md", md)

	// Identical to the pipeline without the unknown segment.
	assert.Contains(t, html, "&#34;b&#34;: 2")
	assert.Contains(t, html, "orgpress-json")
}
