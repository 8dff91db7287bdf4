package doctree

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gmast "github.com/yuin/goldmark/ast"
)

const sample = "# Title\n\nSome prose.\n\n```js widget :use client :height 200px\nconst x = 1;\n```\n\nMore prose.\n\n```js\nconsole.log(2);\n```\n"

func TestCodeBlocksExtraction(t *testing.T) {
	doc := Parse("guides/intro.md", []byte(sample))
	blocks := doc.CodeBlocks()
	require.Len(t, blocks, 2)

	first := blocks[0]
	assert.Equal(t, 0, first.Index)
	assert.Equal(t, "js", first.Language)
	assert.Equal(t, "widget", first.Name)
	assert.Equal(t, ":use client :height 200px", first.Annotation)
	assert.Equal(t, "const x = 1;\n", first.RawCode)

	second := blocks[1]
	assert.Equal(t, 1, second.Index)
	assert.Equal(t, "js", second.Language)
	assert.Empty(t, second.Name)
	assert.Empty(t, second.Annotation)
}

func TestSplitInfo(t *testing.T) {
	tests := []struct {
		info       string
		language   string
		name       string
		annotation string
	}{
		{"js widget :use server", "js", "widget", ":use server"},
		{"js :use server | json", "js", "", ":use server | json"},
		{"python", "python", "", ""},
		{"", "", "", ""},
		{"ts chart :use client :height 400px", "ts", "chart", ":use client :height 400px"},
	}
	for _, tt := range tests {
		lang, name, ann := splitInfo(tt.info)
		assert.Equal(t, tt.language, lang, tt.info)
		assert.Equal(t, tt.name, name, tt.info)
		assert.Equal(t, tt.annotation, ann, tt.info)
	}
}

func TestRewriteRemovalAndReplacement(t *testing.T) {
	doc := Parse("a.md", []byte(sample))
	blocks := doc.CodeBlocks()
	require.Len(t, blocks, 2)

	removals := map[gmast.Node]bool{blocks[1].Node: true}
	replacements := map[gmast.Node][]gmast.Node{
		blocks[0].Node: {NewOpaqueHTML(`<div id="here"></div>`)},
	}
	Rewrite(doc.Root, removals, replacements)

	html, err := doc.RenderHTML()
	require.NoError(t, err)

	assert.Contains(t, html, `<div id="here"></div>`)
	assert.NotContains(t, html, "const x = 1;")
	assert.NotContains(t, html, "console.log(2);")
	assert.Contains(t, html, "Some prose.")
	assert.Contains(t, html, "More prose.")
}

func TestRewriteKeepOriginalPlusEmitted(t *testing.T) {
	doc := Parse("a.md", []byte(sample))
	blocks := doc.CodeBlocks()

	// Source-above policy: original node followed by the emitted one.
	replacements := map[gmast.Node][]gmast.Node{
		blocks[0].Node: {blocks[0].Node, NewOpaqueHTML("<div>out</div>")},
	}
	Rewrite(doc.Root, nil, replacements)

	html, err := doc.RenderHTML()
	require.NoError(t, err)
	assert.Contains(t, html, "const x = 1;")
	assert.Contains(t, html, "<div>out</div>")
	assert.Less(t, strings.Index(html, "const x = 1;"), strings.Index(html, "<div>out</div>"))
}
