package doctree

import (
	"bytes"

	"github.com/yuin/goldmark"
	gmast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/renderer"
	ghtml "github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/util"
)

// OpaqueHTML is a block node carrying pre-rendered markup. The downstream
// HTML renderer emits it verbatim; nothing inspects its contents.
type OpaqueHTML struct {
	gmast.BaseBlock
	HTML string
}

// KindOpaqueHTML is the node kind of OpaqueHTML.
var KindOpaqueHTML = gmast.NewNodeKind("OpaqueHTML")

// Kind implements ast.Node.
func (n *OpaqueHTML) Kind() gmast.NodeKind { return KindOpaqueHTML }

// Dump implements ast.Node.
func (n *OpaqueHTML) Dump(source []byte, level int) {
	gmast.DumpHelper(n, source, level, map[string]string{"HTML": n.HTML}, nil)
}

// NewOpaqueHTML creates a pre-rendered markup node.
func NewOpaqueHTML(html string) *OpaqueHTML {
	return &OpaqueHTML{HTML: html}
}

type opaqueRenderer struct{}

// RegisterFuncs implements renderer.NodeRenderer.
func (r *opaqueRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(KindOpaqueHTML, r.render)
}

func (r *opaqueRenderer) render(w util.BufWriter, _ []byte, node gmast.Node, entering bool) (gmast.WalkStatus, error) {
	if entering {
		if _, err := w.WriteString(node.(*OpaqueHTML).HTML); err != nil {
			return gmast.WalkStop, err
		}
		if err := w.WriteByte('\n'); err != nil {
			return gmast.WalkStop, err
		}
	}
	return gmast.WalkContinue, nil
}

// RenderHTML renders the (possibly rewritten) document tree to HTML,
// emitting OpaqueHTML nodes verbatim.
func (d *Document) RenderHTML() (string, error) {
	md := goldmark.New(goldmark.WithRendererOptions(
		ghtml.WithUnsafe(),
		renderer.WithNodeRenderers(util.Prioritized(&opaqueRenderer{}, 100)),
	))
	var buf bytes.Buffer
	if err := md.Renderer().Render(&buf, d.Source, d.Root); err != nil {
		return "", err
	}
	return buf.String(), nil
}
