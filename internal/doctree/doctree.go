// Package doctree adapts goldmark's AST to the block pipeline: it lifts
// fenced code blocks with their annotations out of a parsed document, and
// applies the exporter's node replacements as one bulk rewrite after the
// walk, never mutating the tree mid-traversal.
package doctree

import (
	"strings"

	"github.com/yuin/goldmark"
	gmast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// Document is one parsed literate document.
type Document struct {
	// Path is the content-tree-relative path, slash-separated.
	Path   string
	Source []byte
	Root   gmast.Node
}

// CodeBlock is one fenced code region in document order. Index advances for
// every block, silent ones included.
type CodeBlock struct {
	Node       *gmast.FencedCodeBlock
	Language   string
	Name       string
	Annotation string
	RawCode    string
	Index      int
}

// Parse builds a Document from markdown source.
func Parse(path string, source []byte) *Document {
	md := goldmark.New()
	root := md.Parser().Parse(text.NewReader(source))
	return &Document{Path: path, Source: source, Root: root}
}

// CodeBlocks returns the document's fenced code blocks in document order.
func (d *Document) CodeBlocks() []CodeBlock {
	var blocks []CodeBlock
	_ = gmast.Walk(d.Root, func(n gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if !entering {
			return gmast.WalkContinue, nil
		}
		fcb, ok := n.(*gmast.FencedCodeBlock)
		if !ok {
			return gmast.WalkContinue, nil
		}
		cb := CodeBlock{
			Node:    fcb,
			RawCode: blockText(fcb, d.Source),
			Index:   len(blocks),
		}
		if fcb.Info != nil {
			cb.Language, cb.Name, cb.Annotation = splitInfo(string(fcb.Info.Segment.Value(d.Source)))
		}
		blocks = append(blocks, cb)
		return gmast.WalkContinue, nil
	})
	return blocks
}

// splitInfo decomposes a fence info string like "js hello :use server | json"
// into language, optional block name, and the annotation remainder.
func splitInfo(info string) (language, name, annotation string) {
	if i := strings.IndexByte(info, ':'); i >= 0 {
		annotation = strings.TrimSpace(info[i:])
		info = info[:i]
	}
	fields := strings.Fields(info)
	if len(fields) > 0 {
		language = fields[0]
	}
	if len(fields) > 1 {
		name = fields[1]
	}
	return language, name, annotation
}

func blockText(n *gmast.FencedCodeBlock, source []byte) string {
	var b strings.Builder
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		b.Write(seg.Value(source))
	}
	return b.String()
}

// Rewrite applies removals and replacements in one pass: every affected
// container gets a freshly built child list, which sidesteps iterator
// invalidation entirely.
func Rewrite(root gmast.Node, removals map[gmast.Node]bool, replacements map[gmast.Node][]gmast.Node) {
	parents := map[gmast.Node]bool{}
	for n := range removals {
		if p := n.Parent(); p != nil {
			parents[p] = true
		}
	}
	for n := range replacements {
		if p := n.Parent(); p != nil {
			parents[p] = true
		}
	}

	for parent := range parents {
		var fresh []gmast.Node
		for child := parent.FirstChild(); child != nil; child = child.NextSibling() {
			switch {
			case removals[child]:
				// dropped
			case replacements[child] != nil:
				fresh = append(fresh, replacements[child]...)
			default:
				fresh = append(fresh, child)
			}
		}
		parent.RemoveChildren(parent)
		for _, child := range fresh {
			parent.AppendChild(parent, child)
		}
	}
}
