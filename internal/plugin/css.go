package plugin

import (
	"fmt"
	"strings"

	"github.com/evanw/esbuild/pkg/api"

	"github.com/org-press/org-press-sub001/internal/block"
)

// CSSPlugin handles stylesheet blocks. Its output becomes an inline style
// element; stylesheet blocks never execute or hydrate.
type CSSPlugin struct{}

// NewCSSPlugin creates the stock stylesheet plugin.
func NewCSSPlugin() *CSSPlugin { return &CSSPlugin{} }

func (p *CSSPlugin) Name() string            { return "css" }
func (p *CSSPlugin) OutputExtension() string { return ".css" }
func (p *CSSPlugin) Stylesheet() bool        { return true }

func (p *CSSPlugin) Match(language, _, _ string) bool {
	return strings.EqualFold(language, "css")
}

func (p *CSSPlugin) Transform(b block.ParsedCodeBlock, ctx Context) (*TransformResult, error) {
	opts := api.TransformOptions{Loader: api.LoaderCSS}
	if !ctx.Development {
		opts.MinifyWhitespace = true
	}
	result := api.Transform(b.RawCode, opts)
	if len(result.Errors) > 0 {
		msgs := make([]string, 0, len(result.Errors))
		for _, e := range result.Errors {
			msgs = append(msgs, e.Text)
		}
		return nil, fmt.Errorf("transform css block %d of %s: %s", b.Index, ctx.DocumentPath, strings.Join(msgs, "; "))
	}
	return &TransformResult{Code: result.Code}, nil
}
