package plugin

import (
	"fmt"
	"strings"

	"github.com/evanw/esbuild/pkg/api"

	"github.com/org-press/org-press-sub001/internal/block"
)

var scriptLoaders = map[string]api.Loader{
	"js":         api.LoaderJS,
	"javascript": api.LoaderJS,
	"jsx":        api.LoaderJSX,
	"ts":         api.LoaderTS,
	"typescript": api.LoaderTS,
	"tsx":        api.LoaderTSX,
}

// ScriptPlugin handles JavaScript-family blocks on both tracks: esbuild
// transform for the client, direct execution for the server.
type ScriptPlugin struct{}

// NewScriptPlugin creates the stock script plugin.
func NewScriptPlugin() *ScriptPlugin { return &ScriptPlugin{} }

func (p *ScriptPlugin) Name() string            { return "script" }
func (p *ScriptPlugin) OutputExtension() string { return ".js" }

func (p *ScriptPlugin) Match(language, _, _ string) bool {
	_, ok := scriptLoaders[strings.ToLower(language)]
	return ok
}

// Transform lowers the block to a plain ES module for bundling.
func (p *ScriptPlugin) Transform(b block.ParsedCodeBlock, ctx Context) (*TransformResult, error) {
	loader, ok := scriptLoaders[strings.ToLower(b.Language)]
	if !ok {
		return nil, nil
	}
	opts := api.TransformOptions{
		Loader: loader,
		Target: api.ES2020,
		Format: api.FormatESModule,
	}
	if !ctx.Development {
		opts.MinifyWhitespace = true
		opts.MinifySyntax = true
	}
	result := api.Transform(b.RawCode, opts)
	if len(result.Errors) > 0 {
		msgs := make([]string, 0, len(result.Errors))
		for _, e := range result.Errors {
			msgs = append(msgs, e.Text)
		}
		return nil, fmt.Errorf("transform block %d of %s: %s", b.Index, ctx.DocumentPath, strings.Join(msgs, "; "))
	}
	return &TransformResult{
		Code:          result.Code,
		ExportsRender: exportsRender(b.RawCode),
	}, nil
}

// OnServer hands the raw code to the sandbox; the sandbox transpiles typed
// languages itself.
func (p *ScriptPlugin) OnServer(b block.ParsedCodeBlock, _ Context) (*ServerResult, error) {
	return &ServerResult{Code: b.RawCode, ExecuteOnServer: true}, nil
}

// exportsRender detects a default export while skipping comments, so a
// commented-out export does not count.
func exportsRender(code string) bool {
	inComment := false
	for _, line := range strings.Split(code, "\n") {
		t := strings.TrimSpace(line)
		if inComment {
			end := strings.Index(t, "*/")
			if end < 0 {
				continue
			}
			inComment = false
			t = strings.TrimSpace(t[end+2:])
		}
		for strings.HasPrefix(t, "/*") {
			end := strings.Index(t, "*/")
			if end < 0 {
				inComment = true
				t = ""
				break
			}
			t = strings.TrimSpace(t[end+2:])
		}
		if t == "" || strings.HasPrefix(t, "//") {
			continue
		}
		if strings.HasPrefix(t, "export default ") || strings.HasPrefix(t, "export default(") {
			return true
		}
	}
	return false
}
