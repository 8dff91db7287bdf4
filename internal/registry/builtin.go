package registry

import (
	"encoding/json"
	"fmt"
	"html"

	"github.com/org-press/org-press-sub001/internal/block"
)

// NewWithBuiltins creates a registry pre-populated with the stock modes and
// wrappers every site gets out of the box.
func NewWithBuiltins() *Registry {
	r := New()
	_ = r.RegisterMode("preview", previewMode)
	_ = r.RegisterMode("server", previewMode)
	_ = r.RegisterMode("client", previewMode)
	_ = r.RegisterWrapper("json", jsonWrapper)
	_ = r.RegisterWrapper("errorBoundary", errorBoundaryWrapper)
	_ = r.RegisterWrapper("details", detailsWrapper)
	return r
}

// previewMode renders the execution output as-is, HTML-escaped. It is the
// base function for preview, server and client pipelines alike; the tracks
// differ in when execution happens, not in the base rendering.
func previewMode(_ map[string]any) RenderFunc {
	return func(res block.ExecutionResult, _ block.Context) (string, error) {
		if res.Error != nil {
			return "", fmt.Errorf("render failed block: %w", res.Error)
		}
		return html.EscapeString(res.Output), nil
	}
}

// jsonWrapper re-indents JSON output and renders it inside a code element.
// Non-JSON output passes through escaped but unformatted.
func jsonWrapper(_ map[string]any) Wrapper {
	return func(next RenderFunc) RenderFunc {
		return func(res block.ExecutionResult, ctx block.Context) (string, error) {
			formatted := res
			var v any
			if err := json.Unmarshal([]byte(res.Output), &v); err == nil {
				if pretty, err := json.MarshalIndent(v, "", "  "); err == nil {
					formatted.Output = string(pretty)
				}
			}
			inner, err := next(formatted, ctx)
			if err != nil {
				return "", err
			}
			return `<pre class="orgpress-json"><code>` + inner + `</code></pre>`, nil
		}
	}
}

// errorBoundaryWrapper converts an error from the inner render function into
// visible markup instead of propagating it. Place it first in the pipeline
// so it is outermost; composition itself never catches anything.
func errorBoundaryWrapper(_ map[string]any) Wrapper {
	return func(next RenderFunc) RenderFunc {
		return func(res block.ExecutionResult, ctx block.Context) (string, error) {
			out, err := next(res, ctx)
			if err != nil {
				return `<div class="orgpress-error">` + html.EscapeString(err.Error()) + `</div>`, nil
			}
			return out, nil
		}
	}
}

// detailsWrapper folds the rendered output into a <details> disclosure.
// Config key "summary" overrides the visible label.
func detailsWrapper(config map[string]any) Wrapper {
	summary := "Output"
	if s, ok := config["summary"].(string); ok && s != "" {
		summary = s
	}
	return func(next RenderFunc) RenderFunc {
		return func(res block.ExecutionResult, ctx block.Context) (string, error) {
			inner, err := next(res, ctx)
			if err != nil {
				return "", err
			}
			return "<details><summary>" + html.EscapeString(summary) + "</summary>" + inner + "</details>", nil
		}
	}
}
