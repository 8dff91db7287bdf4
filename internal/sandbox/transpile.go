package sandbox

import (
	"fmt"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
)

// typedLanguages are executed after transpiling to plain JavaScript.
var typedLanguages = map[string]struct{}{
	"ts":         {},
	"typescript": {},
}

// transpile lowers a typed superset to the runtime's native form.
func transpile(code, language string) (string, error) {
	if _, ok := typedLanguages[strings.ToLower(language)]; !ok {
		return code, nil
	}
	result := api.Transform(code, api.TransformOptions{
		Loader: api.LoaderTS,
		Target: api.ES2020,
	})
	if len(result.Errors) > 0 {
		msgs := make([]string, 0, len(result.Errors))
		for _, e := range result.Errors {
			msgs = append(msgs, e.Text)
		}
		return "", fmt.Errorf("transpile %s: %s", language, strings.Join(msgs, "; "))
	}
	return string(result.Code), nil
}
