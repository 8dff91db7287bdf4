package sandbox

import (
	"encoding/json"
	"fmt"

	"github.com/dop251/goja"
)

// serializationPlaceholder replaces results that cannot be stringified.
// Serialization failures are reported as text, never propagated.
const serializationPlaceholder = "[unserializable result]"

// normalizeOutput converts an execution value into the single string output
// of a block: null/undefined become empty, primitives stringify directly,
// objects and arrays pretty-print as JSON.
func normalizeOutput(v goja.Value) string {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return ""
	}

	exported := func() (out any) {
		defer func() {
			if recover() != nil {
				out = nil
			}
		}()
		return v.Export()
	}()
	if exported == nil {
		return serializationPlaceholder
	}

	switch t := exported.(type) {
	case string:
		return t
	case bool, int, int64, float64:
		return fmt.Sprint(t)
	}

	pretty, err := json.MarshalIndent(exported, "", "  ")
	if err != nil {
		return serializationPlaceholder
	}
	return string(pretty)
}
