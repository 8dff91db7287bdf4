// Package annotation parses the per-block annotation string attached to a
// fenced code block (e.g. `:use server | json :height 400px`) into key/value
// parameters and decomposes the :use value into ordered pipeline segments.
package annotation

import (
	"strings"
)

// DefaultMode is assumed whenever a block carries no :use parameter.
const DefaultMode = "preview"

// Annotation holds the parsed key/value parameters of one block.
// Flags (keys without a value) map to the empty string.
type Annotation map[string]string

// Parse tokenizes a raw annotation string. Keys are introduced by a leading
// colon; a key's value runs until the next key token or end of string. A key
// followed by another key, end of string, or pure whitespace is a flag.
func Parse(raw string) Annotation {
	ann := Annotation{}
	fields := strings.Fields(raw)

	var key string
	var value []string
	flush := func() {
		if key == "" {
			return
		}
		ann[key] = strings.Join(value, " ")
		key = ""
		value = value[:0]
	}

	for _, f := range fields {
		if strings.HasPrefix(f, ":") && len(f) > 1 {
			flush()
			key = f[1:]
			continue
		}
		if key != "" {
			value = append(value, f)
		}
		// Tokens before the first key belong to the block header, not to us.
	}
	flush()
	return ann
}

// Use returns the raw :use value, defaulting to DefaultMode when absent or
// empty so downstream code never sees a missing mode.
func (a Annotation) Use() string {
	if a == nil {
		return DefaultMode
	}
	v := strings.TrimSpace(a["use"])
	if v == "" {
		return DefaultMode
	}
	return v
}

// Mode returns the name of the first pipeline segment of the :use value.
func (a Annotation) Mode() string {
	segs := ParsePipe(a.Use())
	if len(segs) == 0 {
		return DefaultMode
	}
	return segs[0].Name
}

// Tangle returns the :tangle target, if any.
func (a Annotation) Tangle() string { return a["tangle"] }

// Height returns the :height display hint, if any.
func (a Annotation) Height() string { return a["height"] }

// Has reports whether a key is present, including valueless flags.
func (a Annotation) Has(key string) bool {
	_, ok := a[key]
	return ok
}
