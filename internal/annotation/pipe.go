package annotation

import (
	"encoding/json"
	"net/url"
	"strings"
)

// NativeExtension is the extension of literate documents; a pipe segment whose
// name is a path ending in this extension plus a fragment marker refers to a
// wrapper exported by another document.
const NativeExtension = ".md"

// Segment is one stage of a :use pipeline. The first segment selects the base
// mode; later segments are wrappers applied around the function built so far.
type Segment struct {
	Name string
	// Config carries the parsed ?k=v&k2=v2 or inline-JSON segment options.
	Config map[string]any
	// IsExternalImport marks a cross-file wrapper reference
	// (./other-doc.md#wrapperName) resolved by an injected resolver
	// instead of the registry.
	IsExternalImport bool
}

// ParsePipe splits a :use value on '|' into ordered segments, parsing each
// segment's optional configuration.
func ParsePipe(use string) []Segment {
	parts := strings.Split(use, "|")
	segs := make([]Segment, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		segs = append(segs, parseSegment(p))
	}
	return segs
}

func parseSegment(s string) Segment {
	seg := Segment{Config: map[string]any{}}

	// Inline-JSON config: name{...}
	if i := strings.IndexByte(s, '{'); i >= 0 && strings.HasSuffix(s, "}") {
		seg.Name = strings.TrimSpace(s[:i])
		var cfg map[string]any
		if err := json.Unmarshal([]byte(s[i:]), &cfg); err == nil {
			seg.Config = cfg
		}
		seg.IsExternalImport = isExternalRef(seg.Name)
		return seg
	}

	// Query-string config: name?k=v&k2=v2
	if i := strings.IndexByte(s, '?'); i >= 0 {
		seg.Name = strings.TrimSpace(s[:i])
		if vals, err := url.ParseQuery(s[i+1:]); err == nil {
			for k, v := range vals {
				if len(v) > 0 {
					seg.Config[k] = v[0]
				}
			}
		}
		seg.IsExternalImport = isExternalRef(seg.Name)
		return seg
	}

	seg.Name = s
	seg.IsExternalImport = isExternalRef(s)
	return seg
}

// isExternalRef reports whether a segment name is a cross-file wrapper
// reference: a relative or absolute path ending in the native document
// extension followed by a #fragment naming the exported wrapper.
func isExternalRef(name string) bool {
	hash := strings.IndexByte(name, '#')
	if hash <= 0 || hash == len(name)-1 {
		return false
	}
	path := name[:hash]
	if !strings.HasSuffix(path, NativeExtension) {
		return false
	}
	return strings.HasPrefix(path, "./") || strings.HasPrefix(path, "../") ||
		strings.HasPrefix(path, "/") || strings.Contains(path, "/")
}

// SplitExternalRef splits an external reference segment name into its
// document path and fragment. Callers must check IsExternalImport first.
func SplitExternalRef(name string) (docPath, fragment string) {
	hash := strings.IndexByte(name, '#')
	if hash < 0 {
		return name, ""
	}
	return name[:hash], name[hash+1:]
}
