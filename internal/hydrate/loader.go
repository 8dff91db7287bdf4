package hydrate

import (
	"fmt"
	"strings"

	"github.com/org-press/org-press-sub001/internal/annotation"
	"github.com/org-press/org-press-sub001/internal/blockcache"
)

// loaderSuffix terminates every generated loader filename.
const loaderSuffix = ".hydrate.js"

// dirSeparatorToken encodes path separators in loader filenames. The cache
// sanitization collapses repeated dashes, so a double dash can never occur
// inside a sanitized component and the encoding is unambiguous.
const dirSeparatorToken = "--"

// LoaderFileName derives the loader filename for a document, reusing the
// cache-path sanitization so the two layers stay consistent.
func LoaderFileName(documentPath string) string {
	sanitized := blockcache.SanitizeDocumentPath(documentPath)
	return strings.ReplaceAll(sanitized, "/", dirSeparatorToken) + loaderSuffix
}

// DocumentPathFromLoader inverts LoaderFileName for conventional
// content-tree paths (lower-case, single dashes, native extension).
func DocumentPathFromLoader(filename string) (string, bool) {
	if !strings.HasSuffix(filename, loaderSuffix) {
		return "", false
	}
	stem := strings.TrimSuffix(filename, loaderSuffix)
	if stem == "" {
		return "", false
	}
	return strings.ReplaceAll(stem, dirSeparatorToken, "/") + annotation.NativeExtension, true
}

// GenerateLoader emits one loader source per document: it statically imports
// every collected block module and hands the shared initializer the metadata
// it needs to activate each placeholder. Static imports keep per-page bundle
// splitting and dead-code elimination available to the bundler.
func GenerateLoader(documentPath string, blocks []CollectedBlock) string {
	var b strings.Builder
	b.WriteString("// Generated by org-press for " + documentPath + ". Do not edit.\n")
	b.WriteString("import { initBlock } from \"@org-press/runtime\";\n")
	for i, blk := range blocks {
		fmt.Fprintf(&b, "import * as mod%d from %q;\n", i, blk.ModuleReference)
	}
	b.WriteString("\n")
	for i, blk := range blocks {
		fmt.Fprintf(&b, "initBlock({ id: %q, container: %q, module: mod%d, extension: %q, renderMode: %q });\n",
			blk.ID, blk.ContainerID, i, extensionOf(blk.CachePath), blk.RenderMode)
	}
	return b.String()
}

func extensionOf(p string) string {
	if i := strings.LastIndexByte(p, '.'); i >= 0 {
		return p[i:]
	}
	return ""
}
