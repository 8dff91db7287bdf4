package blockcache

import (
	"crypto/sha256"
	"encoding/hex"
	"path"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// foldDiacritics strips combining marks so accented document names map to
// plain-ASCII cache directories.
var foldDiacritics = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// SanitizeDocumentPath derives the cache directory component for a document:
// extension stripped, leading separators and dots dropped, repeated
// separators and dashes collapsed, lower-cased, diacritics folded. The
// result is deterministic across builds and process restarts.
func SanitizeDocumentPath(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	if ext := path.Ext(p); ext != "" {
		p = strings.TrimSuffix(p, ext)
	}
	p = strings.TrimLeft(p, "./")

	if folded, _, err := transform.String(foldDiacritics, p); err == nil {
		p = folded
	}
	p = strings.ToLower(p)

	var b strings.Builder
	b.Grow(len(p))
	var prev rune
	for _, r := range p {
		if (r == '/' || r == '-') && r == prev {
			continue
		}
		b.WriteRune(r)
		prev = r
	}
	return b.String()
}

// ContentHash returns the 8-character deterministic hash keying unnamed
// blocks: identical source reuses one entry, different source at the same
// position gets a distinct one.
func ContentHash(source string) string {
	sum := sha256.Sum256([]byte(source))
	return hex.EncodeToString(sum[:])[:8]
}

// TransformedKey is the store key for a block's transformed code: the
// sanitized document directory plus the explicit block name, or the content
// hash when unnamed, plus the plugin's output extension.
func TransformedKey(docPath, name, source, ext string) string {
	file := name
	if file == "" {
		file = ContentHash(source)
	}
	return SanitizeDocumentPath(docPath) + "/" + file + ext
}

// resultsNamespace separates execution-result records from transformed code.
const resultsNamespace = "results/"

func resultKey(docPath string, blockIndex int) string {
	return resultsNamespace + SanitizeDocumentPath(docPath) + "/" + strconv.Itoa(blockIndex) + ".bin"
}
