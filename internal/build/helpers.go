package build

import (
	"bufio"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/org-press/org-press-sub001/internal/annotation"
	"github.com/org-press/org-press-sub001/internal/sandbox"
)

// NewContentHelpers builds the content helpers injected into server-executed
// blocks, backed by the on-disk content tree.
func NewContentHelpers(contentDir string, development bool) sandbox.ContentHelpers {
	list := func(dir string) []sandbox.Page {
		var pages []sandbox.Page
		root := filepath.Join(contentDir, filepath.FromSlash(dir))
		_ = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
			if err != nil || d.IsDir() || !strings.HasSuffix(p, annotation.NativeExtension) {
				return nil
			}
			rel, relErr := filepath.Rel(contentDir, p)
			if relErr != nil {
				return nil
			}
			pages = append(pages, sandbox.Page{
				Path:  "/" + filepath.ToSlash(strings.TrimSuffix(rel, annotation.NativeExtension)),
				Title: pageTitle(p),
			})
			return nil
		})
		return pages
	}

	return sandbox.ContentHelpers{
		GetPages:            func() []sandbox.Page { return list(".") },
		GetPagesInDirectory: list,
		IsDevelopment:       func() bool { return development },
	}
}

// pageTitle returns the first ATX heading of a document, or its filename.
func pageTitle(path string) string {
	f, err := os.Open(path) // #nosec G304 - content-tree path
	if err != nil {
		return filepath.Base(path)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if strings.HasPrefix(line, "# ") {
			return strings.TrimSpace(line[2:])
		}
	}
	return filepath.Base(path)
}
