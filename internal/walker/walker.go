// Package walker discovers ingestible files in a directory tree.
package walker

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
)

// Options controls which files a walk yields.
type Options struct {
	Includes   []string // doublestar globs; empty means everything
	Excludes   []string // doublestar globs; empty means nothing
	Extensions []string // lowercase extensions without the dot
}

// Walk returns the paths of matching files under root, sorted by
// traversal order. Directories in DefaultExcludes are skipped entirely.
func Walk(root string, opts Options) ([]string, error) {
	var files []string

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && shouldExcludeDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}

		if !hasAllowedExtension(d.Name(), opts.Extensions) {
			return nil
		}
		if !matchesInclude(rel, opts.Includes) || matchesExclude(rel, opts.Excludes) {
			return nil
		}

		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", root, err)
	}
	return files, nil
}

func hasAllowedExtension(name string, extensions []string) bool {
	if len(extensions) == 0 {
		return true
	}
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")
	for _, allowed := range extensions {
		if ext == strings.ToLower(allowed) {
			return true
		}
	}
	return false
}
