package project

import (
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
)

// skipDirs are dependency and cache directories never worth listing.
var skipDirs = map[string]bool{
	"node_modules": true,
	"__pycache__":  true,
	"target":       true,
	"venv":         true,
	"dist":         true,
	"build":        true,
}

// listFiles returns up to limit project-relative file paths in slash form,
// skipping anything under a dot-directory or a dependency directory. The
// bool reports whether the walk stopped at the limit.
func listFiles(root string, limit int) ([]string, bool) {
	files := []string{}
	truncated := false

	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if path == root {
			return nil
		}
		name := d.Name()
		if d.IsDir() {
			if strings.HasPrefix(name, ".") || skipDirs[name] {
				return fs.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(name, ".") || !d.Type().IsRegular() {
			return nil
		}
		if len(files) >= limit {
			truncated = true
			return fs.SkipAll
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})

	sort.Strings(files)
	return files, truncated
}
