// Package ingest walks a directory of design files and records each one in
// the catalog, deduplicating by content and versioning by source path.
package ingest

import (
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
)

// supportedExtensions are the design file types the pipeline ingests.
var supportedExtensions = map[string]bool{
	".svg": true,
	".dxf": true,
	".ai":  true,
	".eps": true,
	".pdf": true,
	".cdr": true,
}

// Walk returns the design files under root, sorted by path. Extension
// matching is case-insensitive and paths differing only by case are
// deduplicated. Hidden files and directories are skipped.
func Walk(root string) ([]string, error) {
	seen := map[string]bool{}
	var files []string

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := d.Name()
		if strings.HasPrefix(name, ".") && path != root {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if !supportedExtensions[strings.ToLower(filepath.Ext(name))] {
			return nil
		}
		key := strings.ToLower(path)
		if seen[key] {
			return nil
		}
		seen[key] = true
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(files)
	return files, nil
}
