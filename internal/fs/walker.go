package fs

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
)

// Walk returns the set of non-excluded file paths beneath root. Paths are
// relative to root and '/'-joined regardless of platform. Directories are
// never present in the result; any directory whose name starts with '.' is
// pruned along with its entire subtree.
func Walk(root string, ignore *IgnoreMatcher) (map[string]struct{}, error) {
	paths := make(map[string]struct{})

	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if p != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if ignore.ShouldIgnore(d.Name()) {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return fmt.Errorf("relativizing %s: %w", p, err)
		}
		paths[filepath.ToSlash(rel)] = struct{}{}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", root, err)
	}

	return paths, nil
}
