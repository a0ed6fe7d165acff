// Package patchfile loads patch documents from the filesystem. It is
// not part of the core library (spec.md's Non-goals exclude a built-in
// file/directory watcher), but the CLI needs it to turn a path on disk
// into the raw bytes PatchKit.Apply consumes.
package patchfile

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ReadFile reads one patch document from path.
func ReadFile(path string) ([]byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("patchfile: read %q: %w", path, err)
	}
	return raw, nil
}

// ReadDir returns the paths of every *.json file (extension matched
// case-insensitively) directly inside dir (no recursion), ordered by
// filename, so callers applying a batch get a stable, predictable order.
// It does not read the files' contents.
func ReadDir(dir string) (paths []string, err error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("patchfile: read dir %q: %w", dir, err)
	}
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".json") {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}
