// Package fsutil provides file system utility functions for cross-file
// reference resolution.
package fsutil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrNotFound reports that a reference matched no candidate file.
var ErrNotFound = errors.New("no file found for reference")

// ResolveReference turns a reference string into an existing file path.
// Relative references are joined to base. Candidates are tried in order:
// the literal name, then the name with each of the given extensions
// appended. The first existing regular file wins.
func ResolveReference(ref, base string, exts ...string) (string, error) {
	path := ref
	if !filepath.IsAbs(path) {
		path = filepath.Join(base, ref)
	}

	candidates := make([]string, 0, len(exts)+1)
	candidates = append(candidates, path)
	for _, ext := range exts {
		candidates = append(candidates, path+ext)
	}

	for _, candidate := range candidates {
		info, err := os.Stat(candidate)
		if err == nil && info.Mode().IsRegular() {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%w: %q (tried %v)", ErrNotFound, ref, candidates)
}

// CanonicalPath returns the absolute, symlink-resolved form of path, used as
// the deduplication key for inlining.
func CanonicalPath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to absolutize %q: %w", path, err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", fmt.Errorf("failed to canonicalize %q: %w", abs, err)
	}
	return resolved, nil
}
