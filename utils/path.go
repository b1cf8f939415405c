package utils

import (
	"path/filepath"
	"strings"
)

// IsPathWithin reports whether path lives under any of the roots. Symlinks
// are resolved on both sides so a link pointing outside a root does not
// count as inside it.
func IsPathWithin(path string, roots []string) bool {
	absPath, ok := resolveAbs(path)
	if !ok {
		return false
	}
	for _, root := range roots {
		absRoot, ok := resolveAbs(root)
		if !ok {
			continue
		}
		rel, err := filepath.Rel(absRoot, absPath)
		if err != nil {
			continue
		}
		if rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

func resolveAbs(path string) (string, bool) {
	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		resolved = path
	}
	abs, err := filepath.Abs(resolved)
	if err != nil {
		return "", false
	}
	return abs, true
}
