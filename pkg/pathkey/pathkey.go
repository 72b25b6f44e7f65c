// Package pathkey derives root-relative keys, the unit of identity a
// reconciliation run uses to match files across its two sides.
//
// Keys always use forward slashes and begin with "/". The root prefix is
// stripped by length, never by substring search, so a directory that happens
// to be named like the root deeper in the tree cannot corrupt the key.
package pathkey

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"
)

// Key maps a descendant's absolute path to its key under root. Both paths are
// expected to be cleaned absolute paths on the local filesystem.
func Key(root, absPath string) (string, error) {
	root = filepath.Clean(root)
	absPath = filepath.Clean(absPath)

	sep := string(filepath.Separator)
	if absPath == root || !strings.HasPrefix(absPath, strings.TrimSuffix(root, sep)+sep) {
		return "", fmt.Errorf("path %s is not a descendant of root %s", absPath, root)
	}

	rel := absPath[len(strings.TrimSuffix(root, sep)):]
	return filepath.ToSlash(rel), nil
}

// Abs maps a key back to an absolute path under root. The inverse of Key.
func Abs(root, key string) string {
	return filepath.Join(filepath.Clean(root), filepath.FromSlash(key))
}

// Name returns the leaf filename of a key, kept on records for display.
func Name(key string) string {
	return path.Base(key)
}
