// Package preflight provides validation checks that run before an operation
// begins. The checks are stateless apart from the write probe and give more
// user-friendly errors than letting the run fail halfway through.
package preflight

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/paulschiretz/pgl-verify/pkg/plog"
	"github.com/paulschiretz/pgl-verify/pkg/util"
)

// CheckDirReadable validates that the path exists, is a directory, and can
// be listed.
func CheckDirReadable(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("directory %s does not exist", path)
		}
		return fmt.Errorf("cannot stat directory %s: %w", path, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("path %s is not a directory", path)
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("directory %s is not readable: %w", path, err)
	}
	f.Close()
	return nil
}

// CheckParentWritable ensures the parent directory of path can be created
// and written to, by creating and deleting a probe file.
func CheckParentWritable(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	probe := filepath.Join(dir, ".pgl-verify-writetest.tmp")
	f, err := os.Create(probe)
	if err != nil {
		return fmt.Errorf("directory %s is not writable: %w", dir, err)
	}
	f.Close()
	_ = os.Remove(probe)
	return nil
}

// WarnLowFreeSpace logs an advisory when the filesystem holding path has
// less free space than want bytes. Space checks never fail the run; a
// read-only reconciliation does not need room.
func WarnLowFreeSpace(path string, want uint64) {
	free, err := freeSpace(path)
	if err != nil {
		plog.Debug("Cannot determine free space", "path", path, "error", err)
		return
	}
	if free < want {
		plog.Warn("Low free space on target filesystem",
			"path", path,
			"free", util.ByteCountIEC(int64(free)),
			"wanted", util.ByteCountIEC(int64(want)),
		)
	}
}
