// Package walker enumerates a directory tree as a pull-based lazy sequence.
//
// The walk is depth-first and sequential. It yields regular files plus
// directory boundary events (one EnterDir and one LeaveDir per directory,
// empty directories included, never for the root itself). An unreadable
// subdirectory is logged and skipped, it does not abort the walk. Sibling
// order follows os.ReadDir listing order; consumers must not rely on it,
// only on every reachable file being visited exactly once.
package walker

import (
	"io/fs"
	"iter"
	"os"
	"path/filepath"

	"github.com/paulschiretz/pgl-verify/pkg/plog"
)

// EventKind discriminates the walk events.
type EventKind int

const (
	// EnterDir fires once when the walk descends into a directory.
	EnterDir EventKind = iota
	// LeaveDir fires once when the walk has finished a directory.
	LeaveDir
	// File fires once per regular file.
	File
)

func (k EventKind) String() string {
	switch k {
	case EnterDir:
		return "enter"
	case LeaveDir:
		return "leave"
	case File:
		return "file"
	default:
		return "unknown"
	}
}

// Event is one element of the walk sequence. Info is populated for File
// events; it may be nil for directory boundary events.
type Event struct {
	Kind    EventKind
	AbsPath string
	Info    fs.FileInfo
}

// Walk returns a lazy sequence over the tree rooted at root. The sequence is
// restartable only by calling Walk again; it cannot be resumed mid-walk.
// Symlinks and other non-regular entries are not followed and not yielded.
func Walk(root string) iter.Seq[Event] {
	return func(yield func(Event) bool) {
		walkDir(filepath.Clean(root), yield)
	}
}

// walkDir processes one directory level. It returns false when the consumer
// stopped the iteration.
func walkDir(dir string, yield func(Event) bool) bool {
	entries, err := os.ReadDir(dir)
	if err != nil {
		// Permission denied, or the directory vanished between listing and
		// descent. Skip it, the walk itself continues.
		plog.Warn("Cannot read directory, skipping", "path", dir, "error", err)
		return true
	}

	for _, entry := range entries {
		absPath := filepath.Join(dir, entry.Name())

		if entry.IsDir() {
			if !yield(Event{Kind: EnterDir, AbsPath: absPath}) {
				return false
			}
			if !walkDir(absPath, yield) {
				return false
			}
			if !yield(Event{Kind: LeaveDir, AbsPath: absPath}) {
				return false
			}
			continue
		}

		if !entry.Type().IsRegular() {
			plog.Debug("Skipping non-regular entry", "path", absPath, "type", entry.Type().String())
			continue
		}

		info, err := entry.Info()
		if err != nil {
			plog.Warn("Cannot stat file, skipping", "path", absPath, "error", err)
			continue
		}

		if !yield(Event{Kind: File, AbsPath: absPath, Info: info}) {
			return false
		}
	}
	return true
}
