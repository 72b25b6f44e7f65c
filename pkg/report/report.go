// Package report delivers classified events to the console or a report file.
//
// Events are line oriented, a fixed tag followed by the key. The sink is
// write-only during a run; nothing is read back or deduplicated.
package report

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/paulschiretz/pgl-verify/pkg/plog"
)

// Tag is the classification outcome of one key.
type Tag string

const (
	TagMatch Tag = "MATCH"
	TagDiff  Tag = "DIFF"
	TagMiss  Tag = "MISS"
	TagExtra Tag = "EXTRA"
)

// Sink receives report lines. Implementations must be safe for concurrent
// use; classification events arrive from multiple workers.
type Sink interface {
	// Event records one classified key.
	Event(tag Tag, key string)
	// Line records a free-form line, used for the report header and summary.
	Line(s string)
	// Close flushes and releases the sink.
	Close() error
}

const bannerWidth = 60

// Banner renders a title line padded with '=' to the report width.
func Banner(title string) string {
	title = " " + title + " "
	pad := bannerWidth - len(title)
	if pad < 2 {
		pad = 2
	}
	left := pad / 2
	return strings.Repeat("=", left) + title + strings.Repeat("=", pad-left)
}

// Rule renders a plain separator line at the report width.
func Rule() string {
	return strings.Repeat("=", bannerWidth)
}

// Console logs every report line through the process logger.
type Console struct{}

// NewConsole creates a console sink.
func NewConsole() *Console {
	return &Console{}
}

func (c *Console) Event(tag Tag, key string) {
	plog.Info(fmt.Sprintf("%s: %s", tag, key))
}

func (c *Console) Line(s string) {
	plog.Info(s)
}

func (c *Console) Close() error {
	return nil
}

// File appends report lines to a file created fresh at run start. Prior
// content of an existing file is truncated.
type File struct {
	mu   sync.Mutex
	f    *os.File
	w    *bufio.Writer
	path string
}

// NewFile creates (or truncates) the report file at path.
func NewFile(path string) (*File, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("create report file %s: %w", path, err)
	}
	return &File{f: f, w: bufio.NewWriter(f), path: path}, nil
}

// Path returns the report file location.
func (r *File) Path() string {
	return r.path
}

func (r *File) Event(tag Tag, key string) {
	r.Line(fmt.Sprintf("%s: %s", tag, key))
}

func (r *File) Line(s string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err := r.w.WriteString(s + "\n"); err != nil {
		// A report write failure must not abort the run; the classification
		// itself already happened.
		plog.Error("Failed to write report line", "path", r.path, "error", err)
	}
}

func (r *File) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.w.Flush(); err != nil {
		r.f.Close()
		return fmt.Errorf("flush report file %s: %w", r.path, err)
	}
	if err := r.f.Close(); err != nil {
		return fmt.Errorf("close report file %s: %w", r.path, err)
	}
	return nil
}
