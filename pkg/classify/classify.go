// Package classify assigns a media type string to files on disk.
package classify

import (
	"github.com/gabriel-vasile/mimetype"

	"github.com/paulschiretz/pgl-verify/pkg/plog"
)

// Classifier maps a file path to a media type string. An empty string means
// the type is unknown; classification never fails a run.
type Classifier interface {
	Classify(absPath string) string
}

// Mime detects media types by sniffing file content.
type Mime struct{}

// NewMime creates a content-sniffing classifier.
func NewMime() *Mime {
	return &Mime{}
}

// Classify reads the file's leading bytes and returns the detected media
// type. Detection failure degrades to an empty string.
func (m *Mime) Classify(absPath string) string {
	mtype, err := mimetype.DetectFile(absPath)
	if err != nil {
		plog.Debug("Media type detection failed", "path", absPath, "error", err)
		return ""
	}
	return mtype.String()
}

// Static always returns the same media type. Useful in tests where the
// content of fixture files is not meaningful.
type Static struct {
	Type string
}

func (s *Static) Classify(string) string {
	return s.Type
}
