// Package export writes the full record store to a dated CSV file,
// optionally compressed.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/klauspost/pgzip"

	"github.com/paulschiretz/pgl-verify/pkg/plog"
	"github.com/paulschiretz/pgl-verify/pkg/store"
)

// Format selects the compression applied to the exported file.
type Format string

const (
	FormatNone Format = ""
	FormatGzip Format = "gzip"
	FormatZstd Format = "zstd"
)

// ParseFormat maps a user-supplied format name to a Format.
func ParseFormat(s string) (Format, error) {
	switch s {
	case "":
		return FormatNone, nil
	case "gzip":
		return FormatGzip, nil
	case "zstd":
		return FormatZstd, nil
	default:
		return FormatNone, fmt.Errorf("invalid compression format %q, must be 'gzip' or 'zstd'", s)
	}
}

// Timestamp layout of the Created and Updated columns.
const timeLayout = "2006-01-02 15:04:05"

// Date layout of the export file name.
const fileDateLayout = "2006-01-02"

var header = []string{"ID", "Name", "Hash", "Type", "Path", "Created", "Updated"}

// FileName derives the export file name from the database name, the date
// and the compression format, e.g. "2026-08-23_backup.csv.gz".
func FileName(dbPath string, format Format, now time.Time) string {
	dbName := filepath.Base(dbPath)
	dbName = strings.TrimSuffix(dbName, filepath.Ext(dbName))

	name := now.Format(fileDateLayout) + "_" + dbName + ".csv"
	switch format {
	case FormatGzip:
		name += ".gz"
	case FormatZstd:
		name += ".zst"
	}
	return name
}

// Run exports every record of db into outDir and returns the created file's
// path. Records are written in ascending ID order.
func Run(db *store.Store, outDir string, format Format, verbose bool) (string, error) {
	outPath := filepath.Join(outDir, FileName(db.Path(), format, time.Now()))

	f, err := os.Create(outPath)
	if err != nil {
		return "", fmt.Errorf("create export file %s: %w", outPath, err)
	}

	w, closer, err := wrapWriter(f, format)
	if err != nil {
		f.Close()
		os.Remove(outPath)
		return "", err
	}

	if err := writeRecords(db, w, verbose); err != nil {
		closer()
		f.Close()
		os.Remove(outPath)
		return "", err
	}

	if err := closer(); err != nil {
		f.Close()
		os.Remove(outPath)
		return "", fmt.Errorf("finish compression: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(outPath)
		return "", fmt.Errorf("close export file %s: %w", outPath, err)
	}

	return outPath, nil
}

// wrapWriter layers the requested compressor over f. The returned closer
// flushes the compressor; it never closes f itself.
func wrapWriter(f *os.File, format Format) (io.Writer, func() error, error) {
	switch format {
	case FormatNone:
		return f, func() error { return nil }, nil
	case FormatGzip:
		gz := pgzip.NewWriter(f)
		return gz, gz.Close, nil
	case FormatZstd:
		zw, err := zstd.NewWriter(f)
		if err != nil {
			return nil, nil, fmt.Errorf("create zstd writer: %w", err)
		}
		return zw, zw.Close, nil
	default:
		return nil, nil, fmt.Errorf("invalid compression format %q", format)
	}
}

func writeRecords(db *store.Store, w io.Writer, verbose bool) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write export header: %w", err)
	}

	err := db.ForEach(func(r *store.FileRecord) error {
		if verbose {
			plog.Info("Exporting record", "name", r.Name, "key", r.Path)
		}

		updated := ""
		if r.Updated.Valid {
			updated = r.Updated.Time.Format(timeLayout)
		}

		return cw.Write([]string{
			strconv.FormatInt(r.ID, 10),
			r.Name,
			r.Hash,
			r.Type,
			r.Path,
			r.Created.Format(timeLayout),
			updated,
		})
	})
	if err != nil {
		return err
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush export rows: %w", err)
	}
	return nil
}
