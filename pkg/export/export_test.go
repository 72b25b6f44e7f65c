package export

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/klauspost/pgzip"

	"github.com/paulschiretz/pgl-verify/pkg/store"
)

func seededStore(t *testing.T) *store.Store {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "backup.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.Insert(&store.FileRecord{
		Name: "a.txt", Hash: "CBF43926", Path: "/a.txt", Type: "text/plain",
	}); err != nil {
		t.Fatal(err)
	}
	if err := db.Insert(&store.FileRecord{
		Name: "b.bin", Hash: "00000000", Path: "/sub/b.bin", Type: "application/octet-stream",
	}); err != nil {
		t.Fatal(err)
	}
	return db
}

func TestFileName(t *testing.T) {
	now := time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC)

	testCases := []struct {
		dbPath   string
		format   Format
		expected string
	}{
		{"/var/lib/backup.db", FormatNone, "2026-08-23_backup.csv"},
		{"./index.db", FormatGzip, "2026-08-23_index.csv.gz"},
		{"photos.db", FormatZstd, "2026-08-23_photos.csv.zst"},
	}

	for _, tc := range testCases {
		if got := FileName(tc.dbPath, tc.format, now); got != tc.expected {
			t.Errorf("FileName(%q, %q) = %q; want %q", tc.dbPath, tc.format, got, tc.expected)
		}
	}
}

func TestParseFormat(t *testing.T) {
	if f, err := ParseFormat("gzip"); err != nil || f != FormatGzip {
		t.Errorf("ParseFormat(gzip) = %q, %v", f, err)
	}
	if f, err := ParseFormat(""); err != nil || f != FormatNone {
		t.Errorf("ParseFormat(\"\") = %q, %v", f, err)
	}
	if _, err := ParseFormat("lzma"); err == nil {
		t.Error("expected error for an unsupported format")
	}
}

func TestRunPlainCSV(t *testing.T) {
	db := seededStore(t)
	outDir := t.TempDir()

	outPath, err := Run(db, outDir, FormatNone, false)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if filepath.Dir(outPath) != outDir {
		t.Errorf("export landed in %s; want %s", filepath.Dir(outPath), outDir)
	}

	f, err := os.Open(outPath)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	assertExportContent(t, f)
}

func TestRunGzip(t *testing.T) {
	db := seededStore(t)

	outPath, err := Run(db, t.TempDir(), FormatGzip, false)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if !strings.HasSuffix(outPath, ".csv.gz") {
		t.Errorf("unexpected export name %s", outPath)
	}

	f, err := os.Open(outPath)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	gz, err := pgzip.NewReader(f)
	if err != nil {
		t.Fatalf("export is not valid gzip: %v", err)
	}
	defer gz.Close()
	assertExportContent(t, gz)
}

func TestRunZstd(t *testing.T) {
	db := seededStore(t)

	outPath, err := Run(db, t.TempDir(), FormatZstd, false)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if !strings.HasSuffix(outPath, ".csv.zst") {
		t.Errorf("unexpected export name %s", outPath)
	}

	f, err := os.Open(outPath)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	zr, err := zstd.NewReader(f)
	if err != nil {
		t.Fatalf("export is not valid zstd: %v", err)
	}
	defer zr.Close()
	assertExportContent(t, zr)
}

func TestRunEmptyStoreWritesHeaderOnly(t *testing.T) {
	db, err := store.Open(filepath.Join(t.TempDir(), "empty.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	outPath, err := Run(db, t.TempDir(), FormatNone, false)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	f, err := os.Open(outPath)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 {
		t.Errorf("expected header row only, got %d rows", len(rows))
	}
}

func assertExportContent(t *testing.T, r io.Reader) {
	t.Helper()

	rows, err := csv.NewReader(r).ReadAll()
	if err != nil {
		t.Fatalf("export is not valid CSV: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header plus 2 rows, got %d", len(rows))
	}
	if rows[0][0] != "ID" || rows[0][6] != "Updated" {
		t.Errorf("unexpected header: %v", rows[0])
	}
	if rows[1][1] != "a.txt" || rows[1][2] != "CBF43926" || rows[1][4] != "/a.txt" {
		t.Errorf("unexpected first row: %v", rows[1])
	}
	if rows[1][5] == "" {
		t.Error("Created column is empty")
	}
	if rows[1][6] != "" {
		t.Errorf("Updated column = %q; want empty for a never-updated record", rows[1][6])
	}
	if rows[2][4] != "/sub/b.bin" {
		t.Errorf("unexpected second row: %v", rows[2])
	}
}
