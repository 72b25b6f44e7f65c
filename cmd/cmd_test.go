package cmd_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/paulschiretz/pgl-verify/cmd"
	"github.com/paulschiretz/pgl-verify/pkg/config"
	"github.com/paulschiretz/pgl-verify/pkg/flagparse"
	"github.com/paulschiretz/pgl-verify/pkg/store"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	abs := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(abs), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(abs, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func parse(t *testing.T, args ...string) (flagparse.Command, map[string]interface{}) {
	t.Helper()
	command, flagMap, err := flagparse.Parse(args)
	if err != nil {
		t.Fatalf("Parse(%v) returned error: %v", args, err)
	}
	return command, flagMap
}

func TestIndexThenValidate(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.txt", "X")
	writeFile(t, dir, "sub/b.txt", "Y")
	dbPath := filepath.Join(t.TempDir(), "index.db")

	_, flagMap := parse(t, "index", "-db", dbPath, dir)
	if err := cmd.RunIndex(context.Background(), flagMap); err != nil {
		t.Fatalf("RunIndex returned error: %v", err)
	}

	db, err := store.Open(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	n, err := db.Count()
	db.Close()
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Fatalf("indexed %d records; want 2", n)
	}

	// Remove a file, then validate against the index via a report file.
	if err := os.Remove(filepath.Join(dir, "a.txt")); err != nil {
		t.Fatal(err)
	}
	reportPath := filepath.Join(t.TempDir(), "report.txt")

	_, flagMap = parse(t, "validate", "-db", dbPath, "-report", reportPath, dir)
	if err := cmd.RunValidate(context.Background(), flagMap); err != nil {
		t.Fatalf("RunValidate returned error: %v", err)
	}

	data, err := os.ReadFile(reportPath)
	if err != nil {
		t.Fatal(err)
	}
	content := string(data)
	if !strings.Contains(content, "MISS: /a.txt") {
		t.Errorf("report missing the vanished file:\n%s", content)
	}
	if strings.Contains(content, "MISS: /sub/b.txt") {
		t.Errorf("report flags an intact file:\n%s", content)
	}

	// Validation must never touch the index.
	db, err = store.Open(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	n, err = db.Count()
	db.Close()
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("validation changed the record count to %d", n)
	}
}

func TestIndexRemoveMissing(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "keep.txt", "K")
	writeFile(t, dir, "gone.txt", "G")
	dbPath := filepath.Join(t.TempDir(), "index.db")

	_, flagMap := parse(t, "index", "-db", dbPath, dir)
	if err := cmd.RunIndex(context.Background(), flagMap); err != nil {
		t.Fatal(err)
	}

	if err := os.Remove(filepath.Join(dir, "gone.txt")); err != nil {
		t.Fatal(err)
	}

	_, flagMap = parse(t, "index", "-db", dbPath, "-remove-missing", dir)
	if err := cmd.RunIndex(context.Background(), flagMap); err != nil {
		t.Fatal(err)
	}

	db, err := store.Open(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	rec, err := db.FindByPath("/gone.txt")
	if err != nil {
		t.Fatal(err)
	}
	if rec != nil {
		t.Error("vanished record survived index -remove-missing")
	}
	rec, err = db.FindByPath("/keep.txt")
	if err != nil {
		t.Fatal(err)
	}
	if rec == nil {
		t.Error("live record was removed")
	}
}

func TestCompareWritesReport(t *testing.T) {
	base := t.TempDir()
	other := t.TempDir()
	writeFile(t, base, "same.txt", "S")
	writeFile(t, other, "same.txt", "S")
	writeFile(t, base, "only-base.txt", "B")
	writeFile(t, other, "only-other.txt", "O")
	reportPath := filepath.Join(t.TempDir(), "report.txt")

	_, flagMap := parse(t, "compare", "-report", reportPath, base, other)
	if err := cmd.RunCompare(context.Background(), flagMap); err != nil {
		t.Fatalf("RunCompare returned error: %v", err)
	}

	data, err := os.ReadFile(reportPath)
	if err != nil {
		t.Fatal(err)
	}
	content := string(data)
	if !strings.Contains(content, "MISS: /only-base.txt") {
		t.Errorf("report missing MISS line:\n%s", content)
	}
	if !strings.Contains(content, "EXTRA: /only-other.txt") {
		t.Errorf("report missing EXTRA line:\n%s", content)
	}
	if strings.Contains(content, "MATCH: /same.txt") {
		t.Errorf("non-verbose report contains MATCH line:\n%s", content)
	}
	if !strings.Contains(content, "Base directory: ") {
		t.Errorf("report missing header block:\n%s", content)
	}
}

func TestExportCreatesDatedFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.txt", "X")
	dbPath := filepath.Join(t.TempDir(), "photos.db")

	_, flagMap := parse(t, "index", "-db", dbPath, dir)
	if err := cmd.RunIndex(context.Background(), flagMap); err != nil {
		t.Fatal(err)
	}

	t.Chdir(t.TempDir())

	_, flagMap = parse(t, "export", "-db", dbPath, "-compress", "gzip")
	if err := cmd.RunExport(context.Background(), flagMap); err != nil {
		t.Fatalf("RunExport returned error: %v", err)
	}

	matches, err := filepath.Glob("*_photos.csv.gz")
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 1 {
		t.Fatalf("expected one export file, got %v", matches)
	}
}

func TestRunIndexRejectsMissingDirectory(t *testing.T) {
	_, flagMap := parse(t, "index", filepath.Join(t.TempDir(), "missing"))
	err := cmd.RunIndex(context.Background(), flagMap)
	if err == nil {
		t.Fatal("expected error for a missing directory")
	}
	if cmd.ExitCode(err) != 1 {
		t.Errorf("exit code = %d; want 1", cmd.ExitCode(err))
	}
}

func TestExitCode(t *testing.T) {
	testCases := []struct {
		name     string
		err      error
		expected int
	}{
		{"nil", nil, 0},
		{"config error", &config.Error{Err: errors.New("bad flag")}, 1},
		{"store error", &store.Error{Op: "insert", Err: errors.New("locked")}, 2},
		{"report error", &cmd.ReportError{Err: errors.New("permission denied")}, 3},
		{"plain error", errors.New("anything else"), 1},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := cmd.ExitCode(tc.err); got != tc.expected {
				t.Errorf("ExitCode = %d; want %d", got, tc.expected)
			}
		})
	}
}
