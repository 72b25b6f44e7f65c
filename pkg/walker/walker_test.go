package walker

import (
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"testing"
)

// buildTree creates a small fixture tree and returns its root:
//
//	root/
//	  a.txt
//	  empty/
//	  sub/
//	    b.txt
//	    nested/
//	      c.txt
func buildTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()

	mustMkdir(t, filepath.Join(root, "empty"))
	mustMkdir(t, filepath.Join(root, "sub", "nested"))
	mustWrite(t, filepath.Join(root, "a.txt"), "A")
	mustWrite(t, filepath.Join(root, "sub", "b.txt"), "B")
	mustWrite(t, filepath.Join(root, "sub", "nested", "c.txt"), "C")

	return root
}

func mustMkdir(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(path, 0755); err != nil {
		t.Fatal(err)
	}
}

func mustWrite(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestWalkVisitsEveryFileOnce(t *testing.T) {
	root := buildTree(t)

	seen := make(map[string]int)
	for ev := range Walk(root) {
		if ev.Kind == File {
			rel, _ := filepath.Rel(root, ev.AbsPath)
			seen[filepath.ToSlash(rel)]++
			if ev.Info == nil {
				t.Errorf("file event for %s carries no FileInfo", ev.AbsPath)
			}
		}
	}

	want := []string{"a.txt", "sub/b.txt", "sub/nested/c.txt"}
	if len(seen) != len(want) {
		t.Fatalf("expected %d files, got %v", len(want), seen)
	}
	for _, w := range want {
		if seen[w] != 1 {
			t.Errorf("expected file %q to be visited exactly once, got %d", w, seen[w])
		}
	}
}

func TestWalkDirectoryBoundaryEvents(t *testing.T) {
	root := buildTree(t)

	enters := make(map[string]int)
	leaves := make(map[string]int)
	for ev := range Walk(root) {
		rel, _ := filepath.Rel(root, ev.AbsPath)
		rel = filepath.ToSlash(rel)
		switch ev.Kind {
		case EnterDir:
			enters[rel]++
		case LeaveDir:
			leaves[rel]++
		}
	}

	wantDirs := []string{"empty", "sub", "sub/nested"}
	for _, d := range wantDirs {
		if enters[d] != 1 {
			t.Errorf("expected exactly one enter event for %q, got %d", d, enters[d])
		}
		if leaves[d] != 1 {
			t.Errorf("expected exactly one leave event for %q, got %d", d, leaves[d])
		}
	}
	if len(enters) != len(wantDirs) || len(leaves) != len(wantDirs) {
		t.Errorf("unexpected boundary events: enters=%v leaves=%v", enters, leaves)
	}

	// The root itself must never produce boundary events.
	if enters["."] != 0 || leaves["."] != 0 {
		t.Error("boundary events fired for the root directory")
	}
}

func TestWalkEnterBeforeFilesBeforeLeave(t *testing.T) {
	root := buildTree(t)

	var trace []string
	for ev := range Walk(root) {
		rel, _ := filepath.Rel(root, ev.AbsPath)
		trace = append(trace, ev.Kind.String()+":"+filepath.ToSlash(rel))
	}

	idx := func(s string) int {
		for i, e := range trace {
			if e == s {
				return i
			}
		}
		t.Fatalf("event %q not found in trace %v", s, trace)
		return -1
	}

	if !(idx("enter:sub") < idx("file:sub/b.txt") && idx("file:sub/b.txt") < idx("leave:sub")) {
		t.Errorf("file event not bracketed by its directory's boundary events: %v", trace)
	}
	if !(idx("enter:sub/nested") < idx("file:sub/nested/c.txt") && idx("file:sub/nested/c.txt") < idx("leave:sub/nested")) {
		t.Errorf("nested file event not bracketed: %v", trace)
	}
	if !(idx("enter:sub") < idx("enter:sub/nested") && idx("leave:sub/nested") < idx("leave:sub")) {
		t.Errorf("nested directory events not nested in parent's: %v", trace)
	}
}

func TestWalkEarlyStop(t *testing.T) {
	root := buildTree(t)

	count := 0
	for range Walk(root) {
		count++
		if count == 2 {
			break
		}
	}
	if count != 2 {
		t.Errorf("expected iteration to stop after 2 events, got %d", count)
	}
}

func TestWalkSkipsUnreadableDirectory(t *testing.T) {
	if runtime.GOOS == "windows" || os.Geteuid() == 0 {
		t.Skip("permission-based test needs a non-root unix user")
	}

	root := t.TempDir()
	mustWrite(t, filepath.Join(root, "ok.txt"), "ok")
	locked := filepath.Join(root, "locked")
	mustMkdir(t, locked)
	mustWrite(t, filepath.Join(locked, "hidden.txt"), "x")

	if err := os.Chmod(locked, 0000); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chmod(locked, 0755) })

	var files []string
	for ev := range Walk(root) {
		if ev.Kind == File {
			files = append(files, filepath.Base(ev.AbsPath))
		}
	}
	sort.Strings(files)

	if len(files) != 1 || files[0] != "ok.txt" {
		t.Errorf("expected only ok.txt to be visited, got %v", files)
	}
}
