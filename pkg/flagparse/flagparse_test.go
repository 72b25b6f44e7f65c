package flagparse

import (
	"testing"
)

func TestParseCommand(t *testing.T) {
	testCases := []struct {
		input    string
		expected Command
		wantErr  bool
	}{
		{"index", Index, false},
		{"compare", Compare, false},
		{"validate", Validate, false},
		{"export", Export, false},
		{"version", Version, false},
		{"bogus", None, true},
		{"", None, true},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			got, err := ParseCommand(tc.input)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("ParseCommand(%q) expected error", tc.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseCommand(%q) returned error: %v", tc.input, err)
			}
			if got != tc.expected {
				t.Errorf("ParseCommand(%q) = %v; want %v", tc.input, got, tc.expected)
			}
		})
	}
}

func TestParseIndex(t *testing.T) {
	cmd, flagMap, err := Parse([]string{"index", "-db", "/tmp/x.db", "-remove-missing", "/data"})
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if cmd != Index {
		t.Fatalf("command = %v; want Index", cmd)
	}
	if got := flagMap["db"]; got != "/tmp/x.db" {
		t.Errorf("db = %v", got)
	}
	if got := flagMap["remove-missing"]; got != true {
		t.Errorf("remove-missing = %v", got)
	}
	if got := flagMap["directory"]; got != "/data" {
		t.Errorf("directory = %v", got)
	}
	if _, ok := flagMap["no-update"]; ok {
		t.Error("unset flag leaked into the flag map")
	}
}

func TestParseCompareNeedsTwoDirectories(t *testing.T) {
	cmd, flagMap, err := Parse([]string{"compare", "-copy-on-diff", "/a", "/b"})
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if cmd != Compare {
		t.Fatalf("command = %v; want Compare", cmd)
	}
	if flagMap["directory"] != "/a" || flagMap["reference"] != "/b" {
		t.Errorf("positionals = %v / %v", flagMap["directory"], flagMap["reference"])
	}
	if flagMap["copy-on-diff"] != true {
		t.Errorf("copy-on-diff = %v", flagMap["copy-on-diff"])
	}

	if _, _, err := Parse([]string{"compare", "/a"}); err == nil {
		t.Error("expected error for a single directory argument")
	}
}

func TestParseIndexRejectsWrongArgCount(t *testing.T) {
	if _, _, err := Parse([]string{"index"}); err == nil {
		t.Error("expected error for a missing directory argument")
	}
	if _, _, err := Parse([]string{"index", "/a", "/b"}); err == nil {
		t.Error("expected error for a surplus directory argument")
	}
}

func TestParseExport(t *testing.T) {
	cmd, flagMap, err := Parse([]string{"export", "-compress", "zstd"})
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if cmd != Export {
		t.Fatalf("command = %v; want Export", cmd)
	}
	if flagMap["compress"] != "zstd" {
		t.Errorf("compress = %v", flagMap["compress"])
	}
}

func TestParseVersion(t *testing.T) {
	cmd, flagMap, err := Parse([]string{"version"})
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if cmd != Version {
		t.Fatalf("command = %v; want Version", cmd)
	}
	if flagMap != nil {
		t.Errorf("version produced a flag map: %v", flagMap)
	}
}

func TestParseReportFlagKeepsEmptyValue(t *testing.T) {
	_, flagMap, err := Parse([]string{"validate", "-report=", "/data"})
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	got, ok := flagMap["report"]
	if !ok {
		t.Fatal("explicitly set -report missing from flag map")
	}
	if got != "" {
		t.Errorf("report = %q; want empty string", got)
	}
}

func TestParseUnknownCommand(t *testing.T) {
	if _, _, err := Parse([]string{"frobnicate"}); err == nil {
		t.Error("expected error for an unknown command")
	}
}

func TestParseNoArgsPrintsHelp(t *testing.T) {
	cmd, flagMap, err := Parse(nil)
	if err != nil {
		t.Fatalf("Parse(nil) returned error: %v", err)
	}
	if cmd != None || flagMap != nil {
		t.Errorf("Parse(nil) = %v, %v; want None, nil", cmd, flagMap)
	}
}
