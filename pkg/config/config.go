// Package config holds the resolved settings of one invocation.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/paulschiretz/pgl-verify/pkg/flagparse"
	"github.com/paulschiretz/pgl-verify/pkg/util"
)

// DatabaseEnv is the environment variable consulted for the database path
// when no -db flag is given.
const DatabaseEnv = "BACKUP_DB"

// DefaultDatabasePath is used when neither the -db flag nor the environment
// provides a path.
const DefaultDatabasePath = "./backup.db"

// DefaultReportName is the report file created when -report is given
// without a value.
const DefaultReportName = "report.txt"

// Error marks an invalid or unresolvable configuration.
type Error struct {
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("config: %v", e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func configErr(format string, args ...any) error {
	return &Error{Err: fmt.Errorf(format, args...)}
}

// Config is the fully resolved settings of one run.
type Config struct {
	// Root is the primary directory, the side that is walked.
	Root string
	// RefRoot is the reference directory of a two-tree comparison.
	RefRoot string
	// DBPath locates the sqlite database for store-backed runs and export.
	DBPath string
	// ReportPath is the report file; empty means console output.
	ReportPath string

	Verbose       bool
	NoUpdate      bool
	RemoveMissing bool
	CopyOnDiff    bool

	Workers      int
	BufferSizeKB int

	LogLevel string
	// Compress selects the export compression: "", "gzip" or "zstd".
	Compress string
}

// NewDefault creates a Config with the application defaults. The database
// path honors the BACKUP_DB environment variable.
func NewDefault() Config {
	dbPath := DefaultDatabasePath
	if env := os.Getenv(DatabaseEnv); env != "" {
		dbPath = env
	}

	return Config{
		DBPath:   dbPath,
		LogLevel: "info",
	}
}

// MergeConfigWithFlags overlays the explicitly set flags onto the base
// configuration.
func MergeConfigWithFlags(command flagparse.Command, base Config, setFlags map[string]any) Config {
	merged := base

	for name, value := range setFlags {
		switch name {
		case "directory":
			merged.Root = value.(string)
		case "reference":
			merged.RefRoot = value.(string)
		case "db":
			merged.DBPath = value.(string)
		case "report":
			merged.ReportPath = value.(string)
			if merged.ReportPath == "" {
				merged.ReportPath = DefaultReportName
			}
		case "log-level":
			merged.LogLevel = value.(string)
		case "verbose":
			merged.Verbose = value.(bool)
		case "no-update":
			merged.NoUpdate = value.(bool)
		case "remove-missing":
			merged.RemoveMissing = value.(bool)
		case "copy-on-diff":
			merged.CopyOnDiff = value.(bool)
		case "workers":
			merged.Workers = value.(int)
		case "buffer-size-kb":
			merged.BufferSizeKB = value.(int)
		case "compress":
			merged.Compress = value.(string)
		default:
		}
	}
	return merged
}

// Validate checks the configuration for the given command, expanding and
// cleaning paths along the way.
func (c *Config) Validate(command flagparse.Command) error {
	var err error

	needsRoot := command == flagparse.Index || command == flagparse.Compare || command == flagparse.Validate
	if needsRoot {
		if c.Root == "" {
			return configErr("directory argument cannot be empty")
		}
		if c.Root, err = resolveDir(c.Root); err != nil {
			return &Error{Err: err}
		}
	}

	if command == flagparse.Compare {
		if c.RefRoot == "" {
			return configErr("comparison needs a second directory argument")
		}
		if c.RefRoot, err = resolveDir(c.RefRoot); err != nil {
			return &Error{Err: err}
		}
		if c.Root == c.RefRoot {
			return configErr("cannot compare directory '%s' with itself", c.Root)
		}
	}

	needsDB := command == flagparse.Index || command == flagparse.Validate || command == flagparse.Export
	if needsDB {
		if c.DBPath == "" {
			return configErr("database path cannot be empty")
		}
		if c.DBPath, err = util.ExpandPath(c.DBPath); err != nil {
			return configErr("could not expand database path: %v", err)
		}
		c.DBPath = filepath.Clean(c.DBPath)
	}

	if c.Workers < 0 {
		return configErr("workers cannot be negative")
	}
	if c.BufferSizeKB < 0 {
		return configErr("buffer-size-kb cannot be negative")
	}

	switch c.Compress {
	case "", "gzip", "zstd":
	default:
		return configErr("invalid compression format %q, must be 'gzip' or 'zstd'", c.Compress)
	}

	return nil
}

// resolveDir expands, cleans and stat-checks a directory argument.
func resolveDir(dir string) (string, error) {
	expanded, err := util.ExpandPath(dir)
	if err != nil {
		return "", fmt.Errorf("could not expand path '%s': %w", dir, err)
	}
	expanded = filepath.Clean(expanded)

	info, err := os.Stat(expanded)
	if err != nil {
		return "", fmt.Errorf("directory '%s' does not exist", expanded)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("'%s' is not a directory", expanded)
	}
	return expanded, nil
}
