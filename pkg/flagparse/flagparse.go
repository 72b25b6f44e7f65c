package flagparse

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/paulschiretz/pgl-verify/pkg/buildinfo"
)

// cliFlags holds pointers to all possible command-line flags.
// Fields are pointers so we can distinguish between "not registered for this
// command" (nil) and "registered but not set by user" (non-nil pointer to
// zero value).
type cliFlags struct {
	// Global
	LogLevel *string
	Verbose  *bool

	// Shared: Index / Validate / Export
	DB *string

	// Shared: Index / Compare / Validate
	Report       *string
	Workers      *int
	BufferSizeKB *int

	// Index specific
	NoUpdate      *bool
	RemoveMissing *bool

	// Compare specific
	CopyOnDiff *bool

	// Export specific
	Compress *string
}

func registerGlobalFlags(fs *flag.FlagSet, f *cliFlags) {
	f.LogLevel = fs.String("log-level", "info", "Set the logging level: 'debug', 'notice', 'info', 'warn', 'error'.")
	f.Verbose = fs.Bool("verbose", false, "Also report files whose fingerprints match.")
}

func registerIndexFlags(fs *flag.FlagSet, f *cliFlags) {
	f.DB = fs.String("db", "", "Path of the index database. Defaults to $BACKUP_DB, then './backup.db'.")
	f.Report = fs.String("report", "", "Write the report to this file instead of the console. An empty value uses 'report.txt'.")
	f.NoUpdate = fs.Bool("no-update", false, "Classify only; do not create or refresh database records.")
	f.RemoveMissing = fs.Bool("remove-missing", false, "Remove database records whose files are no longer present in the directory.")
	f.Workers = fs.Int("workers", 0, "Number of worker goroutines for fingerprinting. 0 uses one per CPU.")
	f.BufferSizeKB = fs.Int("buffer-size-kb", 0, "Size of the fixed I/O buffer in kilobytes.")
}

func registerCompareFlags(fs *flag.FlagSet, f *cliFlags) {
	f.Report = fs.String("report", "", "Write the report to this file instead of the console. An empty value uses 'report.txt'.")
	f.CopyOnDiff = fs.Bool("copy-on-diff", false, "Copy missing and differing files from the first directory into the second.")
	f.Workers = fs.Int("workers", 0, "Number of worker goroutines for fingerprinting. 0 uses one per CPU.")
	f.BufferSizeKB = fs.Int("buffer-size-kb", 0, "Size of the fixed I/O buffer in kilobytes.")
}

func registerValidateFlags(fs *flag.FlagSet, f *cliFlags) {
	f.DB = fs.String("db", "", "Path of the index database. Defaults to $BACKUP_DB, then './backup.db'.")
	f.Report = fs.String("report", "", "Write the report to this file instead of the console. An empty value uses 'report.txt'.")
	f.Workers = fs.Int("workers", 0, "Number of worker goroutines for fingerprinting. 0 uses one per CPU.")
	f.BufferSizeKB = fs.Int("buffer-size-kb", 0, "Size of the fixed I/O buffer in kilobytes.")
}

func registerExportFlags(fs *flag.FlagSet, f *cliFlags) {
	f.DB = fs.String("db", "", "Path of the index database. Defaults to $BACKUP_DB, then './backup.db'.")
	f.Compress = fs.String("compress", "", "Compress the exported file: 'gzip' or 'zstd'.")
}

// Parse parses the provided arguments (usually os.Args[1:]) and returns the
// command and a map of the flags that were explicitly set. Positional
// directory arguments are entered into the map under "directory" and
// "reference".
func Parse(args []string) (Command, map[string]interface{}, error) {
	// If no arguments provided, print help and exit.
	if len(args) == 0 {
		fs := flag.NewFlagSet("main", flag.ContinueOnError)
		printTopLevelUsage(fs)
		return None, nil, nil
	}

	cmdStr := strings.ToLower(args[0])

	if cmdStr == "help" || cmdStr == "-h" || cmdStr == "-help" || cmdStr == "--help" {
		fs := flag.NewFlagSet("main", flag.ContinueOnError)
		printTopLevelUsage(fs)
		return None, nil, nil
	}

	f := &cliFlags{}

	command, err := ParseCommand(cmdStr)
	if err != nil {
		return None, nil, err
	}

	switch command {
	case Index:
		fs := flag.NewFlagSet(command.String(), flag.ContinueOnError)
		registerGlobalFlags(fs, f)
		registerIndexFlags(fs, f)

		fs.Usage = func() {
			printSubcommandUsage(command, "Index a directory into the database.", "DIRECTORY", fs)
		}

		if err := fs.Parse(args[1:]); err != nil {
			return command, nil, err
		}
		flagMap, err := flagsToMap(fs, f)
		if err != nil {
			return command, nil, err
		}
		if err := takePositionals(fs, flagMap, 1); err != nil {
			return command, nil, err
		}
		return command, flagMap, nil

	case Compare:
		fs := flag.NewFlagSet(command.String(), flag.ContinueOnError)
		registerGlobalFlags(fs, f)
		registerCompareFlags(fs, f)

		fs.Usage = func() {
			printSubcommandUsage(command, "Compare two directories and report their differences.", "DIRECTORY OTHER_DIRECTORY", fs)
		}

		if err := fs.Parse(args[1:]); err != nil {
			return command, nil, err
		}
		flagMap, err := flagsToMap(fs, f)
		if err != nil {
			return command, nil, err
		}
		if err := takePositionals(fs, flagMap, 2); err != nil {
			return command, nil, err
		}
		return command, flagMap, nil

	case Validate:
		fs := flag.NewFlagSet(command.String(), flag.ContinueOnError)
		registerGlobalFlags(fs, f)
		registerValidateFlags(fs, f)

		fs.Usage = func() {
			printSubcommandUsage(command, "Validate a directory against the database.", "DIRECTORY", fs)
		}

		if err := fs.Parse(args[1:]); err != nil {
			return command, nil, err
		}
		flagMap, err := flagsToMap(fs, f)
		if err != nil {
			return command, nil, err
		}
		if err := takePositionals(fs, flagMap, 1); err != nil {
			return command, nil, err
		}
		return command, flagMap, nil

	case Export:
		fs := flag.NewFlagSet(command.String(), flag.ContinueOnError)
		registerGlobalFlags(fs, f)
		registerExportFlags(fs, f)

		fs.Usage = func() {
			printSubcommandUsage(command, "Export the database contents to a CSV file.", "", fs)
		}

		if err := fs.Parse(args[1:]); err != nil {
			return command, nil, err
		}
		flagMap, err := flagsToMap(fs, f)
		if err != nil {
			return command, nil, err
		}
		if err := takePositionals(fs, flagMap, 0); err != nil {
			return command, nil, err
		}
		return command, flagMap, nil

	case Version:
		return command, nil, nil

	default:
		return None, nil, fmt.Errorf("unknown command: %s", args[0])
	}
}

func flagsToMap(fs *flag.FlagSet, f *cliFlags) (map[string]interface{}, error) {
	// Create a map of the flags that were explicitly set by the user, along
	// with their values. This map is used to selectively override the base
	// configuration.
	usedFlags := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { usedFlags[f.Name] = true })

	flagMap := make(map[string]any)

	addIfUsed(flagMap, usedFlags, "log-level", f.LogLevel)
	addIfUsed(flagMap, usedFlags, "verbose", f.Verbose)

	addIfUsed(flagMap, usedFlags, "db", f.DB)
	addIfUsed(flagMap, usedFlags, "report", f.Report)
	addIfUsed(flagMap, usedFlags, "workers", f.Workers)
	addIfUsed(flagMap, usedFlags, "buffer-size-kb", f.BufferSizeKB)

	addIfUsed(flagMap, usedFlags, "no-update", f.NoUpdate)
	addIfUsed(flagMap, usedFlags, "remove-missing", f.RemoveMissing)
	addIfUsed(flagMap, usedFlags, "copy-on-diff", f.CopyOnDiff)

	addIfUsed(flagMap, usedFlags, "compress", f.Compress)

	return flagMap, nil
}

// takePositionals moves the expected number of positional arguments into the
// flag map under "directory" and "reference".
func takePositionals(fs *flag.FlagSet, flagMap map[string]any, want int) error {
	got := fs.Args()
	if len(got) != want {
		return fmt.Errorf("expected %d directory argument(s), got %d", want, len(got))
	}
	if want >= 1 {
		flagMap["directory"] = got[0]
	}
	if want >= 2 {
		flagMap["reference"] = got[1]
	}
	return nil
}

// addIfUsed adds the value of ptr to flagMap if ptr is not nil and the flag was set.
func addIfUsed[T any](flagMap map[string]interface{}, usedFlags map[string]bool, name string, ptr *T) {
	if ptr != nil && usedFlags[name] {
		flagMap[name] = *ptr
	}
}

// printTopLevelUsage prints the main help message.
func printTopLevelUsage(fs *flag.FlagSet) {

	execName := filepath.Base(os.Args[0])
	fmt.Fprintf(fs.Output(), "%s(%s) ", buildinfo.Name, buildinfo.Version)
	fmt.Fprintf(fs.Output(), "A directory indexing and verification utility.\n\n")
	fmt.Fprintf(fs.Output(), "Usage: %s <command> [flags] [arguments]\n\n", execName)
	fmt.Fprintf(fs.Output(), "Commands:\n")
	fmt.Fprintf(fs.Output(), "  index       Index a directory into the database\n")
	fmt.Fprintf(fs.Output(), "  compare     Compare two directories\n")
	fmt.Fprintf(fs.Output(), "  validate    Validate a directory against the database\n")
	fmt.Fprintf(fs.Output(), "  export      Export the database contents to CSV\n")
	fmt.Fprintf(fs.Output(), "  version     Print the application version\n")
	fmt.Fprintf(fs.Output(), "\nRun '%s <command> -help' for more information on a command.\n", execName)
}

// printSubcommandUsage prints the help message for a specific subcommand.
func printSubcommandUsage(command Command, desc, positional string, fs *flag.FlagSet) {

	execName := filepath.Base(os.Args[0])
	fmt.Fprintf(fs.Output(), "%s(%s) ", buildinfo.Name, buildinfo.Version)
	fmt.Fprintf(fs.Output(), "A directory indexing and verification utility.\n\n")
	if positional != "" {
		fmt.Fprintf(fs.Output(), "Usage of the %s command: %s %s [flags] %s\n\n", command, execName, command, positional)
	} else {
		fmt.Fprintf(fs.Output(), "Usage of the %s command: %s %s [flags]\n\n", command, execName, command)
	}
	fmt.Fprintf(fs.Output(), "%s\n\n", desc)
	fmt.Fprintf(fs.Output(), "Flags:\n")
	fs.PrintDefaults()
}
