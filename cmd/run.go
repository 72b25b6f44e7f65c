package cmd

import (
	"time"

	"github.com/paulschiretz/pgl-verify/pkg/config"
	"github.com/paulschiretz/pgl-verify/pkg/flagparse"
	"github.com/paulschiretz/pgl-verify/pkg/plog"
	"github.com/paulschiretz/pgl-verify/pkg/report"
)

// progressInterval is how often a long run logs its counters.
const progressInterval = 30 * time.Second

// resolveConfig merges the set flags over the defaults and validates the
// result for the given command.
func resolveConfig(command flagparse.Command, flagMap map[string]interface{}) (config.Config, error) {
	runConfig := config.MergeConfigWithFlags(command, config.NewDefault(), flagMap)

	if err := runConfig.Validate(command); err != nil {
		return config.Config{}, err
	}

	// Set the global log level based on the final configuration.
	plog.SetLevel(plog.LevelFromString(runConfig.LogLevel))

	return runConfig, nil
}

// newSink opens the report destination selected by the configuration. A
// sink that cannot be created aborts the run before any work happens.
func newSink(cfg config.Config) (report.Sink, error) {
	if cfg.ReportPath == "" {
		plog.Info("Report will be printed to the console")
		return report.NewConsole(), nil
	}

	sink, err := report.NewFile(cfg.ReportPath)
	if err != nil {
		return nil, &ReportError{Err: err}
	}
	plog.Info("Report will be saved to file", "path", cfg.ReportPath)
	return sink, nil
}

// closeSink closes the sink, logging instead of failing; the classified
// events are already written.
func closeSink(sink report.Sink) {
	if err := sink.Close(); err != nil {
		plog.Error("Failed to close report sink", "error", err)
	}
}
