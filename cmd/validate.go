package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/paulschiretz/pgl-verify/pkg/classify"
	"github.com/paulschiretz/pgl-verify/pkg/flagparse"
	"github.com/paulschiretz/pgl-verify/pkg/plog"
	"github.com/paulschiretz/pgl-verify/pkg/preflight"
	"github.com/paulschiretz/pgl-verify/pkg/recon"
	"github.com/paulschiretz/pgl-verify/pkg/refset"
	"github.com/paulschiretz/pgl-verify/pkg/report"
	"github.com/paulschiretz/pgl-verify/pkg/store"
)

// RunValidate checks a directory against its database index without
// modifying the index.
func RunValidate(ctx context.Context, flagMap map[string]interface{}) error {
	cfg, err := resolveConfig(flagparse.Validate, flagMap)
	if err != nil {
		return err
	}

	if err := preflight.CheckDirReadable(cfg.Root); err != nil {
		return err
	}

	db, err := store.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()

	sink, err := newSink(cfg)
	if err != nil {
		return err
	}
	defer closeSink(sink)

	writeValidateHeader(sink, cfg.Root, cfg.DBPath)

	metrics := &recon.RunMetrics{}
	r := recon.New(cfg.Root, refset.NewStored(db), classify.NewMime(), sink, metrics, recon.Options{
		Verbose:      cfg.Verbose,
		Validate:     true,
		Workers:      cfg.Workers,
		BufferSizeKB: cfg.BufferSizeKB,
	})

	metrics.StartProgress("Validation in progress", progressInterval)
	err = r.Run(ctx)
	metrics.StopProgress()
	if err != nil {
		return err
	}

	sink.Line(report.Rule())
	metrics.LogSummary("Validation complete")
	plog.Info("Successfully validated directory", "path", cfg.Root, "database", cfg.DBPath)
	return nil
}

func writeValidateHeader(sink report.Sink, root, dbPath string) {
	sink.Line(report.Banner("VALIDATION REPORT"))
	sink.Line(fmt.Sprintf("Report generated on: %s", time.Now().Format(time.DateTime)))
	sink.Line(fmt.Sprintf("Validated directory: %s", root))
	sink.Line(fmt.Sprintf("Database: %s", dbPath))
	sink.Line("DIFF - Stands for files whose CRC32 checksum changed")
	sink.Line("MISS - Stands for files present on only one side")
	sink.Line(report.Rule())
}
