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

// RunIndex walks a directory and builds or refreshes its database index.
func RunIndex(ctx context.Context, flagMap map[string]interface{}) error {
	cfg, err := resolveConfig(flagparse.Index, flagMap)
	if err != nil {
		return err
	}

	if err := preflight.CheckDirReadable(cfg.Root); err != nil {
		return err
	}
	if err := preflight.CheckParentWritable(cfg.DBPath); err != nil {
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

	writeIndexHeader(sink, cfg.Root, cfg.DBPath, !cfg.NoUpdate, cfg.RemoveMissing)

	metrics := &recon.RunMetrics{}
	r := recon.New(cfg.Root, refset.NewStored(db), classify.NewMime(), sink, metrics, recon.Options{
		Verbose:      cfg.Verbose,
		Update:       !cfg.NoUpdate,
		Prune:        cfg.RemoveMissing,
		Workers:      cfg.Workers,
		BufferSizeKB: cfg.BufferSizeKB,
	})

	metrics.StartProgress("Indexing in progress", progressInterval)
	err = r.Run(ctx)
	metrics.StopProgress()
	if err != nil {
		return err
	}

	sink.Line(report.Rule())
	metrics.LogSummary("Indexing complete")
	plog.Info("Successfully indexed directory", "path", cfg.Root, "database", cfg.DBPath)
	return nil
}

func writeIndexHeader(sink report.Sink, root, dbPath string, update, prune bool) {
	sink.Line(report.Banner("INDEX REPORT"))
	sink.Line(fmt.Sprintf("Report generated on: %s", time.Now().Format(time.DateTime)))
	sink.Line(fmt.Sprintf("Indexed directory: %s", root))
	sink.Line(fmt.Sprintf("Database: %s", dbPath))
	sink.Line("DIFF - Stands for files whose CRC32 checksum changed")
	sink.Line("MISS - Stands for files not yet present in the database")
	if !update {
		sink.Line("Database records will not be created or refreshed")
	}
	if prune {
		sink.Line("Database records of removed files will be deleted")
	}
	sink.Line(report.Rule())
}
