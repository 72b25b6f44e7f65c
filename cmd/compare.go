package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/paulschiretz/pgl-verify/pkg/checksum"
	"github.com/paulschiretz/pgl-verify/pkg/classify"
	"github.com/paulschiretz/pgl-verify/pkg/flagparse"
	"github.com/paulschiretz/pgl-verify/pkg/plog"
	"github.com/paulschiretz/pgl-verify/pkg/preflight"
	"github.com/paulschiretz/pgl-verify/pkg/recon"
	"github.com/paulschiretz/pgl-verify/pkg/refset"
	"github.com/paulschiretz/pgl-verify/pkg/report"
)

// RunCompare reconciles two directory trees against each other.
func RunCompare(ctx context.Context, flagMap map[string]interface{}) error {
	cfg, err := resolveConfig(flagparse.Compare, flagMap)
	if err != nil {
		return err
	}

	if err := preflight.CheckDirReadable(cfg.Root); err != nil {
		return err
	}
	if err := preflight.CheckDirReadable(cfg.RefRoot); err != nil {
		return err
	}

	sink, err := newSink(cfg)
	if err != nil {
		return err
	}
	defer closeSink(sink)

	writeCompareHeader(sink, cfg.Root, cfg.RefRoot, cfg.CopyOnDiff)

	bufKB := cfg.BufferSizeKB
	if bufKB <= 0 {
		bufKB = checksum.DefaultBufferSizeKB
	}
	metrics := &recon.RunMetrics{}
	r := recon.New(cfg.Root, refset.NewTree(cfg.RefRoot, checksum.NewSummer(bufKB)), classify.NewMime(), sink, metrics, recon.Options{
		Verbose:      cfg.Verbose,
		Symmetric:    true,
		CopyOnDiff:   cfg.CopyOnDiff,
		Workers:      cfg.Workers,
		BufferSizeKB: cfg.BufferSizeKB,
	})

	metrics.StartProgress("Comparison in progress", progressInterval)
	err = r.Run(ctx)
	metrics.StopProgress()
	if err != nil {
		return err
	}

	sink.Line(report.Rule())
	metrics.LogSummary("Comparison complete")
	plog.Info("Successfully compared directories", "base", cfg.Root, "other", cfg.RefRoot)
	return nil
}

func writeCompareHeader(sink report.Sink, base, other string, copyOnDiff bool) {
	sink.Line(report.Banner("DIFF REPORT"))
	sink.Line(fmt.Sprintf("Report generated on: %s", time.Now().Format(time.DateTime)))
	sink.Line(fmt.Sprintf("Base directory: %s", base))
	sink.Line(fmt.Sprintf("Other directory: %s", other))
	sink.Line("DIFF - Stands for different files due to CRC32 checksum")
	sink.Line("MISS - Stands for missing files in the other directory")
	sink.Line("EXTRA - Stands for extra files in the other directory")
	if copyOnDiff {
		sink.Line("MISS and DIFF files will be copied to the other directory")
	}
	sink.Line(report.Rule())
}
