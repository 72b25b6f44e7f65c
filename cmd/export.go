package cmd

import (
	"context"
	"os"

	"github.com/paulschiretz/pgl-verify/pkg/export"
	"github.com/paulschiretz/pgl-verify/pkg/flagparse"
	"github.com/paulschiretz/pgl-verify/pkg/plog"
	"github.com/paulschiretz/pgl-verify/pkg/store"
)

// RunExport writes the database contents to a CSV file in the working
// directory.
func RunExport(ctx context.Context, flagMap map[string]interface{}) error {
	cfg, err := resolveConfig(flagparse.Export, flagMap)
	if err != nil {
		return err
	}

	format, err := export.ParseFormat(cfg.Compress)
	if err != nil {
		return err
	}

	if _, err := os.Stat(cfg.DBPath); err != nil {
		plog.Warn("Database does not exist yet, exporting an empty index", "path", cfg.DBPath)
	}

	db, err := store.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()

	outPath, err := export.Run(db, ".", format, cfg.Verbose)
	if err != nil {
		return err
	}

	count, err := db.Count()
	if err != nil {
		return err
	}
	plog.Info("Successfully exported database", "file", outPath, "records", count)
	return nil
}
