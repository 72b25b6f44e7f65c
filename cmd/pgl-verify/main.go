package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/paulschiretz/pgl-verify/cmd"
	"github.com/paulschiretz/pgl-verify/pkg/buildinfo"
	"github.com/paulschiretz/pgl-verify/pkg/flagparse"
	"github.com/paulschiretz/pgl-verify/pkg/plog"
)

func main() {
	start := time.Now()

	// A second signal terminates immediately through the default handler.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	command, flagMap, err := flagparse.Parse(os.Args[1:])
	if err != nil {
		plog.Error("Invalid arguments", "error", err)
		os.Exit(1)
	}

	switch command {
	case flagparse.None:
		// Help was printed.
		return
	case flagparse.Version:
		_ = cmd.RunVersion(buildinfo.Name, buildinfo.Version)
		return
	case flagparse.Index:
		err = cmd.RunIndex(ctx, flagMap)
	case flagparse.Compare:
		err = cmd.RunCompare(ctx, flagMap)
	case flagparse.Validate:
		err = cmd.RunValidate(ctx, flagMap)
	case flagparse.Export:
		err = cmd.RunExport(ctx, flagMap)
	}

	duration := time.Since(start).Round(time.Millisecond)
	if err != nil {
		plog.Error("Command failed", "command", command.String(), "duration", duration, "error", err)
		os.Exit(cmd.ExitCode(err))
	}
	plog.Info("Command finished", "command", command.String(), "duration", duration)
}
