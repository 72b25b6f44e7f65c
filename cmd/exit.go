package cmd

import (
	"errors"
	"fmt"

	"github.com/paulschiretz/pgl-verify/pkg/config"
	"github.com/paulschiretz/pgl-verify/pkg/store"
)

// ReportError marks a failure to create the report file.
type ReportError struct {
	Err error
}

func (e *ReportError) Error() string {
	return fmt.Sprintf("report: %v", e.Err)
}

func (e *ReportError) Unwrap() error {
	return e.Err
}

// ExitCode maps an error to the process exit code. Invalid configuration is
// 1, database trouble is 2, an uncreatable report file is 3.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}

	var serr *store.Error
	if errors.As(err, &serr) {
		return 2
	}
	var rerr *ReportError
	if errors.As(err, &rerr) {
		return 3
	}
	var cerr *config.Error
	if errors.As(err, &cerr) {
		return 1
	}
	return 1
}
