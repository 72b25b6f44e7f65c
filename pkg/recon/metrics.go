package recon

import (
	"sync/atomic"
	"time"

	"github.com/paulschiretz/pgl-verify/pkg/plog"
	"github.com/paulschiretz/pgl-verify/pkg/util"
)

// Metrics defines the interface for collecting and reporting run statistics.
type Metrics interface {
	AddFilesScanned(n int64)
	AddBytesRead(n int64)
	AddMatched(n int64)
	AddDiffered(n int64)
	AddMissing(n int64)
	AddExtra(n int64)
	AddPruned(n int64)
	AddCopied(n int64)
	AddFileErrors(n int64)
	LogSummary(msg string)

	StartProgress(msg string, interval time.Duration)
	StopProgress()
}

// RunMetrics holds the atomic counters for tracking a reconciliation run.
// It is the concrete implementation of the Metrics interface.
type RunMetrics struct {
	FilesScanned atomic.Int64
	BytesRead    atomic.Int64
	Matched      atomic.Int64
	Differed     atomic.Int64
	Missing      atomic.Int64
	Extra        atomic.Int64
	Pruned       atomic.Int64
	Copied       atomic.Int64
	FileErrors   atomic.Int64

	stopChan  chan struct{}
	startTime time.Time
}

func (m *RunMetrics) AddFilesScanned(n int64) { m.FilesScanned.Add(n) }
func (m *RunMetrics) AddBytesRead(n int64)    { m.BytesRead.Add(n) }
func (m *RunMetrics) AddMatched(n int64)      { m.Matched.Add(n) }
func (m *RunMetrics) AddDiffered(n int64)     { m.Differed.Add(n) }
func (m *RunMetrics) AddMissing(n int64)      { m.Missing.Add(n) }
func (m *RunMetrics) AddExtra(n int64)        { m.Extra.Add(n) }
func (m *RunMetrics) AddPruned(n int64)       { m.Pruned.Add(n) }
func (m *RunMetrics) AddCopied(n int64)       { m.Copied.Add(n) }
func (m *RunMetrics) AddFileErrors(n int64)   { m.FileErrors.Add(n) }

func (m *RunMetrics) StartProgress(msg string, interval time.Duration) {
	m.startTime = time.Now()
	m.stopChan = make(chan struct{})
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				m.LogSummary(msg)
			case <-m.stopChan:
				return
			}
		}
	}()
}

func (m *RunMetrics) StopProgress() {
	if m.stopChan != nil {
		close(m.stopChan)
	}
}

// LogSummary prints a summary of the run with a custom message. This can be
// called by a background ticker or at the end of the run.
func (m *RunMetrics) LogSummary(msg string) {
	duration := time.Duration(0)
	if !m.startTime.IsZero() {
		duration = time.Since(m.startTime)
	}

	plog.Info(msg,
		"files_scanned", m.FilesScanned.Load(),
		"bytes_read", util.ByteCountIEC(m.BytesRead.Load()),
		"matched", m.Matched.Load(),
		"differed", m.Differed.Load(),
		"missing", m.Missing.Load(),
		"extra", m.Extra.Load(),
		"pruned", m.Pruned.Load(),
		"copied", m.Copied.Load(),
		"file_errors", m.FileErrors.Load(),
		"duration", duration.Round(time.Millisecond),
	)
}

// NoopMetrics is an implementation of the Metrics interface that performs no
// operations. It can be used to disable metrics collection without changing
// the calling code.
type NoopMetrics struct{}

func (m *NoopMetrics) AddFilesScanned(n int64)                          {}
func (m *NoopMetrics) AddBytesRead(n int64)                             {}
func (m *NoopMetrics) AddMatched(n int64)                               {}
func (m *NoopMetrics) AddDiffered(n int64)                              {}
func (m *NoopMetrics) AddMissing(n int64)                               {}
func (m *NoopMetrics) AddExtra(n int64)                                 {}
func (m *NoopMetrics) AddPruned(n int64)                                {}
func (m *NoopMetrics) AddCopied(n int64)                                {}
func (m *NoopMetrics) AddFileErrors(n int64)                            {}
func (m *NoopMetrics) LogSummary(msg string)                            {}
func (m *NoopMetrics) StartProgress(msg string, interval time.Duration) {}
func (m *NoopMetrics) StopProgress()                                    {}
