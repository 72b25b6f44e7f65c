// Package recon implements the reconciliation run: walk the primary tree,
// classify every key against the reference side, run the complementary
// second pass, and stream the outcome to a report sink.
package recon

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/paulschiretz/pgl-verify/pkg/checksum"
	"github.com/paulschiretz/pgl-verify/pkg/classify"
	"github.com/paulschiretz/pgl-verify/pkg/pathkey"
	"github.com/paulschiretz/pgl-verify/pkg/plog"
	"github.com/paulschiretz/pgl-verify/pkg/pool"
	"github.com/paulschiretz/pgl-verify/pkg/refset"
	"github.com/paulschiretz/pgl-verify/pkg/report"
	"github.com/paulschiretz/pgl-verify/pkg/sched"
	"github.com/paulschiretz/pgl-verify/pkg/sharded"
	"github.com/paulschiretz/pgl-verify/pkg/store"
	"github.com/paulschiretz/pgl-verify/pkg/walker"
)

// Shard count for the seen-key set. Must be a power of two.
const seenSetShards = 32

// Options selects the run mode.
type Options struct {
	// Verbose also reports MATCH events. DIFF, MISS and EXTRA are always
	// reported.
	Verbose bool
	// Update persists new and changed records into a store-backed reference.
	Update bool
	// Prune deletes store records whose keys are no longer on disk.
	// Requires a store-backed reference and Update.
	Prune bool
	// CopyOnDiff copies the primary file's bytes onto a tree-backed
	// reference for every MISS and DIFF key.
	CopyOnDiff bool
	// Symmetric runs the reverse pass over a tree-backed reference and
	// reports reference-only keys as EXTRA.
	Symmetric bool
	// Validate runs the store pass and reports records whose files are
	// gone from disk as MISS.
	Validate bool
	// Workers bounds fingerprinting concurrency. <= 0 means one worker
	// per available CPU.
	Workers int
	// BufferSizeKB sizes the fixed read buffers. <= 0 uses the default.
	BufferSizeKB int
}

// Reconciler drives one run. Create a fresh one per run; it is not reusable.
type Reconciler struct {
	root    string
	ref     refset.Ref
	class   classify.Classifier
	sink    report.Sink
	metrics Metrics
	opts    Options

	sums    *checksum.Summer
	bufPool *pool.FixedBufferPool
	seen    *sharded.Set

	// First persistence failure wins; workers after it drain without
	// touching the store.
	criticalErr chan error
	failed      atomic.Bool
}

// New assembles a reconciler for one run over the tree rooted at root.
func New(root string, ref refset.Ref, class classify.Classifier, sink report.Sink, metrics Metrics, opts Options) *Reconciler {
	bufKB := opts.BufferSizeKB
	if bufKB <= 0 {
		bufKB = checksum.DefaultBufferSizeKB
	}
	if metrics == nil {
		metrics = &NoopMetrics{}
	}

	r := &Reconciler{
		root:        filepath.Clean(root),
		ref:         ref,
		class:       class,
		sink:        sink,
		metrics:     metrics,
		opts:        opts,
		sums:        checksum.NewSummer(bufKB),
		bufPool:     pool.NewFixedBuffer(int64(bufKB) * 1024),
		criticalErr: make(chan error, 1),
	}
	if opts.Prune {
		r.seen = sharded.NewSet(seenSetShards)
	}
	return r
}

// Run executes the primary walk and whichever second pass the options ask
// for. Per-file I/O trouble is logged and skipped; a persistence failure or
// a cancelled context aborts the run.
func (r *Reconciler) Run(ctx context.Context) error {
	workers := sched.New(r.opts.Workers)

	for ev := range walker.Walk(r.root) {
		if err := ctx.Err(); err != nil {
			break
		}
		if r.failed.Load() {
			break
		}
		if ev.Kind != walker.File {
			continue
		}

		key, err := pathkey.Key(r.root, ev.AbsPath)
		if err != nil {
			plog.Warn("Cannot derive key, skipping file", "path", ev.AbsPath, "error", err)
			r.metrics.AddFileErrors(1)
			continue
		}
		if r.seen != nil {
			r.seen.Store(key)
		}

		absPath := ev.AbsPath
		size := ev.Info.Size()
		workers.Schedule(func() {
			r.reconcileFile(absPath, key, size)
		})
	}

	workers.Shutdown()

	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case err := <-r.criticalErr:
		return err
	default:
	}

	if r.opts.Symmetric {
		if err := r.extraPass(ctx); err != nil {
			return err
		}
	}
	if r.opts.Validate {
		if err := r.validatePass(ctx); err != nil {
			return err
		}
	}
	if r.opts.Prune {
		if err := r.prunePass(ctx); err != nil {
			return err
		}
	}

	return ctx.Err()
}

// reconcileFile classifies one primary-side key. Runs on a worker goroutine.
func (r *Reconciler) reconcileFile(absPath, key string, size int64) {
	if r.failed.Load() {
		return
	}

	hash, err := r.sums.File(absPath)
	if err != nil {
		// The file may have vanished or be unreadable. Skip it, the run
		// itself continues.
		plog.Warn("Cannot fingerprint file, skipping", "path", absPath, "error", err)
		r.metrics.AddFileErrors(1)
		return
	}
	r.metrics.AddFilesScanned(1)
	r.metrics.AddBytesRead(size)

	refRec, err := r.ref.Lookup(key)
	if err != nil {
		var serr *store.Error
		if errors.As(err, &serr) {
			r.fail(err)
			return
		}
		plog.Warn("Reference lookup failed, skipping", "key", key, "error", err)
		r.metrics.AddFileErrors(1)
		return
	}

	switch {
	case refRec == nil:
		r.metrics.AddMissing(1)
		r.sink.Event(report.TagMiss, key)
		if r.opts.Update {
			r.persistNew(absPath, key, hash)
		}
		if r.opts.CopyOnDiff {
			r.copyToReference(absPath, key)
		}

	case refRec.Hash != hash:
		r.metrics.AddDiffered(1)
		r.sink.Event(report.TagDiff, key)
		if r.opts.Update {
			r.persistChanged(absPath, key, hash, refRec)
		}
		if r.opts.CopyOnDiff {
			r.copyToReference(absPath, key)
		}

	default:
		r.metrics.AddMatched(1)
		if r.opts.Verbose {
			r.sink.Event(report.TagMatch, key)
		}
	}
}

// persistNew inserts a record for a key the store has never seen.
func (r *Reconciler) persistNew(absPath, key, hash string) {
	db := r.storeDB()
	if db == nil {
		return
	}

	rec := &store.FileRecord{
		Name: pathkey.Name(key),
		Hash: hash,
		Path: key,
		Type: r.class.Classify(absPath),
	}
	if err := db.Insert(rec); err != nil {
		r.fail(err)
	}
}

// persistChanged refreshes the stored record of a key whose content changed.
func (r *Reconciler) persistChanged(absPath, key, hash string, refRec *store.FileRecord) {
	db := r.storeDB()
	if db == nil {
		return
	}

	refRec.Name = pathkey.Name(key)
	refRec.Hash = hash
	refRec.Type = r.class.Classify(absPath)
	touched, err := db.Update(refRec)
	if err != nil {
		r.fail(err)
		return
	}
	if !touched {
		plog.Warn("Record vanished during update", "key", key)
	}
}

// extraPass walks the reference tree and reports keys absent from the
// primary side as EXTRA.
func (r *Reconciler) extraPass(ctx context.Context) error {
	for rec, err := range r.ref.All() {
		if cerr := ctx.Err(); cerr != nil {
			return cerr
		}
		if err != nil {
			plog.Warn("Skipping reference entry", "error", err)
			r.metrics.AddFileErrors(1)
			continue
		}

		if !r.existsOnPrimary(rec.Path) {
			r.metrics.AddExtra(1)
			r.sink.Event(report.TagExtra, rec.Path)
		}
	}
	return nil
}

// validatePass enumerates the store and reports records whose files are
// gone from disk as MISS.
func (r *Reconciler) validatePass(ctx context.Context) error {
	for rec, err := range r.ref.All() {
		if cerr := ctx.Err(); cerr != nil {
			return cerr
		}
		if err != nil {
			return err
		}

		if !r.existsOnPrimary(rec.Path) {
			r.metrics.AddMissing(1)
			r.sink.Event(report.TagMiss, rec.Path)
		}
	}
	return nil
}

// prunePass deletes store records whose keys were not seen on disk during
// the primary walk. Per-record failures are logged, they do not abort the
// pass.
func (r *Reconciler) prunePass(ctx context.Context) error {
	db := r.storeDB()
	if db == nil {
		return nil
	}

	for rec, err := range r.ref.All() {
		if cerr := ctx.Err(); cerr != nil {
			return cerr
		}
		if err != nil {
			return err
		}
		if r.seen.Has(rec.Path) {
			continue
		}

		removed, derr := db.Delete(rec.ID)
		if derr != nil {
			plog.Error("Failed to remove vanished record", "key", rec.Path, "error", derr)
			continue
		}
		if removed {
			r.metrics.AddPruned(1)
			r.sink.Line(fmt.Sprintf("Removed from database: %s", rec.Path))
			plog.Info("Removed vanished record", "key", rec.Path, "id", rec.ID)
		}
	}
	return nil
}

// copyToReference mirrors the primary file onto a tree-backed reference.
// Failures are reported, never fatal.
func (r *Reconciler) copyToReference(absPath, key string) {
	tree, ok := r.ref.(*refset.Tree)
	if !ok {
		return
	}

	dst := pathkey.Abs(tree.Root(), key)
	if err := r.copyFile(absPath, dst); err != nil {
		plog.Error("Failed to copy file to reference", "src", absPath, "dst", dst, "error", err)
		r.metrics.AddFileErrors(1)
		return
	}
	r.metrics.AddCopied(1)
	plog.Debug("Copied file to reference", "src", absPath, "dst", dst)
}

// copyFile writes src's bytes to a temp file next to dst and renames it into
// place, creating parent directories as needed.
func (r *Reconciler) copyFile(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return fmt.Errorf("create parent directory: %w", err)
	}

	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}
	defer in.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dst), filepath.Base(dst)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	buf := r.bufPool.Get()
	defer r.bufPool.Put(buf)

	for {
		n, rerr := in.Read(*buf)
		if n > 0 {
			if _, werr := tmp.Write((*buf)[:n]); werr != nil {
				tmp.Close()
				return fmt.Errorf("write temp file: %w", werr)
			}
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			tmp.Close()
			return fmt.Errorf("read source: %w", rerr)
		}
	}

	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, dst); err != nil {
		return fmt.Errorf("rename into place: %w", err)
	}
	return nil
}

// existsOnPrimary checks whether a key maps to a regular file under the
// primary root.
func (r *Reconciler) existsOnPrimary(key string) bool {
	info, err := os.Stat(pathkey.Abs(r.root, key))
	return err == nil && info.Mode().IsRegular()
}

// storeDB returns the store behind a store-backed reference, nil otherwise.
func (r *Reconciler) storeDB() *store.Store {
	if s, ok := r.ref.(*refset.Stored); ok {
		return s.DB()
	}
	return nil
}

// fail records the first critical error and flips the run into drain mode.
func (r *Reconciler) fail(err error) {
	r.failed.Store(true)
	select {
	case r.criticalErr <- err:
	default:
	}
}
