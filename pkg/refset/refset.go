// Package refset adapts the two kinds of reference sides, a second
// directory tree or the record store, behind one lookup interface.
package refset

import (
	"errors"
	"fmt"
	"io/fs"
	"iter"
	"os"

	"github.com/paulschiretz/pgl-verify/pkg/checksum"
	"github.com/paulschiretz/pgl-verify/pkg/pathkey"
	"github.com/paulschiretz/pgl-verify/pkg/store"
	"github.com/paulschiretz/pgl-verify/pkg/walker"
)

// Ref is the reference side of a run. Lookup answers "what does the
// reference know about this key", (nil, nil) meaning nothing. All
// enumerates every reference entry for the second pass.
type Ref interface {
	Lookup(key string) (*store.FileRecord, error)
	All() iter.Seq2[*store.FileRecord, error]
}

// Tree is a reference backed by a second directory root. Lookup derives the
// candidate path under the root and fingerprints it on demand.
type Tree struct {
	root string
	sums *checksum.Summer
}

// NewTree creates a tree-backed reference rooted at root.
func NewTree(root string, sums *checksum.Summer) *Tree {
	return &Tree{root: root, sums: sums}
}

// Root returns the reference root directory.
func (t *Tree) Root() string {
	return t.root
}

// Lookup checks whether the key exists under the reference root and, if so,
// returns a record carrying its freshly computed fingerprint.
func (t *Tree) Lookup(key string) (*store.FileRecord, error) {
	absPath := pathkey.Abs(t.root, key)

	info, err := os.Stat(absPath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("stat reference file %s: %w", absPath, err)
	}
	if !info.Mode().IsRegular() {
		return nil, nil
	}

	hash, err := t.sums.File(absPath)
	if err != nil {
		return nil, fmt.Errorf("fingerprint reference file %s: %w", absPath, err)
	}

	return &store.FileRecord{
		Name: pathkey.Name(key),
		Hash: hash,
		Path: key,
	}, nil
}

// All walks the reference root and yields one record per file. The records
// carry no fingerprint; the symmetric pass only needs the keys. A file whose
// key cannot be derived yields an error for that entry and the walk goes on.
func (t *Tree) All() iter.Seq2[*store.FileRecord, error] {
	return func(yield func(*store.FileRecord, error) bool) {
		for ev := range walker.Walk(t.root) {
			if ev.Kind != walker.File {
				continue
			}
			key, err := pathkey.Key(t.root, ev.AbsPath)
			if err != nil {
				if !yield(nil, err) {
					return
				}
				continue
			}
			r := &store.FileRecord{Name: pathkey.Name(key), Path: key}
			if !yield(r, nil) {
				return
			}
		}
	}
}

// Stored is a reference backed by the record store.
type Stored struct {
	db *store.Store
}

// NewStored creates a store-backed reference.
func NewStored(db *store.Store) *Stored {
	return &Stored{db: db}
}

// DB exposes the underlying store for modes that persist records.
func (s *Stored) DB() *store.Store {
	return s.db
}

// Lookup fetches the record stored under key, (nil, nil) when absent.
func (s *Stored) Lookup(key string) (*store.FileRecord, error) {
	return s.db.FindByPath(key)
}

// All pages through every stored record in ascending ID order. A paging
// failure yields one error and ends the sequence.
func (s *Stored) All() iter.Seq2[*store.FileRecord, error] {
	return func(yield func(*store.FileRecord, error) bool) {
		var afterID int64
		for {
			page, err := s.db.Page(afterID, store.DefaultPageSize)
			if err != nil {
				yield(nil, err)
				return
			}
			for i := range page {
				if !yield(&page[i], nil) {
					return
				}
			}
			if len(page) < store.DefaultPageSize {
				return
			}
			afterID = page[len(page)-1].ID
		}
	}
}
