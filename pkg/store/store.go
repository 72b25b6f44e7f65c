// Package store persists file records in an embedded sqlite database.
//
// One record per key. The key column is unique, so a key is either absent or
// present exactly once regardless of how many runs touched it.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/paulschiretz/pgl-verify/pkg/plog"
)

const driverName = "sqlite3"

// Pragmas tuned for a single-writer local database.
const defaultPragmas = `
PRAGMA journal_mode=WAL;
PRAGMA busy_timeout=5000;
PRAGMA synchronous=NORMAL;
PRAGMA temp_store=MEMORY;
`

const schema = `
CREATE TABLE IF NOT EXISTS backup_files (
	id      INTEGER PRIMARY KEY AUTOINCREMENT,
	name    TEXT NOT NULL,
	hash    TEXT NOT NULL,
	path    TEXT NOT NULL UNIQUE,
	type    TEXT NOT NULL DEFAULT '',
	created TIMESTAMP NOT NULL,
	updated TIMESTAMP NULL
);
`

// DefaultPageSize is the number of records fetched per page when iterating
// the full table.
const DefaultPageSize = 100

// Error marks a persistence layer failure. Callers use it to distinguish
// database trouble from per-file trouble when choosing an exit code.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("store: %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func storeErr(op string, err error) error {
	return &Error{Op: op, Err: err}
}

// FileRecord is one persisted file observation.
type FileRecord struct {
	ID      int64        `db:"id"`
	Name    string       `db:"name"`
	Hash    string       `db:"hash"`
	Path    string       `db:"path"`
	Type    string       `db:"type"`
	Created time.Time    `db:"created"`
	Updated sql.NullTime `db:"updated"`
}

// Store wraps the sqlite connection. Safe for concurrent use; writes are
// serialized through a single connection.
type Store struct {
	db   *sqlx.DB
	path string
}

// Open opens or creates the database at path and applies the schema. The
// parent directory is created when missing.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, storeErr("create parent directory", err)
		}
	}

	dsn := path
	if path != ":memory:" {
		dsn = fmt.Sprintf("file:%s?_txlock=immediate&mode=rwc", path)
	}

	db, err := sqlx.Connect(driverName, dsn)
	if err != nil {
		return nil, storeErr("connect", err)
	}

	// A single connection keeps writes serialized and sidesteps
	// SQLITE_BUSY under concurrent record updates.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(defaultPragmas); err != nil {
		db.Close()
		return nil, storeErr("set pragmas", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, storeErr("apply schema", err)
	}

	plog.Debug("Store opened", "path", path)
	return &Store{db: db, path: path}, nil
}

// Path returns the database file path the store was opened with.
func (s *Store) Path() string {
	return s.path
}

// Close releases the underlying connection.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return storeErr("close", err)
	}
	return nil
}

// Insert persists a new record and fills in its assigned ID. Created is
// stamped when the caller left it zero.
func (s *Store) Insert(r *FileRecord) error {
	if r.Created.IsZero() {
		r.Created = time.Now().UTC()
	}

	res, err := s.db.NamedExec(`
		INSERT INTO backup_files (name, hash, path, type, created, updated)
		VALUES (:name, :hash, :path, :type, :created, :updated)`, r)
	if err != nil {
		return storeErr("insert "+r.Path, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return storeErr("insert "+r.Path, err)
	}
	r.ID = id
	return nil
}

// Update overwrites the mutable columns of the record stored under r.Path
// and stamps Updated. It reports whether a record was actually touched.
func (s *Store) Update(r *FileRecord) (bool, error) {
	r.Updated = sql.NullTime{Time: time.Now().UTC(), Valid: true}

	res, err := s.db.NamedExec(`
		UPDATE backup_files
		SET name = :name, hash = :hash, type = :type, updated = :updated
		WHERE path = :path`, r)
	if err != nil {
		return false, storeErr("update "+r.Path, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, storeErr("update "+r.Path, err)
	}
	return n > 0, nil
}

// Delete removes the record with the given ID and reports whether one
// existed.
func (s *Store) Delete(id int64) (bool, error) {
	res, err := s.db.Exec(`DELETE FROM backup_files WHERE id = ?`, id)
	if err != nil {
		return false, storeErr(fmt.Sprintf("delete id %d", id), err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, storeErr(fmt.Sprintf("delete id %d", id), err)
	}
	return n > 0, nil
}

// FindByPath looks up the record stored under the given key. A missing key
// yields (nil, nil), not an error.
func (s *Store) FindByPath(key string) (*FileRecord, error) {
	var r FileRecord
	err := s.db.Get(&r, `SELECT * FROM backup_files WHERE path = ?`, key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storeErr("find "+key, err)
	}
	return &r, nil
}

// Page fetches up to size records with IDs strictly greater than afterID,
// in ascending ID order. Keyset pagination: pass the last record's ID of
// one page as afterID of the next, starting from 0. A short or empty page
// signals the end of the table.
func (s *Store) Page(afterID int64, size int) ([]FileRecord, error) {
	records := make([]FileRecord, 0, size)
	err := s.db.Select(&records, `
		SELECT * FROM backup_files
		WHERE id > ?
		ORDER BY id
		LIMIT ?`, afterID, size)
	if err != nil {
		return nil, storeErr("page", err)
	}
	return records, nil
}

// Count returns the number of stored records.
func (s *Store) Count() (int64, error) {
	var n int64
	if err := s.db.Get(&n, `SELECT COUNT(*) FROM backup_files`); err != nil {
		return 0, storeErr("count", err)
	}
	return n, nil
}

// ForEach visits every record exactly once in ascending ID order, fetching
// DefaultPageSize records at a time. Iteration stops at the first error
// returned by fn.
func (s *Store) ForEach(fn func(*FileRecord) error) error {
	var afterID int64
	for {
		page, err := s.Page(afterID, DefaultPageSize)
		if err != nil {
			return err
		}
		for i := range page {
			if err := fn(&page[i]); err != nil {
				return err
			}
		}
		if len(page) < DefaultPageSize {
			return nil
		}
		afterID = page[len(page)-1].ID
	}
}
