// Package embeddeddb stands in for the vendor desktop app's own embedded
// key/value store reader (its IndexedDB/LevelDB backing store), which this
// gateway never talks to directly. It exposes the same shape the store
// detector and cache reader need — an opened database with named
// object stores, each an iterable of key/value records — backed by a
// directory of SQLite files via modernc.org/sqlite, the same embedded engine
// the predecessor used for its own on-disk cache.
//
// Each "database" is one SQLite file; each "object store" is one table with
// columns (key TEXT PRIMARY KEY, value TEXT) holding a JSON-encoded record
// per key. A store whose schema doesn't match that shape is treated as
// malformed and skipped, never as an error — mirroring the hash-renamed,
// version-skewed stores the real backing store tolerates.
package embeddeddb

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

// Record is one object-store entry. Value is nil when the stored JSON could
// not be decoded into a map — callers must skip such records.
type Record struct {
	Key   string
	Value map[string]any
}

// Database is one opened embedded-store file.
type Database struct {
	path string
	db   *sql.DB
}

// Open opens the SQLite file at path read-only. The caller owns the handle
// and must Close it; the cache reader opens, iterates, and drops one handle
// per reload.
func Open(path string) (*Database, error) {
	connStr := "file:" + strings.ReplaceAll(path, " ", "%20") + "?mode=ro&_pragma=query_only(1)"
	db, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("open embedded store %s: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("open embedded store %s: %w", path, err)
	}
	return &Database{path: path, db: db}, nil
}

func (d *Database) Close() error {
	return d.db.Close()
}

func (d *Database) Path() string {
	return d.path
}

// ObjectStoreNames returns every user table in the database, in no
// particular order; the store detector is responsible for skipping names
// that begin with "_" or contain "_partial".
func (d *Database) ObjectStoreNames() ([]string, error) {
	rows, err := d.db.Query(`SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%'`)
	if err != nil {
		return nil, fmt.Errorf("list object stores: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("list object stores: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// FirstRecord samples exactly one record from the named store, for store
// detection, which only needs to read one record per store. ok is false if the
// store is empty or malformed (missing the expected key/value columns).
func (d *Database) FirstRecord(store string) (rec Record, ok bool, err error) {
	rows, err := d.db.Query(fmt.Sprintf(`SELECT key, value FROM %s LIMIT 1`, quoteIdent(store)))
	if err != nil {
		// Malformed store shape (e.g. no such column): tolerate, don't error.
		return Record{}, false, nil
	}
	defer rows.Close()

	if !rows.Next() {
		return Record{}, false, rows.Err()
	}
	var key, raw string
	if err := rows.Scan(&key, &raw); err != nil {
		return Record{}, false, nil
	}
	return Record{Key: key, Value: decodeValue(raw)}, true, nil
}

// AllRecords iterates every record in the named store via fn. It stops and
// returns fn's error if fn returns non-nil. Records whose JSON fails to
// decode are delivered with a nil Value; callers skip those.
func (d *Database) AllRecords(store string, fn func(Record) error) error {
	rows, err := d.db.Query(fmt.Sprintf(`SELECT key, value FROM %s`, quoteIdent(store)))
	if err != nil {
		return nil // malformed store: tolerate, yield nothing
	}
	defer rows.Close()

	for rows.Next() {
		var key, raw string
		if err := rows.Scan(&key, &raw); err != nil {
			continue
		}
		if err := fn(Record{Key: key, Value: decodeValue(raw)}); err != nil {
			return err
		}
	}
	return rows.Err()
}

func decodeValue(raw string) map[string]any {
	var v map[string]any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return nil
	}
	return v
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// DiscoverDatabases enumerates Linear-owned databases under root: every
// *.sqlite/*.db file whose base name (extension stripped) contains
// "linear_" and is not literally "linear_databases". Order is lexical for
// determinism.
func DiscoverDatabases(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("enumerate embedded stores in %s: %w", root, err)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := filepath.Ext(e.Name())
		if ext != ".sqlite" && ext != ".db" {
			continue
		}
		base := strings.TrimSuffix(e.Name(), ext)
		if base == "linear_databases" {
			continue
		}
		if !strings.Contains(base, "linear_") {
			continue
		}
		paths = append(paths, filepath.Join(root, e.Name()))
	}
	return paths, nil
}
