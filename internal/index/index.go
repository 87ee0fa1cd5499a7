// Package index maintains a rebuildable SQLite index over the catalog so
// search queries do not rescan and reparse every installed release. The
// filesystem tiers stay the source of truth; the index is a cache that can
// be deleted and rebuilt at any time.
package index

import (
	"database/sql"
	_ "embed"
	"fmt"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/orbit-hdl/orbit/internal/orbit"
)

//go:embed schema.sql
var schemaSQL string

// FileName is the index database under the orbit home.
const FileName = "index.db"

// Index is a handle to the search database.
type Index struct {
	db *sql.DB
}

// Open creates or opens the index database at path.
//
// The database is configured with:
//   - WAL mode for concurrent reads during rebuilds
//   - NORMAL synchronous mode (the index is disposable)
//   - 5-second busy timeout for lock contention
//   - Foreign key enforcement
func Open(path string) (*Index, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open index: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to index: %w", err)
	}

	// SQLite supports one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply index schema: %w", err)
	}
	return &Index{db: db}, nil
}

// OpenAt opens the index under the context's home directory.
func OpenAt(ctx *orbit.Context) (*Index, error) {
	return Open(filepath.Join(ctx.Home, FileName))
}

// Close closes the database handle.
func (ix *Index) Close() error {
	if ix.db == nil {
		return nil
	}
	return ix.db.Close()
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}
