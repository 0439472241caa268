// Package store provides the SQLite-backed knowledge store: mashes, edges,
// settings and an optional FTS5 trigram index.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"

	_ "github.com/mattn/go-sqlite3"
)

const coreSchemaSQL = `
CREATE TABLE IF NOT EXISTS mashes (
	id         TEXT PRIMARY KEY,
	type       TEXT NOT NULL,
	status     TEXT NOT NULL DEFAULT 'MASH_TUN',
	summary    TEXT NOT NULL,
	context    TEXT NOT NULL DEFAULT '',
	memo       TEXT NOT NULL DEFAULT '',
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL,
	embedding  BLOB
);

CREATE INDEX IF NOT EXISTS idx_mashes_status ON mashes(status);
CREATE INDEX IF NOT EXISTS idx_mashes_created_at ON mashes(created_at);

CREATE TABLE IF NOT EXISTS edges (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	source_id     TEXT NOT NULL REFERENCES mashes(id) ON DELETE CASCADE,
	target_id     TEXT NOT NULL REFERENCES mashes(id) ON DELETE CASCADE,
	relation_type TEXT NOT NULL,
	source        TEXT NOT NULL DEFAULT 'ai',
	confidence    REAL NOT NULL DEFAULT 0,
	created_at    INTEGER NOT NULL,
	updated_at    INTEGER NOT NULL,
	UNIQUE(source_id, target_id)
);

CREATE INDEX IF NOT EXISTS idx_edges_source ON edges(source_id);
CREATE INDEX IF NOT EXISTS idx_edges_target ON edges(target_id);

CREATE TABLE IF NOT EXISTS settings (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

// Options controls how the store is opened.
type Options struct {
	// ReadOnly opens the database with mode=ro. The file must already exist
	// and every mutating service call is refused.
	ReadOnly bool
}

// Store wraps a sql.DB with knowledge-store operations. It is opened once at
// startup and shared by every service.
type Store struct {
	conn     *sql.DB
	readOnly bool
}

// Open opens (or, when writable, creates) the SQLite database and applies the schema.
func Open(path string, opts Options) (*Store, error) {
	var dsn string
	if opts.ReadOnly {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("store: database not found at %s: %w", path, err)
		}
		dsn = "file:" + path + "?mode=ro&_busy_timeout=5000&_foreign_keys=on"
	} else {
		dsn = path + "?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on"
	}

	conn, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	if !opts.ReadOnly {
		if _, err := conn.Exec(coreSchemaSQL); err != nil {
			conn.Close()
			return nil, fmt.Errorf("store: apply core schema: %w", err)
		}
		if err := initFTS(conn); err != nil {
			conn.Close()
			return nil, fmt.Errorf("store: apply fts schema: %w", err)
		}
	}
	return &Store{conn: conn, readOnly: opts.ReadOnly}, nil
}

// ReadOnly reports whether mutations are refused.
func (s *Store) ReadOnly() bool {
	return s.readOnly
}

// Ping checks that the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.conn.PingContext(ctx)
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

func notFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
