// Package index provides SQLite-backed annotation indexing with optional
// FTS5 full-text search.
package index

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const coreSchemaSQL = `
CREATE TABLE IF NOT EXISTS documents (
	path       TEXT PRIMARY KEY,
	title      TEXT NOT NULL DEFAULT '',
	checksum   TEXT NOT NULL DEFAULT '',
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS annotations (
	id       INTEGER PRIMARY KEY AUTOINCREMENT,
	path     TEXT NOT NULL REFERENCES documents(path) ON DELETE CASCADE,
	kind     TEXT NOT NULL,
	body     TEXT NOT NULL DEFAULT '',
	text     TEXT NOT NULL DEFAULT '',
	has_text INTEGER NOT NULL DEFAULT 0,
	heading  TEXT NOT NULL DEFAULT '',
	line     INTEGER NOT NULL,
	col      INTEGER NOT NULL,
	pos      INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_annotations_path ON annotations(path, pos);
CREATE INDEX IF NOT EXISTS idx_annotations_kind ON annotations(kind);
`

// DB wraps a sql.DB with index-specific operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("index: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: ping: %w", err)
	}
	if _, err := conn.Exec(coreSchemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: apply core schema: %w", err)
	}
	if err := initFTS(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: apply fts schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping checks the database connection.
func (db *DB) Ping() error {
	return db.conn.Ping()
}
