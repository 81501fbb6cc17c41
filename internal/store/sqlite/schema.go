// Package sqlite implements store.Store on a local SQLite database.
package sqlite

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/starford/dock/internal/store"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS records (
	id           TEXT    NOT NULL,
	user_id      TEXT    NOT NULL,
	type         TEXT    NOT NULL,
	title        TEXT    NOT NULL DEFAULT '',
	body         TEXT    NOT NULL DEFAULT '',
	content_json TEXT    NOT NULL DEFAULT '',
	items        TEXT    NOT NULL DEFAULT '[]',
	tags         TEXT    NOT NULL DEFAULT '[]',
	status       TEXT    NOT NULL DEFAULT 'active',
	is_draft     INTEGER NOT NULL DEFAULT 0,
	source       TEXT    NOT NULL DEFAULT 'store',
	meta         TEXT    NOT NULL DEFAULT '{}',
	created_at   INTEGER NOT NULL,
	updated_at   INTEGER NOT NULL,
	PRIMARY KEY (user_id, id)
);

CREATE INDEX IF NOT EXISTS idx_records_user_updated ON records(user_id, updated_at DESC);
CREATE INDEX IF NOT EXISTS idx_records_user_type ON records(user_id, type, status);
`

// DB is a SQLite-backed record store.
type DB struct {
	conn *sql.DB
}

var _ store.Store = (*DB)(nil)

// Open opens (or creates) the SQLite database at path and applies the schema.
func Open(path string) (*DB, error) {
	conn, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("sqlite: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: apply schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}
