package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS queue_actions (
  id         TEXT PRIMARY KEY,
  owner_id   TEXT NOT NULL,
  type       TEXT NOT NULL,
  payload    TEXT NOT NULL DEFAULT '{}',
  label      TEXT NOT NULL DEFAULT '',
  status     TEXT NOT NULL,
  retries    INTEGER NOT NULL DEFAULT 0,
  last_error TEXT NOT NULL DEFAULT '',
  created_at INTEGER NOT NULL,
  updated_at INTEGER NOT NULL,
  synced_at  INTEGER
);
CREATE INDEX IF NOT EXISTS idx_queue_owner_created
  ON queue_actions(owner_id, created_at);
CREATE INDEX IF NOT EXISTS idx_queue_status_updated
  ON queue_actions(status, updated_at);

CREATE TABLE IF NOT EXISTS history_items (
  id        TEXT PRIMARY KEY,
  owner_id  TEXT NOT NULL,
  type      TEXT NOT NULL,
  label     TEXT NOT NULL DEFAULT '',
  synced_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_history_owner_synced
  ON history_items(owner_id, synced_at DESC);

CREATE TABLE IF NOT EXISTS cache_entries (
  owner_id   TEXT NOT NULL,
  key        TEXT NOT NULL,
  data       TEXT NOT NULL,
  updated_at INTEGER NOT NULL,
  PRIMARY KEY (owner_id, key)
);
`

// Open opens (or creates) the SQLite database backing the queue. The store
// is meant to be opened once and reused for the process lifetime.
//
// modernc.org/sqlite is pure Go, so offline clients need no CGO toolchain.
// SQLite has a single writer, hence the connection cap.
func Open(path string) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply %s: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return db, nil
}
