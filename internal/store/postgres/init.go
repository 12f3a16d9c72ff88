package postgres

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"

	"outpost/internal/constants"
	"outpost/internal/lock"
)

const schema = "outpost_schema"

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS ` + schema + `.queue_actions (
        id         TEXT PRIMARY KEY,
        owner_id   TEXT NOT NULL,
        type       TEXT NOT NULL,
        payload    JSONB NOT NULL DEFAULT '{}',
        label      TEXT NOT NULL DEFAULT '',
        status     TEXT NOT NULL,
        retries    INTEGER NOT NULL DEFAULT 0,
        last_error TEXT NOT NULL DEFAULT '',
        created_at BIGINT NOT NULL,
        updated_at BIGINT NOT NULL,
        synced_at  BIGINT
    )`,
	`CREATE INDEX IF NOT EXISTS idx_queue_owner_created
        ON ` + schema + `.queue_actions (owner_id, created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_queue_status_updated
        ON ` + schema + `.queue_actions (status, updated_at)`,
	`CREATE TABLE IF NOT EXISTS ` + schema + `.history_items (
        id        TEXT PRIMARY KEY,
        owner_id  TEXT NOT NULL,
        type      TEXT NOT NULL,
        label     TEXT NOT NULL DEFAULT '',
        synced_at BIGINT NOT NULL
    )`,
	`CREATE INDEX IF NOT EXISTS idx_history_owner_synced
        ON ` + schema + `.history_items (owner_id, synced_at DESC)`,
	`CREATE TABLE IF NOT EXISTS ` + schema + `.cache_entries (
        owner_id   TEXT NOT NULL,
        key        TEXT NOT NULL,
        data       JSONB NOT NULL,
        updated_at BIGINT NOT NULL,
        PRIMARY KEY (owner_id, key)
    )`,
}

// Init creates the schema and tables, guarded by the distributed migration
// lock so concurrent instances do not race the DDL.
func Init(db *sql.DB, distributedLock lock.DistributedLockManager) error {
	if err := distributedLock.Acquire(constants.MigrationLock); err != nil {
		return err
	}
	defer distributedLock.Release(constants.MigrationLock)

	if err := db.Ping(); err != nil {
		return err
	}

	if _, err := db.Exec(fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", schema)); err != nil {
		return err
	}

	for _, script := range migrations {
		if _, err := db.Exec(script); err != nil {
			return fmt.Errorf("run migration: %w", err)
		}
	}

	return nil
}
