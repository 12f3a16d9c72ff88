package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"time"

	"outpost/types"
)

type SQLiteHistoryStore struct {
	db *sql.DB
}

func NewSQLiteHistoryStore(db *sql.DB) *SQLiteHistoryStore {
	return &SQLiteHistoryStore{db: db}
}

// Append inserts one synced record and evicts the oldest entries beyond cap
// in the same transaction, so the bound holds even if the process dies
// between calls.
func (s *SQLiteHistoryStore) Append(ctx context.Context, item *types.RecentSyncedItem, cap int) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	insert := `
        INSERT INTO history_items (id, owner_id, type, label, synced_at)
        VALUES (?, ?, ?, ?, ?)
        ON CONFLICT (id) DO UPDATE SET synced_at = excluded.synced_at
    `
	if _, err := tx.ExecContext(ctx, insert,
		item.ID, item.OwnerID, string(item.Type), item.Label, item.SyncedAt.UnixMilli()); err != nil {
		return fmt.Errorf("append history for %s: %w", item.OwnerID, err)
	}

	if cap > 0 {
		evict := `
            DELETE FROM history_items
            WHERE owner_id = ?
              AND id NOT IN (
                SELECT id FROM history_items
                WHERE owner_id = ?
                ORDER BY synced_at DESC, id DESC
                LIMIT ?
              )
        `
		if _, err := tx.ExecContext(ctx, evict, item.OwnerID, item.OwnerID, cap); err != nil {
			return fmt.Errorf("evict history for %s: %w", item.OwnerID, err)
		}
	}

	return tx.Commit()
}

func (s *SQLiteHistoryStore) Recent(ctx context.Context, ownerID string, limit int) ([]types.RecentSyncedItem, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
        SELECT id, owner_id, type, label, synced_at
        FROM history_items
        WHERE owner_id = ?
        ORDER BY synced_at DESC, id DESC
        LIMIT ?
    `
	rows, err := s.db.QueryContext(ctx, query, ownerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []types.RecentSyncedItem
	for rows.Next() {
		var (
			item       types.RecentSyncedItem
			actionType string
			syncedAt   int64
		)
		if err := rows.Scan(&item.ID, &item.OwnerID, &actionType, &item.Label, &syncedAt); err != nil {
			return nil, err
		}
		item.Type = types.ActionType(actionType)
		item.SyncedAt = time.UnixMilli(syncedAt)
		items = append(items, item)
	}
	return items, rows.Err()
}
