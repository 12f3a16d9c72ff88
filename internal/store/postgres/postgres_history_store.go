package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"outpost/types"
)

type PostgresHistoryStore struct {
	db *sql.DB
}

func NewPostgresHistoryStore(db *sql.DB) *PostgresHistoryStore {
	return &PostgresHistoryStore{db: db}
}

func (r *PostgresHistoryStore) Append(ctx context.Context, item *types.RecentSyncedItem, cap int) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	insert := `
        INSERT INTO outpost_schema.history_items (id, owner_id, type, label, synced_at)
        VALUES ($1, $2, $3, $4, $5)
        ON CONFLICT (id) DO UPDATE SET synced_at = EXCLUDED.synced_at
    `
	if _, err := tx.ExecContext(ctx, insert,
		item.ID, item.OwnerID, string(item.Type), item.Label, item.SyncedAt.UnixMilli()); err != nil {
		return fmt.Errorf("append history for %s: %w", item.OwnerID, err)
	}

	if cap > 0 {
		evict := `
            DELETE FROM outpost_schema.history_items
            WHERE owner_id = $1
              AND id NOT IN (
                SELECT id FROM outpost_schema.history_items
                WHERE owner_id = $2
                ORDER BY synced_at DESC, id DESC
                LIMIT $3
              )
        `
		if _, err := tx.ExecContext(ctx, evict, item.OwnerID, item.OwnerID, cap); err != nil {
			return fmt.Errorf("evict history for %s: %w", item.OwnerID, err)
		}
	}

	return tx.Commit()
}

func (r *PostgresHistoryStore) Recent(ctx context.Context, ownerID string, limit int) ([]types.RecentSyncedItem, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
        SELECT id, owner_id, type, label, synced_at
        FROM outpost_schema.history_items
        WHERE owner_id = $1
        ORDER BY synced_at DESC, id DESC
        LIMIT $2
    `
	rows, err := r.db.QueryContext(ctx, query, ownerID, limit)
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
