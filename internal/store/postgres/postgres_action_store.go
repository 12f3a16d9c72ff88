package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"outpost/internal/state"
	"outpost/internal/store"
	"outpost/types"
)

type PostgresActionStore struct {
	db *sql.DB
}

func NewPostgresActionStore(db *sql.DB) *PostgresActionStore {
	return &PostgresActionStore{db: db}
}

func (r *PostgresActionStore) Insert(ctx context.Context, a *types.QueuedAction) error {
	payloadJSON, err := json.Marshal(a.Payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	query := `
        INSERT INTO outpost_schema.queue_actions (
            id, owner_id, type, payload, label, status, retries, last_error, created_at, updated_at
        )
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
    `
	_, err = r.db.ExecContext(ctx, query,
		a.ID,
		a.OwnerID,
		string(a.Type),
		payloadJSON,
		a.Label,
		a.Status,
		a.Retries,
		a.LastError,
		a.CreatedAt.UnixMilli(),
		a.CreatedAt.UnixMilli(),
	)
	return err
}

func (r *PostgresActionStore) GetAll(ctx context.Context, ownerID string) ([]types.QueuedAction, error) {
	query := `
        SELECT id, owner_id, type, payload, label, status, retries, last_error, created_at, updated_at, synced_at
        FROM outpost_schema.queue_actions
        WHERE owner_id = $1
        ORDER BY created_at ASC, id ASC
    `
	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var actions []types.QueuedAction
	for rows.Next() {
		a, err := scanAction(rows)
		if err != nil {
			return nil, err
		}
		actions = append(actions, *a)
	}
	return actions, rows.Err()
}

func (r *PostgresActionStore) FindByID(ctx context.Context, id string) (*types.QueuedAction, error) {
	query := `
        SELECT id, owner_id, type, payload, label, status, retries, last_error, created_at, updated_at, synced_at
        FROM outpost_schema.queue_actions
        WHERE id = $1
    `
	row := r.db.QueryRowContext(ctx, query, id)
	a, err := scanAction(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("action %s: %w", id, store.ErrNotFound)
	}
	return a, err
}

func (r *PostgresActionStore) Remove(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM outpost_schema.queue_actions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("remove action %s: %w", id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("action %s: %w", id, store.ErrNotFound)
	}
	return nil
}

func (r *PostgresActionStore) Update(ctx context.Context, id string, patch types.ActionPatch) error {
	sets := []string{"updated_at = $1"}
	args := []any{time.Now().UnixMilli()}
	argIndex := 2

	add := func(column string, value any) {
		sets = append(sets, fmt.Sprintf("%s = $%d", column, argIndex))
		args = append(args, value)
		argIndex++
	}

	if patch.Status != nil {
		add("status", *patch.Status)
	}
	if patch.Retries != nil {
		add("retries", *patch.Retries)
	}
	if patch.LastError != nil {
		add("last_error", *patch.LastError)
	}
	if patch.Label != nil {
		add("label", *patch.Label)
	}
	if patch.Payload != nil {
		payloadJSON, err := json.Marshal(patch.Payload)
		if err != nil {
			return fmt.Errorf("marshal payload: %w", err)
		}
		add("payload", payloadJSON)
	}
	if patch.SyncedAt != nil {
		add("synced_at", patch.SyncedAt.UnixMilli())
	}

	args = append(args, id)
	query := fmt.Sprintf(
		"UPDATE outpost_schema.queue_actions SET %s WHERE id = $%d",
		strings.Join(sets, ", "), argIndex)

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update action %s: %w", id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("action %s: %w", id, store.ErrNotFound)
	}
	return nil
}

func (r *PostgresActionStore) MarkSyncing(ctx context.Context, id string) (bool, error) {
	query := `
        UPDATE outpost_schema.queue_actions
        SET status = $1, updated_at = $2
        WHERE id = $3 AND status IN ($4, $5)
    `
	result, err := r.db.ExecContext(ctx, query,
		string(state.StatusSyncing),
		time.Now().UnixMilli(),
		id,
		string(state.StatusPending),
		string(state.StatusFailed),
	)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (r *PostgresActionStore) MarkFailure(ctx context.Context, id string, errMsg string, retries int, abandoned bool) error {
	status := state.StatusFailed
	if abandoned {
		status = state.StatusAbandoned
	}
	query := `
        UPDATE outpost_schema.queue_actions
        SET status = $1, retries = $2, last_error = $3, updated_at = $4
        WHERE id = $5
    `
	_, err := r.db.ExecContext(ctx, query,
		string(status), retries, errMsg, time.Now().UnixMilli(), id)
	return err
}

func (r *PostgresActionStore) CountPending(ctx context.Context, ownerID string) (int, error) {
	query := `
        SELECT COUNT(*) FROM outpost_schema.queue_actions
        WHERE owner_id = $1 AND status IN ($2, $3)
    `
	var count int
	err := r.db.QueryRowContext(ctx, query, ownerID,
		string(state.StatusPending), string(state.StatusFailed)).Scan(&count)
	return count, err
}

func (r *PostgresActionStore) OwnersWithPending(ctx context.Context) ([]string, error) {
	query := `
        SELECT DISTINCT owner_id FROM outpost_schema.queue_actions
        WHERE status IN ($1, $2)
        ORDER BY owner_id
    `
	rows, err := r.db.QueryContext(ctx, query,
		string(state.StatusPending), string(state.StatusFailed))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var owners []string
	for rows.Next() {
		var owner string
		if err := rows.Scan(&owner); err != nil {
			return nil, err
		}
		owners = append(owners, owner)
	}
	return owners, rows.Err()
}

func (r *PostgresActionStore) ReleaseStale(ctx context.Context, olderThan time.Duration) error {
	cutoff := time.Now().Add(-olderThan).UnixMilli()
	query := `
        UPDATE outpost_schema.queue_actions
        SET status = $1, last_error = 'dispatch interrupted by restart', updated_at = $2
        WHERE status = $3 AND updated_at < $4
    `
	_, err := r.db.ExecContext(ctx, query,
		string(state.StatusFailed),
		time.Now().UnixMilli(),
		string(state.StatusSyncing),
		cutoff,
	)
	return err
}

func (r *PostgresActionStore) ResurrectAbandoned(ctx context.Context, ownerID string) (int, error) {
	query := `
        UPDATE outpost_schema.queue_actions
        SET status = $1, retries = 0, last_error = '', updated_at = $2
        WHERE owner_id = $3 AND status = $4
    `
	result, err := r.db.ExecContext(ctx, query,
		string(state.StatusPending),
		time.Now().UnixMilli(),
		ownerID,
		string(state.StatusAbandoned),
	)
	if err != nil {
		return 0, err
	}
	affected, err := result.RowsAffected()
	return int(affected), err
}

func (r *PostgresActionStore) Close() error {
	return r.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAction(row rowScanner) (*types.QueuedAction, error) {
	var (
		a           types.QueuedAction
		actionType  string
		payloadJSON []byte
		createdAt   int64
		updatedAt   int64
		syncedAt    sql.NullInt64
	)
	err := row.Scan(&a.ID, &a.OwnerID, &actionType, &payloadJSON, &a.Label,
		&a.Status, &a.Retries, &a.LastError, &createdAt, &updatedAt, &syncedAt)
	if err != nil {
		return nil, err
	}

	a.Type = types.ActionType(actionType)
	a.CreatedAt = time.UnixMilli(createdAt)
	a.UpdatedAt = time.UnixMilli(updatedAt)
	if syncedAt.Valid {
		t := time.UnixMilli(syncedAt.Int64)
		a.SyncedAt = &t
	}
	if err := json.Unmarshal(payloadJSON, &a.Payload); err != nil {
		return nil, fmt.Errorf("unmarshal payload for %s: %w", a.ID, err)
	}
	return &a, nil
}
