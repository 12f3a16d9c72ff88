package sqlite

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

type SQLiteActionStore struct {
	db *sql.DB
}

func NewSQLiteActionStore(db *sql.DB) *SQLiteActionStore {
	return &SQLiteActionStore{db: db}
}

func (s *SQLiteActionStore) Insert(ctx context.Context, a *types.QueuedAction) error {
	payloadJSON, err := json.Marshal(a.Payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	query := `
        INSERT INTO queue_actions (
            id, owner_id, type, payload, label, status, retries, last_error, created_at, updated_at
        )
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
    `
	_, err = s.db.ExecContext(ctx, query,
		a.ID,
		a.OwnerID,
		string(a.Type),
		string(payloadJSON),
		a.Label,
		a.Status,
		a.Retries,
		a.LastError,
		a.CreatedAt.UnixMilli(),
		a.CreatedAt.UnixMilli(),
	)
	return err
}

func (s *SQLiteActionStore) GetAll(ctx context.Context, ownerID string) ([]types.QueuedAction, error) {
	query := `
        SELECT id, owner_id, type, payload, label, status, retries, last_error, created_at, updated_at, synced_at
        FROM queue_actions
        WHERE owner_id = ?
        ORDER BY created_at ASC, id ASC
    `
	rows, err := s.db.QueryContext(ctx, query, ownerID)
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

func (s *SQLiteActionStore) FindByID(ctx context.Context, id string) (*types.QueuedAction, error) {
	query := `
        SELECT id, owner_id, type, payload, label, status, retries, last_error, created_at, updated_at, synced_at
        FROM queue_actions
        WHERE id = ?
    `
	row := s.db.QueryRowContext(ctx, query, id)
	a, err := scanAction(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("action %s: %w", id, store.ErrNotFound)
	}
	return a, err
}

func (s *SQLiteActionStore) Remove(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM queue_actions WHERE id = ?`, id)
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

func (s *SQLiteActionStore) Update(ctx context.Context, id string, patch types.ActionPatch) error {
	sets := []string{"updated_at = ?"}
	args := []any{time.Now().UnixMilli()}

	if patch.Status != nil {
		sets = append(sets, "status = ?")
		args = append(args, *patch.Status)
	}
	if patch.Retries != nil {
		sets = append(sets, "retries = ?")
		args = append(args, *patch.Retries)
	}
	if patch.LastError != nil {
		sets = append(sets, "last_error = ?")
		args = append(args, *patch.LastError)
	}
	if patch.Label != nil {
		sets = append(sets, "label = ?")
		args = append(args, *patch.Label)
	}
	if patch.Payload != nil {
		payloadJSON, err := json.Marshal(patch.Payload)
		if err != nil {
			return fmt.Errorf("marshal payload: %w", err)
		}
		sets = append(sets, "payload = ?")
		args = append(args, string(payloadJSON))
	}
	if patch.SyncedAt != nil {
		sets = append(sets, "synced_at = ?")
		args = append(args, patch.SyncedAt.UnixMilli())
	}

	args = append(args, id)
	query := fmt.Sprintf("UPDATE queue_actions SET %s WHERE id = ?", strings.Join(sets, ", "))

	result, err := s.db.ExecContext(ctx, query, args...)
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

func (s *SQLiteActionStore) MarkSyncing(ctx context.Context, id string) (bool, error) {
	query := `
        UPDATE queue_actions
        SET status = ?, updated_at = ?
        WHERE id = ? AND status IN (?, ?)
    `
	result, err := s.db.ExecContext(ctx, query,
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

func (s *SQLiteActionStore) MarkFailure(ctx context.Context, id string, errMsg string, retries int, abandoned bool) error {
	status := state.StatusFailed
	if abandoned {
		status = state.StatusAbandoned
	}
	query := `
        UPDATE queue_actions
        SET status = ?, retries = ?, last_error = ?, updated_at = ?
        WHERE id = ?
    `
	_, err := s.db.ExecContext(ctx, query, string(status), retries, errMsg, time.Now().UnixMilli(), id)
	return err
}

func (s *SQLiteActionStore) CountPending(ctx context.Context, ownerID string) (int, error) {
	query := `
        SELECT COUNT(*) FROM queue_actions
        WHERE owner_id = ? AND status IN (?, ?)
    `
	var count int
	err := s.db.QueryRowContext(ctx, query, ownerID,
		string(state.StatusPending), string(state.StatusFailed)).Scan(&count)
	return count, err
}

func (s *SQLiteActionStore) OwnersWithPending(ctx context.Context) ([]string, error) {
	query := `
        SELECT DISTINCT owner_id FROM queue_actions
        WHERE status IN (?, ?)
        ORDER BY owner_id
    `
	rows, err := s.db.QueryContext(ctx, query,
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

func (s *SQLiteActionStore) ReleaseStale(ctx context.Context, olderThan time.Duration) error {
	cutoff := time.Now().Add(-olderThan).UnixMilli()
	query := `
        UPDATE queue_actions
        SET status = ?, last_error = 'dispatch interrupted by restart', updated_at = ?
        WHERE status = ? AND updated_at < ?
    `
	_, err := s.db.ExecContext(ctx, query,
		string(state.StatusFailed),
		time.Now().UnixMilli(),
		string(state.StatusSyncing),
		cutoff,
	)
	return err
}

func (s *SQLiteActionStore) ResurrectAbandoned(ctx context.Context, ownerID string) (int, error) {
	query := `
        UPDATE queue_actions
        SET status = ?, retries = 0, last_error = '', updated_at = ?
        WHERE owner_id = ? AND status = ?
    `
	result, err := s.db.ExecContext(ctx, query,
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

func (s *SQLiteActionStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAction(row rowScanner) (*types.QueuedAction, error) {
	var (
		a           types.QueuedAction
		actionType  string
		payloadJSON string
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
	if err := json.Unmarshal([]byte(payloadJSON), &a.Payload); err != nil {
		return nil, fmt.Errorf("unmarshal payload for %s: %w", a.ID, err)
	}
	return &a, nil
}
