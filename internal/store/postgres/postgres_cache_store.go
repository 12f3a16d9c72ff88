package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"
)

type PostgresCacheStore struct {
	db *sql.DB
}

func NewPostgresCacheStore(db *sql.DB) *PostgresCacheStore {
	return &PostgresCacheStore{db: db}
}

func (r *PostgresCacheStore) Set(ctx context.Context, ownerID, key string, data json.RawMessage) error {
	query := `
        INSERT INTO outpost_schema.cache_entries (owner_id, key, data, updated_at)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT (owner_id, key) DO UPDATE SET
            data = EXCLUDED.data,
            updated_at = EXCLUDED.updated_at
    `
	_, err := r.db.ExecContext(ctx, query, ownerID, key, []byte(data), time.Now().UnixMilli())
	return err
}

func (r *PostgresCacheStore) Get(ctx context.Context, ownerID, key string) (json.RawMessage, error) {
	var data []byte
	err := r.db.QueryRowContext(ctx,
		`SELECT data FROM outpost_schema.cache_entries WHERE owner_id = $1 AND key = $2`,
		ownerID, key).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return json.RawMessage(data), nil
}
