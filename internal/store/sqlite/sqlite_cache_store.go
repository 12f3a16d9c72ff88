package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"
)

type SQLiteCacheStore struct {
	db *sql.DB
}

func NewSQLiteCacheStore(db *sql.DB) *SQLiteCacheStore {
	return &SQLiteCacheStore{db: db}
}

func (s *SQLiteCacheStore) Set(ctx context.Context, ownerID, key string, data json.RawMessage) error {
	query := `
        INSERT INTO cache_entries (owner_id, key, data, updated_at)
        VALUES (?, ?, ?, ?)
        ON CONFLICT (owner_id, key) DO UPDATE SET
            data = excluded.data,
            updated_at = excluded.updated_at
    `
	_, err := s.db.ExecContext(ctx, query, ownerID, key, string(data), time.Now().UnixMilli())
	return err
}

func (s *SQLiteCacheStore) Get(ctx context.Context, ownerID, key string) (json.RawMessage, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM cache_entries WHERE owner_id = ? AND key = ?`,
		ownerID, key).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return json.RawMessage(data), nil
}
