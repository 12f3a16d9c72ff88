package lock

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// PostgresDistributedLockManager elects writers through Postgres advisory
// locks. The lock rides on the store's own connection pool, so deployments
// sharing one Postgres queue need no extra infrastructure for election.
type PostgresDistributedLockManager struct {
	db      *sql.DB
	timeout time.Duration
}

func NewPostgresDistributedLockManager(db *sql.DB) *PostgresDistributedLockManager {
	return &PostgresDistributedLockManager{
		db:      db,
		timeout: 5 * time.Second,
	}
}

func (l *PostgresDistributedLockManager) Acquire(lockID int) error {
	ctx, cancel := context.WithTimeout(context.Background(), l.timeout)
	defer cancel()

	if _, err := l.db.ExecContext(ctx, "SELECT pg_advisory_lock($1)", lockID); err != nil {
		return fmt.Errorf("failed to acquire lock %d: %w", lockID, err)
	}
	return nil
}

func (l *PostgresDistributedLockManager) Release(lockID int) error {
	ctx, cancel := context.WithTimeout(context.Background(), l.timeout)
	defer cancel()

	if _, err := l.db.ExecContext(ctx, "SELECT pg_advisory_unlock($1)", lockID); err != nil {
		return fmt.Errorf("failed to release lock %d: %w", lockID, err)
	}
	return nil
}
