package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"outpost/types"
)

var ErrNotFound = errors.New("not found")

// ActionStore is the durable queue collection. Every query is partitioned
// by owner; items survive process restarts.
type ActionStore interface {
	Insert(ctx context.Context, a *types.QueuedAction) error
	GetAll(ctx context.Context, ownerID string) ([]types.QueuedAction, error)
	FindByID(ctx context.Context, id string) (*types.QueuedAction, error)
	Remove(ctx context.Context, id string) error
	Update(ctx context.Context, id string, patch types.ActionPatch) error

	// MarkSyncing atomically claims an eligible (pending or failed) action
	// for dispatch. Returns false when another run already holds it or the
	// action is no longer eligible.
	MarkSyncing(ctx context.Context, id string) (bool, error)

	// MarkFailure records a failed dispatch attempt. When abandoned is true
	// the action is parked in the abandoned status instead of failed.
	MarkFailure(ctx context.Context, id string, errMsg string, retries int, abandoned bool) error

	CountPending(ctx context.Context, ownerID string) (int, error)
	OwnersWithPending(ctx context.Context) ([]string, error)

	// ReleaseStale moves syncing rows untouched for longer than olderThan
	// back to failed. Run at startup to recover from crashes mid-dispatch.
	ReleaseStale(ctx context.Context, olderThan time.Duration) error

	// ResurrectAbandoned returns abandoned actions to pending with a fresh
	// retry budget. Explicit operator action; never automatic.
	ResurrectAbandoned(ctx context.Context, ownerID string) (int, error)

	Close() error
}

// HistoryStore is the bounded, append-only record of successfully synced
// actions. Entries are immutable once written and age out only by cap-based
// eviction of the oldest synced_at.
type HistoryStore interface {
	Append(ctx context.Context, item *types.RecentSyncedItem, cap int) error
	Recent(ctx context.Context, ownerID string, limit int) ([]types.RecentSyncedItem, error)
}

// CacheStore is the read-through snapshot cache of last-known server state.
// Independent of the queue's correctness; shares the durable store.
type CacheStore interface {
	Set(ctx context.Context, ownerID, key string, data json.RawMessage) error
	// Get returns nil (no error) when the key is absent.
	Get(ctx context.Context, ownerID, key string) (json.RawMessage, error)
}
