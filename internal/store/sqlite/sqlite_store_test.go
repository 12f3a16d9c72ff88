package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"outpost/internal/state"
	"outpost/internal/store"
	"outpost/types"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "outpost.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func newAction(id, owner string, status state.ActionStatus, createdAt time.Time) *types.QueuedAction {
	return &types.QueuedAction{
		ID:        id,
		OwnerID:   owner,
		Type:      types.ActionStockUpdate,
		Payload:   types.Payload{"product_id": "p1", "delta": float64(-5)},
		Label:     "Stock update for p1 (qty -5)",
		Status:    string(status),
		CreatedAt: createdAt,
	}
}

func TestActionStore_InsertAndGetAll_FIFO(t *testing.T) {
	db := openTestDB(t)
	s := NewSQLiteActionStore(db)
	ctx := context.Background()

	base := time.Now()
	require.NoError(t, s.Insert(ctx, newAction("a-1", "owner-1", state.StatusPending, base)))
	require.NoError(t, s.Insert(ctx, newAction("a-2", "owner-1", state.StatusPending, base.Add(time.Millisecond))))
	require.NoError(t, s.Insert(ctx, newAction("b-1", "owner-2", state.StatusPending, base)))

	actions, err := s.GetAll(ctx, "owner-1")
	require.NoError(t, err)
	require.Len(t, actions, 2)
	assert.Equal(t, "a-1", actions[0].ID)
	assert.Equal(t, "a-2", actions[1].ID)
	assert.Equal(t, types.ActionStockUpdate, actions[0].Type)
	assert.Equal(t, "p1", actions[0].Payload["product_id"])
	assert.Equal(t, float64(-5), actions[0].Payload["delta"])
	assert.Nil(t, actions[0].SyncedAt)
}

func TestActionStore_SameMillisecondKeepsEnqueueOrder(t *testing.T) {
	db := openTestDB(t)
	s := NewSQLiteActionStore(db)
	ctx := context.Background()

	// All actions share one created_at millisecond; only the id tiebreak
	// decides the drain order.
	now := time.Now()
	var ids []string
	for i := 0; i < 20; i++ {
		id := types.NewActionID(now)
		ids = append(ids, id)
		require.NoError(t, s.Insert(ctx, newAction(id, "owner-1", state.StatusPending, now)))
	}

	actions, err := s.GetAll(ctx, "owner-1")
	require.NoError(t, err)
	require.Len(t, actions, len(ids))
	for i, a := range actions {
		assert.Equal(t, ids[i], a.ID)
	}
}

func TestActionStore_FindByID(t *testing.T) {
	db := openTestDB(t)
	s := NewSQLiteActionStore(db)
	ctx := context.Background()

	require.NoError(t, s.Insert(ctx, newAction("a-1", "owner-1", state.StatusPending, time.Now())))

	found, err := s.FindByID(ctx, "a-1")
	require.NoError(t, err)
	assert.Equal(t, "owner-1", found.OwnerID)
	assert.Equal(t, string(state.StatusPending), found.Status)

	_, err = s.FindByID(ctx, "missing")
	assert.True(t, errors.Is(err, store.ErrNotFound))
}

func TestActionStore_Remove(t *testing.T) {
	db := openTestDB(t)
	s := NewSQLiteActionStore(db)
	ctx := context.Background()

	require.NoError(t, s.Insert(ctx, newAction("a-1", "owner-1", state.StatusPending, time.Now())))
	require.NoError(t, s.Remove(ctx, "a-1"))

	_, err := s.FindByID(ctx, "a-1")
	assert.True(t, errors.Is(err, store.ErrNotFound))

	err = s.Remove(ctx, "a-1")
	assert.True(t, errors.Is(err, store.ErrNotFound))
}

func TestActionStore_UpdatePatch(t *testing.T) {
	db := openTestDB(t)
	s := NewSQLiteActionStore(db)
	ctx := context.Background()

	require.NoError(t, s.Insert(ctx, newAction("a-1", "owner-1", state.StatusPending, time.Now())))

	label := "Adjusted label"
	payload := types.Payload{"product_id": "p2", "delta": float64(3)}
	require.NoError(t, s.Update(ctx, "a-1", types.ActionPatch{
		Label:   &label,
		Payload: payload,
	}))

	found, err := s.FindByID(ctx, "a-1")
	require.NoError(t, err)
	assert.Equal(t, "Adjusted label", found.Label)
	assert.Equal(t, "p2", found.Payload["product_id"])
	// untouched fields survive
	assert.Equal(t, string(state.StatusPending), found.Status)
	assert.Equal(t, 0, found.Retries)

	err = s.Update(ctx, "missing", types.ActionPatch{Label: &label})
	assert.True(t, errors.Is(err, store.ErrNotFound))
}

func TestActionStore_MarkSyncingClaimsOnce(t *testing.T) {
	db := openTestDB(t)
	s := NewSQLiteActionStore(db)
	ctx := context.Background()

	require.NoError(t, s.Insert(ctx, newAction("a-1", "owner-1", state.StatusPending, time.Now())))

	claimed, err := s.MarkSyncing(ctx, "a-1")
	require.NoError(t, err)
	assert.True(t, claimed)

	// already syncing: the claim is a no-op for a second caller
	claimed, err = s.MarkSyncing(ctx, "a-1")
	require.NoError(t, err)
	assert.False(t, claimed)

	// a failed action is claimable again
	require.NoError(t, s.MarkFailure(ctx, "a-1", "boom", 1, false))
	claimed, err = s.MarkSyncing(ctx, "a-1")
	require.NoError(t, err)
	assert.True(t, claimed)
}

func TestActionStore_MarkFailure(t *testing.T) {
	db := openTestDB(t)
	s := NewSQLiteActionStore(db)
	ctx := context.Background()

	require.NoError(t, s.Insert(ctx, newAction("a-1", "owner-1", state.StatusSyncing, time.Now())))

	require.NoError(t, s.MarkFailure(ctx, "a-1", "connection refused", 3, false))
	found, err := s.FindByID(ctx, "a-1")
	require.NoError(t, err)
	assert.Equal(t, string(state.StatusFailed), found.Status)
	assert.Equal(t, 3, found.Retries)
	assert.Equal(t, "connection refused", found.LastError)

	require.NoError(t, s.MarkFailure(ctx, "a-1", "connection refused", 25, true))
	found, err = s.FindByID(ctx, "a-1")
	require.NoError(t, err)
	assert.Equal(t, string(state.StatusAbandoned), found.Status)
	assert.Equal(t, 25, found.Retries)
}

func TestActionStore_CountPending(t *testing.T) {
	db := openTestDB(t)
	s := NewSQLiteActionStore(db)
	ctx := context.Background()

	now := time.Now()
	require.NoError(t, s.Insert(ctx, newAction("a-1", "owner-1", state.StatusPending, now)))
	require.NoError(t, s.Insert(ctx, newAction("a-2", "owner-1", state.StatusFailed, now)))
	require.NoError(t, s.Insert(ctx, newAction("a-3", "owner-1", state.StatusSyncing, now)))
	require.NoError(t, s.Insert(ctx, newAction("a-4", "owner-1", state.StatusAbandoned, now)))
	require.NoError(t, s.Insert(ctx, newAction("b-1", "owner-2", state.StatusPending, now)))

	count, err := s.CountPending(ctx, "owner-1")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestActionStore_OwnersWithPending(t *testing.T) {
	db := openTestDB(t)
	s := NewSQLiteActionStore(db)
	ctx := context.Background()

	now := time.Now()
	require.NoError(t, s.Insert(ctx, newAction("a-1", "clinic-2", state.StatusPending, now)))
	require.NoError(t, s.Insert(ctx, newAction("a-2", "clinic-1", state.StatusFailed, now)))
	require.NoError(t, s.Insert(ctx, newAction("a-3", "clinic-1", state.StatusPending, now)))
	require.NoError(t, s.Insert(ctx, newAction("a-4", "clinic-3", state.StatusAbandoned, now)))

	owners, err := s.OwnersWithPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"clinic-1", "clinic-2"}, owners)
}

func TestActionStore_ReleaseStale(t *testing.T) {
	db := openTestDB(t)
	s := NewSQLiteActionStore(db)
	ctx := context.Background()

	require.NoError(t, s.Insert(ctx, newAction("a-1", "owner-1", state.StatusSyncing, time.Now())))
	// backdate updated_at so the row counts as stale
	_, err := db.ExecContext(ctx, `UPDATE queue_actions SET updated_at = ? WHERE id = ?`,
		time.Now().Add(-time.Hour).UnixMilli(), "a-1")
	require.NoError(t, err)

	require.NoError(t, s.Insert(ctx, newAction("a-2", "owner-1", state.StatusSyncing, time.Now())))

	require.NoError(t, s.ReleaseStale(ctx, 5*time.Minute))

	stale, err := s.FindByID(ctx, "a-1")
	require.NoError(t, err)
	assert.Equal(t, string(state.StatusFailed), stale.Status)
	assert.Equal(t, "dispatch interrupted by restart", stale.LastError)

	fresh, err := s.FindByID(ctx, "a-2")
	require.NoError(t, err)
	assert.Equal(t, string(state.StatusSyncing), fresh.Status)
}

func TestActionStore_ResurrectAbandoned(t *testing.T) {
	db := openTestDB(t)
	s := NewSQLiteActionStore(db)
	ctx := context.Background()

	now := time.Now()
	a := newAction("a-1", "owner-1", state.StatusAbandoned, now)
	a.Retries = 25
	a.LastError = "gone"
	require.NoError(t, s.Insert(ctx, a))
	require.NoError(t, s.Insert(ctx, newAction("a-2", "owner-1", state.StatusPending, now)))
	require.NoError(t, s.Insert(ctx, newAction("b-1", "owner-2", state.StatusAbandoned, now)))

	n, err := s.ResurrectAbandoned(ctx, "owner-1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	found, err := s.FindByID(ctx, "a-1")
	require.NoError(t, err)
	assert.Equal(t, string(state.StatusPending), found.Status)
	assert.Equal(t, 0, found.Retries)
	assert.Empty(t, found.LastError)

	other, err := s.FindByID(ctx, "b-1")
	require.NoError(t, err)
	assert.Equal(t, string(state.StatusAbandoned), other.Status)
}

func TestHistoryStore_AppendEnforcesCap(t *testing.T) {
	db := openTestDB(t)
	s := NewSQLiteHistoryStore(db)
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 60; i++ {
		item := &types.RecentSyncedItem{
			ID:       fmt.Sprintf("h-%03d", i),
			OwnerID:  "owner-1",
			Type:     types.ActionSaleRecord,
			Label:    fmt.Sprintf("Sale %d", i),
			SyncedAt: base.Add(time.Duration(i) * time.Second),
		}
		require.NoError(t, s.Append(ctx, item, 50))
	}

	items, err := s.Recent(ctx, "owner-1", 100)
	require.NoError(t, err)
	require.Len(t, items, 50)

	// most recent first, the 10 oldest evicted
	assert.Equal(t, "h-059", items[0].ID)
	assert.Equal(t, "h-010", items[len(items)-1].ID)
}

func TestHistoryStore_AppendIsIdempotentPerID(t *testing.T) {
	db := openTestDB(t)
	s := NewSQLiteHistoryStore(db)
	ctx := context.Background()

	item := &types.RecentSyncedItem{
		ID:       "h-1",
		OwnerID:  "owner-1",
		Type:     types.ActionBookingCreate,
		Label:    "Booking",
		SyncedAt: time.Now(),
	}
	require.NoError(t, s.Append(ctx, item, 50))
	require.NoError(t, s.Append(ctx, item, 50))

	items, err := s.Recent(ctx, "owner-1", 10)
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestHistoryStore_RecentScopedToOwner(t *testing.T) {
	db := openTestDB(t)
	s := NewSQLiteHistoryStore(db)
	ctx := context.Background()

	now := time.Now()
	require.NoError(t, s.Append(ctx, &types.RecentSyncedItem{
		ID: "h-1", OwnerID: "owner-1", Type: types.ActionSaleRecord, SyncedAt: now,
	}, 50))
	require.NoError(t, s.Append(ctx, &types.RecentSyncedItem{
		ID: "h-2", OwnerID: "owner-2", Type: types.ActionSaleRecord, SyncedAt: now,
	}, 50))

	items, err := s.Recent(ctx, "owner-1", 10)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "h-1", items[0].ID)
}

func TestCacheStore_SetGetOverwrite(t *testing.T) {
	db := openTestDB(t)
	s := NewSQLiteCacheStore(db)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "owner-1", "bookings", json.RawMessage(`{"count":1}`)))
	require.NoError(t, s.Set(ctx, "owner-1", "bookings", json.RawMessage(`{"count":2}`)))

	data, err := s.Get(ctx, "owner-1", "bookings")
	require.NoError(t, err)
	assert.JSONEq(t, `{"count":2}`, string(data))
}

func TestCacheStore_MissReturnsNil(t *testing.T) {
	db := openTestDB(t)
	s := NewSQLiteCacheStore(db)
	ctx := context.Background()

	data, err := s.Get(ctx, "owner-1", "missing")
	require.NoError(t, err)
	assert.Nil(t, data)
}

func TestCacheStore_KeysPartitionedByOwner(t *testing.T) {
	db := openTestDB(t)
	s := NewSQLiteCacheStore(db)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "owner-1", "stock", json.RawMessage(`{"a":1}`)))
	require.NoError(t, s.Set(ctx, "owner-2", "stock", json.RawMessage(`{"a":2}`)))

	data, err := s.Get(ctx, "owner-1", "stock")
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, string(data))
}
