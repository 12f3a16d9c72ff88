package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"outpost/internal/constants"
	"outpost/internal/executor"
	"outpost/internal/lock"
	"outpost/internal/netstatus"
	"outpost/internal/registry"
	"outpost/internal/state"
	"outpost/internal/store"
	"outpost/types"
)

// ErrOffline is returned when a sync is requested but the active probe
// cannot reach the backend. Queued actions stay pending.
var ErrOffline = errors.New("backend unreachable")

// SyncManager is the public surface of the queue: producers enqueue actions
// and query state through it, and sync runs are triggered through it. All
// operations are partitioned per owner.
type SyncManager struct {
	actions  store.ActionStore
	history  store.HistoryStore
	cache    store.CacheStore
	registry *registry.Registry
	executor *executor.SyncExecutor
	oracle   *netstatus.Oracle
	lockMgr  lock.DistributedLockManager

	historyCap       int
	drainConcurrency int64
}

func NewSyncManager(
	actions store.ActionStore,
	history store.HistoryStore,
	cache store.CacheStore,
	reg *registry.Registry,
	exec *executor.SyncExecutor,
	oracle *netstatus.Oracle,
	lockMgr lock.DistributedLockManager,
	historyCap int,
	drainConcurrency int,
) *SyncManager {
	if drainConcurrency < 1 {
		drainConcurrency = 1
	}
	return &SyncManager{
		actions:          actions,
		history:          history,
		cache:            cache,
		registry:         reg,
		executor:         exec,
		oracle:           oracle,
		lockMgr:          lockMgr,
		historyCap:       historyCap,
		drainConcurrency: int64(drainConcurrency),
	}
}

// Enqueue durably records an action for later delivery and returns its id.
// The write completes before the call returns; there is no implicit
// deduplication.
func (m *SyncManager) Enqueue(ctx context.Context, ownerID string, req types.EnqueueRequest) (string, error) {
	if ownerID == "" {
		return "", errors.New("owner id is required")
	}
	if req.Type == "" {
		return "", errors.New("action type is required")
	}

	label := req.Label
	if label == "" {
		label = registry.DefaultLabel(req.Type, req.Payload)
	}

	now := time.Now()
	action := &types.QueuedAction{
		ID:        types.NewActionID(now),
		OwnerID:   ownerID,
		Type:      req.Type,
		Payload:   req.Payload,
		Label:     label,
		Status:    string(state.StatusPending),
		Retries:   0,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := m.actions.Insert(ctx, action); err != nil {
		return "", fmt.Errorf("enqueue %s for %s: %w", req.Type, ownerID, err)
	}
	return action.ID, nil
}

// Queue returns the owner's queued actions in creation order.
func (m *SyncManager) Queue(ctx context.Context, ownerID string) ([]types.QueuedAction, error) {
	return m.actions.GetAll(ctx, ownerID)
}

// PendingCount reports how many actions are waiting to sync (pending or
// failed). This is the "N changes waiting" operator signal.
func (m *SyncManager) PendingCount(ctx context.Context, ownerID string) (int, error) {
	return m.actions.CountPending(ctx, ownerID)
}

// RemoveFromQueue explicitly discards a queued action. The only way an
// action disappears without being delivered.
func (m *SyncManager) RemoveFromQueue(ctx context.Context, id string) error {
	return m.actions.Remove(ctx, id)
}

// UpdateItem merge-updates a queued action.
func (m *SyncManager) UpdateItem(ctx context.Context, id string, patch types.ActionPatch) error {
	return m.actions.Update(ctx, id, patch)
}

// RecordSynced appends an entry to the owner's history, evicting beyond the
// cap. The executor calls this path on success; it is also exposed for
// callers that deliver through side channels.
func (m *SyncManager) RecordSynced(ctx context.Context, item *types.RecentSyncedItem) error {
	if item.SyncedAt.IsZero() {
		item.SyncedAt = time.Now()
	}
	return m.history.Append(ctx, item, m.historyCap)
}

// Recent returns the owner's history, most recent first.
func (m *SyncManager) Recent(ctx context.Context, ownerID string, limit int) ([]types.RecentSyncedItem, error) {
	return m.history.Recent(ctx, ownerID, limit)
}

func (m *SyncManager) CacheSet(ctx context.Context, ownerID, key string, data json.RawMessage) error {
	return m.cache.Set(ctx, ownerID, key, data)
}

func (m *SyncManager) CacheGet(ctx context.Context, ownerID, key string) (json.RawMessage, error) {
	return m.cache.Get(ctx, ownerID, key)
}

// IsOnlineFast returns the passive connectivity signal.
func (m *SyncManager) IsOnlineFast() bool {
	return m.oracle.IsOnlineFast()
}

// SetOnline feeds a runtime online/offline transition into the oracle.
func (m *SyncManager) SetOnline(online bool) {
	m.oracle.SetOnline(online)
}

// CheckConnectivity runs the active probe.
func (m *SyncManager) CheckConnectivity(ctx context.Context, timeout time.Duration) bool {
	return m.oracle.CheckConnectivity(ctx, timeout)
}

// OnNetworkChange subscribes to passive transitions; the returned function
// unsubscribes.
func (m *SyncManager) OnNetworkChange(cb func(online bool)) func() {
	return m.oracle.OnNetworkChange(cb)
}

// Sync probes connectivity and, when the backend answers, drains the
// owner's queue under the single-writer drain lock.
func (m *SyncManager) Sync(ctx context.Context, ownerID string) (*types.SyncResult, error) {
	if !m.oracle.CheckConnectivity(ctx, 0) {
		return nil, ErrOffline
	}

	if err := m.lockMgr.Acquire(constants.DrainLock); err != nil {
		return nil, err
	}
	defer m.lockMgr.Release(constants.DrainLock)

	return m.executor.Drain(ctx, ownerID)
}

// SyncAll probes once, then drains every owner with pending work. Owners are
// disjoint partitions, so they drain concurrently up to the configured
// limit; one owner's failures never affect another's pass.
func (m *SyncManager) SyncAll(ctx context.Context) ([]types.SyncResult, error) {
	if !m.oracle.CheckConnectivity(ctx, 0) {
		return nil, ErrOffline
	}

	if err := m.lockMgr.Acquire(constants.DrainLock); err != nil {
		return nil, err
	}
	defer m.lockMgr.Release(constants.DrainLock)

	owners, err := m.actions.OwnersWithPending(ctx)
	if err != nil {
		return nil, err
	}

	sem := semaphore.NewWeighted(m.drainConcurrency)
	var wg sync.WaitGroup
	var mu sync.Mutex
	results := make([]types.SyncResult, 0, len(owners))

	for _, owner := range owners {
		if err := sem.Acquire(ctx, 1); err != nil {
			break
		}
		wg.Add(1)

		go func(owner string) {
			defer sem.Release(1)
			defer wg.Done()

			res, err := m.executor.Drain(ctx, owner)
			if err != nil {
				log.Printf("[syncmanager] drain for %s failed: %s", owner, err)
				return
			}
			mu.Lock()
			results = append(results, *res)
			mu.Unlock()
		}(owner)
	}

	wg.Wait()
	return results, nil
}

// ResurrectAbandoned returns an owner's abandoned actions to pending with a
// fresh retry budget. Explicit operator action.
func (m *SyncManager) ResurrectAbandoned(ctx context.Context, ownerID string) (int, error) {
	if err := m.lockMgr.Acquire(constants.ResurrectLock); err != nil {
		return 0, err
	}
	defer m.lockMgr.Release(constants.ResurrectLock)

	return m.actions.ResurrectAbandoned(ctx, ownerID)
}

// Registry exposes the handler table, e.g. to check whether a type is known
// before enqueueing.
func (m *SyncManager) Registry() *registry.Registry {
	return m.registry
}

func (m *SyncManager) Close() error {
	return m.actions.Close()
}
