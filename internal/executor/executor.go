package executor

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"outpost/internal/dispatch"
	"outpost/internal/message_broaker"
	"outpost/internal/registry"
	"outpost/internal/state"
	"outpost/internal/store"
	"outpost/types"
)

// ConnectivitySource is the passive online signal consulted between items so
// a drain stops as soon as connectivity is lost.
type ConnectivitySource interface {
	IsOnlineFast() bool
}

// SyncEvent is published to the message broker after each dispatch outcome.
type SyncEvent struct {
	ActionID   string           `json:"action_id"`
	OwnerID    string           `json:"owner_id"`
	Type       types.ActionType `json:"type"`
	Label      string           `json:"label"`
	Status     string           `json:"status"`
	Error      string           `json:"error,omitempty"`
	OccurredAt time.Time        `json:"occurred_at"`
}

// SyncExecutor drains one owner's queue at a time: oldest first, strictly
// sequential within the owner so causally dependent operations land in
// order. Different owners are disjoint partitions and may drain in parallel.
type SyncExecutor struct {
	actions     store.ActionStore
	history     store.HistoryStore
	registry    *registry.Registry
	dispatcher  dispatch.Dispatcher
	oracle      ConnectivitySource
	broker      message_broaker.MessageBroker
	eventQueue  string
	historyCap  int
	maxAttempts int

	mu       sync.Mutex
	ownerMus map[string]*sync.Mutex
}

type Config struct {
	Actions     store.ActionStore
	History     store.HistoryStore
	Registry    *registry.Registry
	Dispatcher  dispatch.Dispatcher
	Oracle      ConnectivitySource
	Broker      message_broaker.MessageBroker
	EventQueue  string
	HistoryCap  int
	MaxAttempts int // 0 disables abandonment: failed items retry forever
}

func New(cfg Config) *SyncExecutor {
	return &SyncExecutor{
		actions:     cfg.Actions,
		history:     cfg.History,
		registry:    cfg.Registry,
		dispatcher:  cfg.Dispatcher,
		oracle:      cfg.Oracle,
		broker:      cfg.Broker,
		eventQueue:  cfg.EventQueue,
		historyCap:  cfg.HistoryCap,
		maxAttempts: cfg.MaxAttempts,
		ownerMus:    make(map[string]*sync.Mutex),
	}
}

func (e *SyncExecutor) ownerMu(ownerID string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()

	m, ok := e.ownerMus[ownerID]
	if !ok {
		m = &sync.Mutex{}
		e.ownerMus[ownerID] = m
	}
	return m
}

// Drain processes the owner's queue until it is empty, connectivity is lost
// or the context is cancelled. Dispatch failures are recorded on the item
// and never abort the pass; only persistence errors are returned.
//
// Drain is safe to invoke concurrently for the same owner: the in-process
// mutex serialises local callers and the store-level syncing claim protects
// against other processes.
func (e *SyncExecutor) Drain(ctx context.Context, ownerID string) (*types.SyncResult, error) {
	mu := e.ownerMu(ownerID)
	mu.Lock()
	defer mu.Unlock()

	result := &types.SyncResult{OwnerID: ownerID, StartedAt: time.Now()}

	items, err := e.actions.GetAll(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	for i := range items {
		if ctx.Err() != nil || (e.oracle != nil && !e.oracle.IsOnlineFast()) {
			result.StoppedEarly = true
			break
		}

		item := items[i]
		if !state.Eligible(state.ActionStatus(item.Status)) {
			result.Skipped++
			continue
		}

		claimed, err := e.actions.MarkSyncing(ctx, item.ID)
		if err != nil {
			return result, err
		}
		if !claimed {
			// Another run already holds the item.
			result.Skipped++
			continue
		}

		result.Attempted++
		if dispatchErr := e.dispatchOne(ctx, &item); dispatchErr != nil {
			e.recordFailure(ctx, &item, dispatchErr, result)
			continue
		}
		e.recordSuccess(ctx, &item, result)
	}

	result.FinishedAt = time.Now()
	return result, nil
}

func (e *SyncExecutor) dispatchOne(ctx context.Context, a *types.QueuedAction) error {
	req, err := e.registry.Resolve(a)
	if err != nil {
		// Permanent configuration failure (unknown type, unresolvable
		// endpoint). Reported like any other dispatch error.
		return err
	}
	return e.dispatcher.Dispatch(ctx, req)
}

func (e *SyncExecutor) recordSuccess(ctx context.Context, a *types.QueuedAction, result *types.SyncResult) {
	now := time.Now()
	record := &types.RecentSyncedItem{
		ID:       a.ID,
		OwnerID:  a.OwnerID,
		Type:     a.Type,
		Label:    a.Label,
		SyncedAt: now,
	}

	// History first: the item may only leave the queue once the history
	// write has landed. On append failure the item stays put; the claim is
	// released as stale, the next pass re-dispatches (at-least-once) and
	// the append upserts.
	if err := e.history.Append(ctx, record, e.historyCap); err != nil {
		log.Printf("[executor] append history for %s failed: %s", a.ID, err)
		return
	}
	if err := e.actions.Remove(ctx, a.ID); err != nil {
		log.Printf("[executor] remove synced action %s failed: %s", a.ID, err)
		return
	}

	result.Succeeded++
	e.publishEvent(SyncEvent{
		ActionID:   a.ID,
		OwnerID:    a.OwnerID,
		Type:       a.Type,
		Label:      a.Label,
		Status:     string(state.StatusSucceeded),
		OccurredAt: now,
	})
}

func (e *SyncExecutor) recordFailure(ctx context.Context, a *types.QueuedAction, dispatchErr error, result *types.SyncResult) {
	retries := a.Retries + 1
	abandoned := e.maxAttempts > 0 && retries >= e.maxAttempts

	if err := e.actions.MarkFailure(ctx, a.ID, dispatchErr.Error(), retries, abandoned); err != nil {
		log.Printf("[executor] mark failure for %s failed: %s", a.ID, err)
	}

	status := state.StatusFailed
	if abandoned {
		status = state.StatusAbandoned
		result.Abandoned++
		log.Printf("[executor] action %s abandoned after %d attempts: %s", a.ID, retries, dispatchErr)
	} else {
		log.Printf("[executor] action %s failed (attempt %d): %s", a.ID, retries, dispatchErr)
	}
	result.Failed++

	e.publishEvent(SyncEvent{
		ActionID:   a.ID,
		OwnerID:    a.OwnerID,
		Type:       a.Type,
		Label:      a.Label,
		Status:     string(status),
		Error:      dispatchErr.Error(),
		OccurredAt: time.Now(),
	})
}

func (e *SyncExecutor) publishEvent(ev SyncEvent) {
	if e.broker == nil {
		return
	}
	body, err := json.Marshal(ev)
	if err != nil {
		return
	}
	if err := e.broker.Publish(e.eventQueue, body); err != nil {
		log.Printf("[executor] publish sync event for %s failed: %s", ev.ActionID, err)
	}
}
