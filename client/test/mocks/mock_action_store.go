package mocks

import (
	"context"
	"time"

	"outpost/types"
)

// MockActionStore is a mock implementation of store.ActionStore for testing.
type MockActionStore struct {
	InsertFunc             func(ctx context.Context, a *types.QueuedAction) error
	GetAllFunc             func(ctx context.Context, ownerID string) ([]types.QueuedAction, error)
	FindByIDFunc           func(ctx context.Context, id string) (*types.QueuedAction, error)
	RemoveFunc             func(ctx context.Context, id string) error
	UpdateFunc             func(ctx context.Context, id string, patch types.ActionPatch) error
	MarkSyncingFunc        func(ctx context.Context, id string) (bool, error)
	MarkFailureFunc        func(ctx context.Context, id string, errMsg string, retries int, abandoned bool) error
	CountPendingFunc       func(ctx context.Context, ownerID string) (int, error)
	OwnersWithPendingFunc  func(ctx context.Context) ([]string, error)
	ReleaseStaleFunc       func(ctx context.Context, olderThan time.Duration) error
	ResurrectAbandonedFunc func(ctx context.Context, ownerID string) (int, error)
	CloseFunc              func() error
}

func (m *MockActionStore) Insert(ctx context.Context, a *types.QueuedAction) error {
	if m.InsertFunc != nil {
		return m.InsertFunc(ctx, a)
	}
	return nil
}

func (m *MockActionStore) GetAll(ctx context.Context, ownerID string) ([]types.QueuedAction, error) {
	if m.GetAllFunc != nil {
		return m.GetAllFunc(ctx, ownerID)
	}
	return nil, nil
}

func (m *MockActionStore) FindByID(ctx context.Context, id string) (*types.QueuedAction, error) {
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(ctx, id)
	}
	return nil, nil
}

func (m *MockActionStore) Remove(ctx context.Context, id string) error {
	if m.RemoveFunc != nil {
		return m.RemoveFunc(ctx, id)
	}
	return nil
}

func (m *MockActionStore) Update(ctx context.Context, id string, patch types.ActionPatch) error {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, id, patch)
	}
	return nil
}

func (m *MockActionStore) MarkSyncing(ctx context.Context, id string) (bool, error) {
	if m.MarkSyncingFunc != nil {
		return m.MarkSyncingFunc(ctx, id)
	}
	return true, nil
}

func (m *MockActionStore) MarkFailure(ctx context.Context, id string, errMsg string, retries int, abandoned bool) error {
	if m.MarkFailureFunc != nil {
		return m.MarkFailureFunc(ctx, id, errMsg, retries, abandoned)
	}
	return nil
}

func (m *MockActionStore) CountPending(ctx context.Context, ownerID string) (int, error) {
	if m.CountPendingFunc != nil {
		return m.CountPendingFunc(ctx, ownerID)
	}
	return 0, nil
}

func (m *MockActionStore) OwnersWithPending(ctx context.Context) ([]string, error) {
	if m.OwnersWithPendingFunc != nil {
		return m.OwnersWithPendingFunc(ctx)
	}
	return nil, nil
}

func (m *MockActionStore) ReleaseStale(ctx context.Context, olderThan time.Duration) error {
	if m.ReleaseStaleFunc != nil {
		return m.ReleaseStaleFunc(ctx, olderThan)
	}
	return nil
}

func (m *MockActionStore) ResurrectAbandoned(ctx context.Context, ownerID string) (int, error) {
	if m.ResurrectAbandonedFunc != nil {
		return m.ResurrectAbandonedFunc(ctx, ownerID)
	}
	return 0, nil
}

func (m *MockActionStore) Close() error {
	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}
