package mocks

import (
	"context"

	"outpost/types"
)

// MockHistoryStore is a mock implementation of store.HistoryStore for testing.
type MockHistoryStore struct {
	AppendFunc func(ctx context.Context, item *types.RecentSyncedItem, cap int) error
	RecentFunc func(ctx context.Context, ownerID string, limit int) ([]types.RecentSyncedItem, error)
}

func (m *MockHistoryStore) Append(ctx context.Context, item *types.RecentSyncedItem, cap int) error {
	if m.AppendFunc != nil {
		return m.AppendFunc(ctx, item, cap)
	}
	return nil
}

func (m *MockHistoryStore) Recent(ctx context.Context, ownerID string, limit int) ([]types.RecentSyncedItem, error) {
	if m.RecentFunc != nil {
		return m.RecentFunc(ctx, ownerID, limit)
	}
	return nil, nil
}
