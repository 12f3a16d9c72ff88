package mocks

import (
	"context"
	"encoding/json"
)

// MockCacheStore is a mock implementation of store.CacheStore for testing.
type MockCacheStore struct {
	SetFunc func(ctx context.Context, ownerID, key string, data json.RawMessage) error
	GetFunc func(ctx context.Context, ownerID, key string) (json.RawMessage, error)
}

func (m *MockCacheStore) Set(ctx context.Context, ownerID, key string, data json.RawMessage) error {
	if m.SetFunc != nil {
		return m.SetFunc(ctx, ownerID, key, data)
	}
	return nil
}

func (m *MockCacheStore) Get(ctx context.Context, ownerID, key string) (json.RawMessage, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, ownerID, key)
	}
	return nil, nil
}
