package mocks

import (
	"context"
	"sort"
	"sync"

	"github.com/MediaChallengeInitiative/love-facts-stickers-sub000/internal/core/domain"
)

// MockSyncRunStore is a mock implementation of SyncRunStore for testing
type MockSyncRunStore struct {
	mu   sync.RWMutex
	runs map[string]*domain.SyncRun
}

// NewMockSyncRunStore creates a new MockSyncRunStore
func NewMockSyncRunStore() *MockSyncRunStore {
	return &MockSyncRunStore{
		runs: make(map[string]*domain.SyncRun),
	}
}

func (m *MockSyncRunStore) Create(ctx context.Context, run *domain.SyncRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *run
	m.runs[run.ID] = &cp
	return nil
}

func (m *MockSyncRunStore) Finish(ctx context.Context, run *domain.SyncRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.runs[run.ID]; !ok {
		return domain.ErrNotFound
	}
	cp := *run
	m.runs[run.ID] = &cp
	return nil
}

func (m *MockSyncRunStore) ListRecent(ctx context.Context, limit int) ([]*domain.SyncRun, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.SyncRun, 0, len(m.runs))
	for _, r := range m.runs {
		cp := *r
		result = append(result, &cp)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].StartedAt.After(result[j].StartedAt) })
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// MockKeyValueStore is a mock implementation of KeyValueStore for testing
type MockKeyValueStore struct {
	mu     sync.RWMutex
	values map[string]string

	// History records every Set in order, for cursor persistence assertions
	History []string
	SetErr  error
}

// NewMockKeyValueStore creates a new MockKeyValueStore
func NewMockKeyValueStore() *MockKeyValueStore {
	return &MockKeyValueStore{
		values: make(map[string]string),
	}
}

func (m *MockKeyValueStore) Get(ctx context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	if !ok {
		return "", domain.ErrNotFound
	}
	return v, nil
}

func (m *MockKeyValueStore) Set(ctx context.Context, key, value string) error {
	if m.SetErr != nil {
		return m.SetErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	m.History = append(m.History, key+"="+value)
	return nil
}

func (m *MockKeyValueStore) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}
