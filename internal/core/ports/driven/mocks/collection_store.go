package mocks

import (
	"context"
	"sort"
	"sync"

	"github.com/MediaChallengeInitiative/love-facts-stickers-sub000/internal/core/domain"
)

// MockCollectionStore is a mock implementation of CollectionStore for testing.
// Records are copied on the way in and out so callers cannot mutate state.
type MockCollectionStore struct {
	mu          sync.RWMutex
	collections map[string]*domain.Collection

	SaveErr error
}

// NewMockCollectionStore creates a new MockCollectionStore
func NewMockCollectionStore() *MockCollectionStore {
	return &MockCollectionStore{
		collections: make(map[string]*domain.Collection),
	}
}

func copyCollection(c *domain.Collection) *domain.Collection {
	cp := *c
	if c.DriveFolderID != nil {
		id := *c.DriveFolderID
		cp.DriveFolderID = &id
	}
	return &cp
}

func (m *MockCollectionStore) Save(ctx context.Context, c *domain.Collection) error {
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, existing := range m.collections {
		if id != c.ID && existing.Slug == c.Slug {
			return domain.ErrAlreadyExists
		}
		if id != c.ID && c.DriveFolderID != nil && existing.FolderID() == *c.DriveFolderID {
			return domain.ErrAlreadyExists
		}
	}
	m.collections[c.ID] = copyCollection(c)
	return nil
}

func (m *MockCollectionStore) Get(ctx context.Context, id string) (*domain.Collection, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.collections[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return copyCollection(c), nil
}

func (m *MockCollectionStore) GetByDriveFolderID(ctx context.Context, folderID string) (*domain.Collection, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, c := range m.collections {
		if c.DriveFolderID != nil && *c.DriveFolderID == folderID {
			return copyCollection(c), nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MockCollectionStore) GetBySlug(ctx context.Context, slug string) (*domain.Collection, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, c := range m.collections {
		if c.Slug == slug {
			return copyCollection(c), nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MockCollectionStore) List(ctx context.Context) ([]*domain.Collection, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.Collection, 0, len(m.collections))
	for _, c := range m.collections {
		result = append(result, copyCollection(c))
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].SortOrder != result[j].SortOrder {
			return result[i].SortOrder < result[j].SortOrder
		}
		return result[i].Name < result[j].Name
	})
	return result, nil
}

func (m *MockCollectionStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.collections, id)
	return nil
}

func (m *MockCollectionStore) Count(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.collections), nil
}

// Helper methods for testing

// Add inserts a collection directly, bypassing uniqueness checks.
func (m *MockCollectionStore) Add(c *domain.Collection) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.collections[c.ID] = copyCollection(c)
}
