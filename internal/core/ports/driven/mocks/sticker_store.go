package mocks

import (
	"context"
	"sort"
	"sync"

	"github.com/MediaChallengeInitiative/love-facts-stickers-sub000/internal/core/domain"
)

// MockStickerStore is a mock implementation of StickerStore for testing.
// Records are copied on the way in and out so callers cannot mutate state.
type MockStickerStore struct {
	mu       sync.RWMutex
	stickers map[string]*domain.Sticker

	// SaveErrFor fails Save for the given Drive file IDs
	SaveErrFor map[string]error
}

// NewMockStickerStore creates a new MockStickerStore
func NewMockStickerStore() *MockStickerStore {
	return &MockStickerStore{
		stickers:   make(map[string]*domain.Sticker),
		SaveErrFor: make(map[string]error),
	}
}

func copySticker(s *domain.Sticker) *domain.Sticker {
	cp := *s
	if s.DriveFileID != nil {
		id := *s.DriveFileID
		cp.DriveFileID = &id
	}
	cp.Tags = append([]string(nil), s.Tags...)
	return &cp
}

func (m *MockStickerStore) Save(ctx context.Context, s *domain.Sticker) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.SaveErrFor[s.FileID()]; err != nil {
		return err
	}
	for id, existing := range m.stickers {
		if id != s.ID && s.DriveFileID != nil && existing.FileID() == *s.DriveFileID {
			return domain.ErrAlreadyExists
		}
	}
	m.stickers[s.ID] = copySticker(s)
	return nil
}

func (m *MockStickerStore) Get(ctx context.Context, id string) (*domain.Sticker, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.stickers[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return copySticker(s), nil
}

func (m *MockStickerStore) GetByDriveFileID(ctx context.Context, fileID string) (*domain.Sticker, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, s := range m.stickers {
		if s.DriveFileID != nil && *s.DriveFileID == fileID {
			return copySticker(s), nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MockStickerStore) ListByCollection(ctx context.Context, collectionID string) ([]*domain.Sticker, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.Sticker
	for _, s := range m.stickers {
		if s.CollectionID == collectionID {
			result = append(result, copySticker(s))
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *MockStickerStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.stickers, id)
	return nil
}

func (m *MockStickerStore) DeleteBatch(ctx context.Context, ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		delete(m.stickers, id)
	}
	return nil
}

func (m *MockStickerStore) DeleteByCollection(ctx context.Context, collectionID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id, s := range m.stickers {
		if s.CollectionID == collectionID {
			delete(m.stickers, id)
			n++
		}
	}
	return n, nil
}

func (m *MockStickerStore) Count(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.stickers), nil
}

// Helper methods for testing

// Add inserts a sticker directly.
func (m *MockStickerStore) Add(s *domain.Sticker) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stickers[s.ID] = copySticker(s)
}

// All returns every sticker sorted by ID.
func (m *MockStickerStore) All() []*domain.Sticker {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.Sticker, 0, len(m.stickers))
	for _, s := range m.stickers {
		result = append(result, copySticker(s))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}
