package mocks

import (
	"context"
	"sync"

	"github.com/MediaChallengeInitiative/love-facts-stickers-sub000/internal/core/domain"
)

// MockImageStrategy is a scripted ImageStrategy for testing
type MockImageStrategy struct {
	mu           sync.Mutex
	StrategyName string
	AttemptFn    func(fileID string, size int) (*domain.ImageResult, error)
	Calls        int
}

// NewMockImageStrategy creates a strategy that delegates to fn
func NewMockImageStrategy(name string, fn func(fileID string, size int) (*domain.ImageResult, error)) *MockImageStrategy {
	return &MockImageStrategy{StrategyName: name, AttemptFn: fn}
}

func (m *MockImageStrategy) Name() string {
	return m.StrategyName
}

func (m *MockImageStrategy) Attempt(ctx context.Context, fileID string, size int) (*domain.ImageResult, error) {
	m.mu.Lock()
	m.Calls++
	m.mu.Unlock()
	if m.AttemptFn == nil {
		return nil, domain.ErrInvalidImage
	}
	return m.AttemptFn(fileID, size)
}

// CallCount returns how many times Attempt ran.
func (m *MockImageStrategy) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Calls
}

// MockBlobStore is an in-memory BlobStore for testing
type MockBlobStore struct {
	mu    sync.Mutex
	blobs map[string][]byte
	types map[string]string
	PutCh chan string
}

// NewMockBlobStore creates an empty MockBlobStore
func NewMockBlobStore() *MockBlobStore {
	return &MockBlobStore{
		blobs: make(map[string][]byte),
		types: make(map[string]string),
		PutCh: make(chan string, 16),
	}
}

func (m *MockBlobStore) Get(ctx context.Context, key string) ([]byte, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.blobs[key]
	if !ok {
		return nil, "", domain.ErrNotFound
	}
	return b, m.types[key], nil
}

func (m *MockBlobStore) Put(ctx context.Context, key string, data []byte, contentType string) error {
	m.mu.Lock()
	m.blobs[key] = data
	m.types[key] = contentType
	m.mu.Unlock()
	select {
	case m.PutCh <- key:
	default:
	}
	return nil
}

// MockImageCache is an unbounded map-backed ImageCache for testing
type MockImageCache struct {
	mu      sync.Mutex
	entries map[string]*domain.ImageResult
}

// NewMockImageCache creates an empty MockImageCache
func NewMockImageCache() *MockImageCache {
	return &MockImageCache{entries: make(map[string]*domain.ImageResult)}
}

func (m *MockImageCache) Get(key string) (*domain.ImageResult, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.entries[key]
	return r, ok
}

func (m *MockImageCache) Set(key string, result *domain.ImageResult) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = result
}

func (m *MockImageCache) Clear() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := len(m.entries)
	m.entries = make(map[string]*domain.ImageResult)
	return n
}

func (m *MockImageCache) Prune() int {
	return 0
}

func (m *MockImageCache) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
