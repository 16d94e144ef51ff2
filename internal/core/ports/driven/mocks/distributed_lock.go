package mocks

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MockDistributedLock is an in-memory DistributedLock that tracks holders
// with expiry and records acquisitions and releases.
type MockDistributedLock struct {
	mu   sync.Mutex
	held map[string]time.Time // lock name -> expiry

	// Error injection
	AcquireErr error
	ExtendErr  error
	PingErr    error

	// Recorded calls
	Acquired []string
	Released []string
	Extended []string
}

// NewMockDistributedLock creates a lock with nothing held.
func NewMockDistributedLock() *MockDistributedLock {
	return &MockDistributedLock{held: make(map[string]time.Time)}
}

func (m *MockDistributedLock) heldLocked(name string) bool {
	expiry, ok := m.held[name]
	return ok && time.Now().Before(expiry)
}

func (m *MockDistributedLock) Acquire(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.AcquireErr != nil {
		return false, m.AcquireErr
	}
	if m.heldLocked(name) {
		return false, nil
	}
	m.held[name] = time.Now().Add(ttl)
	m.Acquired = append(m.Acquired, name)
	return true, nil
}

func (m *MockDistributedLock) Release(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Released = append(m.Released, name)
	delete(m.held, name)
	return nil
}

func (m *MockDistributedLock) Extend(ctx context.Context, name string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Extended = append(m.Extended, name)
	if m.ExtendErr != nil {
		return m.ExtendErr
	}
	if !m.heldLocked(name) {
		return fmt.Errorf("lock %s not held", name)
	}
	m.held[name] = time.Now().Add(ttl)
	return nil
}

func (m *MockDistributedLock) Ping(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.PingErr
}

// IsHeld reports whether name is currently held.
func (m *MockDistributedLock) IsHeld(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.heldLocked(name)
}

// ExtendCount returns how many times Extend was called.
func (m *MockDistributedLock) ExtendCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Extended)
}

// SetLockHeld simulates another instance holding name for ttl.
func (m *MockDistributedLock) SetLockHeld(name string, ttl time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.held[name] = time.Now().Add(ttl)
}
