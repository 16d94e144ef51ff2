package driven

import (
	"context"

	"github.com/MediaChallengeInitiative/love-facts-stickers-sub000/internal/core/domain"
)

// SyncRunStore persists the sync audit log (PostgreSQL)
type SyncRunStore interface {
	// Create inserts a new run in the started state
	Create(ctx context.Context, run *domain.SyncRun) error

	// Finish applies the terminal update of a run
	Finish(ctx context.Context, run *domain.SyncRun) error

	// ListRecent returns the most recent runs, newest first
	ListRecent(ctx context.Context, limit int) ([]*domain.SyncRun, error)
}

// KeyValueStore is a generic persistent key to string-value store.
// The change-feed cursor lives here and must survive restarts.
type KeyValueStore interface {
	// Get returns the value for key or domain.ErrNotFound
	Get(ctx context.Context, key string) (string, error)

	// Set creates or replaces the value for key
	Set(ctx context.Context, key, value string) error

	// Delete removes key; deleting a missing key is not an error
	Delete(ctx context.Context, key string) error
}
