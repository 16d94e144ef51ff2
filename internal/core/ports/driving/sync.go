package driving

import (
	"context"

	"github.com/MediaChallengeInitiative/love-facts-stickers-sub000/internal/core/domain"
)

// TriggerOptions tunes a single sync trigger
type TriggerOptions struct {
	// Async starts the run in the background and returns "started".
	Async bool
	// RegisterWebhook (re)registers the push channel after the run.
	RegisterWebhook bool
	// FallbackToFull runs a full sync when an incremental one has no baseline.
	FallbackToFull bool
}

// SyncService is the entry point for running reconciliation
type SyncService interface {
	// Trigger runs a sync unless one is in progress or the last one was too recent.
	Trigger(ctx context.Context, kind domain.SyncKind, opts TriggerOptions) *domain.SyncTriggerResult

	// Status reports the last sync time, whether one is running and the throttle window.
	Status() domain.SyncStatusReport

	// ListRuns returns the most recent sync run records, newest first.
	ListRuns(ctx context.Context, limit int) ([]*domain.SyncRun, error)
}

// Scheduler runs incremental syncs periodically
type Scheduler interface {
	Start(ctx context.Context) error
	Stop()
}
