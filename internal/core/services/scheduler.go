package services

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/MediaChallengeInitiative/love-facts-stickers-sub000/internal/core/domain"
	"github.com/MediaChallengeInitiative/love-facts-stickers-sub000/internal/core/ports/driving"
)

// Verify interface compliance
var _ driving.Scheduler = (*Scheduler)(nil)

// Scheduler triggers an incremental sync on a fixed interval, falling back
// to a full sync while no baseline exists.
//
// Cross-instance exclusion is handled by the sync service's distributed lock,
// so every instance may run a scheduler.
type Scheduler struct {
	sync   driving.SyncService
	logger *slog.Logger

	// Internal state
	mu         sync.RWMutex
	running    bool
	stopCh     chan struct{}
	doneCh     chan struct{}
	interval   time.Duration
	runOnStart bool
}

// SchedulerConfig holds configuration for the scheduler.
type SchedulerConfig struct {
	Sync       driving.SyncService
	Logger     *slog.Logger
	Interval   time.Duration // How often to sync (default: 5m)
	RunOnStart bool          // Trigger immediately when started
}

// NewScheduler creates a new scheduler.
func NewScheduler(cfg SchedulerConfig) *Scheduler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	interval := cfg.Interval
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	return &Scheduler{
		sync:       cfg.Sync,
		logger:     logger,
		interval:   interval,
		runOnStart: cfg.RunOnStart,
	}
}

// Start begins the scheduler loop.
// It runs until Stop is called or context is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	s.mu.Unlock()

	s.logger.Info("scheduler starting", "interval", s.interval)

	go s.run(ctx)

	return nil
}

// Stop gracefully stops the scheduler.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	close(s.stopCh)
	s.mu.Unlock()

	// Wait for the in-flight sync to finish
	<-s.doneCh

	s.mu.Lock()
	s.running = false
	s.mu.Unlock()

	s.logger.Info("scheduler stopped")
}

// Running reports whether the loop is active.
func (s *Scheduler) Running() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// run is the main scheduler loop.
func (s *Scheduler) run(ctx context.Context) {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	if s.runOnStart {
		s.tick(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler context cancelled")
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// tick runs one scheduled sync.
func (s *Scheduler) tick(ctx context.Context) {
	result := s.sync.Trigger(ctx, domain.SyncKindIncremental, driving.TriggerOptions{FallbackToFull: true})

	switch result.Status {
	case domain.TriggerStatusSynced:
		s.logger.Info("scheduled sync completed",
			"kind", result.Kind,
			"items_synced", result.ItemsSynced,
			"errors", len(result.Errors),
		)
	case domain.TriggerStatusError:
		s.logger.Error("scheduled sync failed", "kind", result.Kind, "reason", result.Reason, "error", result.Message)
	default:
		s.logger.Debug("scheduled sync skipped", "status", result.Status, "message", result.Message)
	}
}
