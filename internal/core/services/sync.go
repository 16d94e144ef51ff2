package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/MediaChallengeInitiative/love-facts-stickers-sub000/internal/core/domain"
	"github.com/MediaChallengeInitiative/love-facts-stickers-sub000/internal/core/ports/driven"
	"github.com/MediaChallengeInitiative/love-facts-stickers-sub000/internal/core/ports/driving"
	"github.com/MediaChallengeInitiative/love-facts-stickers-sub000/internal/metrics"
)

// Verify interface compliance
var _ driving.SyncService = (*SyncService)(nil)

// syncLockName is the distributed lock guarding sync runs across instances.
const syncLockName = "drive-sync"

// CacheInvalidator drops cached derived data after content changes.
type CacheInvalidator interface {
	ClearCache() int
}

// WebhookRegistrar creates Drive push channels.
type WebhookRegistrar interface {
	Register(ctx context.Context) (*domain.WebhookChannel, error)
}

// SyncService runs reconciliation behind the sync guard, records every run
// and invalidates the image cache when content changed.
type SyncService struct {
	reconciler *Reconciler
	runs       driven.SyncRunStore
	guard      *SyncGuard
	lock       driven.DistributedLock
	lockTTL    time.Duration
	heartbeat  time.Duration
	cache      CacheInvalidator
	webhooks   WebhookRegistrar
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

// SyncServiceConfig holds dependencies for SyncService.
type SyncServiceConfig struct {
	Reconciler  *Reconciler
	Runs        driven.SyncRunStore
	MinInterval time.Duration          // minimum time between run starts (default: 30s)
	Lock        driven.DistributedLock // Optional: cross-instance exclusion
	LockTTL     time.Duration          // default: 15m
	Heartbeat   time.Duration          // lock extension interval (default: LockTTL/3)
	Cache       CacheInvalidator       // Optional
	Webhooks    WebhookRegistrar       // Optional
	Metrics     *metrics.Metrics       // Optional
	Logger      *slog.Logger
}

// NewSyncService creates a new SyncService.
func NewSyncService(cfg SyncServiceConfig) *SyncService {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	minInterval := cfg.MinInterval
	if minInterval == 0 {
		minInterval = 30 * time.Second
	} else if minInterval < 0 {
		minInterval = 0
	}

	lockTTL := cfg.LockTTL
	if lockTTL == 0 {
		lockTTL = 15 * time.Minute
	}
	heartbeat := cfg.Heartbeat
	if heartbeat <= 0 {
		heartbeat = lockTTL / 3
	}

	return &SyncService{
		reconciler: cfg.Reconciler,
		runs:       cfg.Runs,
		guard:      NewSyncGuard(minInterval),
		lock:       cfg.Lock,
		lockTTL:    lockTTL,
		heartbeat:  heartbeat,
		cache:      cfg.Cache,
		webhooks:   cfg.Webhooks,
		metrics:    cfg.Metrics,
		logger:     logger,
	}
}

// Trigger runs a sync of the given kind.
func (s *SyncService) Trigger(ctx context.Context, kind domain.SyncKind, opts driving.TriggerOptions) *domain.SyncTriggerResult {
	release, status, wait := s.guard.Begin()
	switch status {
	case domain.TriggerStatusAlreadySyncing:
		s.metrics.IncSyncSkipped("already_syncing")
		return &domain.SyncTriggerResult{
			Status:  status,
			Kind:    kind,
			Message: "a sync is already running",
		}
	case domain.TriggerStatusThrottled:
		s.metrics.IncSyncSkipped("throttled")
		secs := waitSeconds(wait)
		return &domain.SyncTriggerResult{
			Status:     status,
			Kind:       kind,
			NextSyncIn: secs,
			Message:    fmt.Sprintf("last sync was too recent, retry in %ds", secs),
		}
	}

	if opts.Async {
		go func() {
			defer release()
			bg := context.WithoutCancel(ctx)
			res := s.run(bg, kind, opts)
			s.logger.Info("background sync finished",
				"kind", kind,
				"status", res.Status,
				"items_synced", res.ItemsSynced,
			)
		}()
		return &domain.SyncTriggerResult{
			Status:  domain.TriggerStatusStarted,
			Kind:    kind,
			Message: "sync started",
		}
	}

	defer release()
	return s.run(ctx, kind, opts)
}

// keepLockAlive extends the sync lock every heartbeat until stop is called.
// A failed extension cancels the returned context so the run does not
// continue without exclusion.
func (s *SyncService) keepLockAlive(ctx context.Context) (context.Context, func()) {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	stopped := make(chan struct{})

	go func() {
		defer close(stopped)
		ticker := time.NewTicker(s.heartbeat)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := s.lock.Extend(ctx, syncLockName, s.lockTTL); err != nil {
					s.logger.Error("failed to extend sync lock, aborting run", "error", err)
					cancel()
					return
				}
			}
		}
	}()

	return ctx, func() {
		close(done)
		<-stopped
		cancel()
	}
}

// run executes one sync while holding the guard.
func (s *SyncService) run(ctx context.Context, kind domain.SyncKind, opts driving.TriggerOptions) *domain.SyncTriggerResult {
	if s.lock != nil {
		acquired, err := s.lock.Acquire(ctx, syncLockName, s.lockTTL)
		if err != nil {
			s.logger.Error("failed to acquire sync lock", "error", err)
			return &domain.SyncTriggerResult{
				Status:  domain.TriggerStatusError,
				Kind:    kind,
				Message: fmt.Sprintf("acquire sync lock: %v", err),
			}
		}
		if !acquired {
			s.metrics.IncSyncSkipped("lock_busy")
			return &domain.SyncTriggerResult{
				Status:  domain.TriggerStatusAlreadySyncing,
				Kind:    kind,
				Message: "a sync is running on another instance",
				Reason:  domain.ReasonLockBusy,
			}
		}
		releaseCtx := context.WithoutCancel(ctx)
		defer func() {
			if err := s.lock.Release(releaseCtx, syncLockName); err != nil {
				s.logger.Warn("failed to release sync lock", "error", err)
			}
		}()

		var stop func()
		ctx, stop = s.keepLockAlive(ctx)
		defer stop()
	}

	run := &domain.SyncRun{
		ID:        domain.GenerateID(),
		Kind:      kind,
		Status:    domain.SyncStatusStarted,
		StartedAt: time.Now(),
	}
	if err := s.runs.Create(ctx, run); err != nil {
		s.logger.Warn("failed to record sync run", "run_id", run.ID, "error", err)
	}

	result, err := s.execute(ctx, kind, opts)
	kind = result.Kind
	run.Kind = kind

	run.Finish(result, err)
	if ferr := s.runs.Finish(context.WithoutCancel(ctx), run); ferr != nil {
		s.logger.Warn("failed to finalize sync run", "run_id", run.ID, "error", ferr)
	}
	s.metrics.ObserveSync(string(kind), string(run.Status), result.ItemsSynced, time.Since(run.StartedAt))

	if err != nil {
		s.logger.Error("sync failed", "run_id", run.ID, "kind", kind, "error", err)
		return &domain.SyncTriggerResult{
			Status:      domain.TriggerStatusError,
			Kind:        kind,
			ItemsSynced: result.ItemsSynced,
			Errors:      result.Errors,
			Message:     err.Error(),
			Reason:      failureReason(err),
		}
	}

	if result.ItemsSynced > 0 && s.cache != nil {
		n := s.cache.ClearCache()
		s.logger.Info("image cache invalidated after sync", "entries_removed", n)
	}

	errs := result.Errors
	if opts.RegisterWebhook && s.webhooks != nil {
		if _, werr := s.webhooks.Register(ctx); werr != nil {
			s.logger.Warn("webhook registration failed", "error", werr)
			errs = append(errs, fmt.Sprintf("webhook registration failed: %v", werr))
		}
	}

	return &domain.SyncTriggerResult{
		Status:      domain.TriggerStatusSynced,
		Kind:        kind,
		ItemsSynced: result.ItemsSynced,
		Errors:      errs,
	}
}

// execute dispatches to the reconciler, falling back to a full sync when
// requested and no baseline exists.
func (s *SyncService) execute(ctx context.Context, kind domain.SyncKind, opts driving.TriggerOptions) (*domain.SyncResult, error) {
	var (
		result *domain.SyncResult
		err    error
	)
	if kind == domain.SyncKindIncremental {
		result, err = s.reconciler.IncrementalSync(ctx)
		if !errors.Is(err, domain.ErrNoBaseline) || !opts.FallbackToFull {
			return orEmpty(result, kind), err
		}
		s.logger.Info("no sync baseline, running full sync instead")
	}
	result, err = s.reconciler.FullSync(ctx)
	return orEmpty(result, domain.SyncKindFull), err
}

func orEmpty(result *domain.SyncResult, kind domain.SyncKind) *domain.SyncResult {
	if result == nil {
		return &domain.SyncResult{Kind: kind}
	}
	return result
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrNoBaseline):
		return domain.ReasonNoBaseline
	case errors.Is(err, domain.ErrNotConfigured):
		return domain.ReasonNotConfigured
	default:
		return ""
	}
}

// Status reports the guard state.
func (s *SyncService) Status() domain.SyncStatusReport {
	return s.guard.Status()
}

// ListRuns returns recent sync runs, newest first.
func (s *SyncService) ListRuns(ctx context.Context, limit int) ([]*domain.SyncRun, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.runs.ListRecent(ctx, limit)
}
