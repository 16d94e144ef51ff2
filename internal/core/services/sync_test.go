package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MediaChallengeInitiative/love-facts-stickers-sub000/internal/core/domain"
	"github.com/MediaChallengeInitiative/love-facts-stickers-sub000/internal/core/ports/driven/mocks"
	"github.com/MediaChallengeInitiative/love-facts-stickers-sub000/internal/core/ports/driving"
	"github.com/MediaChallengeInitiative/love-facts-stickers-sub000/internal/metrics"
)

type countingInvalidator struct {
	calls atomic.Int32
}

func (c *countingInvalidator) ClearCache() int {
	c.calls.Add(1)
	return 3
}

type stubRegistrar struct {
	err   error
	calls int
}

func (s *stubRegistrar) Register(ctx context.Context) (*domain.WebhookChannel, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &domain.WebhookChannel{ID: "ch-1"}, nil
}

type syncFixture struct {
	*reconcilerFixture
	service *SyncService
	runs    *mocks.MockSyncRunStore
	cache   *countingInvalidator
}

func newSyncFixture(t *testing.T, mutate func(cfg *SyncServiceConfig)) *syncFixture {
	t.Helper()

	rf := newReconcilerFixture(t)
	f := &syncFixture{
		reconcilerFixture: rf,
		runs:              mocks.NewMockSyncRunStore(),
		cache:             &countingInvalidator{},
	}
	cfg := SyncServiceConfig{
		Reconciler:  rf.reconciler,
		Runs:        f.runs,
		MinInterval: -1,
		Cache:       f.cache,
		Metrics:     metrics.MustNewMetrics(prometheus.NewRegistry()),
	}
	if mutate != nil {
		mutate(&cfg)
	}
	f.service = NewSyncService(cfg)
	return f
}

func TestSyncService_FullSync(t *testing.T) {
	f := newSyncFixture(t, nil)
	f.drive.AddImage(testRoot, "f1", "heart.png")

	result := f.service.Trigger(context.Background(), domain.SyncKindFull, driving.TriggerOptions{})
	require.Equal(t, domain.TriggerStatusSynced, result.Status, result.Message)
	assert.Equal(t, domain.SyncKindFull, result.Kind)
	assert.Equal(t, 1, result.ItemsSynced)
	assert.Equal(t, int32(1), f.cache.calls.Load())

	runs, err := f.service.ListRuns(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, domain.SyncStatusCompleted, runs[0].Status)
	assert.Equal(t, 1, runs[0].ItemsSynced)
	assert.NotNil(t, runs[0].CompletedAt)
}

func TestSyncService_NoItemsKeepsCache(t *testing.T) {
	f := newSyncFixture(t, nil)
	require.NoError(t, f.kv.Set(context.Background(), domain.CursorKeyChanges, "start-1"))

	result := f.service.Trigger(context.Background(), domain.SyncKindIncremental, driving.TriggerOptions{})
	require.Equal(t, domain.TriggerStatusSynced, result.Status)
	assert.Zero(t, result.ItemsSynced)
	assert.Zero(t, f.cache.calls.Load())
}

func TestSyncService_Throttled(t *testing.T) {
	f := newSyncFixture(t, func(cfg *SyncServiceConfig) { cfg.MinInterval = time.Minute })

	first := f.service.Trigger(context.Background(), domain.SyncKindFull, driving.TriggerOptions{})
	require.Equal(t, domain.TriggerStatusSynced, first.Status)

	second := f.service.Trigger(context.Background(), domain.SyncKindFull, driving.TriggerOptions{})
	assert.Equal(t, domain.TriggerStatusThrottled, second.Status)
	assert.Greater(t, second.NextSyncIn, 0)
	assert.LessOrEqual(t, second.NextSyncIn, 60)

	runs, err := f.runs.ListRecent(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, runs, 1, "throttled trigger must not record a run")
}

func TestSyncService_AlreadySyncing(t *testing.T) {
	f := newSyncFixture(t, nil)

	release, _, _ := f.service.guard.Begin()
	defer release()

	result := f.service.Trigger(context.Background(), domain.SyncKindFull, driving.TriggerOptions{})
	assert.Equal(t, domain.TriggerStatusAlreadySyncing, result.Status)
	assert.True(t, f.service.Status().IsSyncing)
}

func TestSyncService_NoBaseline(t *testing.T) {
	f := newSyncFixture(t, nil)

	result := f.service.Trigger(context.Background(), domain.SyncKindIncremental, driving.TriggerOptions{})
	assert.Equal(t, domain.TriggerStatusError, result.Status)
	assert.Equal(t, domain.ReasonNoBaseline, result.Reason)

	runs, err := f.runs.ListRecent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, domain.SyncStatusFailed, runs[0].Status)
	assert.Contains(t, runs[0].Errors, "no sync baseline")
}

func TestSyncService_FallbackToFull(t *testing.T) {
	f := newSyncFixture(t, nil)
	f.drive.AddImage(testRoot, "f1", "heart.png")

	result := f.service.Trigger(context.Background(), domain.SyncKindIncremental, driving.TriggerOptions{FallbackToFull: true})
	require.Equal(t, domain.TriggerStatusSynced, result.Status, result.Message)
	assert.Equal(t, domain.SyncKindFull, result.Kind)

	runs, err := f.runs.ListRecent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, domain.SyncKindFull, runs[0].Kind)
}

func TestSyncService_NotConfigured(t *testing.T) {
	f := newSyncFixture(t, func(cfg *SyncServiceConfig) {
		cfg.Reconciler = NewReconciler(ReconcilerConfig{
			Collections: mocks.NewMockCollectionStore(),
			Stickers:    mocks.NewMockStickerStore(),
			KV:          mocks.NewMockKeyValueStore(),
		})
	})

	result := f.service.Trigger(context.Background(), domain.SyncKindFull, driving.TriggerOptions{})
	assert.Equal(t, domain.TriggerStatusError, result.Status)
	assert.Equal(t, domain.ReasonNotConfigured, result.Reason)
}

func TestSyncService_CompletedWithErrors(t *testing.T) {
	f := newSyncFixture(t, nil)
	f.drive.AddFolder(testRoot, "folder-a", "Love Facts")
	f.drive.ListFilesErr["folder-a"] = errors.New("quota exceeded")

	result := f.service.Trigger(context.Background(), domain.SyncKindFull, driving.TriggerOptions{})
	require.Equal(t, domain.TriggerStatusSynced, result.Status)
	require.Len(t, result.Errors, 1)

	runs, err := f.runs.ListRecent(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, domain.SyncStatusCompletedWithErrors, runs[0].Status)
	assert.Contains(t, runs[0].Errors, "quota exceeded")
}

func TestSyncService_DistributedLockBusy(t *testing.T) {
	lock := mocks.NewMockDistributedLock()
	lock.SetLockHeld(syncLockName, time.Minute)
	f := newSyncFixture(t, func(cfg *SyncServiceConfig) { cfg.Lock = lock })

	result := f.service.Trigger(context.Background(), domain.SyncKindFull, driving.TriggerOptions{})
	assert.Equal(t, domain.TriggerStatusAlreadySyncing, result.Status)
	assert.Equal(t, domain.ReasonLockBusy, result.Reason)
	assert.False(t, f.service.Status().IsSyncing, "guard must be released")
}

func TestSyncService_DistributedLockReleased(t *testing.T) {
	lock := mocks.NewMockDistributedLock()
	f := newSyncFixture(t, func(cfg *SyncServiceConfig) { cfg.Lock = lock })

	result := f.service.Trigger(context.Background(), domain.SyncKindFull, driving.TriggerOptions{})
	require.Equal(t, domain.TriggerStatusSynced, result.Status)
	assert.False(t, lock.IsHeld(syncLockName))
	assert.Equal(t, []string{syncLockName}, lock.Released)
}

func TestSyncService_DistributedLockError(t *testing.T) {
	lock := mocks.NewMockDistributedLock()
	lock.AcquireErr = errors.New("redis unavailable")
	f := newSyncFixture(t, func(cfg *SyncServiceConfig) { cfg.Lock = lock })

	result := f.service.Trigger(context.Background(), domain.SyncKindFull, driving.TriggerOptions{})
	assert.Equal(t, domain.TriggerStatusError, result.Status)
	assert.Contains(t, result.Message, "redis unavailable")
	assert.Empty(t, lock.Released)
	assert.False(t, f.service.Status().IsSyncing)
}

// slowDrive delays folder listing so a run outlives several heartbeats.
type slowDrive struct {
	*mocks.MockDriveClient
	delay time.Duration
}

func (d *slowDrive) ListFolders(ctx context.Context, parentID string) ([]domain.DriveFolder, error) {
	select {
	case <-time.After(d.delay):
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return d.MockDriveClient.ListFolders(ctx, parentID)
}

func newSlowLockedSync(t *testing.T, lock *mocks.MockDistributedLock, delay time.Duration) *syncFixture {
	t.Helper()
	return newSyncFixture(t, func(cfg *SyncServiceConfig) {
		rf := newReconcilerFixture(t)
		cfg.Reconciler = NewReconciler(ReconcilerConfig{
			Drive:        &slowDrive{MockDriveClient: rf.drive, delay: delay},
			Collections:  rf.collections,
			Stickers:     rf.stickers,
			KV:           rf.kv,
			RootFolderID: testRoot,
			Retry:        RetryPolicy{MaxAttempts: 1},
			BatchPause:   -1,
		})
		cfg.Lock = lock
		cfg.LockTTL = time.Second
		cfg.Heartbeat = 5 * time.Millisecond
	})
}

func TestSyncService_LockExtendedWhileRunning(t *testing.T) {
	lock := mocks.NewMockDistributedLock()
	f := newSlowLockedSync(t, lock, 60*time.Millisecond)

	result := f.service.Trigger(context.Background(), domain.SyncKindFull, driving.TriggerOptions{})
	require.Equal(t, domain.TriggerStatusSynced, result.Status, result.Message)
	assert.GreaterOrEqual(t, lock.ExtendCount(), 1)

	// No extension after the lock is released.
	n := lock.ExtendCount()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, n, lock.ExtendCount())
	assert.False(t, lock.IsHeld(syncLockName))
}

func TestSyncService_LostLockAbortsRun(t *testing.T) {
	lock := mocks.NewMockDistributedLock()
	lock.ExtendErr = errors.New("lock not held")
	f := newSlowLockedSync(t, lock, 5*time.Second)

	start := time.Now()
	result := f.service.Trigger(context.Background(), domain.SyncKindFull, driving.TriggerOptions{})
	assert.Equal(t, domain.TriggerStatusError, result.Status)
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Equal(t, 1, lock.ExtendCount())
	assert.Equal(t, []string{syncLockName}, lock.Released)
}

func TestSyncService_WebhookRegistrationFailureIsNonFatal(t *testing.T) {
	registrar := &stubRegistrar{err: errors.New("callback not verified")}
	f := newSyncFixture(t, func(cfg *SyncServiceConfig) { cfg.Webhooks = registrar })

	result := f.service.Trigger(context.Background(), domain.SyncKindFull, driving.TriggerOptions{RegisterWebhook: true})
	assert.Equal(t, domain.TriggerStatusSynced, result.Status)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "webhook registration failed")
	assert.Equal(t, 1, registrar.calls)
}

func TestSyncService_WebhookNotRequested(t *testing.T) {
	registrar := &stubRegistrar{}
	f := newSyncFixture(t, func(cfg *SyncServiceConfig) { cfg.Webhooks = registrar })

	f.service.Trigger(context.Background(), domain.SyncKindFull, driving.TriggerOptions{})
	assert.Zero(t, registrar.calls)
}

func TestSyncService_Async(t *testing.T) {
	f := newSyncFixture(t, nil)
	f.drive.AddImage(testRoot, "f1", "heart.png")

	ctx, cancel := context.WithCancel(context.Background())
	result := f.service.Trigger(ctx, domain.SyncKindFull, driving.TriggerOptions{Async: true})
	cancel() // the background run must not depend on the request context
	assert.Equal(t, domain.TriggerStatusStarted, result.Status)

	require.Eventually(t, func() bool {
		runs, err := f.runs.ListRecent(context.Background(), 1)
		return err == nil && len(runs) == 1 && runs[0].Status == domain.SyncStatusCompleted
	}, 2*time.Second, 10*time.Millisecond)

	require.Eventually(t, func() bool { return !f.service.Status().IsSyncing }, time.Second, 5*time.Millisecond)
	f.sticker(t, "f1")
}

func TestSyncService_ListRunsClampsLimit(t *testing.T) {
	f := newSyncFixture(t, nil)
	for i := 0; i < 3; i++ {
		f.service.Trigger(context.Background(), domain.SyncKindFull, driving.TriggerOptions{})
	}

	runs, err := f.service.ListRuns(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, runs, 3)
}
