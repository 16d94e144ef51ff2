package services

import (
	"sync"
	"time"

	"github.com/MediaChallengeInitiative/love-facts-stickers-sub000/internal/core/domain"
)

// SyncGuard serializes sync runs within the process and enforces a minimum
// interval between run starts.
type SyncGuard struct {
	mu          sync.Mutex
	syncing     bool
	lastSync    time.Time
	minInterval time.Duration
	now         func() time.Time
}

// NewSyncGuard creates a guard. A zero minInterval disables throttling.
func NewSyncGuard(minInterval time.Duration) *SyncGuard {
	return &SyncGuard{
		minInterval: minInterval,
		now:         time.Now,
	}
}

// Begin claims the guard. On success it returns a release func and an empty
// status; otherwise the status says why the run may not start and, when
// throttled, how long remains.
func (g *SyncGuard) Begin() (release func(), status domain.TriggerStatus, wait time.Duration) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.syncing {
		return nil, domain.TriggerStatusAlreadySyncing, 0
	}

	now := g.now()
	if !g.lastSync.IsZero() && g.minInterval > 0 {
		if elapsed := now.Sub(g.lastSync); elapsed < g.minInterval {
			return nil, domain.TriggerStatusThrottled, g.minInterval - elapsed
		}
	}

	g.syncing = true
	g.lastSync = now

	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			g.syncing = false
			g.mu.Unlock()
		})
	}, "", 0
}

// Status reports the guard state.
func (g *SyncGuard) Status() domain.SyncStatusReport {
	g.mu.Lock()
	defer g.mu.Unlock()

	report := domain.SyncStatusReport{
		IsSyncing:       g.syncing,
		ThrottleSeconds: int(g.minInterval / time.Second),
	}
	if !g.lastSync.IsZero() {
		last := g.lastSync
		report.LastSync = &last
	}
	return report
}

// waitSeconds rounds a throttle wait up to whole seconds.
func waitSeconds(d time.Duration) int {
	s := int(d / time.Second)
	if d%time.Second != 0 {
		s++
	}
	return s
}
