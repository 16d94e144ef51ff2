package driven

import (
	"context"
	"time"
)

// DistributedLock provides cross-instance mutual exclusion for sync runs.
// The in-process SyncGuard only protects one process; a lock is needed when
// several instances share the same database and change-feed cursor.
type DistributedLock interface {
	// Acquire attempts to acquire a named lock with the given TTL.
	// Returns false without error when another instance holds it.
	Acquire(ctx context.Context, name string, ttl time.Duration) (acquired bool, err error)

	// Release releases a named lock held by this instance.
	// Safe to call when the lock has already expired.
	Release(ctx context.Context, name string) error

	// Extend extends the TTL of a held lock.
	// Not all backends support TTLs (PostgreSQL advisory locks do not).
	Extend(ctx context.Context, name string, ttl time.Duration) error

	// Ping checks if the lock backend is healthy.
	Ping(ctx context.Context) error
}
