package port

import (
	"context"
	"time"
)

// AnalyticsCache stores computed analytics for a project. Entries are keyed by
// project so any session change can drop all of a project's results at once.
type AnalyticsCache interface {
	// Get decodes the cached value into dst. Reports false on a miss.
	Get(ctx context.Context, projectID, key string, dst any) (bool, error)
	Set(ctx context.Context, projectID, key string, value any) error
	InvalidateProject(ctx context.Context, projectID string) error
}

// Locker is a best-effort distributed lock.
type Locker interface {
	// TryLock reports whether the lock was acquired. The lock expires after ttl.
	TryLock(ctx context.Context, name string, ttl time.Duration) (bool, error)
	Unlock(ctx context.Context, name string) error
}
