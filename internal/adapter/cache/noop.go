package cache

import (
	"context"
	"time"

	"github.com/arturoeanton/aio-tracker/internal/port"
)

// Noop is used when no Redis is configured: nothing is cached and every lock
// is granted.
type Noop struct{}

var (
	_ port.AnalyticsCache = Noop{}
	_ port.Locker         = Noop{}
)

func (Noop) Get(context.Context, string, string, any) (bool, error) { return false, nil }

func (Noop) Set(context.Context, string, string, any) error { return nil }

func (Noop) InvalidateProject(context.Context, string) error { return nil }

func (Noop) TryLock(context.Context, string, time.Duration) (bool, error) { return true, nil }

func (Noop) Unlock(context.Context, string) error { return nil }
