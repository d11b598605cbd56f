package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/gorhill/cronexpr"

	"github.com/arturoeanton/aio-tracker/internal/domain"
	"github.com/arturoeanton/aio-tracker/internal/metrics"
	"github.com/arturoeanton/aio-tracker/internal/port"
)

const scheduleLockTTL = 30 * time.Minute

// Scheduler fetches projects whose cron schedule is due. A lock per project
// keeps replicas from running the same fetch twice.
type Scheduler struct {
	projects port.ProjectRepository
	sessions port.SessionRepository
	fetch    *FetchService
	locker   port.Locker
	interval time.Duration
	now      func() time.Time
}

// NewScheduler creates a scheduler that checks for due projects every interval.
func NewScheduler(projects port.ProjectRepository, sessions port.SessionRepository, fetch *FetchService, locker port.Locker, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Scheduler{
		projects: projects,
		sessions: sessions,
		fetch:    fetch,
		locker:   locker,
		interval: interval,
		now:      time.Now,
	}
}

// Start runs the schedule loop until ctx is done.
func (s *Scheduler) Start(ctx context.Context) {
	slog.Info("scheduler started", "interval", s.interval)
	ticker := time.NewTicker(s.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				slog.Info("scheduler stopped")
				return
			case <-ticker.C:
				s.Tick(ctx)
			}
		}
	}()
}

// Tick runs every due project once and waits for the runs to finish.
func (s *Scheduler) Tick(ctx context.Context) {
	projects, err := s.projects.ListScheduledProjects(ctx)
	if err != nil {
		slog.Error("failed to list scheduled projects", "error", err)
		return
	}

	var wg sync.WaitGroup
	for i := range projects {
		p := &projects[i]

		last, err := s.lastRun(ctx, p.ID)
		if err != nil {
			slog.Error("failed to read last session", "project_id", p.ID, "error", err)
			continue
		}
		if !IsDue(p.ScheduleCron, last, s.now()) {
			continue
		}

		lockName := "schedule:" + p.ID
		ok, err := s.locker.TryLock(ctx, lockName, scheduleLockTTL)
		if err != nil {
			slog.Error("failed to acquire schedule lock", "project_id", p.ID, "error", err)
			continue
		}
		if !ok {
			metrics.ScheduledRuns.WithLabelValues("locked").Inc()
			continue
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() {
				if err := s.locker.Unlock(context.WithoutCancel(ctx), lockName); err != nil {
					slog.Warn("failed to release schedule lock", "project_id", p.ID, "error", err)
				}
			}()
			s.run(ctx, p)
		}()
	}
	wg.Wait()
}

func (s *Scheduler) run(ctx context.Context, p *domain.Project) {
	sess, err := s.fetch.Run(ctx, p, domain.SessionSourceSchedule, nil)
	if err != nil {
		metrics.ScheduledRuns.WithLabelValues("error").Inc()
		slog.Error("scheduled fetch failed", "project_id", p.ID, "error", err)
		return
	}
	metrics.ScheduledRuns.WithLabelValues("ok").Inc()
	slog.Info("scheduled fetch complete", "project_id", p.ID, "session_id", sess.ID)
}

func (s *Scheduler) lastRun(ctx context.Context, projectID string) (*time.Time, error) {
	latest, err := s.sessions.ListSessions(ctx, projectID, 1)
	if err != nil {
		return nil, err
	}
	if len(latest) == 0 {
		return nil, nil
	}
	return &latest[0].CreatedAt, nil
}

// IsDue reports whether a project with cron spec should run at now given the
// time of its latest session. A project that never ran is due at once. An
// invalid spec is never due.
func IsDue(spec string, last *time.Time, now time.Time) bool {
	expr, err := cronexpr.Parse(spec)
	if err != nil {
		return false
	}
	if last == nil {
		return true
	}
	next := expr.Next(*last)
	return !next.IsZero() && !next.After(now)
}
