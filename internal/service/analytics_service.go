package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/arturoeanton/aio-tracker/internal/analytics"
	"github.com/arturoeanton/aio-tracker/internal/citation"
	"github.com/arturoeanton/aio-tracker/internal/domain"
	"github.com/arturoeanton/aio-tracker/internal/metrics"
	"github.com/arturoeanton/aio-tracker/internal/port"
)

const defaultTrendWindow = 10

// ChangeReport is the diff between two sessions of a project.
type ChangeReport struct {
	Older   domain.CheckSession       `json:"older"`
	Newer   domain.CheckSession       `json:"newer"`
	Changes []domain.SessionChange    `json:"changes"`
	Counts  map[domain.ChangeType]int `json:"counts"`
}

// Overview is the dashboard headline for a project.
type Overview struct {
	Latest   *analytics.SessionSummary `json:"latest"`
	Previous *analytics.SessionSummary `json:"previous"`
	Changes  map[domain.ChangeType]int `json:"changes"`
}

// AnalyticsService computes competitor, change and trend reports over stored
// sessions. Results are cached per project.
type AnalyticsService struct {
	sessions    port.SessionRepository
	cache       port.AnalyticsCache
	concurrency int
}

// NewAnalyticsService creates a new analytics service. concurrency bounds the
// parallel session loads of trend windows.
func NewAnalyticsService(sessions port.SessionRepository, cache port.AnalyticsCache, concurrency int) *AnalyticsService {
	if concurrency <= 0 {
		concurrency = 4
	}
	return &AnalyticsService{sessions: sessions, cache: cache, concurrency: concurrency}
}

// Records loads a session of project and builds its keyword records.
func (s *AnalyticsService) Records(ctx context.Context, project *domain.Project, sessionID string) (*domain.CheckSession, []domain.KeywordRecord, error) {
	sess, err := s.session(ctx, project, sessionID)
	if err != nil {
		return nil, nil, err
	}
	rows, err := s.sessions.ListKeywordRows(ctx, sess.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("list keyword rows: %w", err)
	}
	return sess, citation.BuildRecords(rows, project.Brand()), nil
}

// Competitors ranks the sources cited in a session and flags the brand.
func (s *AnalyticsService) Competitors(ctx context.Context, project *domain.Project, sessionID string) (*analytics.CompetitorReport, error) {
	key := cacheKey(project, "competitors", sessionID)
	var report analytics.CompetitorReport
	if s.cached(ctx, project.ID, key, &report) {
		return &report, nil
	}

	_, records, err := s.Records(ctx, project, sessionID)
	if err != nil {
		return nil, err
	}
	report = analytics.AggregateCompetitors(records)
	analytics.FlagBrand(report.Competitors, project.Brand())

	s.store(ctx, project.ID, key, report)
	return &report, nil
}

// Changes diffs two sessions of project. With empty IDs the two latest
// sessions are compared. The arguments may be passed in any order.
func (s *AnalyticsService) Changes(ctx context.Context, project *domain.Project, sessionA, sessionB string) (*ChangeReport, error) {
	if sessionA == "" || sessionB == "" {
		latest, err := s.sessions.ListSessions(ctx, project.ID, 2)
		if err != nil {
			return nil, fmt.Errorf("list sessions: %w", err)
		}
		if len(latest) < 2 {
			return nil, port.ErrNotEnoughSessions
		}
		sessionA, sessionB = latest[1].ID, latest[0].ID
	}
	if sessionA == sessionB {
		return nil, fmt.Errorf("%w: sessions must differ", port.ErrInvalidInput)
	}

	key := cacheKey(project, "changes", sessionA, sessionB)
	var report ChangeReport
	if s.cached(ctx, project.ID, key, &report) {
		return &report, nil
	}

	sessA, recsA, err := s.Records(ctx, project, sessionA)
	if err != nil {
		return nil, err
	}
	sessB, recsB, err := s.Records(ctx, project, sessionB)
	if err != nil {
		return nil, err
	}

	older, newer := analytics.OrderSessions(*sessA, *sessB)
	olderRecs, newerRecs := recsA, recsB
	if older.ID != sessA.ID {
		olderRecs, newerRecs = recsB, recsA
	}

	changes := analytics.DiffSessions(olderRecs, newerRecs)
	report = ChangeReport{
		Older:   older,
		Newer:   newer,
		Changes: changes,
		Counts:  analytics.SummarizeChanges(changes),
	}

	s.store(ctx, project.ID, key, report)
	return &report, nil
}

// TopChanges returns the most significant changes between two sessions.
func (s *AnalyticsService) TopChanges(ctx context.Context, project *domain.Project, sessionA, sessionB string, limit int) ([]domain.SessionChange, error) {
	report, err := s.Changes(ctx, project, sessionA, sessionB)
	if err != nil {
		return nil, err
	}
	return analytics.TopChanges(report.Changes, limit), nil
}

// Trends summarizes the latest window sessions of project and the rank
// history of the current session's keywords. An empty currentID selects the
// latest session.
func (s *AnalyticsService) Trends(ctx context.Context, project *domain.Project, window int, currentID string) (*analytics.Trend, error) {
	if window <= 0 {
		window = defaultTrendWindow
	}

	key := cacheKey(project, "trends", fmt.Sprint(window), currentID)
	var trend analytics.Trend
	if s.cached(ctx, project.ID, key, &trend) {
		return &trend, nil
	}

	snapshots, err := s.window(ctx, project, window)
	if err != nil {
		return nil, err
	}
	if currentID == "" && len(snapshots) > 0 {
		currentID = snapshots[0].Session.ID
	}

	trend = analytics.BuildTrend(snapshots, currentID)
	s.store(ctx, project.ID, key, trend)
	return &trend, nil
}

// Overview returns the summaries of the two latest sessions and the change
// counts between them.
func (s *AnalyticsService) Overview(ctx context.Context, project *domain.Project) (*Overview, error) {
	snapshots, err := s.window(ctx, project, 2)
	if err != nil {
		return nil, err
	}

	out := &Overview{Changes: map[domain.ChangeType]int{}}
	if len(snapshots) > 0 {
		latest := analytics.SummarizeSession(snapshots[0])
		out.Latest = &latest
	}
	if len(snapshots) > 1 {
		prev := analytics.SummarizeSession(snapshots[1])
		out.Previous = &prev
		out.Changes = analytics.SummarizeChanges(analytics.DiffSessions(snapshots[1].Records, snapshots[0].Records))
	}
	return out, nil
}

// window loads the latest n sessions of project with their records, newest
// first.
func (s *AnalyticsService) window(ctx context.Context, project *domain.Project, n int) ([]analytics.SessionSnapshot, error) {
	sessions, err := s.sessions.ListSessions(ctx, project.ID, n)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	snapshots := make([]analytics.SessionSnapshot, len(sessions))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, sess := range sessions {
		g.Go(func() error {
			rows, err := s.sessions.ListKeywordRows(gctx, sess.ID)
			if err != nil {
				return fmt.Errorf("list keyword rows of %s: %w", sess.ID, err)
			}
			snapshots[i] = analytics.SessionSnapshot{
				Session: sess,
				Records: citation.BuildRecords(rows, project.Brand()),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return snapshots, nil
}

func (s *AnalyticsService) session(ctx context.Context, project *domain.Project, id string) (*domain.CheckSession, error) {
	sess, err := s.sessions.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess.ProjectID != project.ID {
		return nil, port.ErrSessionNotFound
	}
	return sess, nil
}

func (s *AnalyticsService) cached(ctx context.Context, projectID, key string, dst any) bool {
	ok, err := s.cache.Get(ctx, projectID, key, dst)
	if err != nil {
		slog.Warn("analytics cache read failed", "project_id", projectID, "key", key, "error", err)
		metrics.CacheLookups.WithLabelValues("error").Inc()
		return false
	}
	if ok {
		metrics.CacheLookups.WithLabelValues("hit").Inc()
	} else {
		metrics.CacheLookups.WithLabelValues("miss").Inc()
	}
	return ok
}

func (s *AnalyticsService) store(ctx context.Context, projectID, key string, value any) {
	if err := s.cache.Set(ctx, projectID, key, value); err != nil {
		slog.Warn("analytics cache write failed", "project_id", projectID, "key", key, "error", err)
	}
}

// cacheKey includes a hash of the brand so a brand edit never serves stale
// ranks even before the invalidation lands.
func cacheKey(project *domain.Project, kind string, parts ...string) string {
	sum := sha256.Sum256([]byte(project.BrandName + "\x00" + project.BrandDomain))
	return kind + ":" + strings.Join(parts, ":") + ":" + hex.EncodeToString(sum[:8])
}
