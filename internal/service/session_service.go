package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/arturoeanton/aio-tracker/internal/citation"
	"github.com/arturoeanton/aio-tracker/internal/domain"
	"github.com/arturoeanton/aio-tracker/internal/ingest"
	"github.com/arturoeanton/aio-tracker/internal/metrics"
	"github.com/arturoeanton/aio-tracker/internal/port"
)

// KeywordDetail is one keyword record with its overview split into segments.
type KeywordDetail struct {
	domain.KeywordRecord
	Segments []citation.Segment `json:"segments"`
}

// SessionService creates and manages check sessions. Every method takes a
// project that the caller already authorized.
type SessionService struct {
	sessions port.SessionRepository
	cache    port.AnalyticsCache
}

// NewSessionService creates a new session service.
func NewSessionService(sessions port.SessionRepository, cache port.AnalyticsCache) *SessionService {
	return &SessionService{sessions: sessions, cache: cache}
}

// Upload parses an uploaded results file and stores it as a new session.
func (s *SessionService) Upload(ctx context.Context, project *domain.Project, data []byte, name string) (*domain.CheckSession, error) {
	rows, format, err := ingest.Parse(data)
	if err != nil {
		return nil, err
	}
	slog.Info("parsed upload", "project_id", project.ID, "format", format, "keywords", len(rows))
	return s.Import(ctx, project, domain.SessionSourceUpload, name, rows, nil)
}

// Import stores rows as a new session of project. createdAt overrides the
// session timestamp when set.
func (s *SessionService) Import(ctx context.Context, project *domain.Project, source, name string, rows []domain.KeywordRow, createdAt *time.Time) (*domain.CheckSession, error) {
	rows = ingest.Dedup(rows)
	if len(rows) == 0 {
		return nil, port.ErrNoKeywords
	}

	sess := &domain.CheckSession{
		ProjectID: project.ID,
		Name:      optionalName(name),
		Source:    source,
	}
	if createdAt != nil {
		sess.CreatedAt = *createdAt
	}

	created, err := s.sessions.CreateSession(ctx, sess, rows)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	metrics.SessionsCreated.WithLabelValues(source).Inc()
	metrics.KeywordsStored.Add(float64(len(rows)))
	s.invalidate(ctx, project.ID)

	slog.Info("session created",
		"project_id", project.ID,
		"session_id", created.ID,
		"source", source,
		"keywords", created.KeywordCount,
		"aio", created.AIOCount,
	)
	return created, nil
}

// List returns the sessions of a project, newest first.
func (s *SessionService) List(ctx context.Context, project *domain.Project, limit int) ([]domain.CheckSession, error) {
	return s.sessions.ListSessions(ctx, project.ID, limit)
}

// Get returns one session of project.
func (s *SessionService) Get(ctx context.Context, project *domain.Project, id string) (*domain.CheckSession, error) {
	sess, err := s.sessions.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess.ProjectID != project.ID {
		return nil, port.ErrSessionNotFound
	}
	return sess, nil
}

// Rename sets or clears the display name of a session.
func (s *SessionService) Rename(ctx context.Context, project *domain.Project, id, name string) (*domain.CheckSession, error) {
	if _, err := s.Get(ctx, project, id); err != nil {
		return nil, err
	}
	if err := s.sessions.RenameSession(ctx, id, optionalName(name)); err != nil {
		return nil, err
	}
	s.invalidate(ctx, project.ID)
	return s.Get(ctx, project, id)
}

// Delete removes a session with its keyword rows.
func (s *SessionService) Delete(ctx context.Context, project *domain.Project, id string) error {
	if _, err := s.Get(ctx, project, id); err != nil {
		return err
	}
	if err := s.sessions.DeleteSession(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, project.ID)
	return nil
}

// DeleteKeyword removes one keyword from a session.
func (s *SessionService) DeleteKeyword(ctx context.Context, project *domain.Project, id, keyword string) error {
	if _, err := s.Get(ctx, project, id); err != nil {
		return err
	}
	if err := s.sessions.DeleteKeywordRow(ctx, id, keyword); err != nil {
		return err
	}
	s.invalidate(ctx, project.ID)
	return nil
}

// Keywords returns the keyword records of a session for the project brand.
func (s *SessionService) Keywords(ctx context.Context, project *domain.Project, id string) ([]domain.KeywordRecord, error) {
	if _, err := s.Get(ctx, project, id); err != nil {
		return nil, err
	}
	rows, err := s.sessions.ListKeywordRows(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list keyword rows: %w", err)
	}
	return citation.BuildRecords(rows, project.Brand()), nil
}

// KeywordDetail returns one keyword record with its parsed overview.
func (s *SessionService) KeywordDetail(ctx context.Context, project *domain.Project, id, keyword string) (*KeywordDetail, error) {
	if _, err := s.Get(ctx, project, id); err != nil {
		return nil, err
	}
	row, err := s.sessions.GetKeywordRow(ctx, id, keyword)
	if err != nil {
		return nil, err
	}

	rec := citation.BuildRecord(*row, project.Brand())
	detail := &KeywordDetail{KeywordRecord: rec, Segments: []citation.Segment{}}
	if rec.AIOMarkdown != nil {
		detail.Segments = citation.Parse(*rec.AIOMarkdown, rec.References)
	}
	return detail, nil
}

func (s *SessionService) invalidate(ctx context.Context, projectID string) {
	if err := s.cache.InvalidateProject(ctx, projectID); err != nil {
		slog.Warn("failed to invalidate analytics cache", "project_id", projectID, "error", err)
	}
}

func optionalName(name string) *string {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil
	}
	return &name
}
