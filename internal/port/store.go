package port

import (
	"context"

	"github.com/arturoeanton/aio-tracker/internal/domain"
)

// UserRepository persists dashboard users.
type UserRepository interface {
	// CreateUser inserts a user. Returns ErrEmailTaken when the email exists.
	CreateUser(ctx context.Context, u *domain.User) (*domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	GetUserByID(ctx context.Context, id string) (*domain.User, error)
}

// ProjectRepository persists projects and their brand/keyword settings.
type ProjectRepository interface {
	CreateProject(ctx context.Context, p *domain.Project) (*domain.Project, error)
	GetProject(ctx context.Context, id string) (*domain.Project, error)
	ListProjectsByUser(ctx context.Context, userID string) ([]domain.Project, error)

	// ListScheduledProjects returns every project with a non-empty cron schedule.
	ListScheduledProjects(ctx context.Context) ([]domain.Project, error)

	UpdateProject(ctx context.Context, p *domain.Project) (*domain.Project, error)
	DeleteProject(ctx context.Context, id string) error
}

// SessionRepository persists check sessions and their keyword rows.
type SessionRepository interface {
	// CreateSession inserts the session and all rows atomically. Counts on the
	// returned session reflect the stored rows.
	CreateSession(ctx context.Context, s *domain.CheckSession, rows []domain.KeywordRow) (*domain.CheckSession, error)
	GetSession(ctx context.Context, id string) (*domain.CheckSession, error)

	// ListSessions returns a project's sessions newest first. limit <= 0 returns all.
	ListSessions(ctx context.Context, projectID string, limit int) ([]domain.CheckSession, error)

	RenameSession(ctx context.Context, id string, name *string) error
	DeleteSession(ctx context.Context, id string) error

	// ListKeywordRows returns the rows of a session in insertion order.
	ListKeywordRows(ctx context.Context, sessionID string) ([]domain.KeywordRow, error)
	GetKeywordRow(ctx context.Context, sessionID, keyword string) (*domain.KeywordRow, error)

	// DeleteKeywordRow removes one row and refreshes the session counts.
	DeleteKeywordRow(ctx context.Context, sessionID, keyword string) error
}

// AuditRepository persists and lists audit records.
type AuditRepository interface {
	WriteAudit(userID, action, resource, resourceID, details, ip, userAgent string) error
	ListAuditLogs(ctx context.Context, limit int, action string) ([]domain.AuditLog, error)
}
