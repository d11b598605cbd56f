package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/arturoeanton/aio-tracker/internal/domain"
	"github.com/arturoeanton/aio-tracker/internal/port"
)

const projectColumns = `id, user_id, name, brand_name, brand_domain, keywords, location_code, language_code, schedule_cron, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanProject(row scanner) (domain.Project, error) {
	var p domain.Project
	err := row.Scan(
		&p.ID, &p.UserID, &p.Name, &p.BrandName, &p.BrandDomain,
		pq.Array(&p.Keywords), &p.LocationCode, &p.LanguageCode, &p.ScheduleCron,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if p.Keywords == nil {
		p.Keywords = []string{}
	}
	return p, err
}

// CreateProject inserts a new project.
func (s *PostgresStore) CreateProject(ctx context.Context, p *domain.Project) (*domain.Project, error) {
	query := `INSERT INTO projects (user_id, name, brand_name, brand_domain, keywords, location_code, language_code, schedule_cron)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	          RETURNING ` + projectColumns

	row := s.db.QueryRowContext(ctx, query,
		p.UserID, p.Name, p.BrandName, p.BrandDomain, pq.Array(p.Keywords),
		p.LocationCode, p.LanguageCode, p.ScheduleCron,
	)
	project, err := scanProject(row)
	if err != nil {
		return nil, fmt.Errorf("create project: %w", err)
	}
	return &project, nil
}

// GetProject returns a project by ID.
func (s *PostgresStore) GetProject(ctx context.Context, id string) (*domain.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE id = $1`

	project, err := scanProject(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("get project: %w", notFound(err, port.ErrProjectNotFound))
	}
	return &project, nil
}

// ListProjectsByUser returns all projects of a user, newest first.
func (s *PostgresStore) ListProjectsByUser(ctx context.Context, userID string) ([]domain.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE user_id = $1 ORDER BY created_at DESC`
	return s.listProjects(ctx, query, userID)
}

// ListScheduledProjects returns every project with a cron schedule.
func (s *PostgresStore) ListScheduledProjects(ctx context.Context) ([]domain.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE schedule_cron <> '' ORDER BY created_at`
	return s.listProjects(ctx, query)
}

func (s *PostgresStore) listProjects(ctx context.Context, query string, args ...any) ([]domain.Project, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	projects := []domain.Project{}
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

// UpdateProject replaces the editable fields of a project.
func (s *PostgresStore) UpdateProject(ctx context.Context, p *domain.Project) (*domain.Project, error) {
	query := `UPDATE projects SET
	              name = $2, brand_name = $3, brand_domain = $4, keywords = $5,
	              location_code = $6, language_code = $7, schedule_cron = $8, updated_at = NOW()
	          WHERE id = $1
	          RETURNING ` + projectColumns

	row := s.db.QueryRowContext(ctx, query,
		p.ID, p.Name, p.BrandName, p.BrandDomain, pq.Array(p.Keywords),
		p.LocationCode, p.LanguageCode, p.ScheduleCron,
	)
	project, err := scanProject(row)
	if err != nil {
		return nil, fmt.Errorf("update project: %w", notFound(err, port.ErrProjectNotFound))
	}
	return &project, nil
}

// DeleteProject removes a project with all its sessions.
func (s *PostgresStore) DeleteProject(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM projects WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	return expectAffected(res, port.ErrProjectNotFound)
}

// expectAffected returns sentinel when the statement touched no row.
func expectAffected(res sql.Result, sentinel error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sentinel
	}
	return nil
}
