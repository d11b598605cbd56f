package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/gorhill/cronexpr"

	"github.com/arturoeanton/aio-tracker/internal/citation"
	"github.com/arturoeanton/aio-tracker/internal/domain"
	"github.com/arturoeanton/aio-tracker/internal/port"
)

// ProjectInput holds the editable fields of a project.
type ProjectInput struct {
	Name         string   `json:"name"`
	BrandName    string   `json:"brand_name"`
	BrandDomain  string   `json:"brand_domain"`
	Keywords     []string `json:"keywords"`
	LocationCode int      `json:"location_code"`
	LanguageCode string   `json:"language_code"`
	ScheduleCron string   `json:"schedule_cron"`
}

// ProjectDefaults fill location and language when the input omits them.
type ProjectDefaults struct {
	LocationCode int
	LanguageCode string
}

// ProjectService manages projects and enforces ownership.
type ProjectService struct {
	projects port.ProjectRepository
	cache    port.AnalyticsCache
	defaults ProjectDefaults
}

// NewProjectService creates a new project service.
func NewProjectService(projects port.ProjectRepository, cache port.AnalyticsCache, defaults ProjectDefaults) *ProjectService {
	return &ProjectService{projects: projects, cache: cache, defaults: defaults}
}

// Create validates the input and stores a new project for userID.
func (s *ProjectService) Create(ctx context.Context, userID string, in ProjectInput) (*domain.Project, error) {
	p, err := s.build(in)
	if err != nil {
		return nil, err
	}
	p.UserID = userID

	created, err := s.projects.CreateProject(ctx, p)
	if err != nil {
		return nil, err
	}
	slog.Info("project created", "project_id", created.ID, "keywords", len(created.Keywords))
	return created, nil
}

// Get returns a project owned by userID. Projects of other users are
// reported as not found.
func (s *ProjectService) Get(ctx context.Context, userID, id string) (*domain.Project, error) {
	p, err := s.projects.GetProject(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.UserID != userID {
		return nil, port.ErrProjectNotFound
	}
	return p, nil
}

// Lookup returns a project without an ownership check, for internal callers.
func (s *ProjectService) Lookup(ctx context.Context, id string) (*domain.Project, error) {
	return s.projects.GetProject(ctx, id)
}

// List returns the projects of userID.
func (s *ProjectService) List(ctx context.Context, userID string) ([]domain.Project, error) {
	return s.projects.ListProjectsByUser(ctx, userID)
}

// Update replaces the editable fields. Cached analytics of the project are
// dropped since they depend on the brand.
func (s *ProjectService) Update(ctx context.Context, userID, id string, in ProjectInput) (*domain.Project, error) {
	if _, err := s.Get(ctx, userID, id); err != nil {
		return nil, err
	}
	p, err := s.build(in)
	if err != nil {
		return nil, err
	}
	p.ID = id
	p.UserID = userID

	updated, err := s.projects.UpdateProject(ctx, p)
	if err != nil {
		return nil, err
	}
	if err := s.cache.InvalidateProject(ctx, id); err != nil {
		slog.Warn("failed to invalidate analytics cache", "project_id", id, "error", err)
	}
	return updated, nil
}

// Delete removes a project with all its sessions.
func (s *ProjectService) Delete(ctx context.Context, userID, id string) error {
	if _, err := s.Get(ctx, userID, id); err != nil {
		return err
	}
	if err := s.projects.DeleteProject(ctx, id); err != nil {
		return err
	}
	if err := s.cache.InvalidateProject(ctx, id); err != nil {
		slog.Warn("failed to invalidate analytics cache", "project_id", id, "error", err)
	}
	return nil
}

func (s *ProjectService) build(in ProjectInput) (*domain.Project, error) {
	p := &domain.Project{
		Name:         strings.TrimSpace(in.Name),
		BrandName:    strings.TrimSpace(in.BrandName),
		BrandDomain:  citation.NormalizeDomain(in.BrandDomain),
		Keywords:     CleanKeywords(in.Keywords),
		LocationCode: in.LocationCode,
		LanguageCode: strings.TrimSpace(in.LanguageCode),
		ScheduleCron: strings.TrimSpace(in.ScheduleCron),
	}
	if p.Name == "" {
		return nil, fmt.Errorf("%w: name is required", port.ErrInvalidInput)
	}
	if p.LocationCode == 0 {
		p.LocationCode = s.defaults.LocationCode
	}
	if p.LanguageCode == "" {
		p.LanguageCode = s.defaults.LanguageCode
	}
	if p.ScheduleCron != "" {
		if _, err := cronexpr.Parse(p.ScheduleCron); err != nil {
			return nil, fmt.Errorf("%w: schedule_cron: %v", port.ErrInvalidInput, err)
		}
	}
	return p, nil
}

// CleanKeywords trims keywords and drops blanks and duplicates, keeping the
// first occurrence.
func CleanKeywords(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, k := range in {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}
