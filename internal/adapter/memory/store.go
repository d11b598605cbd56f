// Package memory keeps users, projects and sessions in process memory. It
// backs the server when no database is configured and is lost on exit.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/arturoeanton/aio-tracker/internal/domain"
	"github.com/arturoeanton/aio-tracker/internal/port"
)

const maxAuditLogs = 10000

var (
	_ port.UserRepository    = (*Store)(nil)
	_ port.ProjectRepository = (*Store)(nil)
	_ port.SessionRepository = (*Store)(nil)
	_ port.AuditRepository   = (*Store)(nil)
)

type storedSession struct {
	session domain.CheckSession
	seq     int
	rows    []domain.KeywordRow
}

// Store is an in-memory implementation of all repositories.
type Store struct {
	mu       sync.RWMutex
	now      func() time.Time
	seq      int
	users    map[string]*domain.User
	projects map[string]*domain.Project
	sessions map[string]*storedSession
	audits   []domain.AuditLog
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		now:      time.Now,
		users:    make(map[string]*domain.User),
		projects: make(map[string]*domain.Project),
		sessions: make(map[string]*storedSession),
	}
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

// ── Users ─────────────────────────────────────────────────────────────────

func (s *Store) CreateUser(_ context.Context, u *domain.User) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.Email == u.Email {
			return nil, port.ErrEmailTaken
		}
	}
	cp := *u
	cp.ID = uuid.NewString()
	if cp.Role == "" {
		cp.Role = "user"
	}
	cp.CreatedAt = s.now()
	cp.UpdatedAt = cp.CreatedAt
	s.users[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, port.ErrUserNotFound
}

func (s *Store) GetUserByID(_ context.Context, id string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, port.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

// ── Projects ──────────────────────────────────────────────────────────────

func (s *Store) CreateProject(_ context.Context, p *domain.Project) (*domain.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := cloneProject(p)
	cp.ID = uuid.NewString()
	cp.CreatedAt = s.now()
	cp.UpdatedAt = cp.CreatedAt
	s.projects[cp.ID] = cp
	return cloneProject(cp), nil
}

func (s *Store) GetProject(_ context.Context, id string) (*domain.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.projects[id]
	if !ok {
		return nil, port.ErrProjectNotFound
	}
	return cloneProject(p), nil
}

func (s *Store) ListProjectsByUser(_ context.Context, userID string) ([]domain.Project, error) {
	return s.listProjects(func(p *domain.Project) bool { return p.UserID == userID }), nil
}

func (s *Store) ListScheduledProjects(context.Context) ([]domain.Project, error) {
	return s.listProjects(func(p *domain.Project) bool { return p.ScheduleCron != "" }), nil
}

func (s *Store) listProjects(keep func(*domain.Project) bool) []domain.Project {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []domain.Project{}
	for _, p := range s.projects {
		if keep(p) {
			out = append(out, *cloneProject(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (s *Store) UpdateProject(_ context.Context, p *domain.Project) (*domain.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.projects[p.ID]
	if !ok {
		return nil, port.ErrProjectNotFound
	}
	cp := cloneProject(p)
	cp.CreatedAt = existing.CreatedAt
	cp.UpdatedAt = s.now()
	s.projects[cp.ID] = cp
	return cloneProject(cp), nil
}

// DeleteProject removes the project with its sessions.
func (s *Store) DeleteProject(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.projects[id]; !ok {
		return port.ErrProjectNotFound
	}
	delete(s.projects, id)
	for sid, ss := range s.sessions {
		if ss.session.ProjectID == id {
			delete(s.sessions, sid)
		}
	}
	return nil
}

func cloneProject(p *domain.Project) *domain.Project {
	cp := *p
	cp.Keywords = append([]string{}, p.Keywords...)
	return &cp
}

// ── Sessions ──────────────────────────────────────────────────────────────

func (s *Store) CreateSession(_ context.Context, sess *domain.CheckSession, rows []domain.KeywordRow) (*domain.CheckSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.projects[sess.ProjectID]; !ok {
		return nil, port.ErrProjectNotFound
	}
	s.seq++
	ss := &storedSession{session: *sess, seq: s.seq, rows: append([]domain.KeywordRow{}, rows...)}
	ss.session.ID = uuid.NewString()
	if ss.session.CreatedAt.IsZero() {
		ss.session.CreatedAt = s.now()
	}
	ss.refreshCounts()
	s.sessions[ss.session.ID] = ss
	out := ss.session
	return &out, nil
}

func (ss *storedSession) refreshCounts() {
	ss.session.KeywordCount = len(ss.rows)
	ss.session.AIOCount = 0
	for _, r := range ss.rows {
		if r.HasAIOverview {
			ss.session.AIOCount++
		}
	}
}

func (s *Store) GetSession(_ context.Context, id string) (*domain.CheckSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ss, ok := s.sessions[id]
	if !ok {
		return nil, port.ErrSessionNotFound
	}
	out := ss.session
	return &out, nil
}

// ListSessions returns sessions newest first. Sessions with the same
// timestamp are ordered by insertion, latest first.
func (s *Store) ListSessions(_ context.Context, projectID string, limit int) ([]domain.CheckSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var matched []*storedSession
	for _, ss := range s.sessions {
		if ss.session.ProjectID == projectID {
			matched = append(matched, ss)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if !a.session.CreatedAt.Equal(b.session.CreatedAt) {
			return a.session.CreatedAt.After(b.session.CreatedAt)
		}
		return a.seq > b.seq
	})
	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}
	out := make([]domain.CheckSession, len(matched))
	for i, ss := range matched {
		out[i] = ss.session
	}
	return out, nil
}

func (s *Store) RenameSession(_ context.Context, id string, name *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ss, ok := s.sessions[id]
	if !ok {
		return port.ErrSessionNotFound
	}
	ss.session.Name = name
	return nil
}

func (s *Store) DeleteSession(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return port.ErrSessionNotFound
	}
	delete(s.sessions, id)
	return nil
}

func (s *Store) ListKeywordRows(_ context.Context, sessionID string) ([]domain.KeywordRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ss, ok := s.sessions[sessionID]
	if !ok {
		return []domain.KeywordRow{}, nil
	}
	return append([]domain.KeywordRow{}, ss.rows...), nil
}

func (s *Store) GetKeywordRow(_ context.Context, sessionID, keyword string) (*domain.KeywordRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if ss, ok := s.sessions[sessionID]; ok {
		for _, r := range ss.rows {
			if r.Keyword == keyword {
				cp := r
				return &cp, nil
			}
		}
	}
	return nil, port.ErrKeywordNotFound
}

func (s *Store) DeleteKeywordRow(_ context.Context, sessionID, keyword string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ss, ok := s.sessions[sessionID]
	if !ok {
		return port.ErrKeywordNotFound
	}
	for i, r := range ss.rows {
		if r.Keyword == keyword {
			ss.rows = append(ss.rows[:i:i], ss.rows[i+1:]...)
			ss.refreshCounts()
			return nil
		}
	}
	return port.ErrKeywordNotFound
}

// ── Audit ─────────────────────────────────────────────────────────────────

// WriteAudit keeps the latest audit records, dropping the oldest beyond a
// fixed cap.
func (s *Store) WriteAudit(userID, action, resource, resourceID, details, ip, userAgent string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if details == "" {
		details = "{}"
	}
	s.audits = append(s.audits, domain.AuditLog{
		ID:         uuid.NewString(),
		UserID:     userID,
		Action:     action,
		Resource:   resource,
		ResourceID: resourceID,
		Details:    details,
		IP:         ip,
		UserAgent:  userAgent,
		CreatedAt:  s.now(),
	})
	if len(s.audits) > maxAuditLogs {
		s.audits = s.audits[len(s.audits)-maxAuditLogs:]
	}
	return nil
}

// ListAuditLogs returns the newest audit records first. limit <= 0 returns
// all of them.
func (s *Store) ListAuditLogs(_ context.Context, limit int, action string) ([]domain.AuditLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []domain.AuditLog{}
	for i := len(s.audits) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		if action == "" || s.audits[i].Action == action {
			out = append(out, s.audits[i])
		}
	}
	return out, nil
}
