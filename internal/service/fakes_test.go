package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/arturoeanton/aio-tracker/internal/domain"
	"github.com/arturoeanton/aio-tracker/internal/port"
)

// memStore is an in-memory implementation of the repositories.
type memStore struct {
	mu       sync.Mutex
	seq      int
	clock    time.Time
	users    map[string]*domain.User
	projects map[string]*domain.Project
	sessions map[string]*domain.CheckSession
	rows     map[string][]domain.KeywordRow
}

func newMemStore() *memStore {
	return &memStore{
		clock:    time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		users:    map[string]*domain.User{},
		projects: map[string]*domain.Project{},
		sessions: map[string]*domain.CheckSession{},
		rows:     map[string][]domain.KeywordRow{},
	}
}

func (m *memStore) nextID(prefix string) string {
	m.seq++
	return fmt.Sprintf("%s-%d", prefix, m.seq)
}

func (m *memStore) CreateUser(_ context.Context, u *domain.User) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Email == u.Email {
			return nil, port.ErrEmailTaken
		}
	}
	cp := *u
	cp.ID = m.nextID("user")
	m.users[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (m *memStore) GetUserByEmail(_ context.Context, email string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, port.ErrUserNotFound
}

func (m *memStore) GetUserByID(_ context.Context, id string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, port.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memStore) CreateProject(_ context.Context, p *domain.Project) (*domain.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	cp.ID = m.nextID("project")
	m.projects[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (m *memStore) GetProject(_ context.Context, id string) (*domain.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.projects[id]
	if !ok {
		return nil, port.ErrProjectNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memStore) ListProjectsByUser(_ context.Context, userID string) ([]domain.Project, error) {
	return m.filterProjects(func(p *domain.Project) bool { return p.UserID == userID }), nil
}

func (m *memStore) ListScheduledProjects(context.Context) ([]domain.Project, error) {
	return m.filterProjects(func(p *domain.Project) bool { return p.ScheduleCron != "" }), nil
}

func (m *memStore) filterProjects(keep func(*domain.Project) bool) []domain.Project {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []domain.Project{}
	for _, p := range m.projects {
		if keep(p) {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *memStore) UpdateProject(_ context.Context, p *domain.Project) (*domain.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.projects[p.ID]; !ok {
		return nil, port.ErrProjectNotFound
	}
	cp := *p
	m.projects[p.ID] = &cp
	out := cp
	return &out, nil
}

func (m *memStore) DeleteProject(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.projects[id]; !ok {
		return port.ErrProjectNotFound
	}
	delete(m.projects, id)
	return nil
}

// CreateSession stamps sessions without a timestamp one hour apart so order
// is deterministic.
func (m *memStore) CreateSession(_ context.Context, s *domain.CheckSession, rows []domain.KeywordRow) (*domain.CheckSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	cp.ID = m.nextID("session")
	if cp.CreatedAt.IsZero() {
		m.clock = m.clock.Add(time.Hour)
		cp.CreatedAt = m.clock
	}
	m.sessions[cp.ID] = &cp
	m.rows[cp.ID] = append([]domain.KeywordRow(nil), rows...)
	m.refresh(cp.ID)
	out := *m.sessions[cp.ID]
	return &out, nil
}

func (m *memStore) refresh(id string) {
	s := m.sessions[id]
	s.KeywordCount = len(m.rows[id])
	s.AIOCount = 0
	for _, r := range m.rows[id] {
		if r.HasAIOverview {
			s.AIOCount++
		}
	}
}

func (m *memStore) GetSession(_ context.Context, id string) (*domain.CheckSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, port.ErrSessionNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *memStore) ListSessions(_ context.Context, projectID string, limit int) ([]domain.CheckSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []domain.CheckSession{}
	for _, s := range m.sessions {
		if s.ProjectID == projectID {
			out = append(out, *s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memStore) RenameSession(_ context.Context, id string, name *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return port.ErrSessionNotFound
	}
	s.Name = name
	return nil
}

func (m *memStore) DeleteSession(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[id]; !ok {
		return port.ErrSessionNotFound
	}
	delete(m.sessions, id)
	delete(m.rows, id)
	return nil
}

func (m *memStore) ListKeywordRows(_ context.Context, sessionID string) ([]domain.KeywordRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.KeywordRow{}, m.rows[sessionID]...), nil
}

func (m *memStore) GetKeywordRow(_ context.Context, sessionID, keyword string) (*domain.KeywordRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rows[sessionID] {
		if r.Keyword == keyword {
			cp := r
			return &cp, nil
		}
	}
	return nil, port.ErrKeywordNotFound
}

func (m *memStore) DeleteKeywordRow(_ context.Context, sessionID, keyword string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rows := m.rows[sessionID]
	for i, r := range rows {
		if r.Keyword == keyword {
			m.rows[sessionID] = append(rows[:i], rows[i+1:]...)
			m.refresh(sessionID)
			return nil
		}
	}
	return port.ErrKeywordNotFound
}

// memCache is a JSON-backed AnalyticsCache that records invalidations.
type memCache struct {
	mu          sync.Mutex
	entries     map[string][]byte
	invalidated []string
}

func newMemCache() *memCache {
	return &memCache{entries: map[string][]byte{}}
}

func (c *memCache) Get(_ context.Context, projectID, key string, dst any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	data, ok := c.entries[projectID+"|"+key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(data, dst)
}

func (c *memCache) Set(_ context.Context, projectID, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[projectID+"|"+key] = data
	return nil
}

func (c *memCache) InvalidateProject(_ context.Context, projectID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.entries {
		if len(k) > len(projectID) && k[:len(projectID)+1] == projectID+"|" {
			delete(c.entries, k)
		}
	}
	c.invalidated = append(c.invalidated, projectID)
	return nil
}

func (c *memCache) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// fakeProvider returns canned rows and errors per keyword.
type fakeProvider struct {
	mu      sync.Mutex
	rows    map[string]domain.KeywordRow
	errs    map[string]error
	queries []port.SERPQuery
}

func (p *fakeProvider) ProviderName() string { return "fake" }

func (p *fakeProvider) FetchKeyword(_ context.Context, q port.SERPQuery) (domain.KeywordRow, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.queries = append(p.queries, q)
	if err := p.errs[q.Keyword]; err != nil {
		return domain.KeywordRow{}, err
	}
	return p.rows[q.Keyword], nil
}

// fakeLocker grants each name once until it is unlocked.
type fakeLocker struct {
	mu     sync.Mutex
	held   map[string]bool
	denied int
}

func newFakeLocker() *fakeLocker {
	return &fakeLocker{held: map[string]bool{}}
}

func (l *fakeLocker) TryLock(_ context.Context, name string, _ time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[name] {
		l.denied++
		return false, nil
	}
	l.held[name] = true
	return true, nil
}

func (l *fakeLocker) Unlock(_ context.Context, name string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, name)
	return nil
}

// fakeReporter records job progress.
type fakeReporter struct {
	mu       sync.Mutex
	steps    map[string]bool
	finished bool
	resultID string
	err      error
}

func newFakeReporter() *fakeReporter {
	return &fakeReporter{steps: map[string]bool{}}
}

func (r *fakeReporter) Step(item string, failed bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.steps[item] = failed
}

func (r *fakeReporter) Finish(resultID string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finished = true
	r.resultID = resultID
	r.err = err
}

func strPtr(s string) *string { return &s }

func aioRow(keyword, markdown, refs string) domain.KeywordRow {
	return domain.KeywordRow{
		Keyword:       keyword,
		HasAIOverview: true,
		AIOMarkdown:   strPtr(markdown),
		AIOReferences: strPtr(refs),
	}
}

func plainRow(keyword string) domain.KeywordRow {
	return domain.KeywordRow{Keyword: keyword}
}
