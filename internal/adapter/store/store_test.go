package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arturoeanton/aio-tracker/internal/domain"
	"github.com/arturoeanton/aio-tracker/internal/port"
)

func newMock(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return NewWithDB(db), mock
}

var (
	userCols    = []string{"id", "email", "name", "password_hash", "role", "created_at", "updated_at"}
	projectCols = []string{"id", "user_id", "name", "brand_name", "brand_domain", "keywords", "location_code", "language_code", "schedule_cron", "created_at", "updated_at"}
	sessionCols = []string{"id", "project_id", "name", "source", "keyword_count", "aio_count", "created_at"}
	keywordCols = []string{"keyword", "has_ai_overview", "aio_markdown", "aio_references"}
)

func TestCreateUser(t *testing.T) {
	s, mock := newMock(t)
	now := time.Now()

	mock.ExpectQuery(`INSERT INTO users`).
		WithArgs("a@b.c", "Ann", "hash", "user").
		WillReturnRows(sqlmock.NewRows(userCols).AddRow("u1", "a@b.c", "Ann", "hash", "user", now, now))

	u, err := s.CreateUser(context.Background(), &domain.User{Email: "a@b.c", Name: "Ann", PasswordHash: "hash"})
	require.NoError(t, err)
	assert.Equal(t, "u1", u.ID)
	assert.Equal(t, "user", u.Role)
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	s, mock := newMock(t)

	mock.ExpectQuery(`INSERT INTO users`).
		WillReturnError(&pq.Error{Code: uniqueViolation})

	_, err := s.CreateUser(context.Background(), &domain.User{Email: "a@b.c"})
	assert.ErrorIs(t, err, port.ErrEmailTaken)
}

func TestGetUserNotFound(t *testing.T) {
	s, mock := newMock(t)

	mock.ExpectQuery(`FROM users WHERE email = \$1`).
		WithArgs("x@y.z").
		WillReturnError(sql.ErrNoRows)

	_, err := s.GetUserByEmail(context.Background(), "x@y.z")
	assert.ErrorIs(t, err, port.ErrUserNotFound)
}

func TestCreateAndGetProject(t *testing.T) {
	s, mock := newMock(t)
	now := time.Now()

	mock.ExpectQuery(`INSERT INTO projects`).
		WithArgs("u1", "Site", "Acme", "acme.com", sqlmock.AnyArg(), 2840, "en", "").
		WillReturnRows(sqlmock.NewRows(projectCols).
			AddRow("p1", "u1", "Site", "Acme", "acme.com", "{crm,\"best crm\"}", 2840, "en", "", now, now))

	p, err := s.CreateProject(context.Background(), &domain.Project{
		UserID: "u1", Name: "Site", BrandName: "Acme", BrandDomain: "acme.com",
		Keywords: []string{"crm", "best crm"}, LocationCode: 2840, LanguageCode: "en",
	})
	require.NoError(t, err)
	assert.Equal(t, "p1", p.ID)
	assert.Equal(t, []string{"crm", "best crm"}, p.Keywords)

	mock.ExpectQuery(`FROM projects WHERE id = \$1`).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err = s.GetProject(context.Background(), "missing")
	assert.ErrorIs(t, err, port.ErrProjectNotFound)
}

func TestListProjectsEmptyKeywords(t *testing.T) {
	s, mock := newMock(t)
	now := time.Now()

	mock.ExpectQuery(`FROM projects WHERE user_id = \$1`).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows(projectCols).
			AddRow("p1", "u1", "Site", "", "", "{}", 2840, "en", "", now, now))

	projects, err := s.ListProjectsByUser(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, projects, 1)
	assert.NotNil(t, projects[0].Keywords)
	assert.Empty(t, projects[0].Keywords)
}

func TestDeleteProjectNotFound(t *testing.T) {
	s, mock := newMock(t)

	mock.ExpectExec(`DELETE FROM projects`).
		WithArgs("p1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.ErrorIs(t, s.DeleteProject(context.Background(), "p1"), port.ErrProjectNotFound)
}

func TestCreateSession(t *testing.T) {
	s, mock := newMock(t)
	now := time.Now()
	md := "Acme"
	refs := `[{"domain":"acme.com"}]`

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO check_sessions`).
		WithArgs("p1", sqlmock.AnyArg(), domain.SessionSourceUpload, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(sessionCols).AddRow("s1", "p1", nil, "upload", 0, 0, now))
	prep := mock.ExpectPrepare(`INSERT INTO keyword_results`)
	prep.ExpectExec().
		WithArgs("s1", 0, "a", true, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	prep.ExpectExec().
		WithArgs("s1", 1, "b", false, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectQuery(`UPDATE check_sessions SET`).
		WithArgs("s1").
		WillReturnRows(sqlmock.NewRows([]string{"keyword_count", "aio_count"}).AddRow(2, 1))
	mock.ExpectCommit()

	cs, err := s.CreateSession(context.Background(),
		&domain.CheckSession{ProjectID: "p1", Source: domain.SessionSourceUpload},
		[]domain.KeywordRow{
			{Keyword: "a", HasAIOverview: true, AIOMarkdown: &md, AIOReferences: &refs},
			{Keyword: "b"},
		})
	require.NoError(t, err)
	assert.Equal(t, "s1", cs.ID)
	assert.Nil(t, cs.Name)
	assert.Equal(t, 2, cs.KeywordCount)
	assert.Equal(t, 1, cs.AIOCount)
}

func TestCreateSessionRollsBackOnRowError(t *testing.T) {
	s, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO check_sessions`).
		WillReturnRows(sqlmock.NewRows(sessionCols).AddRow("s1", "p1", nil, "upload", 0, 0, time.Now()))
	prep := mock.ExpectPrepare(`INSERT INTO keyword_results`)
	prep.ExpectExec().WillReturnError(errors.New("boom"))
	mock.ExpectRollback()

	_, err := s.CreateSession(context.Background(), &domain.CheckSession{ProjectID: "p1", Source: "upload"},
		[]domain.KeywordRow{{Keyword: "a"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `insert keyword "a"`)
}

func TestListSessionsWithLimit(t *testing.T) {
	s, mock := newMock(t)
	now := time.Now()

	mock.ExpectQuery(`FROM check_sessions WHERE project_id = \$1 ORDER BY created_at DESC, id LIMIT \$2`).
		WithArgs("p1", 2).
		WillReturnRows(sqlmock.NewRows(sessionCols).
			AddRow("s2", "p1", "Week 2", "fetch", 3, 2, now).
			AddRow("s1", "p1", nil, "upload", 3, 1, now.Add(-time.Hour)))

	sessions, err := s.ListSessions(context.Background(), "p1", 2)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	require.NotNil(t, sessions[0].Name)
	assert.Equal(t, "Week 2", *sessions[0].Name)
	assert.Nil(t, sessions[1].Name)
}

func TestListKeywordRows(t *testing.T) {
	s, mock := newMock(t)

	mock.ExpectQuery(`FROM keyword_results WHERE session_id = \$1 ORDER BY position`).
		WithArgs("s1").
		WillReturnRows(sqlmock.NewRows(keywordCols).
			AddRow("a", true, "md", "[]").
			AddRow("b", false, nil, nil))

	rows, err := s.ListKeywordRows(context.Background(), "s1")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.NotNil(t, rows[0].AIOMarkdown)
	assert.Equal(t, "md", *rows[0].AIOMarkdown)
	assert.Nil(t, rows[1].AIOMarkdown)
	assert.Nil(t, rows[1].AIOReferences)
}

func TestDeleteKeywordRowRefreshesCounts(t *testing.T) {
	s, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM keyword_results`).
		WithArgs("s1", "a").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`UPDATE check_sessions SET`).
		WithArgs("s1").
		WillReturnRows(sqlmock.NewRows([]string{"keyword_count", "aio_count"}).AddRow(1, 0))
	mock.ExpectCommit()

	require.NoError(t, s.DeleteKeywordRow(context.Background(), "s1", "a"))
}

func TestDeleteKeywordRowNotFound(t *testing.T) {
	s, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM keyword_results`).
		WithArgs("s1", "zzz").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	assert.ErrorIs(t, s.DeleteKeywordRow(context.Background(), "s1", "zzz"), port.ErrKeywordNotFound)
}

func TestRenameSessionNotFound(t *testing.T) {
	s, mock := newMock(t)

	mock.ExpectExec(`UPDATE check_sessions SET name`).
		WithArgs("s9", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	name := "x"
	assert.ErrorIs(t, s.RenameSession(context.Background(), "s9", &name), port.ErrSessionNotFound)
}

func TestListAuditLogsFilters(t *testing.T) {
	s, mock := newMock(t)

	mock.ExpectQuery(`FROM audit_logs WHERE action = \$1 ORDER BY created_at DESC LIMIT \$2`).
		WithArgs("login", 10).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "action", "resource", "resource_id", "details", "ip", "user_agent", "created_at"}).
			AddRow("l1", "u1", "login", "auth", "u1", "{}", "127.0.0.1", "curl", time.Now()))

	logs, err := s.ListAuditLogs(context.Background(), 10, "login")
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "login", logs[0].Action)
}
