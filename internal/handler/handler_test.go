package handler

import (
	"bytes"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arturoeanton/aio-tracker/internal/analytics"
	"github.com/arturoeanton/aio-tracker/internal/domain"
	"github.com/arturoeanton/aio-tracker/internal/port"
	"github.com/arturoeanton/aio-tracker/internal/service"
)

const uploadBody = `[
	{"keyword":"best crm","has_ai_overview":true,
	 "aio_markdown":"Acme leads [[1]](https://acme.com/x) and Wiki [[2]](https://wiki.org/y).",
	 "aio_references":[{"domain":"acme.com","source":"Acme","url":"https://acme.com/x"},{"domain":"wiki.org","source":"Wiki","url":"https://wiki.org/y"}]},
	{"keyword":"crm pricing","has_ai_overview":false}
]`

func createProject(t *testing.T, s *testServer, token string) domain.Project {
	t.Helper()
	resp, body := s.do(t, http.MethodPost, "/api/v1/projects", token, service.ProjectInput{
		Name:        "Acme",
		BrandName:   "Acme",
		BrandDomain: "acme.com",
		Keywords:    []string{"best crm", "crm pricing"},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	return decode[domain.Project](t, body)
}

func upload(t *testing.T, s *testServer, token, projectID, body string) domain.CheckSession {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/projects/"+projectID+"/sessions?name=week", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, data := s.send(t, req, token)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(data))
	return decode[domain.CheckSession](t, data)
}

func TestAuthFlow(t *testing.T) {
	s := newTestServer(t)
	token := s.signup(t, "ana@example.com")

	resp, _ := s.do(t, http.MethodPost, "/api/v1/auth/signup", "", map[string]string{
		"email": "ana@example.com", "password": "long enough",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, _ = s.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email": "ana@example.com", "password": "wrong one!",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, body := s.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email": "ana@example.com", "password": "long enough",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"token"`)

	resp, body = s.do(t, http.MethodGet, "/api/v1/auth/me", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ana@example.com", decode[domain.User](t, body).Email)

	resp, _ = s.do(t, http.MethodGet, "/api/v1/auth/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	assert.Contains(t, s.auditActions(t), domain.AuditActionSignup)
	assert.Contains(t, s.auditActions(t), domain.AuditActionLogin)
}

func TestProjectCRUD(t *testing.T) {
	s := newTestServer(t)
	owner := s.signup(t, "owner@example.com")
	other := s.signup(t, "other@example.com")
	p := createProject(t, s, owner)
	assert.Equal(t, 2840, p.LocationCode)

	resp, _ := s.do(t, http.MethodGet, "/api/v1/projects/"+p.ID, other, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = s.do(t, http.MethodPost, "/api/v1/projects", owner, service.ProjectInput{Name: ""})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body := s.do(t, http.MethodPut, "/api/v1/projects/"+p.ID, owner, service.ProjectInput{Name: "Renamed", BrandDomain: "www.acme.io"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	updated := decode[domain.Project](t, body)
	assert.Equal(t, "Renamed", updated.Name)
	assert.Equal(t, "acme.io", updated.BrandDomain)

	resp, body = s.do(t, http.MethodGet, "/api/v1/projects", owner, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"count":1`)

	resp, _ = s.do(t, http.MethodDelete, "/api/v1/projects/"+p.ID, owner, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp, _ = s.do(t, http.MethodGet, "/api/v1/projects/"+p.ID, owner, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSessionLifecycle(t *testing.T) {
	s := newTestServer(t)
	token := s.signup(t, "ana@example.com")
	p := createProject(t, s, token)
	base := "/api/v1/projects/" + p.ID + "/sessions"

	sess := upload(t, s, token, p.ID, uploadBody)
	assert.Equal(t, 2, sess.KeywordCount)
	assert.Equal(t, 1, sess.AIOCount)
	require.NotNil(t, sess.Name)
	assert.Equal(t, "week", *sess.Name)

	resp, body := s.do(t, http.MethodGet, base+"/"+sess.ID+"/keywords", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	records := decode[struct {
		Keywords []domain.KeywordRecord `json:"keywords"`
	}](t, body).Keywords
	require.Len(t, records, 2)
	require.NotNil(t, records[0].BrandRank)
	assert.Equal(t, 1, *records[0].BrandRank)

	resp, body = s.do(t, http.MethodGet, base+"/"+sess.ID+"/keywords/best%20crm", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	detail := decode[service.KeywordDetail](t, body)
	assert.Len(t, detail.Segments, 5)

	resp, body = s.do(t, http.MethodPatch, base+"/"+sess.ID, token, map[string]string{"name": "Baseline"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Baseline", *decode[domain.CheckSession](t, body).Name)

	resp, _ = s.do(t, http.MethodDelete, base+"/"+sess.ID+"/keywords/crm%20pricing", token, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp, _ = s.do(t, http.MethodGet, base+"/"+sess.ID+"/keywords/crm%20pricing", token, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, body = s.do(t, http.MethodGet, base, token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"count":1`)

	resp, _ = s.do(t, http.MethodDelete, base+"/"+sess.ID, token, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp, _ = s.do(t, http.MethodGet, base+"/"+sess.ID, token, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	assert.Contains(t, s.auditActions(t), domain.AuditActionSessionUpload)
}

func TestUploadMultipartAndErrors(t *testing.T) {
	s := newTestServer(t)
	token := s.signup(t, "ana@example.com")
	p := createProject(t, s, token)
	path := "/api/v1/projects/" + p.ID + "/sessions"

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "results.json")
	require.NoError(t, err)
	_, err = fw.Write([]byte(uploadBody))
	require.NoError(t, err)
	require.NoError(t, mw.WriteField("name", "from file"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	resp, body := s.send(t, req, token)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	assert.Equal(t, "from file", *decode[domain.CheckSession](t, body).Name)

	req = httptest.NewRequest(http.MethodPost, path, strings.NewReader(`[]`))
	resp, _ = s.send(t, req, token)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	req = httptest.NewRequest(http.MethodPost, path, strings.NewReader(`{"unexpected": 1}`))
	resp, _ = s.send(t, req, token)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAnalyticsEndpoints(t *testing.T) {
	s := newTestServer(t)
	token := s.signup(t, "ana@example.com")
	p := createProject(t, s, token)
	base := "/api/v1/projects/" + p.ID

	resp, _ := s.do(t, http.MethodGet, base+"/changes", token, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	first := upload(t, s, token, p.ID, `[{"keyword":"best crm","has_ai_overview":false}]`)
	second := upload(t, s, token, p.ID, uploadBody)

	resp, body := s.do(t, http.MethodGet, base+"/sessions/"+second.ID+"/competitors", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	report := decode[analytics.CompetitorReport](t, body)
	assert.Equal(t, 1, report.TotalAIOKeywords)
	require.Len(t, report.Competitors, 2)
	assert.True(t, report.Competitors[0].IsBrand)

	resp, body = s.do(t, http.MethodGet, base+"/changes", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	changes := decode[service.ChangeReport](t, body)
	assert.Equal(t, first.ID, changes.Older.ID)
	assert.Equal(t, 1, changes.Counts[domain.ChangeAIOGained])
	assert.Equal(t, 1, changes.Counts[domain.ChangeNew])

	resp, body = s.do(t, http.MethodGet, base+"/changes/top?limit=1", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"count":1`)

	resp, body = s.do(t, http.MethodGet, base+"/trends?window=5", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	trend := decode[analytics.Trend](t, body)
	assert.Equal(t, second.ID, trend.CurrentID)
	assert.Len(t, trend.Summaries, 2)

	resp, body = s.do(t, http.MethodGet, base+"/overview", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	overview := decode[service.Overview](t, body)
	require.NotNil(t, overview.Latest)
	assert.Equal(t, second.ID, overview.Latest.SessionID)

	resp, body = s.do(t, http.MethodGet, base+"/sessions/"+second.ID+"/export/keywords.csv", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/csv; charset=utf-8", resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "keywords-"+second.ID+".csv")
	assert.True(t, strings.HasPrefix(string(body), "keyword,has_ai_overview,brand_rank"))
	assert.Contains(t, string(body), "best crm,true,1,2,acme.com;wiki.org")

	resp, body = s.do(t, http.MethodGet, base+"/sessions/"+second.ID+"/export/competitors.csv", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "Acme,1,1,acme.com")

	other := s.signup(t, "other@example.com")
	resp, _ = s.do(t, http.MethodGet, base+"/overview", other, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestFetchJob(t *testing.T) {
	s := newTestServer(t)
	token := s.signup(t, "ana@example.com")
	p := createProject(t, s, token)

	resp, body := s.do(t, http.MethodPost, "/api/v1/projects/"+p.ID+"/sessions/fetch", token, nil)
	require.Equal(t, http.StatusAccepted, resp.StatusCode, string(body))
	jobID := decode[struct {
		JobID string `json:"job_id"`
	}](t, body).JobID
	require.NotEmpty(t, jobID)

	var job JobStatus
	require.Eventually(t, func() bool {
		resp, body := s.do(t, http.MethodGet, "/api/v1/jobs/"+jobID, token, nil)
		if resp.StatusCode != http.StatusOK {
			return false
		}
		job = decode[JobStatus](t, body)
		return job.done()
	}, 5*time.Second, 20*time.Millisecond)

	assert.Equal(t, JobComplete, job.Status)
	assert.Equal(t, 2, job.Progress)
	assert.NotEmpty(t, job.SessionID)

	other := s.signup(t, "other@example.com")
	resp, _ = s.do(t, http.MethodGet, "/api/v1/jobs/"+jobID, other, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, body = s.do(t, http.MethodGet, "/api/v1/jobs/"+jobID+"/stream", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.HasPrefix(string(body), "event: complete\n"))
}

func TestJobTrackerReporter(t *testing.T) {
	tracker := NewJobTracker()
	tracker.CreateJob("j1", "p1", "u1", 3)
	ch := tracker.Subscribe("j1")

	r := tracker.Reporter("j1")
	r.Step("a", false)
	r.Step("b", true)
	r.Finish("", errors.New("all failed"))

	job, ok := tracker.GetJob("j1")
	require.True(t, ok)
	assert.Equal(t, JobError, job.Status)
	assert.Equal(t, 2, job.Progress)
	assert.Equal(t, 1, job.Failed)
	assert.Equal(t, "all failed", job.Error)
	assert.False(t, job.CompletedAt.IsZero())

	var last JobStatus
	for i := 0; i < 3; i++ {
		last = <-ch
	}
	assert.Equal(t, JobError, last.Status)
	tracker.Unsubscribe("j1", ch)

	// Unknown jobs are ignored.
	tracker.Reporter("missing").Step("x", false)
	_, ok = tracker.GetJob("missing")
	assert.False(t, ok)
}

func TestErrorStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{port.ErrProjectNotFound, http.StatusNotFound},
		{fmt.Errorf("wrap: %w", port.ErrSessionNotFound), http.StatusNotFound},
		{port.ErrInvalidCredentials, http.StatusUnauthorized},
		{port.ErrEmailTaken, http.StatusConflict},
		{fmt.Errorf("%w: bad", port.ErrUnsupportedFormat), http.StatusBadRequest},
		{port.ErrNotEnoughSessions, http.StatusBadRequest},
		{port.ErrProviderNotConfigured, http.StatusServiceUnavailable},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, errorStatus(tt.err))
		})
	}
}

func TestHealthAndAudit(t *testing.T) {
	s := newTestServer(t)

	resp, body := s.do(t, http.MethodGet, "/api/v1/health", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"status":"healthy"`)

	resp, body = s.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "go_goroutines")

	token := s.signup(t, "ana@example.com")
	resp, _ = s.do(t, http.MethodGet, "/api/v1/audit/logs", token, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}
