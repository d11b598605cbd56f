package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/require"

	"github.com/arturoeanton/aio-tracker/internal/adapter/cache"
	"github.com/arturoeanton/aio-tracker/internal/adapter/memory"
	"github.com/arturoeanton/aio-tracker/internal/domain"
	"github.com/arturoeanton/aio-tracker/internal/middleware"
	"github.com/arturoeanton/aio-tracker/internal/port"
	"github.com/arturoeanton/aio-tracker/internal/service"
)

var testJWT = middleware.JWTConfig{Secret: "handler-secret", Issuer: "aio-tracker", ExpiresIn: time.Hour}

// stubProvider answers every keyword with a plain row.
type stubProvider struct{}

func (stubProvider) ProviderName() string { return "stub" }

func (stubProvider) FetchKeyword(_ context.Context, q port.SERPQuery) (domain.KeywordRow, error) {
	return domain.KeywordRow{Keyword: q.Keyword}, nil
}

type testServer struct {
	app     *fiber.App
	repo    *memory.Store
	tracker *JobTracker
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	repo := memory.NewStore()
	noop := cache.Noop{}

	auth := service.NewAuthService(repo, testJWT)
	projects := service.NewProjectService(repo, noop, service.ProjectDefaults{LocationCode: 2840, LanguageCode: "en"})
	sessions := service.NewSessionService(repo, noop)
	analytics := service.NewAnalyticsService(repo, noop, 2)
	fetch := service.NewFetchService(stubProvider{}, sessions, 2)
	tracker := NewJobTracker()

	app := fiber.New()
	public := app.Group("/api/v1")
	authHandler := NewAuthHandler(auth, repo)
	authHandler.Register(public)
	NewSystemHandler("aio-tracker", "test", map[string]Pinger{}).Register(app, public)

	api := app.Group("/api/v1", middleware.JWTMiddleware(testJWT))
	authHandler.RegisterProtected(api)
	NewProjectHandler(projects).Register(api)
	NewSessionHandler(projects, sessions, fetch, tracker, repo).Register(api)
	NewAnalyticsHandler(projects, analytics).Register(api)
	NewJobsHandler(tracker).Register(api)
	NewAuditHandler(repo).Register(api)

	return &testServer{app: app, repo: repo, tracker: tracker}
}

// signup registers a user and returns its bearer token.
func (s *testServer) signup(t *testing.T, email string) string {
	t.Helper()
	resp, body := s.do(t, http.MethodPost, "/api/v1/auth/signup", "", map[string]string{
		"email": email, "name": "Tester", "password": "long enough",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	var out struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(body, &out))
	return out.Token
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) (*http.Response, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return s.send(t, req, token)
}

func (s *testServer) send(t *testing.T, req *http.Request, token string) (*http.Response, []byte) {
	t.Helper()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := s.app.Test(req)
	require.NoError(t, err)
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()
	return resp, data
}

func (s *testServer) auditActions(t *testing.T) []string {
	t.Helper()
	logs, err := s.repo.ListAuditLogs(context.Background(), 0, "")
	require.NoError(t, err)
	actions := make([]string, len(logs))
	for i, l := range logs {
		actions[i] = l.Action
	}
	return actions
}

func decode[T any](t *testing.T, data []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(data, &v), string(data))
	return v
}
