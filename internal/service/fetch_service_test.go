package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arturoeanton/aio-tracker/internal/domain"
	"github.com/arturoeanton/aio-tracker/internal/port"
)

func newTestFetch(provider *fakeProvider) (*FetchService, *memStore) {
	store := newMemStore()
	sessions := NewSessionService(store, newMemCache())
	return NewFetchService(provider, sessions, 3), store
}

func fetchProject(keywords ...string) *domain.Project {
	return &domain.Project{ID: "p1", Keywords: keywords, LocationCode: 2826, LanguageCode: "en"}
}

func TestFetchService_Run(t *testing.T) {
	provider := &fakeProvider{
		rows: map[string]domain.KeywordRow{
			"crm": aioRow("ignored", "CRM overview", acmeRefs),
			"erp": plainRow("erp"),
		},
		errs: map[string]error{"hr": errors.New("boom")},
	}
	svc, store := newTestFetch(provider)
	reporter := newFakeReporter()

	sess, err := svc.Run(context.Background(), fetchProject("crm", "hr", "erp"), domain.SessionSourceFetch, reporter)
	require.NoError(t, err)
	assert.Equal(t, domain.SessionSourceFetch, sess.Source)
	assert.Equal(t, 2, sess.KeywordCount)
	assert.Equal(t, 1, sess.AIOCount)

	rows := store.rows[sess.ID]
	require.Len(t, rows, 2)
	assert.Equal(t, "crm", rows[0].Keyword)
	assert.Equal(t, "erp", rows[1].Keyword)

	assert.Equal(t, map[string]bool{"crm": false, "hr": true, "erp": false}, reporter.steps)
	assert.True(t, reporter.finished)
	assert.Equal(t, sess.ID, reporter.resultID)
	assert.NoError(t, reporter.err)

	require.Len(t, provider.queries, 3)
	for _, q := range provider.queries {
		assert.Equal(t, 2826, q.LocationCode)
		assert.Equal(t, "en", q.LanguageCode)
	}
}

func TestFetchService_AllFail(t *testing.T) {
	provider := &fakeProvider{errs: map[string]error{
		"a": errors.New("boom"),
		"b": errors.New("boom"),
	}}
	svc, store := newTestFetch(provider)
	reporter := newFakeReporter()

	_, err := svc.Run(context.Background(), fetchProject("a", "b"), domain.SessionSourceFetch, reporter)
	require.Error(t, err)
	assert.Empty(t, store.sessions)
	assert.True(t, reporter.finished)
	assert.Error(t, reporter.err)
	assert.Empty(t, reporter.resultID)
}

func TestFetchService_NotConfigured(t *testing.T) {
	provider := &fakeProvider{errs: map[string]error{"a": port.ErrProviderNotConfigured}}
	svc, store := newTestFetch(provider)

	_, err := svc.Run(context.Background(), fetchProject("a"), domain.SessionSourceFetch, nil)
	assert.ErrorIs(t, err, port.ErrProviderNotConfigured)
	assert.Empty(t, store.sessions)
}

func TestFetchService_NoKeywords(t *testing.T) {
	svc, _ := newTestFetch(&fakeProvider{})
	_, err := svc.Run(context.Background(), fetchProject(), domain.SessionSourceFetch, nil)
	assert.ErrorIs(t, err, port.ErrNoKeywords)
}
