package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arturoeanton/aio-tracker/internal/domain"
)

func TestIsDue(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	at := func(h int) *time.Time {
		v := time.Date(2026, 3, 10, h, 0, 0, 0, time.UTC)
		return &v
	}
	yesterday := now.Add(-24 * time.Hour)

	tests := []struct {
		name string
		spec string
		last *time.Time
		want bool
	}{
		{"never ran", "0 6 * * *", nil, true},
		{"ran before todays slot", "0 6 * * *", &yesterday, true},
		{"ran after todays slot", "0 6 * * *", at(7), false},
		{"hourly due", "@hourly", at(10), true},
		{"hourly not yet", "@hourly", at(12), false},
		{"invalid spec", "sometimes", nil, false},
		{"empty spec", "", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsDue(tt.spec, tt.last, now))
		})
	}
}

func TestScheduler_Tick(t *testing.T) {
	store := newMemStore()
	sessions := NewSessionService(store, newMemCache())
	provider := &fakeProvider{rows: map[string]domain.KeywordRow{"crm": plainRow("crm")}}
	fetch := NewFetchService(provider, sessions, 2)
	locker := newFakeLocker()

	ctx := context.Background()
	due, err := store.CreateProject(ctx, &domain.Project{Name: "due", Keywords: []string{"crm"}, ScheduleCron: "0 6 * * *"})
	require.NoError(t, err)
	_, err = store.CreateProject(ctx, &domain.Project{Name: "manual", Keywords: []string{"crm"}})
	require.NoError(t, err)

	sched := NewScheduler(store, store, fetch, locker, time.Minute)
	sched.now = func() time.Time { return time.Date(2026, 1, 1, 3, 0, 0, 0, time.UTC) }

	sched.Tick(ctx)
	list, err := store.ListSessions(ctx, due.ID, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, domain.SessionSourceSchedule, list[0].Source)
	assert.Empty(t, locker.held)

	// The next slot after the new session is 06:00.
	sched.Tick(ctx)
	list, err = store.ListSessions(ctx, due.ID, 0)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestScheduler_SkipsLockedProject(t *testing.T) {
	store := newMemStore()
	sessions := NewSessionService(store, newMemCache())
	fetch := NewFetchService(&fakeProvider{}, sessions, 1)
	locker := newFakeLocker()

	ctx := context.Background()
	p, err := store.CreateProject(ctx, &domain.Project{Name: "due", Keywords: []string{"crm"}, ScheduleCron: "@hourly"})
	require.NoError(t, err)
	locker.held["schedule:"+p.ID] = true

	NewScheduler(store, store, fetch, locker, time.Minute).Tick(ctx)

	list, err := store.ListSessions(ctx, p.ID, 0)
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.Equal(t, 1, locker.denied)
}
