package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/arturoeanton/aio-tracker/internal/domain"
	"github.com/arturoeanton/aio-tracker/internal/metrics"
	"github.com/arturoeanton/aio-tracker/internal/port"
)

// FetchService runs live SERP lookups for every keyword of a project and
// stores the results as a session.
type FetchService struct {
	provider    port.SERPProvider
	sessions    *SessionService
	concurrency int
}

// NewFetchService creates a new fetch service. concurrency bounds the number
// of in-flight provider calls.
func NewFetchService(provider port.SERPProvider, sessions *SessionService, concurrency int) *FetchService {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &FetchService{provider: provider, sessions: sessions, concurrency: concurrency}
}

// Run fetches all keywords of project and imports the results. Keywords that
// fail are logged and skipped. When every keyword fails no session is
// created. reporter may be nil.
func (s *FetchService) Run(ctx context.Context, project *domain.Project, source string, reporter port.JobReporter) (*domain.CheckSession, error) {
	sess, err := s.run(ctx, project, source, reporter)
	if reporter != nil {
		id := ""
		if sess != nil {
			id = sess.ID
		}
		reporter.Finish(id, err)
	}
	return sess, err
}

func (s *FetchService) run(ctx context.Context, project *domain.Project, source string, reporter port.JobReporter) (*domain.CheckSession, error) {
	if len(project.Keywords) == 0 {
		return nil, port.ErrNoKeywords
	}

	metrics.FetchJobsActive.Inc()
	defer metrics.FetchJobsActive.Dec()

	provider := s.provider.ProviderName()
	slog.Info("starting fetch",
		"project_id", project.ID,
		"provider", provider,
		"keywords", len(project.Keywords),
		"source", source,
	)

	results := make([]*domain.KeywordRow, len(project.Keywords))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, kw := range project.Keywords {
		g.Go(func() error {
			start := time.Now()
			row, err := s.provider.FetchKeyword(gctx, port.SERPQuery{
				Keyword:      kw,
				LocationCode: project.LocationCode,
				LanguageCode: project.LanguageCode,
			})
			metrics.SERPDuration.Observe(time.Since(start).Seconds())

			if err != nil {
				metrics.SERPRequests.WithLabelValues(provider, "error").Inc()
				if reporter != nil {
					reporter.Step(kw, true)
				}
				// A missing provider or a cancelled job fails everything.
				if errors.Is(err, port.ErrProviderNotConfigured) || gctx.Err() != nil {
					return err
				}
				slog.Warn("keyword fetch failed", "project_id", project.ID, "keyword", kw, "error", err)
				return nil
			}

			metrics.SERPRequests.WithLabelValues(provider, "ok").Inc()
			row.Keyword = kw
			results[i] = &row
			if reporter != nil {
				reporter.Step(kw, false)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("fetch keywords: %w", err)
	}

	rows := make([]domain.KeywordRow, 0, len(results))
	for _, r := range results {
		if r != nil {
			rows = append(rows, *r)
		}
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("fetch keywords: all %d keywords failed", len(project.Keywords))
	}

	slog.Info("fetch complete",
		"project_id", project.ID,
		"fetched", len(rows),
		"failed", len(project.Keywords)-len(rows),
	)
	return s.sessions.Import(ctx, project, source, "", rows, nil)
}
