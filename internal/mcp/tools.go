package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/arturoeanton/aio-tracker/internal/analytics"
	"github.com/arturoeanton/aio-tracker/internal/domain"
	"github.com/arturoeanton/aio-tracker/internal/port"
)

// CompetitorsInput is the input schema for the competitors tool.
type CompetitorsInput struct {
	ProjectID string `json:"project_id" jsonschema:"the project ID"`
	SessionID string `json:"session_id,omitempty" jsonschema:"the session to analyze (default latest)"`
	Limit     int    `json:"limit,omitempty" jsonschema:"maximum number of competitors to return (default all)"`
}

// ChangesInput is the input schema for the session_changes tool.
type ChangesInput struct {
	ProjectID string `json:"project_id" jsonschema:"the project ID"`
	From      string `json:"from,omitempty" jsonschema:"one session ID (default the second latest)"`
	To        string `json:"to,omitempty" jsonschema:"the other session ID (default the latest)"`
	Limit     int    `json:"limit,omitempty" jsonschema:"maximum number of top changes to return (default 20)"`
}

// ChangesOutput is the output schema for the session_changes tool.
type ChangesOutput struct {
	OlderSessionID string                    `json:"older_session_id"`
	NewerSessionID string                    `json:"newer_session_id"`
	Counts         map[domain.ChangeType]int `json:"counts"`
	TopChanges     []domain.SessionChange    `json:"top_changes"`
}

// TrendsInput is the input schema for the trends tool.
type TrendsInput struct {
	ProjectID string `json:"project_id" jsonschema:"the project ID"`
	Window    int    `json:"window,omitempty" jsonschema:"number of latest sessions to summarize (default 10)"`
}

// TrendsOutput is the output schema for the trends tool.
type TrendsOutput struct {
	Summaries []analytics.SessionSummary `json:"summaries"`
}

func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "competitors",
		Description: "Rank the sources cited in a project's AI Overviews and flag the tracked brand",
	}, s.handleCompetitors)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "session_changes",
		Description: "Compare two check sessions of a project keyword by keyword",
	}, s.handleChanges)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "trends",
		Description: "Summarize AI Overview presence and brand citations over the latest sessions",
	}, s.handleTrends)
}

func (s *Server) handleCompetitors(ctx context.Context, _ *mcp.CallToolRequest, input CompetitorsInput) (*mcp.CallToolResult, analytics.CompetitorReport, error) {
	p, err := s.projects.Lookup(ctx, input.ProjectID)
	if err != nil {
		return nil, analytics.CompetitorReport{}, err
	}

	sessionID := input.SessionID
	if sessionID == "" {
		latest, err := s.sessions.List(ctx, p, 1)
		if err != nil {
			return nil, analytics.CompetitorReport{}, err
		}
		if len(latest) == 0 {
			return nil, analytics.CompetitorReport{}, fmt.Errorf("project %s has no sessions: %w", p.ID, port.ErrSessionNotFound)
		}
		sessionID = latest[0].ID
	}

	report, err := s.analytics.Competitors(ctx, p, sessionID)
	if err != nil {
		return nil, analytics.CompetitorReport{}, err
	}
	out := *report
	if input.Limit > 0 && len(out.Competitors) > input.Limit {
		out.Competitors = out.Competitors[:input.Limit]
	}

	s.record(p, "competitors", input)
	return nil, out, nil
}

func (s *Server) handleChanges(ctx context.Context, _ *mcp.CallToolRequest, input ChangesInput) (*mcp.CallToolResult, ChangesOutput, error) {
	p, err := s.projects.Lookup(ctx, input.ProjectID)
	if err != nil {
		return nil, ChangesOutput{}, err
	}

	limit := input.Limit
	if limit <= 0 {
		limit = 20
	}

	report, err := s.analytics.Changes(ctx, p, input.From, input.To)
	if err != nil {
		return nil, ChangesOutput{}, err
	}

	s.record(p, "session_changes", input)
	return nil, ChangesOutput{
		OlderSessionID: report.Older.ID,
		NewerSessionID: report.Newer.ID,
		Counts:         report.Counts,
		TopChanges:     analytics.TopChanges(report.Changes, limit),
	}, nil
}

func (s *Server) handleTrends(ctx context.Context, _ *mcp.CallToolRequest, input TrendsInput) (*mcp.CallToolResult, TrendsOutput, error) {
	p, err := s.projects.Lookup(ctx, input.ProjectID)
	if err != nil {
		return nil, TrendsOutput{}, err
	}

	trend, err := s.analytics.Trends(ctx, p, input.Window, "")
	if err != nil {
		return nil, TrendsOutput{}, err
	}

	s.record(p, "trends", input)
	return nil, TrendsOutput{Summaries: trend.Summaries}, nil
}

func (s *Server) record(p *domain.Project, tool string, input any) {
	if s.audit == nil {
		return
	}
	details, _ := json.Marshal(map[string]any{"tool": tool, "input": input})
	if err := s.audit.WriteAudit(p.UserID, domain.AuditActionMCPCall, "project", p.ID, string(details), "", "mcp"); err != nil {
		slog.Warn("failed to write audit log", "tool", tool, "error", err)
	}
}
