package handler

import (
	"bytes"
	"fmt"

	"github.com/gofiber/fiber/v3"

	"github.com/arturoeanton/aio-tracker/internal/service"
)

// AnalyticsHandler serves the competitor, change and trend reports of a
// project plus their CSV exports.
type AnalyticsHandler struct {
	projectScope
	analytics *service.AnalyticsService
}

// NewAnalyticsHandler creates a new analytics handler.
func NewAnalyticsHandler(projects *service.ProjectService, analytics *service.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{projectScope: projectScope{projects: projects}, analytics: analytics}
}

// Register sets up analytics routes on a protected group.
func (h *AnalyticsHandler) Register(api fiber.Router) {
	p := api.Group("/projects/:id")
	p.Get("/overview", h.Overview)
	p.Get("/trends", h.Trends)
	p.Get("/changes", h.Changes)
	p.Get("/changes/top", h.TopChanges)
	p.Get("/sessions/:sid/competitors", h.Competitors)
	p.Get("/sessions/:sid/export/keywords.csv", h.ExportKeywords)
	p.Get("/sessions/:sid/export/competitors.csv", h.ExportCompetitors)
}

// Overview returns the latest and previous session summaries.
func (h *AnalyticsHandler) Overview(c fiber.Ctx) error {
	p, err := h.project(c)
	if err != nil {
		return fail(c, err)
	}
	out, err := h.analytics.Overview(c.Context(), p)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(out)
}

// Trends returns session summaries and brand rank history.
// Query: window (default 10), current (session ID, default latest).
func (h *AnalyticsHandler) Trends(c fiber.Ctx) error {
	p, err := h.project(c)
	if err != nil {
		return fail(c, err)
	}
	trend, err := h.analytics.Trends(c.Context(), p, queryInt(c, "window", 0), c.Query("current"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(trend)
}

// Changes diffs two sessions. Query: from, to (default the two latest).
func (h *AnalyticsHandler) Changes(c fiber.Ctx) error {
	p, err := h.project(c)
	if err != nil {
		return fail(c, err)
	}
	report, err := h.analytics.Changes(c.Context(), p, c.Query("from"), c.Query("to"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(report)
}

// TopChanges returns the most significant changes. Query: from, to, limit.
func (h *AnalyticsHandler) TopChanges(c fiber.Ctx) error {
	p, err := h.project(c)
	if err != nil {
		return fail(c, err)
	}
	changes, err := h.analytics.TopChanges(c.Context(), p, c.Query("from"), c.Query("to"), queryInt(c, "limit", 10))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"changes": changes, "count": len(changes)})
}

// Competitors returns the competitor ranking of a session.
func (h *AnalyticsHandler) Competitors(c fiber.Ctx) error {
	p, err := h.project(c)
	if err != nil {
		return fail(c, err)
	}
	report, err := h.analytics.Competitors(c.Context(), p, c.Params("sid"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(report)
}

// ExportKeywords downloads the keyword records of a session as CSV.
func (h *AnalyticsHandler) ExportKeywords(c fiber.Ctx) error {
	p, err := h.project(c)
	if err != nil {
		return fail(c, err)
	}
	sess, records, err := h.analytics.Records(c.Context(), p, c.Params("sid"))
	if err != nil {
		return fail(c, err)
	}

	var buf bytes.Buffer
	if err := service.WriteKeywordsCSV(&buf, records); err != nil {
		return fail(c, err)
	}
	return sendCSV(c, fmt.Sprintf("keywords-%s.csv", sess.ID), buf.Bytes())
}

// ExportCompetitors downloads the competitor ranking of a session as CSV.
func (h *AnalyticsHandler) ExportCompetitors(c fiber.Ctx) error {
	p, err := h.project(c)
	if err != nil {
		return fail(c, err)
	}
	report, err := h.analytics.Competitors(c.Context(), p, c.Params("sid"))
	if err != nil {
		return fail(c, err)
	}

	var buf bytes.Buffer
	if err := service.WriteCompetitorsCSV(&buf, report.Competitors); err != nil {
		return fail(c, err)
	}
	return sendCSV(c, fmt.Sprintf("competitors-%s.csv", c.Params("sid")), buf.Bytes())
}

func sendCSV(c fiber.Ctx, filename string, data []byte) error {
	c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s"`, filename))
	return c.Send(data)
}
