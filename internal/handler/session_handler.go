package handler

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/arturoeanton/aio-tracker/internal/domain"
	"github.com/arturoeanton/aio-tracker/internal/middleware"
	"github.com/arturoeanton/aio-tracker/internal/port"
	"github.com/arturoeanton/aio-tracker/internal/service"
)

// MaxUploadBytes caps uploaded session files. Servers should allow request
// bodies of at least this size.
const MaxUploadBytes = 32 << 20

// SessionHandler handles check sessions of a project.
type SessionHandler struct {
	projectScope
	sessions *service.SessionService
	fetch    *service.FetchService
	tracker  *JobTracker
	audit    port.AuditRepository
}

// NewSessionHandler creates a new session handler.
func NewSessionHandler(projects *service.ProjectService, sessions *service.SessionService, fetch *service.FetchService, tracker *JobTracker, audit port.AuditRepository) *SessionHandler {
	return &SessionHandler{
		projectScope: projectScope{projects: projects},
		sessions:     sessions,
		fetch:        fetch,
		tracker:      tracker,
		audit:        audit,
	}
}

// Register sets up session routes on a protected group.
func (h *SessionHandler) Register(api fiber.Router) {
	sessions := api.Group("/projects/:id/sessions")
	sessions.Get("/", h.List)
	sessions.Post("/", h.Upload)
	sessions.Post("/fetch", h.Fetch)
	sessions.Get("/:sid", h.Get)
	sessions.Patch("/:sid", h.Rename)
	sessions.Delete("/:sid", h.Delete)
	sessions.Get("/:sid/keywords", h.Keywords)
	sessions.Get("/:sid/keywords/:keyword", h.KeywordDetail)
	sessions.Delete("/:sid/keywords/:keyword", h.DeleteKeyword)
}

// List returns the sessions of a project, newest first.
func (h *SessionHandler) List(c fiber.Ctx) error {
	p, err := h.project(c)
	if err != nil {
		return fail(c, err)
	}
	sessions, err := h.sessions.List(c.Context(), p, queryInt(c, "limit", 0))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"sessions": sessions, "count": len(sessions)})
}

// Upload stores an uploaded results file as a new session. The file is sent
// either as the raw request body or as the multipart field "file".
func (h *SessionHandler) Upload(c fiber.Ctx) error {
	p, err := h.project(c)
	if err != nil {
		return fail(c, err)
	}

	name := c.Query("name")
	var data []byte
	if strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm) {
		data, err = readFormFile(c)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
		if v := c.FormValue("name"); v != "" {
			name = v
		}
	} else {
		data = c.Body()
	}

	sess, err := h.sessions.Upload(c.Context(), p, data, name)
	if err != nil {
		return fail(c, err)
	}

	h.record(c, domain.AuditActionSessionUpload, sess.ID, fmt.Sprintf(`{"keywords":%d}`, sess.KeywordCount))
	return c.Status(fiber.StatusCreated).JSON(sess)
}

func readFormFile(c fiber.Ctx) ([]byte, error) {
	fh, err := c.FormFile("file")
	if err != nil {
		return nil, fmt.Errorf("missing file field")
	}
	if fh.Size > MaxUploadBytes {
		return nil, fmt.Errorf("file exceeds %d bytes", MaxUploadBytes)
	}
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()
	return io.ReadAll(io.LimitReader(f, MaxUploadBytes))
}

// Fetch starts a background SERP fetch of all project keywords and returns
// 202 with the job ID immediately.
func (h *SessionHandler) Fetch(c fiber.Ctx) error {
	p, err := h.project(c)
	if err != nil {
		return fail(c, err)
	}
	if len(p.Keywords) == 0 {
		return fail(c, port.ErrNoKeywords)
	}

	uc := middleware.GetUserContext(c)
	jobID := uuid.New().String()
	h.tracker.CreateJob(jobID, p.ID, uc.UserID, len(p.Keywords))

	// Run fetch in background, the HTTP connection is not held
	go func() {
		if _, err := h.fetch.Run(context.Background(), p, domain.SessionSourceFetch, h.tracker.Reporter(jobID)); err != nil {
			slog.Error("fetch job failed", "job_id", jobID, "project_id", p.ID, "error", err)
		}
	}()

	h.record(c, domain.AuditActionSessionFetch, jobID, fmt.Sprintf(`{"keywords":%d}`, len(p.Keywords)))
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"job_id":   jobID,
		"keywords": len(p.Keywords),
		"message":  "fetch started",
	})
}

// Get returns one session.
func (h *SessionHandler) Get(c fiber.Ctx) error {
	p, err := h.project(c)
	if err != nil {
		return fail(c, err)
	}
	sess, err := h.sessions.Get(c.Context(), p, c.Params("sid"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(sess)
}

// Rename sets or clears the session name.
func (h *SessionHandler) Rename(c fiber.Ctx) error {
	p, err := h.project(c)
	if err != nil {
		return fail(c, err)
	}
	var body struct {
		Name string `json:"name"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	sess, err := h.sessions.Rename(c.Context(), p, c.Params("sid"), body.Name)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(sess)
}

// Delete removes a session.
func (h *SessionHandler) Delete(c fiber.Ctx) error {
	p, err := h.project(c)
	if err != nil {
		return fail(c, err)
	}
	if err := h.sessions.Delete(c.Context(), p, c.Params("sid")); err != nil {
		return fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Keywords returns the keyword records of a session.
func (h *SessionHandler) Keywords(c fiber.Ctx) error {
	p, err := h.project(c)
	if err != nil {
		return fail(c, err)
	}
	records, err := h.sessions.Keywords(c.Context(), p, c.Params("sid"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"keywords": records, "count": len(records)})
}

// KeywordDetail returns one keyword with its parsed overview.
func (h *SessionHandler) KeywordDetail(c fiber.Ctx) error {
	p, err := h.project(c)
	if err != nil {
		return fail(c, err)
	}
	detail, err := h.sessions.KeywordDetail(c.Context(), p, c.Params("sid"), pathParam(c, "keyword"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(detail)
}

// DeleteKeyword removes one keyword row from a session.
func (h *SessionHandler) DeleteKeyword(c fiber.Ctx) error {
	p, err := h.project(c)
	if err != nil {
		return fail(c, err)
	}
	if err := h.sessions.DeleteKeyword(c.Context(), p, c.Params("sid"), pathParam(c, "keyword")); err != nil {
		return fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *SessionHandler) record(c fiber.Ctx, action, resourceID, details string) {
	if h.audit == nil {
		return
	}
	userID := ""
	if uc := middleware.GetUserContext(c); uc != nil {
		userID = uc.UserID
	}
	if err := h.audit.WriteAudit(userID, action, "session", resourceID, details, c.IP(), c.Get("User-Agent")); err != nil {
		slog.Warn("failed to write audit log", "action", action, "error", err)
	}
}
