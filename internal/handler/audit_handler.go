package handler

import (
	"github.com/gofiber/fiber/v3"

	"github.com/arturoeanton/aio-tracker/internal/port"
)

// AuditHandler handles audit log endpoints.
type AuditHandler struct {
	audit port.AuditRepository
}

// NewAuditHandler creates a new audit handler.
func NewAuditHandler(audit port.AuditRepository) *AuditHandler {
	return &AuditHandler{audit: audit}
}

// Register sets up audit routes.
func (h *AuditHandler) Register(router fiber.Router) {
	audit := router.Group("/audit")
	audit.Get("/logs", h.ListLogs)
}

// ListLogs returns audit logs with optional filtering. Only admins may read
// them.
func (h *AuditHandler) ListLogs(c fiber.Ctx) error {
	if !isAdmin(c) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "admin role required"})
	}

	logs, err := h.audit.ListAuditLogs(c.Context(), queryInt(c, "limit", 100), c.Query("action", ""))
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(fiber.Map{
		"logs":  logs,
		"count": len(logs),
	})
}
