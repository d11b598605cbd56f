package middleware

import (
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"

	"github.com/arturoeanton/aio-tracker/internal/domain"
)

// AuditWriter defines how audit records are persisted.
type AuditWriter interface {
	WriteAudit(userID, action, resource, resourceID, details, ip, userAgent string) error
}

// probePaths are polled by infrastructure and never audited.
var probePaths = map[string]bool{
	"/metrics":       true,
	"/api/v1/health": true,
}

type requestDetails struct {
	Method     string `json:"method"`
	Route      string `json:"route,omitempty"`
	Status     int    `json:"status"`
	DurationMS int64  `json:"duration_ms"`
}

// AuditMiddleware records one audit entry per API request, attributed to the
// authenticated user when the JWT middleware ran. Writes happen in the
// background.
func AuditMiddleware(writer AuditWriter) fiber.Handler {
	return func(c fiber.Ctx) error {
		// Fiber reuses the context after the handler returns; copy first.
		path := strings.Clone(c.Path())
		if probePaths[path] {
			return c.Next()
		}
		start := time.Now()
		method := strings.Clone(c.Method())
		ip := strings.Clone(c.IP())
		userAgent := strings.Clone(c.Get(fiber.HeaderUserAgent))

		err := c.Next()

		userID := "anonymous"
		if uc := GetUserContext(c); uc != nil {
			userID = uc.UserID
		}
		d := requestDetails{
			Method:     method,
			Status:     c.Response().StatusCode(),
			DurationMS: time.Since(start).Milliseconds(),
		}
		if r := c.Route(); r != nil {
			d.Route = r.Path
		}
		details, _ := json.Marshal(d)

		go func() {
			if werr := writer.WriteAudit(userID, domain.AuditActionHTTPRequest, "api", path, string(details), ip, userAgent); werr != nil {
				slog.Error("failed to write audit log", "path", path, "error", werr)
			}
		}()
		return err
	}
}
