package handler

import (
	"net/url"

	"github.com/gofiber/fiber/v3"

	"github.com/arturoeanton/aio-tracker/internal/domain"
	"github.com/arturoeanton/aio-tracker/internal/middleware"
	"github.com/arturoeanton/aio-tracker/internal/port"
	"github.com/arturoeanton/aio-tracker/internal/service"
)

// projectScope resolves the :id route parameter to a project owned by the
// current user.
type projectScope struct {
	projects *service.ProjectService
}

func (s projectScope) project(c fiber.Ctx) (*domain.Project, error) {
	uc := middleware.GetUserContext(c)
	if uc == nil {
		return nil, port.ErrUnauthorized
	}
	return s.projects.Get(c.Context(), uc.UserID, c.Params("id"))
}

// pathParam returns a route parameter with percent-escapes decoded.
func pathParam(c fiber.Ctx, key string) string {
	v := c.Params(key)
	if decoded, err := url.PathUnescape(v); err == nil {
		return decoded
	}
	return v
}

func isAdmin(c fiber.Ctx) bool {
	uc := middleware.GetUserContext(c)
	return uc != nil && uc.Role == "admin"
}
