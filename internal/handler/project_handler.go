package handler

import (
	"github.com/gofiber/fiber/v3"

	"github.com/arturoeanton/aio-tracker/internal/middleware"
	"github.com/arturoeanton/aio-tracker/internal/service"
)

// ProjectHandler handles project CRUD.
type ProjectHandler struct {
	projects *service.ProjectService
}

// NewProjectHandler creates a new project handler.
func NewProjectHandler(projects *service.ProjectService) *ProjectHandler {
	return &ProjectHandler{projects: projects}
}

// Register sets up project routes on a protected group.
func (h *ProjectHandler) Register(api fiber.Router) {
	projects := api.Group("/projects")
	projects.Get("/", h.List)
	projects.Post("/", h.Create)
	projects.Get("/:id", h.Get)
	projects.Put("/:id", h.Update)
	projects.Delete("/:id", h.Delete)
}

// List returns the projects of the current user.
func (h *ProjectHandler) List(c fiber.Ctx) error {
	uc := middleware.GetUserContext(c)
	if uc == nil {
		return unauthorized(c)
	}
	projects, err := h.projects.List(c.Context(), uc.UserID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"projects": projects, "count": len(projects)})
}

// Create adds a project.
func (h *ProjectHandler) Create(c fiber.Ctx) error {
	uc := middleware.GetUserContext(c)
	if uc == nil {
		return unauthorized(c)
	}
	var body service.ProjectInput
	if err := c.Bind().JSON(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	created, err := h.projects.Create(c.Context(), uc.UserID, body)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(created)
}

// Get returns one project.
func (h *ProjectHandler) Get(c fiber.Ctx) error {
	uc := middleware.GetUserContext(c)
	if uc == nil {
		return unauthorized(c)
	}
	p, err := h.projects.Get(c.Context(), uc.UserID, c.Params("id"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(p)
}

// Update replaces the editable fields of a project.
func (h *ProjectHandler) Update(c fiber.Ctx) error {
	uc := middleware.GetUserContext(c)
	if uc == nil {
		return unauthorized(c)
	}
	var body service.ProjectInput
	if err := c.Bind().JSON(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	updated, err := h.projects.Update(c.Context(), uc.UserID, c.Params("id"), body)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(updated)
}

// Delete removes a project with all its sessions.
func (h *ProjectHandler) Delete(c fiber.Ctx) error {
	uc := middleware.GetUserContext(c)
	if uc == nil {
		return unauthorized(c)
	}
	if err := h.projects.Delete(c.Context(), uc.UserID, c.Params("id")); err != nil {
		return fail(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
