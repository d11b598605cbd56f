package handler

import (
	"log/slog"

	"github.com/gofiber/fiber/v3"

	"github.com/arturoeanton/aio-tracker/internal/domain"
	"github.com/arturoeanton/aio-tracker/internal/middleware"
	"github.com/arturoeanton/aio-tracker/internal/port"
	"github.com/arturoeanton/aio-tracker/internal/service"
)

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	authService *service.AuthService
	audit       port.AuditRepository
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(authService *service.AuthService, audit port.AuditRepository) *AuthHandler {
	return &AuthHandler{authService: authService, audit: audit}
}

// Register sets up the public auth routes.
func (h *AuthHandler) Register(router fiber.Router) {
	auth := router.Group("/auth")
	auth.Post("/signup", h.Signup)
	auth.Post("/login", h.Login)
}

// RegisterProtected sets up the auth routes that need a token.
func (h *AuthHandler) RegisterProtected(api fiber.Router) {
	api.Get("/auth/me", h.Me)
}

type credentials struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

// Signup creates an account and returns its token.
func (h *AuthHandler) Signup(c fiber.Ctx) error {
	var body credentials
	if err := c.Bind().JSON(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	token, user, err := h.authService.Signup(c.Context(), body.Email, body.Name, body.Password)
	if err != nil {
		return fail(c, err)
	}

	h.record(c, user.ID, domain.AuditActionSignup)
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"token": token, "user": user})
}

// Login exchanges credentials for a token.
func (h *AuthHandler) Login(c fiber.Ctx) error {
	var body credentials
	if err := c.Bind().JSON(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	token, user, err := h.authService.Login(c.Context(), body.Email, body.Password)
	if err != nil {
		return fail(c, err)
	}

	h.record(c, user.ID, domain.AuditActionLogin)
	return c.JSON(fiber.Map{"token": token, "user": user})
}

// Me returns the authenticated user.
func (h *AuthHandler) Me(c fiber.Ctx) error {
	uc := middleware.GetUserContext(c)
	if uc == nil {
		return unauthorized(c)
	}
	user, err := h.authService.Me(c.Context(), uc.UserID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(user)
}

func (h *AuthHandler) record(c fiber.Ctx, userID, action string) {
	if h.audit == nil {
		return
	}
	if err := h.audit.WriteAudit(userID, action, "user", userID, "{}", c.IP(), c.Get("User-Agent")); err != nil {
		slog.Warn("failed to write audit log", "action", action, "error", err)
	}
}
