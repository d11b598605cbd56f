package handler

import (
	"errors"
	"log/slog"
	"strconv"

	"github.com/gofiber/fiber/v3"

	"github.com/arturoeanton/aio-tracker/internal/port"
)

// errorStatus maps service errors to HTTP statuses.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, port.ErrProjectNotFound),
		errors.Is(err, port.ErrSessionNotFound),
		errors.Is(err, port.ErrKeywordNotFound),
		errors.Is(err, port.ErrUserNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, port.ErrUnauthorized),
		errors.Is(err, port.ErrInvalidCredentials),
		errors.Is(err, port.ErrTokenExpired),
		errors.Is(err, port.ErrTokenInvalid):
		return fiber.StatusUnauthorized
	case errors.Is(err, port.ErrEmailTaken):
		return fiber.StatusConflict
	case errors.Is(err, port.ErrInvalidInput),
		errors.Is(err, port.ErrUnsupportedFormat),
		errors.Is(err, port.ErrNoKeywords),
		errors.Is(err, port.ErrNotEnoughSessions):
		return fiber.StatusBadRequest
	case errors.Is(err, port.ErrProviderNotConfigured):
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}

// fail writes err as a JSON error body with its mapped status.
func fail(c fiber.Ctx, err error) error {
	status := errorStatus(err)
	if status == fiber.StatusInternalServerError {
		slog.Error("request failed", "method", c.Method(), "path", c.Path(), "error", err)
	}
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}

func unauthorized(c fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized"})
}

func queryInt(c fiber.Ctx, key string, defaultVal int) int {
	v := c.Query(key)
	if v == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return n
}
