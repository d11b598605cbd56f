package port

import "errors"

// Sentinel errors used across ports.
var (
	ErrUnauthorized          = errors.New("unauthorized")
	ErrTokenExpired          = errors.New("token expired")
	ErrTokenInvalid          = errors.New("token invalid")
	ErrUserNotFound          = errors.New("user not found")
	ErrEmailTaken            = errors.New("email already registered")
	ErrInvalidCredentials    = errors.New("invalid email or password")
	ErrProjectNotFound       = errors.New("project not found")
	ErrSessionNotFound       = errors.New("session not found")
	ErrKeywordNotFound       = errors.New("keyword not found")
	ErrUnsupportedFormat     = errors.New("unsupported upload format")
	ErrNoKeywords            = errors.New("no keywords")
	ErrProviderNotConfigured = errors.New("serp provider not configured")
	ErrInvalidInput          = errors.New("invalid input")
	ErrNotEnoughSessions     = errors.New("at least two sessions are required")
)
