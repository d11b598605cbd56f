package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/arturoeanton/aio-tracker/internal/domain"
	"github.com/arturoeanton/aio-tracker/internal/middleware"
	"github.com/arturoeanton/aio-tracker/internal/port"
)

const minPasswordLength = 8

// AuthService handles signup, login and token issuing.
type AuthService struct {
	users  port.UserRepository
	jwtCfg middleware.JWTConfig
	cost   int
}

// NewAuthService creates a new authentication service.
func NewAuthService(users port.UserRepository, jwtCfg middleware.JWTConfig) *AuthService {
	return &AuthService{users: users, jwtCfg: jwtCfg, cost: bcrypt.DefaultCost}
}

// Signup registers a user and returns a token for it.
func (s *AuthService) Signup(ctx context.Context, email, name, password string) (string, *domain.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if _, err := mail.ParseAddress(email); err != nil {
		return "", nil, fmt.Errorf("%w: invalid email", port.ErrInvalidInput)
	}
	if len(password) < minPasswordLength {
		return "", nil, fmt.Errorf("%w: password must have at least %d characters", port.ErrInvalidInput, minPasswordLength)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return "", nil, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.users.CreateUser(ctx, &domain.User{
		Email:        email,
		Name:         strings.TrimSpace(name),
		PasswordHash: string(hash),
		Role:         "user",
	})
	if err != nil {
		return "", nil, err
	}

	token, err := middleware.GenerateJWT(user, s.jwtCfg)
	if err != nil {
		return "", nil, fmt.Errorf("generate jwt: %w", err)
	}

	slog.Info("user signed up", "user_id", user.ID)
	return token, user, nil
}

// Login checks the credentials and returns a fresh token.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, *domain.User, error) {
	user, err := s.users.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, port.ErrUserNotFound) {
		return "", nil, port.ErrInvalidCredentials
	}
	if err != nil {
		return "", nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return "", nil, port.ErrInvalidCredentials
	}

	token, err := middleware.GenerateJWT(user, s.jwtCfg)
	if err != nil {
		return "", nil, fmt.Errorf("generate jwt: %w", err)
	}

	slog.Info("user authenticated", "user_id", user.ID)
	return token, user, nil
}

// Me returns the current user.
func (s *AuthService) Me(ctx context.Context, userID string) (*domain.User, error) {
	return s.users.GetUserByID(ctx, userID)
}
