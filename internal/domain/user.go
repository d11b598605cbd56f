package domain

import "time"

// User represents an authenticated dashboard user.
type User struct {
	ID           string    `json:"id"         db:"id"`
	Email        string    `json:"email"      db:"email"`
	Name         string    `json:"name"       db:"name"`
	PasswordHash string    `json:"-"          db:"password_hash"` // never serialized to JSON
	Role         string    `json:"role"       db:"role"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// UserContext is the authenticated user context injected into request handlers.
type UserContext struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Name   string `json:"name"`
	Role   string `json:"role"`
}
