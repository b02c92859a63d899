package models

import (
	"time"

	"github.com/google/uuid"
)

// User is a dashboard account stored in PostgreSQL.
type User struct {
	ID           uuid.UUID `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	DisplayName  string    `json:"display_name,omitempty"`
	PasswordHash string    `json:"-"` // Don't return password hash in JSON
	IsActive     bool      `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Identity is the resolved owner identity attached to a signed-in session.
type Identity struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name,omitempty"`
}
