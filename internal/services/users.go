package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/tmkoushik/cfgvault-backend/internal/models"
	"github.com/tmkoushik/cfgvault-backend/pkg/utils"
)

var (
	// ErrUsernameTaken is returned when signup hits the unique username constraint.
	ErrUsernameTaken = errors.New("username is already taken")
	// ErrInvalidCredentials is returned for a bad username/password pair.
	ErrInvalidCredentials = errors.New("invalid username or password")
)

// UserService manages dashboard accounts in PostgreSQL.
type UserService struct {
	db *sql.DB
}

func NewUserService(db *sql.DB) *UserService {
	return &UserService{db: db}
}

// Create registers a new account. The username must pass format validation
// and the password must be at least 8 characters.
func (s *UserService) Create(ctx context.Context, username, email, displayName, password string) (*models.User, error) {
	if err := utils.ValidateUsername(username); err != nil {
		return nil, err
	}
	if len(password) < 8 {
		return nil, &utils.ValidationError{Field: "password", Message: "Password must be at least 8 characters"}
	}
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, &utils.ValidationError{Field: "email", Message: "Email is required"}
	}

	hash, err := utils.HashPassword(password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Username:    strings.TrimSpace(username),
		Email:       email,
		DisplayName: strings.TrimSpace(displayName),
	}

	err = s.db.QueryRowContext(ctx, `
		INSERT INTO users (username, email, display_name, password_hash)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`, user.Username, user.Email, user.DisplayName, hash).Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" { // unique_violation
			return nil, ErrUsernameTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	user.IsActive = true
	return user, nil
}

// Authenticate verifies a username/password pair and returns the account.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	normalized := utils.NormalizeUsername(username)

	user := &models.User{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, username, email, display_name, password_hash, created_at
		FROM users WHERE LOWER(username) = $1 AND is_active = TRUE
	`, normalized).Scan(&user.ID, &user.Username, &user.Email, &user.DisplayName, &user.PasswordHash, &user.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	ok, err := utils.VerifyPassword(password, user.PasswordHash)
	if err != nil || !ok {
		return nil, ErrInvalidCredentials
	}

	user.IsActive = true
	return user, nil
}

// GetByID retrieves an active account by its ID. Returns (nil, nil) when the
// account does not exist or is inactive.
func (s *UserService) GetByID(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	user := &models.User{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, username, email, display_name, created_at
		FROM users WHERE id = $1 AND is_active = TRUE
	`, userID).Scan(&user.ID, &user.Username, &user.Email, &user.DisplayName, &user.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	user.IsActive = true
	return user, nil
}
