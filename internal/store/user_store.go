package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// User represents a volunteer or admin identity.
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// UserStore provides access to users.
type UserStore struct {
	db *sql.DB
}

// NewUserStore creates a new UserStore with the given database connection.
func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{db: db}
}

const userSelectColumns = "id, name, email, role, created_at"

// CreateUserInput describes a user to create.
type CreateUserInput struct {
	Name  string
	Email string
	Role  string
}

// FindByEmail retrieves a user by case-insensitive email.
func (s *UserStore) FindByEmail(ctx context.Context, email string) (*User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, fmt.Errorf("email is required")
	}

	query := "SELECT " + userSelectColumns + " FROM users WHERE LOWER(email) = $1"
	user, err := scanUser(s.db.QueryRowContext(ctx, query, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find user by email: %w", err)
	}

	return &user, nil
}

// Create inserts a new user. The email is stored lowercased so the unique
// index on LOWER(email) cannot be dodged by case variants.
func (s *UserStore) Create(ctx context.Context, input CreateUserInput) (*User, error) {
	name := strings.TrimSpace(input.Name)
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" {
		return nil, fmt.Errorf("email is required")
	}
	if name == "" {
		name = email
	}
	role := strings.TrimSpace(input.Role)
	if role == "" {
		role = "volunteer"
	}

	query := `INSERT INTO users (name, email, role)
		VALUES ($1, $2, $3)
		RETURNING ` + userSelectColumns
	user, err := scanUser(s.db.QueryRowContext(ctx, query, name, email, role))
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return &user, nil
}

// RoleByToken resolves the user id and role for a session token.
func (s *UserStore) RoleByToken(ctx context.Context, token string) (userID, role string, err error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", "", ErrNotFound
	}

	err = s.db.QueryRowContext(
		ctx,
		`SELECT u.id::text, u.role
		   FROM sessions s
		   JOIN users u ON u.id = s.user_id
		  WHERE s.token = $1
		    AND (s.expires_at IS NULL OR s.expires_at > NOW())`,
		token,
	).Scan(&userID, &role)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", "", ErrNotFound
		}
		return "", "", fmt.Errorf("failed to resolve session token: %w", err)
	}

	return userID, role, nil
}

func scanUser(row *sql.Row) (User, error) {
	var user User
	err := row.Scan(&user.ID, &user.Name, &user.Email, &user.Role, &user.CreatedAt)
	return user, err
}
