package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Signup represents a volunteer's commitment to a single shift.
type Signup struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	ShiftID   string    `json:"shift_id"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SignupStore provides access to signups.
type SignupStore struct {
	db *sql.DB
}

// NewSignupStore creates a new SignupStore with the given database connection.
func NewSignupStore(db *sql.DB) *SignupStore {
	return &SignupStore{db: db}
}

const signupSelectColumns = "id, user_id, shift_id, status, created_at, updated_at"

// CreateSignupInput describes a signup to create.
type CreateSignupInput struct {
	UserID    string
	ShiftID   string
	Status    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// FindByUserAndShift retrieves the signup for a (user, shift) pair.
func (s *SignupStore) FindByUserAndShift(ctx context.Context, userID, shiftID string) (*Signup, error) {
	if strings.TrimSpace(userID) == "" || strings.TrimSpace(shiftID) == "" {
		return nil, fmt.Errorf("user id and shift id are required")
	}

	query := "SELECT " + signupSelectColumns + " FROM signups WHERE user_id = $1 AND shift_id = $2"
	signup, err := scanSignup(s.db.QueryRowContext(ctx, query, userID, shiftID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find signup: %w", err)
	}

	return &signup, nil
}

// Create inserts a new signup. A concurrent duplicate for the same
// (user, shift) pair collapses onto the existing row.
func (s *SignupStore) Create(ctx context.Context, input CreateSignupInput) (*Signup, error) {
	if strings.TrimSpace(input.UserID) == "" || strings.TrimSpace(input.ShiftID) == "" {
		return nil, fmt.Errorf("user id and shift id are required")
	}
	status := strings.TrimSpace(input.Status)
	if status == "" {
		status = "pending"
	}
	createdAt := input.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	updatedAt := input.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = createdAt
	}

	query := `INSERT INTO signups (user_id, shift_id, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id, shift_id) DO UPDATE SET updated_at = signups.updated_at
		RETURNING ` + signupSelectColumns
	signup, err := scanSignup(s.db.QueryRowContext(
		ctx,
		query,
		input.UserID,
		input.ShiftID,
		status,
		createdAt.UTC(),
		updatedAt.UTC(),
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create signup: %w", err)
	}

	return &signup, nil
}

// CountForShift returns the number of signups attached to a shift.
func (s *SignupStore) CountForShift(ctx context.Context, shiftID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(
		ctx,
		"SELECT COUNT(*) FROM signups WHERE shift_id = $1",
		shiftID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count signups: %w", err)
	}
	return count, nil
}

func scanSignup(row *sql.Row) (Signup, error) {
	var signup Signup
	err := row.Scan(
		&signup.ID,
		&signup.UserID,
		&signup.ShiftID,
		&signup.Status,
		&signup.CreatedAt,
		&signup.UpdatedAt,
	)
	return signup, err
}
