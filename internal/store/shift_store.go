package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ShiftType represents a named category of volunteer work.
type ShiftType struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Shift represents a scheduled block of volunteer work.
type Shift struct {
	ID          string    `json:"id"`
	ShiftTypeID string    `json:"shift_type_id"`
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
	Capacity    int       `json:"capacity"`
	Location    *string   `json:"location,omitempty"`
	Notes       *string   `json:"notes,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// ShiftStore provides access to shift types and shifts.
type ShiftStore struct {
	db *sql.DB
}

// NewShiftStore creates a new ShiftStore with the given database connection.
func NewShiftStore(db *sql.DB) *ShiftStore {
	return &ShiftStore{db: db}
}

const shiftSelectColumns = "id, shift_type_id, start_time, end_time, capacity, location, notes, created_at"

// CreateShiftInput describes a shift to create.
type CreateShiftInput struct {
	ShiftTypeID string
	StartTime   time.Time
	EndTime     time.Time
	Capacity    int
	Location    *string
	Notes       *string
}

// FindTypeByName retrieves a shift type by exact name.
func (s *ShiftStore) FindTypeByName(ctx context.Context, name string) (*ShiftType, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("shift type name is required")
	}

	var shiftType ShiftType
	err := s.db.QueryRowContext(
		ctx,
		"SELECT id, name, created_at FROM shift_types WHERE name = $1",
		name,
	).Scan(&shiftType.ID, &shiftType.Name, &shiftType.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find shift type: %w", err)
	}

	return &shiftType, nil
}

// CreateType inserts a new shift type. Concurrent creates of the same name
// collapse onto the existing row.
func (s *ShiftStore) CreateType(ctx context.Context, name string) (*ShiftType, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("shift type name is required")
	}

	var shiftType ShiftType
	err := s.db.QueryRowContext(
		ctx,
		`INSERT INTO shift_types (name)
		 VALUES ($1)
		 ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		 RETURNING id, name, created_at`,
		name,
	).Scan(&shiftType.ID, &shiftType.Name, &shiftType.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create shift type: %w", err)
	}

	return &shiftType, nil
}

// FindByNotesContains retrieves the shift whose notes contain the given
// token. This is how migrated shifts are tied back to their legacy event:
// the schema has no structured foreign key to the legacy system, so the
// back-reference lives inside the free-text notes.
func (s *ShiftStore) FindByNotesContains(ctx context.Context, token string) (*Shift, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, fmt.Errorf("notes token is required")
	}

	query := "SELECT " + shiftSelectColumns + ` FROM shifts
		WHERE notes LIKE '%' || $1 || '%'
		ORDER BY created_at ASC
		LIMIT 1`
	shift, err := scanShift(s.db.QueryRowContext(ctx, query, token))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find shift by notes token: %w", err)
	}

	return &shift, nil
}

// Create inserts a new shift.
func (s *ShiftStore) Create(ctx context.Context, input CreateShiftInput) (*Shift, error) {
	if strings.TrimSpace(input.ShiftTypeID) == "" {
		return nil, fmt.Errorf("shift type id is required")
	}
	if input.StartTime.IsZero() || input.EndTime.IsZero() {
		return nil, fmt.Errorf("start and end times are required")
	}

	query := `INSERT INTO shifts (shift_type_id, start_time, end_time, capacity, location, notes)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + shiftSelectColumns
	shift, err := scanShift(s.db.QueryRowContext(
		ctx,
		query,
		input.ShiftTypeID,
		input.StartTime.UTC(),
		input.EndTime.UTC(),
		input.Capacity,
		nullableString(input.Location),
		nullableString(input.Notes),
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create shift: %w", err)
	}

	return &shift, nil
}

func scanShift(row *sql.Row) (Shift, error) {
	var shift Shift
	err := row.Scan(
		&shift.ID,
		&shift.ShiftTypeID,
		&shift.StartTime,
		&shift.EndTime,
		&shift.Capacity,
		&shift.Location,
		&shift.Notes,
		&shift.CreatedAt,
	)
	return shift, err
}
