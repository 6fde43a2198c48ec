package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShiftStore_TypeFindOrCreate(t *testing.T) {
	connStr := getTestDatabaseURL(t)
	db := setupTestDatabase(t, connStr)

	store := NewShiftStore(db)
	ctx := context.Background()

	_, err := store.FindTypeByName(ctx, "Kitchen")
	assert.ErrorIs(t, err, ErrNotFound)

	created, err := store.CreateType(ctx, "Kitchen")
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)

	again, err := store.CreateType(ctx, "Kitchen")
	require.NoError(t, err)
	assert.Equal(t, created.ID, again.ID)

	found, err := store.FindTypeByName(ctx, "Kitchen")
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)
}

func TestShiftStore_FindByNotesContains(t *testing.T) {
	connStr := getTestDatabaseURL(t)
	db := setupTestDatabase(t, connStr)

	store := NewShiftStore(db)
	ctx := context.Background()

	shiftType, err := store.CreateType(ctx, "Front Desk")
	require.NoError(t, err)

	notes := "Imported from legacy records.\n\nNova ID: 4521"
	start := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	created, err := store.Create(ctx, CreateShiftInput{
		ShiftTypeID: shiftType.ID,
		StartTime:   start,
		EndTime:     start.Add(4 * time.Hour),
		Capacity:    6,
		Notes:       &notes,
	})
	require.NoError(t, err)

	found, err := store.FindByNotesContains(ctx, "Nova ID: 4521")
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)

	_, err = store.FindByNotesContains(ctx, "Nova ID: 9999")
	assert.ErrorIs(t, err, ErrNotFound)
}
