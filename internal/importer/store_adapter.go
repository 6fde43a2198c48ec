package importer

import (
	"context"
	"database/sql"

	"github.com/harborlights/harbor/internal/store"
)

// dbStore bundles the entity stores behind the importer's Store port.
type dbStore struct {
	users   *store.UserStore
	shifts  *store.ShiftStore
	signups *store.SignupStore
}

// NewStore builds the database-backed Store used outside of tests.
func NewStore(db *sql.DB) Store {
	return &dbStore{
		users:   store.NewUserStore(db),
		shifts:  store.NewShiftStore(db),
		signups: store.NewSignupStore(db),
	}
}

func (s *dbStore) FindUserByEmail(ctx context.Context, email string) (*store.User, error) {
	return s.users.FindByEmail(ctx, email)
}

func (s *dbStore) CreateUser(ctx context.Context, input store.CreateUserInput) (*store.User, error) {
	return s.users.Create(ctx, input)
}

func (s *dbStore) FindShiftTypeByName(ctx context.Context, name string) (*store.ShiftType, error) {
	return s.shifts.FindTypeByName(ctx, name)
}

func (s *dbStore) CreateShiftType(ctx context.Context, name string) (*store.ShiftType, error) {
	return s.shifts.CreateType(ctx, name)
}

func (s *dbStore) FindShiftByNotesContains(ctx context.Context, token string) (*store.Shift, error) {
	return s.shifts.FindByNotesContains(ctx, token)
}

func (s *dbStore) CreateShift(ctx context.Context, input store.CreateShiftInput) (*store.Shift, error) {
	return s.shifts.Create(ctx, input)
}

func (s *dbStore) FindSignupByUserAndShift(ctx context.Context, userID, shiftID string) (*store.Signup, error) {
	return s.signups.FindByUserAndShift(ctx, userID, shiftID)
}

func (s *dbStore) CreateSignup(ctx context.Context, input store.CreateSignupInput) (*store.Signup, error) {
	return s.signups.Create(ctx, input)
}
