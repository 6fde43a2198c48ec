package importer

import (
	"context"

	"github.com/harborlights/harbor/internal/nova"
	"github.com/harborlights/harbor/internal/store"
)

// LegacyDirectory is the read surface of the legacy admin panel the
// orchestrator consumes. *nova.Client satisfies it; tests substitute fakes.
type LegacyDirectory interface {
	SearchUsers(ctx context.Context, search string) ([]nova.Resource, error)
	User(ctx context.Context, id int64) (*nova.Resource, error)
	EventApplicationsPage(ctx context.Context, userID int64, pageURL string) (*nova.Envelope, error)
	Event(ctx context.Context, id int64) (*nova.Resource, error)
}

// Store is the persistence surface the orchestrator writes through.
// Find-or-create only; the migration never deletes or overwrites rows it
// does not own.
type Store interface {
	FindUserByEmail(ctx context.Context, email string) (*store.User, error)
	CreateUser(ctx context.Context, input store.CreateUserInput) (*store.User, error)
	FindShiftTypeByName(ctx context.Context, name string) (*store.ShiftType, error)
	CreateShiftType(ctx context.Context, name string) (*store.ShiftType, error)
	FindShiftByNotesContains(ctx context.Context, token string) (*store.Shift, error)
	CreateShift(ctx context.Context, input store.CreateShiftInput) (*store.Shift, error)
	FindSignupByUserAndShift(ctx context.Context, userID, shiftID string) (*store.Signup, error)
	CreateSignup(ctx context.Context, input store.CreateSignupInput) (*store.Signup, error)
}
