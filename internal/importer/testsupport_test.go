package importer

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/harborlights/harbor/internal/nova"
	"github.com/harborlights/harbor/internal/store"
)

// mustResource builds a nova.Resource the same way the wire does: from the
// legacy field-array JSON.
func mustResource(t *testing.T, raw string) nova.Resource {
	t.Helper()
	var resource nova.Resource
	require.NoError(t, json.Unmarshal([]byte(raw), &resource))
	return resource
}

func legacyUserJSON(id int64, name, email string) string {
	return fmt.Sprintf(`{
		"id": {"value": %d},
		"fields": [
			{"attribute": "name", "value": %q},
			{"attribute": "email", "value": %q}
		]
	}`, id, name, email)
}

func legacyEventJSON(id int64, date, name string) string {
	return fmt.Sprintf(`{
		"id": {"value": %d},
		"fields": [
			{"attribute": "name", "value": %q},
			{"attribute": "date", "value": %q},
			{"attribute": "location", "value": "Main Hall"},
			{"attribute": "volunteers_needed", "value": 8}
		]
	}`, id, name, date)
}

func legacyApplicationJSON(id, eventID int64, position, status string, statusID int64) string {
	return fmt.Sprintf(`{
		"id": {"value": %d},
		"fields": [
			{"attribute": "event", "value": "Event", "belongsToId": %d},
			{"attribute": "position", "value": %q, "belongsToId": 1},
			{"attribute": "status", "value": %q, "belongsToId": %d},
			{"attribute": "created_at", "value": "2023-01-05 10:00:00"},
			{"attribute": "updated_at", "value": "2023-01-06 10:00:00"}
		]
	}`, id, eventID, position, status, statusID)
}

// fakeDirectory is an in-memory LegacyDirectory.
type fakeDirectory struct {
	users        []nova.Resource
	events       map[int64]nova.Resource
	eventErrs    map[int64]error
	pages        []nova.Envelope
	pageRequests int
	searchErr    error
	fullUsers    map[int64]nova.Resource
	fullFetches  int
}

func (d *fakeDirectory) SearchUsers(_ context.Context, _ string) ([]nova.Resource, error) {
	if d.searchErr != nil {
		return nil, d.searchErr
	}
	return d.users, nil
}

func (d *fakeDirectory) User(_ context.Context, id int64) (*nova.Resource, error) {
	d.fullFetches++
	if full, ok := d.fullUsers[id]; ok {
		return &full, nil
	}
	return nil, fmt.Errorf("legacy user %d not found", id)
}

func (d *fakeDirectory) EventApplicationsPage(_ context.Context, _ int64, _ string) (*nova.Envelope, error) {
	if d.pageRequests >= len(d.pages) {
		return &nova.Envelope{}, nil
	}
	page := d.pages[d.pageRequests]
	d.pageRequests++
	return &page, nil
}

func (d *fakeDirectory) Event(_ context.Context, id int64) (*nova.Resource, error) {
	if err, ok := d.eventErrs[id]; ok {
		return nil, err
	}
	event, ok := d.events[id]
	if !ok {
		return nil, fmt.Errorf("legacy event %d not found", id)
	}
	return &event, nil
}

// fakeStore is an in-memory Store that records create calls.
type fakeStore struct {
	nextID int

	usersByEmail     map[string]*store.User
	shiftTypesByName map[string]*store.ShiftType
	shifts           []*store.Shift
	signups          map[string]*store.Signup

	userCreates      int
	shiftTypeCreates int
	shiftCreates     int
	signupCreates    int

	// shiftCreateErr fails the next CreateShift call, then clears.
	shiftCreateErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		usersByEmail:     make(map[string]*store.User),
		shiftTypesByName: make(map[string]*store.ShiftType),
		signups:          make(map[string]*store.Signup),
	}
}

func (s *fakeStore) id() string {
	s.nextID++
	return "id-" + strconv.Itoa(s.nextID)
}

func (s *fakeStore) createCalls() int {
	return s.userCreates + s.shiftTypeCreates + s.shiftCreates + s.signupCreates
}

func (s *fakeStore) FindUserByEmail(_ context.Context, email string) (*store.User, error) {
	if user, ok := s.usersByEmail[email]; ok {
		return user, nil
	}
	return nil, store.ErrNotFound
}

func (s *fakeStore) CreateUser(_ context.Context, input store.CreateUserInput) (*store.User, error) {
	s.userCreates++
	user := &store.User{ID: s.id(), Name: input.Name, Email: input.Email, Role: input.Role}
	s.usersByEmail[input.Email] = user
	return user, nil
}

func (s *fakeStore) FindShiftTypeByName(_ context.Context, name string) (*store.ShiftType, error) {
	if shiftType, ok := s.shiftTypesByName[name]; ok {
		return shiftType, nil
	}
	return nil, store.ErrNotFound
}

func (s *fakeStore) CreateShiftType(_ context.Context, name string) (*store.ShiftType, error) {
	s.shiftTypeCreates++
	shiftType := &store.ShiftType{ID: s.id(), Name: name}
	s.shiftTypesByName[name] = shiftType
	return shiftType, nil
}

func (s *fakeStore) FindShiftByNotesContains(_ context.Context, token string) (*store.Shift, error) {
	for _, shift := range s.shifts {
		if shift.Notes != nil && strings.Contains(*shift.Notes, token) {
			return shift, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *fakeStore) CreateShift(_ context.Context, input store.CreateShiftInput) (*store.Shift, error) {
	if s.shiftCreateErr != nil {
		err := s.shiftCreateErr
		s.shiftCreateErr = nil
		return nil, err
	}
	s.shiftCreates++
	shift := &store.Shift{
		ID:          s.id(),
		ShiftTypeID: input.ShiftTypeID,
		StartTime:   input.StartTime,
		EndTime:     input.EndTime,
		Capacity:    input.Capacity,
		Location:    input.Location,
		Notes:       input.Notes,
	}
	s.shifts = append(s.shifts, shift)
	return shift, nil
}

func (s *fakeStore) FindSignupByUserAndShift(_ context.Context, userID, shiftID string) (*store.Signup, error) {
	if signup, ok := s.signups[userID+"|"+shiftID]; ok {
		return signup, nil
	}
	return nil, store.ErrNotFound
}

func (s *fakeStore) CreateSignup(_ context.Context, input store.CreateSignupInput) (*store.Signup, error) {
	s.signupCreates++
	signup := &store.Signup{
		ID:      s.id(),
		UserID:  input.UserID,
		ShiftID: input.ShiftID,
		Status:  input.Status,
	}
	s.signups[input.UserID+"|"+input.ShiftID] = signup
	return signup, nil
}
