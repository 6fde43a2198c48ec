package importer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/harborlights/harbor/internal/nova"
	"github.com/harborlights/harbor/internal/store"
)

const (
	// FallbackShiftTypeName labels shifts whose signups carry no position
	// information.
	FallbackShiftTypeName = "General Volunteering"

	defaultShiftDuration = 4 * time.Hour
)

// NovaIDToken is the back-reference embedded in a migrated shift's notes.
// It is the de-facto unique key tying a local shift to its legacy event;
// the schema has no structured foreign key to the legacy system.
func NovaIDToken(eventID int64) string {
	return fmt.Sprintf("Nova ID: %d", eventID)
}

// ShiftFields are the local shift attributes derived from a legacy event.
type ShiftFields struct {
	TypeName  string
	StartTime time.Time
	EndTime   time.Time
	Capacity  int
	Location  *string
	Notes     string
}

// SignupFields are the local signup attributes derived from a legacy
// event application.
type SignupFields struct {
	Status    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TransformEvent derives local shift fields from a legacy event and the
// position names of its surviving signups.
func TransformEvent(event *nova.Resource, positionNames []string) (ShiftFields, error) {
	date, ok := event.Time("date")
	if !ok {
		return ShiftFields{}, fmt.Errorf("legacy event %d has no parseable date", event.ID)
	}

	start := combineDateAndClock(date, event.String("start_time"))
	end := combineDateAndClock(date, event.String("end_time"))
	if !end.After(start) {
		end = start.Add(defaultShiftDuration)
	}

	capacity := 0
	if needed, ok := event.Int("volunteers_needed"); ok && needed > 0 {
		capacity = int(needed)
	}

	var location *string
	if loc := event.String("location"); loc != "" {
		location = &loc
	}

	fields := ShiftFields{
		TypeName:  DeriveShiftTypeName(positionNames),
		StartTime: start,
		EndTime:   end,
		Capacity:  capacity,
		Location:  location,
		Notes:     buildShiftNotes(event.String("notes"), event.ID),
	}
	return fields, nil
}

// DeriveShiftTypeName picks the representative position name: the most
// frequent non-empty name, first seen winning ties. With no position
// information at all it falls back to FallbackShiftTypeName.
func DeriveShiftTypeName(positionNames []string) string {
	counts := make(map[string]int, len(positionNames))
	order := make([]string, 0, len(positionNames))
	for _, name := range positionNames {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if counts[name] == 0 {
			order = append(order, name)
		}
		counts[name]++
	}

	best := ""
	bestCount := 0
	for _, name := range order {
		if counts[name] > bestCount {
			best = name
			bestCount = counts[name]
		}
	}
	if best == "" {
		return FallbackShiftTypeName
	}
	return best
}

// buildShiftNotes preserves the legacy free-text note and appends the
// mandatory back-reference token.
func buildShiftNotes(legacyNote string, eventID int64) string {
	token := NovaIDToken(eventID)
	legacyNote = strings.TrimSpace(legacyNote)
	if legacyNote == "" {
		return token
	}
	return legacyNote + "\n\n" + token
}

// combineDateAndClock overlays a "15:04" or "15:04:05" clock string on a
// date. The legacy panel sometimes stores event times on the date itself
// and sometimes in separate clock fields.
func combineDateAndClock(date time.Time, clock string) time.Time {
	clock = strings.TrimSpace(clock)
	if clock == "" {
		return date
	}
	for _, layout := range []string{"15:04:05", "15:04"} {
		if parsed, err := time.Parse(layout, clock); err == nil {
			return time.Date(
				date.Year(), date.Month(), date.Day(),
				parsed.Hour(), parsed.Minute(), parsed.Second(), 0,
				date.Location(),
			)
		}
	}
	return date
}

// TransformSignup derives local signup fields from a legacy event
// application. It never fails: the status filter has already gated
// inclusion, so an unmapped status degrades to a safe default.
func TransformSignup(application *nova.Resource) SignupFields {
	statusID, statusName := applicationStatus(application)

	createdAt, _ := application.Time("created_at")
	updatedAt, ok := application.Time("updated_at")
	if !ok {
		updatedAt = createdAt
	}

	return SignupFields{
		Status:    localSignupStatus(statusID, statusName),
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
	}
}

// TransformUser extracts local user fields from a legacy user resource.
// Search endpoints return abbreviated projections, so when the name is
// missing a full fetch-by-id fills it in.
func TransformUser(ctx context.Context, user *nova.Resource, directory LegacyDirectory) (store.CreateUserInput, error) {
	email := strings.ToLower(strings.TrimSpace(user.String("email")))
	if email == "" {
		return store.CreateUserInput{}, fmt.Errorf("legacy user %d has no email", user.ID)
	}

	name := legacyUserName(user)
	if name == "" && directory != nil {
		full, err := directory.User(ctx, user.ID)
		if err == nil && full != nil {
			name = legacyUserName(full)
		}
	}
	if name == "" {
		name = email
	}

	return store.CreateUserInput{
		Name:  name,
		Email: email,
		Role:  "volunteer",
	}, nil
}

func legacyUserName(user *nova.Resource) string {
	if name := user.String("name"); name != "" {
		return name
	}
	first := user.String("first_name")
	last := user.String("last_name")
	return strings.TrimSpace(first + " " + last)
}

// applicationStatus reads the status id and display name off a legacy
// event application. The status field is a belongs-to whose display value
// carries the name.
func applicationStatus(application *nova.Resource) (*int64, string) {
	var statusID *int64
	if id, ok := application.BelongsTo("status"); ok {
		statusID = &id
	} else if id, ok := application.Int("status_id"); ok {
		statusID = &id
	}

	statusName := application.String("status")
	if statusName == "" {
		statusName = application.String("status_name")
	}
	return statusID, statusName
}
