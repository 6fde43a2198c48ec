// Package importer reconstructs local shifts and signups from the legacy
// Nova admin panel's historical records.
package importer

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/harborlights/harbor/internal/nova"
	"github.com/harborlights/harbor/internal/progress"
	"github.com/harborlights/harbor/internal/store"
)

// Options controls a migration run.
type Options struct {
	// DryRun executes the full decision path but performs no store
	// mutations; would-be writes get in-memory placeholder ids.
	DryRun bool
	// IncludeShifts and IncludeSignups narrow what gets persisted.
	// Skipping shifts implies skipping their signups.
	IncludeShifts  bool
	IncludeSignups bool
	// CreateMissingUsers lets the run create a local user for a matched
	// legacy user that has no local account yet.
	CreateMissingUsers bool
}

// DefaultOptions imports everything and creates missing users.
func DefaultOptions() Options {
	return Options{
		IncludeShifts:      true,
		IncludeSignups:     true,
		CreateMissingUsers: true,
	}
}

// UserOutcome is the terminal state of one user's migration.
type UserOutcome string

const (
	OutcomeImported      UserOutcome = "imported"
	OutcomeNoHistory     UserOutcome = "no_history"
	OutcomeSkippedLocal  UserOutcome = "skipped_local"
	OutcomeSkippedRemote UserOutcome = "skipped_remote"
	OutcomeFailed        UserOutcome = "failed"
)

// UserResult summarizes one user's migration.
type UserResult struct {
	Email           string      `json:"email"`
	Outcome         UserOutcome `json:"outcome"`
	UserCreated     bool        `json:"userCreated"`
	ShiftsImported  int         `json:"shiftsImported"`
	SignupsImported int         `json:"signupsImported"`
	Errors          []string    `json:"errors,omitempty"`
}

// BatchResult summarizes a whole migration batch. Success means the batch
// ran to completion; per-user failure detail lives in UserResults and
// Errors, and callers must inspect those, not just the flag.
type BatchResult struct {
	Success         bool         `json:"success"`
	DryRun          bool         `json:"dryRun"`
	ShiftsImported  int          `json:"shiftsImported"`
	SignupsImported int          `json:"signupsImported"`
	UserResults     []UserResult `json:"userResults"`
	Errors          []string     `json:"errors,omitempty"`
}

// Orchestrator drives the migration for one user or a batch of users.
// Processing is strictly sequential: user by user, page by page, event by
// event. The legacy system is rate-limited and sequential work keeps
// progress linearly reportable.
type Orchestrator struct {
	Directory LegacyDirectory
	Store     Store
	Progress  *progress.Registry
	SessionID string
}

// RunBatch migrates every email in order and aggregates the results.
// Failures never unwind past the per-user boundary.
func (o *Orchestrator) RunBatch(ctx context.Context, emails []string, opts Options) BatchResult {
	result := BatchResult{Success: true, DryRun: opts.DryRun}

	o.publish("progress", "batch", fmt.Sprintf("Starting migration for %d user(s)", len(emails)), nil, nil)

	for _, email := range emails {
		userResult := o.runUser(ctx, email, opts)
		result.UserResults = append(result.UserResults, userResult)
		result.ShiftsImported += userResult.ShiftsImported
		result.SignupsImported += userResult.SignupsImported
		if userResult.Outcome == OutcomeFailed {
			for _, errStr := range userResult.Errors {
				result.Errors = append(result.Errors, email+": "+errStr)
			}
		}
	}

	o.publish(
		"complete",
		"batch",
		fmt.Sprintf("Migration finished: %d shift(s), %d signup(s) imported", result.ShiftsImported, result.SignupsImported),
		&result.ShiftsImported,
		&result.SignupsImported,
	)

	return result
}

// runUser executes the per-user state machine. Any error reaching the top
// of this function is recorded as the user's failed outcome; the batch
// proceeds to the next user.
func (o *Orchestrator) runUser(ctx context.Context, email string, opts Options) UserResult {
	result := UserResult{Email: email, Outcome: OutcomeImported}

	o.publish("progress", "user", "Migrating "+email, nil, nil)

	legacyUser, err := o.resolveLegacyUser(ctx, email)
	if err != nil {
		return o.failUser(result, fmt.Sprintf("legacy lookup failed: %v", err))
	}
	if legacyUser == nil {
		o.publish("progress", "user", "No legacy account found for "+email, nil, nil)
		result.Outcome = OutcomeSkippedRemote
		return result
	}

	localUserID, created, err := o.resolveLocalUser(ctx, email, legacyUser, opts)
	if err != nil {
		if errors.Is(err, errUserCreationDisabled) {
			o.publish("progress", "user", "No local account for "+email+"; skipping", nil, nil)
			result.Outcome = OutcomeSkippedLocal
			return result
		}
		return o.failUser(result, fmt.Sprintf("local user resolution failed: %v", err))
	}
	result.UserCreated = created

	applications, err := o.fetchAllApplications(ctx, legacyUser.ID)
	if err != nil {
		return o.failUser(result, fmt.Sprintf("failed to page signups: %v", err))
	}
	if len(applications) == 0 {
		o.publish("progress", "user", "No historical signups for "+email, nil, nil)
		result.Outcome = OutcomeNoHistory
		return result
	}

	byEvent := groupByEvent(applications)
	eventIDs := make([]int64, 0, len(byEvent))
	for eventID := range byEvent {
		eventIDs = append(eventIDs, eventID)
	}
	sort.Slice(eventIDs, func(i, j int) bool { return eventIDs[i] < eventIDs[j] })

	o.publish("progress", "events", fmt.Sprintf("Found %d signup(s) across %d event(s)", len(applications), len(eventIDs)), nil, nil)

	// Signup rows created during this run. A duplicate legacy signup that
	// lands on a row this run just created still counts as imported; a row
	// that predates the run does not.
	createdPairs := make(map[string]bool)

	for _, eventID := range eventIDs {
		shifts, signups, err := o.importEvent(ctx, eventID, byEvent[eventID], localUserID, createdPairs, opts)
		if err != nil {
			result.Errors = append(result.Errors, err.Error())
			continue
		}
		result.ShiftsImported += shifts
		result.SignupsImported += signups
	}

	o.publish(
		"progress",
		"user",
		fmt.Sprintf("Imported %d shift(s) and %d signup(s) for %s", result.ShiftsImported, result.SignupsImported, email),
		&result.ShiftsImported,
		&result.SignupsImported,
	)

	return result
}

var errUserCreationDisabled = errors.New("local user creation disabled")

// resolveLegacyUser finds the legacy account with exactly this email. The
// panel's search is fuzzy, so candidates need an exact case-insensitive
// match; near-misses like jane@x.co for jane@x.com must not be selected.
func (o *Orchestrator) resolveLegacyUser(ctx context.Context, email string) (*nova.Resource, error) {
	candidates, err := o.Directory.SearchUsers(ctx, email)
	if err != nil {
		return nil, err
	}

	wanted := strings.ToLower(strings.TrimSpace(email))
	for i := range candidates {
		if strings.ToLower(strings.TrimSpace(candidates[i].String("email"))) == wanted {
			return &candidates[i], nil
		}
	}
	return nil, nil
}

func (o *Orchestrator) resolveLocalUser(
	ctx context.Context,
	email string,
	legacyUser *nova.Resource,
	opts Options,
) (userID string, created bool, err error) {
	existing, err := o.Store.FindUserByEmail(ctx, email)
	if err == nil {
		return existing.ID, false, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return "", false, err
	}

	if !opts.CreateMissingUsers {
		return "", false, errUserCreationDisabled
	}

	input, err := TransformUser(ctx, legacyUser, o.Directory)
	if err != nil {
		return "", false, err
	}

	if opts.DryRun {
		return placeholderID(), true, nil
	}

	user, err := o.Store.CreateUser(ctx, input)
	if err != nil {
		return "", false, err
	}
	o.publish("progress", "user", "Created local account for "+email, nil, nil)
	return user.ID, true, nil
}

// fetchAllApplications pages through the legacy user's event applications
// by following each response's next-page URL. A page with zero resources
// terminates the loop even when a next URL is present; malformed
// pagination metadata must not spin this forever.
func (o *Orchestrator) fetchAllApplications(ctx context.Context, legacyUserID int64) ([]nova.Resource, error) {
	var applications []nova.Resource
	pageURL := ""
	page := 0

	for {
		envelope, err := o.Directory.EventApplicationsPage(ctx, legacyUserID, pageURL)
		if err != nil {
			return nil, err
		}
		page++

		if len(envelope.Resources) == 0 {
			break
		}
		applications = append(applications, envelope.Resources...)

		if strings.TrimSpace(envelope.NextPageURL) == "" {
			break
		}
		pageURL = envelope.NextPageURL
	}

	if page > 1 {
		o.publish("progress", "paginate", fmt.Sprintf("Fetched %d signup(s) over %d page(s)", len(applications), page), nil, nil)
	}
	return applications, nil
}

// groupByEvent collects applications by their legacy event id. An
// application without an event reference is dropped.
func groupByEvent(applications []nova.Resource) map[int64][]nova.Resource {
	byEvent := make(map[int64][]nova.Resource)
	for _, application := range applications {
		eventID, ok := application.BelongsTo("event")
		if !ok {
			continue
		}
		byEvent[eventID] = append(byEvent[eventID], application)
	}
	return byEvent
}

// importEvent migrates one legacy event and its filtered signups. Fetch
// failures and malformed events are recoverable data-quality gaps: they
// are logged and skipped without surfacing a user-level error. Errors
// after the event is known good are returned to the caller for the user's
// error list.
func (o *Orchestrator) importEvent(
	ctx context.Context,
	eventID int64,
	applications []nova.Resource,
	localUserID string,
	createdPairs map[string]bool,
	opts Options,
) (shiftsImported, signupsImported int, err error) {
	event, fetchErr := o.Directory.Event(ctx, eventID)
	if fetchErr != nil {
		log.Printf("⏭️  Skipping legacy event %d: %v", eventID, fetchErr)
		return 0, 0, nil
	}

	eventDate, _ := event.Time("date")

	surviving := applications[:0:0]
	for _, application := range applications {
		statusID, statusName := applicationStatus(&application)
		if ShouldImportSignup(eventDate, statusID, statusName) {
			surviving = append(surviving, application)
		}
	}
	if len(surviving) == 0 {
		log.Printf("⏭️  Legacy event %d has no importable signups", eventID)
		return 0, 0, nil
	}

	if !opts.IncludeShifts {
		return 0, 0, nil
	}

	positionNames := make([]string, 0, len(surviving))
	for _, application := range surviving {
		positionNames = append(positionNames, application.String("position"))
	}

	fields, err := TransformEvent(event, positionNames)
	if err != nil {
		log.Printf("⏭️  Skipping legacy event %d: %v", eventID, err)
		return 0, 0, nil
	}

	shiftID, shiftCreated, err := o.findOrCreateShift(ctx, eventID, fields, opts)
	if err != nil {
		return 0, 0, fmt.Errorf("event %d: %w", eventID, err)
	}
	if shiftCreated {
		shiftsImported++
	}

	if !opts.IncludeSignups {
		return shiftsImported, 0, nil
	}

	for i := range surviving {
		imported, err := o.findOrCreateSignup(ctx, localUserID, shiftID, &surviving[i], createdPairs, opts)
		if err != nil {
			return shiftsImported, signupsImported, fmt.Errorf("event %d: %w", eventID, err)
		}
		if imported {
			signupsImported++
		}
	}

	o.publish("progress", "event", fmt.Sprintf("Processed legacy event %d", eventID), nil, nil)
	return shiftsImported, signupsImported, nil
}

func (o *Orchestrator) findOrCreateShift(
	ctx context.Context,
	eventID int64,
	fields ShiftFields,
	opts Options,
) (shiftID string, created bool, err error) {
	typeID, err := o.findOrCreateShiftType(ctx, fields.TypeName, opts)
	if err != nil {
		return "", false, err
	}

	token := NovaIDToken(eventID)
	existing, err := o.Store.FindShiftByNotesContains(ctx, token)
	if err == nil {
		return existing.ID, false, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return "", false, err
	}

	if opts.DryRun {
		return placeholderID(), true, nil
	}

	notes := fields.Notes
	shift, err := o.Store.CreateShift(ctx, store.CreateShiftInput{
		ShiftTypeID: typeID,
		StartTime:   fields.StartTime,
		EndTime:     fields.EndTime,
		Capacity:    fields.Capacity,
		Location:    fields.Location,
		Notes:       &notes,
	})
	if err != nil {
		return "", false, err
	}
	return shift.ID, true, nil
}

func (o *Orchestrator) findOrCreateShiftType(ctx context.Context, name string, opts Options) (string, error) {
	existing, err := o.Store.FindShiftTypeByName(ctx, name)
	if err == nil {
		return existing.ID, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return "", err
	}

	if opts.DryRun {
		return placeholderID(), nil
	}

	shiftType, err := o.Store.CreateShiftType(ctx, name)
	if err != nil {
		return "", err
	}
	return shiftType.ID, nil
}

// findOrCreateSignup guarantees at most one local signup per (user, shift)
// pair. The returned flag reports whether the legacy signup counted as
// imported: true when the row was created by this run (including duplicate
// legacy signups collapsing onto it), false when the row predates the run.
func (o *Orchestrator) findOrCreateSignup(
	ctx context.Context,
	userID, shiftID string,
	application *nova.Resource,
	createdPairs map[string]bool,
	opts Options,
) (imported bool, err error) {
	pairKey := userID + "|" + shiftID

	_, err = o.Store.FindSignupByUserAndShift(ctx, userID, shiftID)
	if err == nil {
		return createdPairs[pairKey], nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return false, err
	}

	createdPairs[pairKey] = true
	if opts.DryRun {
		return true, nil
	}

	fields := TransformSignup(application)
	_, err = o.Store.CreateSignup(ctx, store.CreateSignupInput{
		UserID:    userID,
		ShiftID:   shiftID,
		Status:    fields.Status,
		CreatedAt: fields.CreatedAt,
		UpdatedAt: fields.UpdatedAt,
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

func (o *Orchestrator) failUser(result UserResult, message string) UserResult {
	log.Printf("❌ Migration failed for %s: %s", result.Email, message)
	o.publish("error", "user", "Failed to migrate "+result.Email, nil, nil)
	result.Outcome = OutcomeFailed
	result.Errors = append(result.Errors, message)
	return result
}

// publish pushes a progress event for the run's session. Publishing never
// blocks the migration; with no subscriber it is a no-op.
func (o *Orchestrator) publish(eventType, stage, message string, shifts, signups *int) {
	if o.Progress == nil || o.SessionID == "" {
		return
	}
	o.Progress.Publish(o.SessionID, progress.Event{
		Type:            eventType,
		Message:         message,
		Stage:           stage,
		ShiftsImported:  shifts,
		SignupsImported: signups,
		Timestamp:       time.Now().UTC(),
	})
}

func placeholderID() string {
	return uuid.NewString()
}
