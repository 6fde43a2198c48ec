package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/harborlights/harbor/internal/importer"
	"github.com/harborlights/harbor/internal/nova"
	"github.com/harborlights/harbor/internal/progress"
	"github.com/harborlights/harbor/internal/ws"
)

// MigrationHandler exposes the legacy-history import over HTTP: one
// endpoint for a single target email and one for a batch.
type MigrationHandler struct {
	Store       importer.Store
	Registry    *progress.Registry
	Notifier    *ws.Notifier
	NovaTimeout time.Duration

	// Dial opens an authenticated connection to the legacy panel. Left
	// nil, it logs into a real Nova panel; tests substitute a fake.
	Dial func(ctx context.Context, baseURL, email, password string) (importer.LegacyDirectory, error)
}

type legacyCredentials struct {
	BaseURL  string `json:"baseUrl"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type migrationOptions struct {
	DryRun             *bool `json:"dryRun"`
	IncludeShifts      *bool `json:"includeShifts"`
	IncludeSignups     *bool `json:"includeSignups"`
	CreateMissingUsers *bool `json:"createMissingUsers"`
}

type importUserRequest struct {
	TargetEmail       string            `json:"targetEmail"`
	LegacyCredentials legacyCredentials `json:"legacyCredentials"`
	Options           migrationOptions  `json:"options"`
	SessionID         string            `json:"sessionId"`
}

type importBatchRequest struct {
	TargetEmails      []string          `json:"targetEmails"`
	LegacyCredentials legacyCredentials `json:"legacyCredentials"`
	Options           migrationOptions  `json:"options"`
	SessionID         string            `json:"sessionId"`
}

// migrationResponse is the authoritative machine-readable result; the
// progress stream only carries human-readable status along the way.
type migrationResponse struct {
	importer.BatchResult
	SessionID string `json:"sessionId"`
}

// ImportUser migrates a single target email.
func (h *MigrationHandler) ImportUser(w http.ResponseWriter, r *http.Request) {
	var req importUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	email := strings.TrimSpace(req.TargetEmail)
	if email == "" {
		sendJSON(w, http.StatusBadRequest, errorResponse{Error: "missing targetEmail"})
		return
	}

	h.run(w, r, []string{email}, req.LegacyCredentials, req.Options, req.SessionID)
}

// ImportBatch migrates a list of target emails.
func (h *MigrationHandler) ImportBatch(w http.ResponseWriter, r *http.Request) {
	var req importBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	emails := make([]string, 0, len(req.TargetEmails))
	for _, email := range req.TargetEmails {
		if trimmed := strings.TrimSpace(email); trimmed != "" {
			emails = append(emails, trimmed)
		}
	}
	if len(emails) == 0 {
		sendJSON(w, http.StatusBadRequest, errorResponse{Error: "missing targetEmails"})
		return
	}

	h.run(w, r, emails, req.LegacyCredentials, req.Options, req.SessionID)
}

func (h *MigrationHandler) run(
	w http.ResponseWriter,
	r *http.Request,
	emails []string,
	credentials legacyCredentials,
	rawOptions migrationOptions,
	sessionID string,
) {
	if strings.TrimSpace(credentials.BaseURL) == "" ||
		strings.TrimSpace(credentials.Email) == "" ||
		strings.TrimSpace(credentials.Password) == "" {
		sendJSON(w, http.StatusBadRequest, errorResponse{Error: "missing legacyCredentials"})
		return
	}

	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	opts := resolveOptions(rawOptions)

	log.Printf("📦 Migration requested by %s: %d user(s), dryRun=%t, session=%s",
		userIDFromContext(r.Context()), len(emails), opts.DryRun, sessionID)

	directory, err := h.dial(r.Context(), credentials)
	if err != nil {
		log.Printf("❌ Legacy panel login failed: %v", err)
		h.Notifier.MigrationError(sessionID, "Could not authenticate with the legacy system")
		sendJSON(w, http.StatusBadGateway, migrationResponse{
			BatchResult: importer.BatchResult{
				Success: false,
				DryRun:  opts.DryRun,
				Errors:  []string{fmt.Sprintf("legacy authentication failed: %v", err)},
			},
			SessionID: sessionID,
		})
		return
	}

	orchestrator := &importer.Orchestrator{
		Directory: directory,
		Store:     h.Store,
		Progress:  h.Registry,
		SessionID: sessionID,
	}

	h.Notifier.MigrationStarted(sessionID, fmt.Sprintf("Starting migration for %d user(s)", len(emails)))
	result := orchestrator.RunBatch(r.Context(), emails, opts)
	h.Notifier.MigrationComplete(sessionID, result.ShiftsImported, result.SignupsImported)

	log.Printf("✅ Migration finished: %d shift(s), %d signup(s), %d error(s)",
		result.ShiftsImported, result.SignupsImported, len(result.Errors))

	sendJSON(w, http.StatusOK, migrationResponse{BatchResult: result, SessionID: sessionID})
}

func (h *MigrationHandler) dial(
	ctx context.Context,
	credentials legacyCredentials,
) (importer.LegacyDirectory, error) {
	if h.Dial != nil {
		return h.Dial(ctx, credentials.BaseURL, credentials.Email, credentials.Password)
	}

	client, err := nova.NewClient(credentials.BaseURL, nova.WithHTTPTimeout(h.NovaTimeout))
	if err != nil {
		return nil, err
	}
	if err := client.Login(ctx, credentials.Email, credentials.Password); err != nil {
		return nil, err
	}
	return client, nil
}

// resolveOptions overlays the request's explicit flags on the defaults.
func resolveOptions(raw migrationOptions) importer.Options {
	opts := importer.DefaultOptions()
	if raw.DryRun != nil {
		opts.DryRun = *raw.DryRun
	}
	if raw.IncludeShifts != nil {
		opts.IncludeShifts = *raw.IncludeShifts
	}
	if raw.IncludeSignups != nil {
		opts.IncludeSignups = *raw.IncludeSignups
	}
	if raw.CreateMissingUsers != nil {
		opts.CreateMissingUsers = *raw.CreateMissingUsers
	}
	return opts
}
