package ws

import (
	"encoding/json"
	"log"
	"time"
)

// Notifier pushes migration lifecycle events onto the hub for dashboard
// clients watching a session. A nil Notifier is safe to call.
type Notifier struct {
	Hub *Hub
}

type notification struct {
	Type            MessageType `json:"type"`
	SessionID       string      `json:"sessionId"`
	Message         string      `json:"message,omitempty"`
	ShiftsImported  *int        `json:"shiftsImported,omitempty"`
	SignupsImported *int        `json:"signupsImported,omitempty"`
	Timestamp       time.Time   `json:"timestamp"`
}

// MigrationStarted announces a new batch on the session.
func (n *Notifier) MigrationStarted(sessionID, message string) {
	n.send(notification{Type: MessageMigrationStarted, SessionID: sessionID, Message: message})
}

// MigrationProgress announces intermediate batch progress.
func (n *Notifier) MigrationProgress(sessionID, message string) {
	n.send(notification{Type: MessageMigrationProgress, SessionID: sessionID, Message: message})
}

// MigrationComplete announces a finished batch with its import totals.
func (n *Notifier) MigrationComplete(sessionID string, shifts, signups int) {
	n.send(notification{
		Type:            MessageMigrationComplete,
		SessionID:       sessionID,
		ShiftsImported:  &shifts,
		SignupsImported: &signups,
	})
}

// MigrationError announces a batch that could not run.
func (n *Notifier) MigrationError(sessionID, message string) {
	n.send(notification{Type: MessageMigrationError, SessionID: sessionID, Message: message})
}

func (n *Notifier) send(payload notification) {
	if n == nil || n.Hub == nil || payload.SessionID == "" {
		return
	}
	payload.Timestamp = time.Now().UTC()

	raw, err := json.Marshal(payload)
	if err != nil {
		log.Printf("❌ Failed to encode %s notification: %v", payload.Type, err)
		return
	}
	n.Hub.Broadcast(payload.SessionID, raw)
}
