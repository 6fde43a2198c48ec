package ws

import (
	"encoding/json"
	"testing"
	"time"
)

func mustReceiveMessage(t *testing.T, ch <-chan []byte, timeout time.Duration) []byte {
	t.Helper()
	select {
	case payload := <-ch:
		return payload
	case <-time.After(timeout):
		t.Fatalf("timed out waiting for websocket payload")
		return nil
	}
}

func mustNotReceiveMessage(t *testing.T, ch <-chan []byte, timeout time.Duration) {
	t.Helper()
	select {
	case payload := <-ch:
		t.Fatalf("expected no payload, got %q", string(payload))
	case <-time.After(timeout):
	}
}

func TestHubBroadcastFiltersBySession(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	sessionID := "migration-550e8400"
	otherSessionID := "migration-660e8400"

	watcher := NewClient(hub, nil)
	watcher.SetSessionID(sessionID)

	otherWatcher := NewClient(hub, nil)
	otherWatcher.SetSessionID(otherSessionID)

	idle := NewClient(hub, nil)

	hub.Register(watcher)
	hub.Register(otherWatcher)
	hub.Register(idle)

	t.Cleanup(func() {
		hub.Unregister(watcher)
		hub.Unregister(otherWatcher)
		hub.Unregister(idle)
	})

	time.Sleep(25 * time.Millisecond)

	hub.Broadcast(sessionID, []byte("progress"))
	received := mustReceiveMessage(t, watcher.Send, 200*time.Millisecond)
	if string(received) != "progress" {
		t.Fatalf("expected progress payload, got %q", string(received))
	}

	mustNotReceiveMessage(t, otherWatcher.Send, 80*time.Millisecond)
	mustNotReceiveMessage(t, idle.Send, 80*time.Millisecond)
}

func TestNotifierBroadcastsCompletion(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	watcher := NewClient(hub, nil)
	watcher.SetSessionID("session-1")
	hub.Register(watcher)
	t.Cleanup(func() { hub.Unregister(watcher) })

	time.Sleep(25 * time.Millisecond)

	notifier := &Notifier{Hub: hub}
	notifier.MigrationComplete("session-1", 2, 3)

	raw := mustReceiveMessage(t, watcher.Send, 200*time.Millisecond)
	var payload notification
	if err := json.Unmarshal(raw, &payload); err != nil {
		t.Fatalf("failed to decode notification: %v", err)
	}
	if payload.Type != MessageMigrationComplete {
		t.Fatalf("expected %s, got %s", MessageMigrationComplete, payload.Type)
	}
	if payload.ShiftsImported == nil || *payload.ShiftsImported != 2 {
		t.Fatalf("expected 2 shifts in payload, got %v", payload.ShiftsImported)
	}
	if payload.SignupsImported == nil || *payload.SignupsImported != 3 {
		t.Fatalf("expected 3 signups in payload, got %v", payload.SignupsImported)
	}
	if payload.Timestamp.IsZero() {
		t.Fatalf("expected a timestamp on the payload")
	}
}

func TestNilNotifierIsSafe(t *testing.T) {
	var notifier *Notifier
	notifier.MigrationStarted("session-1", "starting")
	notifier.MigrationComplete("session-1", 0, 0)
	notifier.MigrationError("session-1", "boom")
}

func TestProcessClientMessageValidatesSession(t *testing.T) {
	client := NewClient(NewHub(), nil)

	processClientMessage(client, clientMessage{Type: "watch", SessionID: "session-1"})
	if client.SessionID() != "session-1" {
		t.Fatalf("expected session-1, got %q", client.SessionID())
	}

	// Malformed ids must not replace a valid subscription.
	processClientMessage(client, clientMessage{Type: "watch", SessionID: "bad id with spaces"})
	if client.SessionID() != "session-1" {
		t.Fatalf("expected session-1 to survive, got %q", client.SessionID())
	}

	processClientMessage(client, clientMessage{Type: "unwatch", SessionID: "session-2"})
	if client.SessionID() != "session-1" {
		t.Fatalf("unwatch of another session must be ignored")
	}

	processClientMessage(client, clientMessage{Type: "unwatch", SessionID: "session-1"})
	if client.SessionID() != "" {
		t.Fatalf("expected cleared session, got %q", client.SessionID())
	}
}
