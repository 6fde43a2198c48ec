// Package progress relays migration progress events to subscribed
// observers, one subscriber per migration session.
package progress

import (
	"sync"
	"time"
)

// Event is a single progress update for a migration session. Events are
// ephemeral; they exist only for the lifetime of one streaming connection.
type Event struct {
	Type            string    `json:"type"`
	Message         string    `json:"message,omitempty"`
	Stage           string    `json:"stage,omitempty"`
	ShiftsImported  *int      `json:"shiftsImported,omitempty"`
	SignupsImported *int      `json:"signupsImported,omitempty"`
	Timestamp       time.Time `json:"timestamp"`
}

const subscriberBuffer = 256

// Registry tracks the active subscriber for each migration session.
// It is the only shared mutable state between concurrent requests, so all
// access goes through the mutex. Construct one at process start and pass it
// explicitly; there is no package-level instance.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]chan Event
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]chan Event)}
}

// Subscribe registers the caller as the session's observer and returns the
// event channel. A session has at most one subscriber: subscribing again
// closes and replaces the previous channel.
func (r *Registry) Subscribe(sessionID string) <-chan Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.sessions[sessionID]; ok {
		close(existing)
	}

	ch := make(chan Event, subscriberBuffer)
	r.sessions[sessionID] = ch
	return ch
}

// Unsubscribe removes the session's subscriber and closes its channel.
// Safe to call after a replacement Subscribe; only the current channel is
// torn down.
func (r *Registry) Unsubscribe(sessionID string, ch <-chan Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.sessions[sessionID]
	if !ok || (<-chan Event)(current) != ch {
		return
	}
	delete(r.sessions, sessionID)
	close(current)
}

// Publish delivers an event to the session's subscriber. It returns false
// when no subscriber is registered; publishing into an absent session is a
// no-op, not an error. Events are delivered in publish order. A subscriber
// whose buffer is full is evicted rather than allowed to stall the
// publisher.
func (r *Registry) Publish(sessionID string, event Event) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	ch, ok := r.sessions[sessionID]
	if !ok {
		return false
	}

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	select {
	case ch <- event:
		return true
	default:
		delete(r.sessions, sessionID)
		close(ch)
		return false
	}
}

// ActiveSessions returns the number of sessions with a live subscriber.
func (r *Registry) ActiveSessions() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
