package api

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/harborlights/harbor/internal/progress"
)

// ProgressStreamHandler relays a migration session's progress events to
// the browser over server-sent events. Disconnecting only tears down the
// subscription; an in-flight migration runs to completion regardless.
type ProgressStreamHandler struct {
	Registry  *progress.Registry
	Heartbeat time.Duration
}

// ServeHTTP implements http.Handler.
func (h *ProgressStreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if sessionID == "" {
		sendJSON(w, http.StatusBadRequest, errorResponse{Error: "missing session id"})
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		sendJSON(w, http.StatusInternalServerError, errorResponse{Error: "streaming unsupported"})
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	events := h.Registry.Subscribe(sessionID)
	defer h.Registry.Unsubscribe(sessionID, events)

	writeSSEEvent(w, progress.Event{
		Type:      "connected",
		Message:   "Progress stream connected",
		Timestamp: time.Now().UTC(),
	})
	flusher.Flush()

	heartbeat := time.NewTicker(h.heartbeatInterval())
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case event, open := <-events:
			// A closed channel means a replacement subscriber took over
			// the session.
			if !open {
				return
			}
			writeSSEEvent(w, event)
			flusher.Flush()
		case <-heartbeat.C:
			// Comment-only line; keeps intermediaries from timing out the
			// connection without emitting a client-visible event.
			fmt.Fprint(w, ": heartbeat\n\n")
			flusher.Flush()
		}
	}
}

func (h *ProgressStreamHandler) heartbeatInterval() time.Duration {
	if h.Heartbeat > 0 {
		return h.Heartbeat
	}
	return 15 * time.Second
}

func writeSSEEvent(w http.ResponseWriter, event progress.Event) {
	raw, err := json.Marshal(event)
	if err != nil {
		log.Printf("❌ Failed to encode progress event: %v", err)
		return
	}
	fmt.Fprintf(w, "data: %s\n\n", raw)
}
