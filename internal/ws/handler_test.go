package ws

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

func TestIsAllowedSessionID(t *testing.T) {
	if !isAllowedSessionID("550e8400-e29b-41d4-a716-446655440000") {
		t.Fatalf("expected UUID session id to be allowed")
	}
	if !isAllowedSessionID("migration:2024-06") {
		t.Fatalf("expected colon-delimited session id to be allowed")
	}
	if isAllowedSessionID("") {
		t.Fatalf("expected empty session id to be rejected")
	}
	if isAllowedSessionID("bad session id") {
		t.Fatalf("expected session id with spaces to be rejected")
	}
	if isAllowedSessionID(strings.Repeat("a", 65)) {
		t.Fatalf("expected oversized session id to be rejected")
	}
}

func TestIsWebSocketOriginAllowed_NoOrigin(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "http://api.harborlights.org/ws", nil)
	req.Host = "api.harborlights.org"

	if !isWebSocketOriginAllowed(req) {
		t.Fatalf("expected empty origin to be allowed")
	}
}

func TestIsWebSocketOriginAllowed_SameOrigin(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "http://api.harborlights.org/ws", nil)
	req.Host = "api.harborlights.org"
	req.Header.Set("Origin", "http://api.harborlights.org")

	if !isWebSocketOriginAllowed(req) {
		t.Fatalf("expected same-origin websocket to be allowed")
	}
}

func TestIsWebSocketOriginAllowed_CrossOriginDeniedByDefault(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "http://api.harborlights.org/ws", nil)
	req.Host = "api.harborlights.org"
	req.Header.Set("Origin", "https://evil.example")

	if isWebSocketOriginAllowed(req) {
		t.Fatalf("expected cross-origin websocket to be denied by default")
	}
}

func TestIsWebSocketOriginAllowed_AllowListOverride(t *testing.T) {
	t.Setenv("WS_ALLOWED_ORIGINS", "https://app.harborlights.org")

	req := httptest.NewRequest(http.MethodGet, "http://api.harborlights.org/ws", nil)
	req.Host = "api.harborlights.org"
	req.Header.Set("Origin", "https://app.harborlights.org")

	if !isWebSocketOriginAllowed(req) {
		t.Fatalf("expected allow-listed origin to be allowed")
	}
}

func TestIsWebSocketOriginAllowed_LoopbackAliasAllowed(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "http://127.0.0.1:8080/ws", nil)
	req.Host = "127.0.0.1:8080"
	req.Header.Set("Origin", "http://localhost:8080")

	if !isWebSocketOriginAllowed(req) {
		t.Fatalf("expected loopback alias origin to be allowed")
	}
}

func TestClientReadPumpWatchesSession(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	handler := &Handler{Hub: hub}
	server := httptest.NewServer(handler)
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial websocket: %v", err)
	}
	defer conn.Close()

	sessionID := "550e8400-e29b-41d4-a716-446655440000"
	require.NoError(t, conn.WriteJSON(map[string]string{
		"type":       "watch",
		"session_id": sessionID,
	}))
	time.Sleep(50 * time.Millisecond)

	payload := map[string]string{"type": "MigrationProgress", "message": "Migrating jane@x.com"}
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	hub.Broadcast(sessionID, raw)

	_ = conn.SetReadDeadline(time.Now().Add(500 * time.Millisecond))
	_, message, err := conn.ReadMessage()
	require.NoError(t, err)
	require.JSONEq(t, string(raw), string(message))
}

func TestClientReadPumpUnwatchesSession(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	handler := &Handler{Hub: hub}
	server := httptest.NewServer(handler)
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial websocket: %v", err)
	}
	defer conn.Close()

	sessionID := "660e8400-e29b-41d4-a716-446655440000"
	require.NoError(t, conn.WriteJSON(map[string]string{
		"type":       "watch",
		"session_id": sessionID,
	}))
	time.Sleep(25 * time.Millisecond)
	require.NoError(t, conn.WriteJSON(map[string]string{
		"type":       "unwatch",
		"session_id": sessionID,
	}))
	time.Sleep(50 * time.Millisecond)

	hub.Broadcast(sessionID, []byte(`{"event":"should-not-arrive"}`))

	_ = conn.SetReadDeadline(time.Now().Add(250 * time.Millisecond))
	_, _, err = conn.ReadMessage()
	require.Error(t, err)
}
