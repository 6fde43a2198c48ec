package api

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/harborlights/harbor/internal/config"
	"github.com/harborlights/harbor/internal/importer"
	"github.com/harborlights/harbor/internal/progress"
	"github.com/harborlights/harbor/internal/ws"
)

var startTime = time.Now()

type HealthResponse struct {
	Status    string `json:"status"`
	Uptime    string `json:"uptime"`
	Version   string `json:"version"`
	Timestamp string `json:"timestamp"`
}

// Deps carries the server's collaborators. Everything is injected so the
// router has no hidden globals.
type Deps struct {
	Auth     TokenResolver
	Store    importer.Store
	Registry *progress.Registry
	Config   config.Config

	// Dial overrides how the migration handler reaches the legacy panel.
	// Left nil, a real Nova login is performed.
	Dial func(ctx context.Context, baseURL, email, password string) (importer.LegacyDirectory, error)
}

// NewRouter wires the HTTP surface: health, websocket dashboard feed, and
// the admin-gated migration endpoints with their SSE progress stream.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()

	hub := ws.NewHub()
	go hub.Run()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", handleHealth)
	r.Get("/", handleRoot)
	r.Handle("/ws", &ws.Handler{Hub: hub})

	migrationHandler := &MigrationHandler{
		Store:       deps.Store,
		Registry:    deps.Registry,
		Notifier:    &ws.Notifier{Hub: hub},
		NovaTimeout: deps.Config.Nova.HTTPTimeout,
		Dial:        deps.Dial,
	}
	streamHandler := &ProgressStreamHandler{
		Registry:  deps.Registry,
		Heartbeat: deps.Config.Progress.HeartbeatInterval,
	}

	r.Route("/api/migration", func(r chi.Router) {
		r.Use(requireAdmin(deps.Auth))
		r.Post("/import-user", migrationHandler.ImportUser)
		r.Post("/import-batch", migrationHandler.ImportBatch)
		r.Get("/progress/{sessionID}", streamHandler.ServeHTTP)
	})

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:    "ok",
		Uptime:    time.Since(startTime).Round(time.Second).String(),
		Version:   getVersion(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	sendJSON(w, http.StatusOK, resp)
}

func handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{
		"name":   "Harbor",
		"about":  "Volunteer management for Harbor Lights",
		"health": "/health",
	})
}

func getVersion() string {
	if v := os.Getenv("VERSION"); v != "" {
		return v
	}
	return "dev"
}
