package config

import (
	"bufio"
	"os"
	"strings"
	"time"
)

func init() {
	// Auto-load .env file if present (don't override existing env vars)
	loadDotEnv(".env")
}

func loadDotEnv(path string) {
	f, err := os.Open(path)
	if err != nil {
		return
	}
	defer f.Close()
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, val, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		val = strings.TrimSpace(val)
		// Remove surrounding quotes
		if len(val) >= 2 && ((val[0] == '"' && val[len(val)-1] == '"') || (val[0] == '\'' && val[len(val)-1] == '\'')) {
			val = val[1 : len(val)-1]
		}
		// Don't override existing env vars
		if os.Getenv(key) == "" {
			os.Setenv(key, val)
		}
	}
}

const (
	defaultPort              = "4400"
	defaultEnvironment       = "development"
	defaultMigrationsDir     = "./migrations"
	defaultNovaHTTPTimeout   = 30 * time.Second
	defaultHeartbeatInterval = 15 * time.Second
)

// NovaConfig holds transport tuning for the legacy admin panel client.
// Base URL and credentials arrive per-request from the caller.
type NovaConfig struct {
	HTTPTimeout time.Duration
}

// ProgressConfig tunes the migration progress stream.
type ProgressConfig struct {
	HeartbeatInterval time.Duration
}

type Config struct {
	Port          string
	DatabaseURL   string
	Environment   string
	MigrationsDir string
	Nova          NovaConfig
	Progress      ProgressConfig
}

func Load() (Config, error) {
	cfg := Config{
		Port:        firstNonEmpty(strings.TrimSpace(os.Getenv("PORT")), defaultPort),
		DatabaseURL: strings.TrimSpace(os.Getenv("DATABASE_URL")),
		Environment: resolveEnvironment(),
		MigrationsDir: firstNonEmpty(
			strings.TrimSpace(os.Getenv("MIGRATIONS_DIR")),
			defaultMigrationsDir,
		),
		Nova: NovaConfig{
			HTTPTimeout: durationFromEnv("NOVA_HTTP_TIMEOUT", defaultNovaHTTPTimeout),
		},
		Progress: ProgressConfig{
			HeartbeatInterval: durationFromEnv("PROGRESS_HEARTBEAT_INTERVAL", defaultHeartbeatInterval),
		},
	}

	return cfg, nil
}

func resolveEnvironment() string {
	env := strings.ToLower(strings.TrimSpace(os.Getenv("ENVIRONMENT")))
	switch env {
	case "production", "staging", "development", "test":
		return env
	default:
		return defaultEnvironment
	}
}

func durationFromEnv(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}
