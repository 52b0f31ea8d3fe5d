// Package config centralises configuration parsing for the dashboard server.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures runtime configuration values for the dashboard server.
type Config struct {
	HTTPAddress             string
	DataDir                 string
	StaticDir               string
	CoachAPIURL             string
	CoachAPITimeout         time.Duration
	ActivitiesLimit         int           // Activities fetched for the dashboard window.
	CalendarActivitiesLimit int           // Activities fetched for the calendar.
	RebuildWindowDays       int           // Trailing window used for metric rebuilds and dashboard reads.
	SyncSuccessDisplay      time.Duration // How long the success text stays visible after a sync.
	AutoSyncIntervalMin     int           // Zero disables scheduled syncs.
	CORSAllowedOrigins      []string
	Debug                   bool
}

// Load reads environment variables into Config, applying sensible defaults for local dev.
func Load() Config {
	cfg := Config{
		HTTPAddress:             getEnv("HTTP_ADDRESS", ":8099"),
		DataDir:                 getEnv("DATA_DIR", "/data"),
		StaticDir:               getEnv("STATIC_DIR", "./static"),
		CoachAPIURL:             strings.TrimRight(getEnv("COACH_API_URL", "http://localhost:8000"), "/"),
		CoachAPITimeout:         getDurationEnv("COACH_API_TIMEOUT", 30*time.Second),
		ActivitiesLimit:         getIntEnv("ACTIVITIES_LIMIT", 50),
		CalendarActivitiesLimit: getIntEnv("CALENDAR_ACTIVITIES_LIMIT", 300),
		RebuildWindowDays:       getIntEnv("REBUILD_WINDOW_DAYS", 7),
		SyncSuccessDisplay:      getDurationEnv("SYNC_SUCCESS_DISPLAY", 1500*time.Millisecond),
		AutoSyncIntervalMin:     getIntEnv("AUTO_SYNC_INTERVAL_MIN", 0),
		Debug:                   getBoolEnv("DEBUG", false),
	}

	cfg.CORSAllowedOrigins = splitAndTrim(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"))
	return cfg
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func splitAndTrim(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getIntEnv(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getBoolEnv(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return fallback
}
