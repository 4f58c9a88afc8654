package config

import (
	"fmt"
	"os"
	"strings"
)

// StreamConfig defines which Redis streams to ingest fixture payloads from.
type StreamConfig struct {
	// Full-snapshot payload streams (e.g. fixtures.snapshots.basketball_nba)
	SnapshotStreams []string

	// Partial-update payload streams (e.g. fixtures.updates.basketball_nba)
	UpdateStreams []string

	// Consumer group and ID
	ConsumerGroup string
	ConsumerID    string
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Addr        string
	CORSOrigins []string
}

// RedisConfig holds the Redis connection configuration. An empty URL disables
// the stream consumer; the HTTP ingestion path needs no broker.
type RedisConfig struct {
	URL      string
	Password string
}

// Config holds all application configuration.
type Config struct {
	Server ServerConfig
	Redis  RedisConfig
	Stream StreamConfig
}

// LoadConfig loads configuration from environment variables.
func LoadConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:        getEnv("SERVER_ADDR", ":3001"),
			CORSOrigins: splitList(getEnv("CORS_ORIGINS", "*")),
		},
		Redis: RedisConfig{
			URL:      getEnv("REDIS_URL", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
		},
		Stream: loadStreamConfig(),
	}
}

// loadStreamConfig loads stream configuration.
// Supports multiple sports via comma-separated SPORTS environment variable.
func loadStreamConfig() StreamConfig {
	sports := splitList(getEnv("SPORTS", "basketball_nba"))

	snapshotStreams := make([]string, 0, len(sports))
	updateStreams := make([]string, 0, len(sports))
	for _, sport := range sports {
		snapshotStreams = append(snapshotStreams, fmt.Sprintf("fixtures.snapshots.%s", sport))
		updateStreams = append(updateStreams, fmt.Sprintf("fixtures.updates.%s", sport))
	}

	return StreamConfig{
		SnapshotStreams: snapshotStreams,
		UpdateStreams:   updateStreams,
		ConsumerGroup:   getEnv("CONSUMER_GROUP", "odds-composer"),
		ConsumerID:      getEnv("CONSUMER_ID", "composer-1"),
	}
}

// GetAllStreams returns all streams to consume from.
func (sc *StreamConfig) GetAllStreams() []string {
	streams := make([]string, 0, len(sc.SnapshotStreams)+len(sc.UpdateStreams))
	streams = append(streams, sc.SnapshotStreams...)
	streams = append(streams, sc.UpdateStreams...)
	return streams
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
