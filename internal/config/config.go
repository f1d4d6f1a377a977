// Package config loads barshub's process configuration from environment
// variables, in the teacher's getEnv/parseDuration/parseInt/validate style
// (internal/dashboard/config.go).
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/stopbars/core/internal/hub"
)

// Config holds barshub's process configuration.
type Config struct {
	// Server
	ListenAddr     string
	AllowedOrigins []string

	// Identity Oracle
	IdentityBaseURL string

	// User/Key Directory: file path to load seeded enrollments from, or
	// empty to run with an empty in-memory Directory (dev mode).
	DirectorySeedPath string

	// Point Catalogue
	CatalogueDir string

	// Durable State Store
	SQLitePath string

	// Hub tunables (spec.md §6.4)
	HeartbeatInterval  time.Duration
	HeartbeatTimeout   time.Duration
	MaxStateSize       int
	MaxPacketChars     int
	MaxPatchSize       int
	MergeMaxDepth      int
	MergeMaxProperties int
	MergeMaxArraySize  int
	StaleTTL           time.Duration
	IdentityTimeout    time.Duration
	ActiveHubThrottle  time.Duration
}

// Load reads configuration from environment variables, applying spec.md
// §6.4's defaults (via hub.DefaultOptions) for anything unset.
func Load() (*Config, error) {
	defaults := hub.DefaultOptions()

	cfg := &Config{
		ListenAddr:        getEnv("BARSHUB_LISTEN", ":8080"),
		AllowedOrigins:    parseOrigins("BARSHUB_ALLOWED_ORIGINS"),
		IdentityBaseURL:   os.Getenv("BARSHUB_IDENTITY_URL"),
		DirectorySeedPath: os.Getenv("BARSHUB_DIRECTORY_SEED"),
		CatalogueDir:      getEnv("BARSHUB_CATALOGUE_DIR", "/data/catalogue"),
		SQLitePath:        getEnv("BARSHUB_SQLITE_PATH", "/data/barshub.db"),

		HeartbeatInterval:  parseDuration("HEARTBEAT_INTERVAL", defaults.HeartbeatInterval),
		HeartbeatTimeout:   parseDuration("HEARTBEAT_TIMEOUT", defaults.HeartbeatTimeout),
		MaxStateSize:       parseInt("MAX_STATE_SIZE", defaults.MaxStateSize),
		MaxPacketChars:     parseInt("MAX_PACKET_CHARS", defaults.MaxPacketChars),
		MaxPatchSize:       parseInt("MAX_PATCH_SIZE", defaults.MaxPatchSize),
		MergeMaxDepth:      parseInt("MERGE_MAX_DEPTH", defaults.MergeMaxDepth),
		MergeMaxProperties: parseInt("MAX_PROPERTIES", defaults.MergeMaxProperties),
		MergeMaxArraySize:  parseInt("MAX_ARRAY_SIZE", defaults.MergeMaxArraySize),
		StaleTTL:           parseDuration("STALE_TTL", defaults.StaleTTL),
		IdentityTimeout:    parseDuration("IDENTITY_TIMEOUT", defaults.IdentityTimeout),
		ActiveHubThrottle:  parseDuration("ACTIVE_HUB_THROTTLE", defaults.ActiveHubThrottle),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	var errs []string
	if c.IdentityBaseURL == "" {
		errs = append(errs, "BARSHUB_IDENTITY_URL is required")
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

// Options converts the loaded configuration into hub.Options.
func (c *Config) Options() hub.Options {
	return hub.Options{
		HeartbeatInterval:  c.HeartbeatInterval,
		HeartbeatTimeout:   c.HeartbeatTimeout,
		MaxStateSize:       c.MaxStateSize,
		MaxPacketChars:     c.MaxPacketChars,
		MaxPatchSize:       c.MaxPatchSize,
		MergeMaxDepth:      c.MergeMaxDepth,
		MergeMaxProperties: c.MergeMaxProperties,
		MergeMaxArraySize:  c.MergeMaxArraySize,
		StaleTTL:           c.StaleTTL,
		IdentityTimeout:    c.IdentityTimeout,
		ActiveHubThrottle:  c.ActiveHubThrottle,
	}
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func parseDuration(key string, defaultValue time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if ms, err := strconv.Atoi(v); err == nil {
			return time.Duration(ms) * time.Millisecond
		}
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultValue
}

func parseInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultValue
}

func parseOrigins(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}
