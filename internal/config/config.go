package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Storage drivers supported for the key-value store
const (
	StorageRedis = "redis"
	StorageSQL   = "sql"
)

// Config holds the service configuration
type Config struct {
	Environment string
	Port        string
	LogLevel    slog.Level

	// Key-value store
	StorageDriver  string
	RedisURL       string
	RedisNamespace string

	// SQL database (study logs, and the kv store when StorageDriver is "sql").
	// An empty DatabaseURL falls back to a local SQLite file.
	DatabaseURL string
	SQLitePath  string

	// Events
	KafkaBrokers []string
	EventsTopic  string

	Casdoor  CasdoorConfig
	Presence PresenceConfig
}

// CasdoorConfig holds Casdoor connection settings used for credential verification
type CasdoorConfig struct {
	Endpoint     string
	ClientID     string
	ClientSecret string
	Cert         string
	Organization string
	Application  string
}

// Enabled reports whether credentials should be verified against Casdoor
func (c CasdoorConfig) Enabled() bool {
	return c.Endpoint != "" && c.ClientID != ""
}

// PresenceConfig holds presence and timer tuning
type PresenceConfig struct {
	StaleAfter        time.Duration
	HeartbeatInterval time.Duration
	DefaultDuration   int // minutes
}

// LoadConfig loads configuration from a .env file (if present) and the environment
func LoadConfig() (*Config, error) {
	// .env is optional; real environment variables take precedence
	_ = godotenv.Load()

	cfg := &Config{
		Environment:    getEnv("APP_ENV", "development"),
		Port:           getEnv("PORT", "8080"),
		LogLevel:       parseLogLevel(getEnv("LOG_LEVEL", "info")),
		StorageDriver:  strings.ToLower(getEnv("STORAGE_DRIVER", StorageRedis)),
		RedisURL:       getEnv("REDIS_URL", "redis://localhost:6379/0"),
		RedisNamespace: getEnv("REDIS_NAMESPACE", "studybuddy:"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		SQLitePath:     getEnv("SQLITE_PATH", "studybuddy.db"),
		KafkaBrokers:   splitList(os.Getenv("KAFKA_BROKERS")),
		EventsTopic:    getEnv("EVENTS_TOPIC", "study-buddy.events"),
		Casdoor: CasdoorConfig{
			Endpoint:     os.Getenv("CASDOOR_ENDPOINT"),
			ClientID:     os.Getenv("CASDOOR_CLIENT_ID"),
			ClientSecret: os.Getenv("CASDOOR_CLIENT_SECRET"),
			Cert:         os.Getenv("CASDOOR_CERT"),
			Organization: os.Getenv("CASDOOR_ORGANIZATION"),
			Application:  os.Getenv("CASDOOR_APPLICATION"),
		},
		Presence: PresenceConfig{
			StaleAfter:        5 * time.Minute,
			HeartbeatInterval: 30 * time.Second,
			DefaultDuration:   25,
		},
	}

	var err error
	if cfg.Presence.StaleAfter, err = getDuration("PRESENCE_STALE_AFTER", cfg.Presence.StaleAfter); err != nil {
		return nil, err
	}
	if cfg.Presence.HeartbeatInterval, err = getDuration("PRESENCE_HEARTBEAT_INTERVAL", cfg.Presence.HeartbeatInterval); err != nil {
		return nil, err
	}
	if v := os.Getenv("DEFAULT_STUDY_DURATION"); v != "" {
		minutes, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid DEFAULT_STUDY_DURATION %q: %w", v, err)
		}
		cfg.Presence.DefaultDuration = minutes
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for inconsistent values
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("port cannot be empty")
	}
	switch c.StorageDriver {
	case StorageRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required when STORAGE_DRIVER is %q", StorageRedis)
		}
	case StorageSQL:
		if c.DatabaseURL == "" && c.SQLitePath == "" {
			return fmt.Errorf("DATABASE_URL or SQLITE_PATH is required when STORAGE_DRIVER is %q", StorageSQL)
		}
	default:
		return fmt.Errorf("unsupported storage driver %q", c.StorageDriver)
	}
	if c.Presence.StaleAfter <= 0 {
		return fmt.Errorf("presence stale window must be positive")
	}
	if c.Presence.HeartbeatInterval <= 0 {
		return fmt.Errorf("presence heartbeat interval must be positive")
	}
	if c.Presence.HeartbeatInterval >= c.Presence.StaleAfter {
		return fmt.Errorf("heartbeat interval (%s) must be shorter than the stale window (%s)",
			c.Presence.HeartbeatInterval, c.Presence.StaleAfter)
	}
	if c.Presence.DefaultDuration < 1 || c.Presence.DefaultDuration > 180 {
		return fmt.Errorf("default study duration must be between 1 and 180 minutes")
	}
	if c.EventsTopic == "" {
		return fmt.Errorf("events topic cannot be empty")
	}
	return nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return d, nil
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func splitList(v string) []string {
	if v == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
