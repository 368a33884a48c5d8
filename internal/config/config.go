package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DemoUser is one entry of the mock login's credential list
type DemoUser struct {
	Username string
	Password string
	Role     string
}

// Config holds all configuration for the application
type Config struct {
	Port                 string
	AllowedOrigins       []string
	LogLevel             string
	SessionSecret        string
	SessionTTL           time.Duration
	SessionSweepInterval time.Duration
	DemoUsers            []DemoUser
	SkipAuth             bool
	MaxUploadBytes       int64
	SeedSampleData       bool
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	config := &Config{
		Port:           getEnv("PORT", "8080"),
		AllowedOrigins: strings.Split(getEnv("ALLOWED_ORIGINS", "http://localhost:5173"), ","),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		SessionSecret:  getEnv("SESSION_SECRET", "insights-dev-secret"),
	}

	ttl, err := strconv.Atoi(getEnv("SESSION_TTL", "480"))
	if err != nil {
		return nil, fmt.Errorf("invalid SESSION_TTL: %w", err)
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("invalid SESSION_TTL: must be positive, got %d", ttl)
	}
	config.SessionTTL = time.Duration(ttl) * time.Minute

	sweep, err := strconv.Atoi(getEnv("SESSION_SWEEP_INTERVAL", "60"))
	if err != nil {
		return nil, fmt.Errorf("invalid SESSION_SWEEP_INTERVAL: %w", err)
	}
	if sweep <= 0 {
		return nil, fmt.Errorf("invalid SESSION_SWEEP_INTERVAL: must be positive, got %d", sweep)
	}
	config.SessionSweepInterval = time.Duration(sweep) * time.Second

	config.DemoUsers, err = ParseDemoUsers(getEnv("DEMO_USERS", "admin:admin:admin"))
	if err != nil {
		return nil, fmt.Errorf("invalid DEMO_USERS: %w", err)
	}

	config.SkipAuth, err = strconv.ParseBool(getEnv("SKIP_AUTH", "false"))
	if err != nil {
		return nil, fmt.Errorf("invalid SKIP_AUTH: %w", err)
	}

	maxUpload, err := strconv.Atoi(getEnv("MAX_UPLOAD_MB", "10"))
	if err != nil {
		return nil, fmt.Errorf("invalid MAX_UPLOAD_MB: %w", err)
	}
	if maxUpload <= 0 {
		return nil, fmt.Errorf("invalid MAX_UPLOAD_MB: must be positive, got %d", maxUpload)
	}
	config.MaxUploadBytes = int64(maxUpload) << 20

	config.SeedSampleData, err = strconv.ParseBool(getEnv("SEED_SAMPLE_DATA", "false"))
	if err != nil {
		return nil, fmt.Errorf("invalid SEED_SAMPLE_DATA: %w", err)
	}

	// Trim spaces from allowed origins
	for i, origin := range config.AllowedOrigins {
		config.AllowedOrigins[i] = strings.TrimSpace(origin)
	}

	return config, nil
}

// ParseDemoUsers reads a comma separated user:password[:role] list.
// The role defaults to viewer.
func ParseDemoUsers(s string) ([]DemoUser, error) {
	var users []DemoUser
	for _, entry := range strings.Split(s, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.Split(entry, ":")
		if len(parts) < 2 || len(parts) > 3 || parts[0] == "" || parts[1] == "" {
			return nil, fmt.Errorf("entry %q is not user:password[:role]", entry)
		}
		u := DemoUser{Username: parts[0], Password: parts[1], Role: "viewer"}
		if len(parts) == 3 && parts[2] != "" {
			u.Role = parts[2]
		}
		users = append(users, u)
	}
	if len(users) == 0 {
		return nil, fmt.Errorf("no users configured")
	}
	return users, nil
}

// getEnv gets an environment variable with a fallback default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
