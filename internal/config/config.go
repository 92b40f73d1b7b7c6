package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration values for the application
type Config struct {
	Port           string
	AllowedOrigins []string
	LogLevel       string
	Environment    string

	DatabaseURL string
	DBMaxConns  int
	RedisURL    string

	SupabaseURL        string
	SupabaseAnonKey    string
	SupabaseServiceKey string // Used for storage writes/downloads when set
	StorageBucket      string

	AdminPassphrase  string
	AdminTokenSecret string
	AdminTokenTTL    time.Duration

	MaxFileMB         int64 // Soft limit: larger files only produce a warning
	MaxUploadMemoryMB int64
	CatalogPath       string
	HighlightWindow   time.Duration

	RateLimitRPS   float64
	RateLimitBurst int
	MetricsEnabled bool
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		Port:               getEnv("PORT", "8080"),
		AllowedOrigins:     parseOrigins(getEnv("ALLOWED_ORIGINS", "http://localhost:5173,http://localhost:5174")),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		Environment:        getEnv("ENVIRONMENT", "production"),
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		RedisURL:           getEnv("REDIS_URL", ""),
		SupabaseURL:        strings.TrimRight(getEnv("SUPABASE_URL", ""), "/"),
		SupabaseAnonKey:    getEnv("SUPABASE_ANON_KEY", ""),
		SupabaseServiceKey: getEnv("SUPABASE_SERVICE_KEY", ""),
		StorageBucket:      getEnv("STORAGE_BUCKET", "hunt-submissions"),
		AdminPassphrase:    getEnv("ADMIN_PASSPHRASE", ""),
		AdminTokenSecret:   getEnv("ADMIN_TOKEN_SECRET", ""),
		CatalogPath:        getEnv("CATALOG_PATH", ""),
		MetricsEnabled:     getBoolEnv("METRICS_ENABLED", true),
	}

	var err error
	if cfg.DBMaxConns, err = getIntEnv("DB_MAX_CONNS", 10); err != nil {
		return nil, err
	}
	if cfg.AdminTokenTTL, err = getDurationEnv("ADMIN_TOKEN_TTL", 12*time.Hour); err != nil {
		return nil, err
	}
	if cfg.HighlightWindow, err = getDurationEnv("HIGHLIGHT_WINDOW", 800*time.Millisecond); err != nil {
		return nil, err
	}
	maxFile, err := getIntEnv("MAX_FILE_MB", 50)
	if err != nil {
		return nil, err
	}
	cfg.MaxFileMB = int64(maxFile)
	maxMem, err := getIntEnv("MAX_UPLOAD_MEMORY_MB", 32)
	if err != nil {
		return nil, err
	}
	cfg.MaxUploadMemoryMB = int64(maxMem)
	if cfg.RateLimitBurst, err = getIntEnv("RATE_LIMIT_BURST", 20); err != nil {
		return nil, err
	}
	rps := getEnv("RATE_LIMIT_RPS", "5")
	if cfg.RateLimitRPS, err = strconv.ParseFloat(rps, 64); err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_RPS %q: %w", rps, err)
	}

	return cfg, nil
}

// Validate reports settings the server cannot start without
func (c *Config) Validate() error {
	var problems []string

	if c.DatabaseURL == "" {
		problems = append(problems, "DATABASE_URL is required")
	}
	if c.SupabaseURL == "" {
		problems = append(problems, "SUPABASE_URL is required")
	}
	if c.StorageBucket == "" {
		problems = append(problems, "STORAGE_BUCKET must not be empty")
	}
	if c.AdminTokenTTL <= 0 {
		problems = append(problems, "ADMIN_TOKEN_TTL must be positive")
	}
	if c.HighlightWindow <= 0 {
		problems = append(problems, "HIGHLIGHT_WINDOW must be positive")
	}
	if c.MaxFileMB <= 0 || c.MaxUploadMemoryMB <= 0 {
		problems = append(problems, "MAX_FILE_MB and MAX_UPLOAD_MEMORY_MB must be positive")
	}
	if c.RateLimitRPS <= 0 || c.RateLimitBurst <= 0 {
		problems = append(problems, "RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

// IsDevelopment is true for local and staging deployments
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development" || c.Environment == "staging"
}

// StorageKey is the key used against Supabase Storage
func (c *Config) StorageKey() string {
	if c.SupabaseServiceKey != "" {
		return c.SupabaseServiceKey
	}
	return c.SupabaseAnonKey
}

// getEnv gets an environment variable with a fallback value
func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// parseOrigins parses comma-separated origins into a slice
func parseOrigins(origins string) []string {
	if origins == "" {
		return []string{}
	}

	parts := strings.Split(origins, ",")
	result := make([]string, 0, len(parts))

	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}

// getBoolEnv gets a boolean environment variable with a fallback value
func getBoolEnv(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getIntEnv(key string, fallback int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return parsed, nil
}

func getDurationEnv(key string, fallback time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return parsed, nil
}
