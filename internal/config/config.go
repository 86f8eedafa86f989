// Package config loads and validates runtime configuration for the app
// builder service.
//
// Values come from the process environment. cmd/server loads a .env file
// with godotenv before calling Load, so local development needs no exports.
package config

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"time"
)

// Environment constants
const (
	EnvProduction  = "production"
	EnvStaging     = "staging"
	EnvDevelopment = "development"
	EnvTest        = "test"
)

// MasterKeyBytes is the decoded size of SECRETS_MASTER_KEY (AES-256).
const MasterKeyBytes = 32

// Provider names accepted by AI_PROVIDER.
const (
	ProviderCerebras = "cerebras"
	ProviderGemini   = "gemini"
)

// Config holds all application configuration.
type Config struct {
	// Server configuration
	Port        string
	Environment string
	LogLevel    string

	// AI provider
	AIProvider       string
	CerebrasAPIKey   string
	GeminiAPIKey     string
	AIRequestTimeout time.Duration
	AIMaxConcurrency int

	// Workflow pacing and retries
	WorkflowMaxAttempts      int
	WorkflowRetryBackoff     time.Duration
	WorkflowProgressInterval time.Duration
	WorkflowAgentPause       time.Duration

	// Storage
	DatabaseURL string
	SQLitePath  string
	RedisURL    string
	CacheTTL    time.Duration

	// Encryption of stored API keys
	SecretsMasterKey string

	// HTTP edge
	CORSAllowedOrigins []string
	RateLimitRPM       int
	RateLimitBurst     int
}

// ValidationError lists every configuration problem found by Validate.
type ValidationError struct {
	Missing  []string
	Invalid  []string
	Warnings []string
}

func (e *ValidationError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, fmt.Sprintf("missing config: %s", strings.Join(e.Missing, ", ")))
	}
	if len(e.Invalid) > 0 {
		parts = append(parts, fmt.Sprintf("invalid config: %s", strings.Join(e.Invalid, ", ")))
	}
	return strings.Join(parts, "; ")
}

// HasErrors reports whether any missing or invalid entries were recorded.
func (e *ValidationError) HasErrors() bool {
	return len(e.Missing) > 0 || len(e.Invalid) > 0
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: GetEnvironment(),
		LogLevel:    getEnv("LOG_LEVEL", "info"),

		AIProvider:       strings.ToLower(getEnv("AI_PROVIDER", ProviderCerebras)),
		CerebrasAPIKey:   getEnvAny([]string{"CEREBRAS_API_KEY", "NEXT_PUBLIC_CEREBRAS_API_KEY"}, ""),
		GeminiAPIKey:     getEnvAny([]string{"GEMINI_API_KEY", "GOOGLE_AI_API_KEY", "GOOGLE_GEMINI_API_KEY"}, ""),
		AIRequestTimeout: getEnvDuration("AI_REQUEST_TIMEOUT", 120*time.Second),
		AIMaxConcurrency: getEnvInt("AI_MAX_CONCURRENCY", 8),

		WorkflowMaxAttempts:      getEnvInt("WORKFLOW_MAX_ATTEMPTS", 3),
		WorkflowRetryBackoff:     getEnvDuration("WORKFLOW_RETRY_BACKOFF", 1500*time.Millisecond),
		WorkflowProgressInterval: getEnvDuration("WORKFLOW_PROGRESS_INTERVAL", 800*time.Millisecond),
		WorkflowAgentPause:       getEnvDuration("WORKFLOW_AGENT_PAUSE", 500*time.Millisecond),

		DatabaseURL: getEnv("DATABASE_URL", ""),
		SQLitePath:  getEnv("SQLITE_PATH", "app_builder.db"),
		RedisURL:    getEnv("REDIS_URL", ""),
		CacheTTL:    getEnvDuration("CACHE_TTL", time.Hour),

		SecretsMasterKey: getEnv("SECRETS_MASTER_KEY", ""),

		CORSAllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:5173,http://127.0.0.1:3000")),
		RateLimitRPM:       getEnvInt("RATE_LIMIT_RPM", 600),
		RateLimitBurst:     getEnvInt("RATE_LIMIT_BURST", 30),
	}
}

// Validate checks the loaded configuration. Production requires a master key
// and an API key for the selected provider.
func (c *Config) Validate() error {
	if verr := c.check(); verr.HasErrors() {
		return verr
	}
	return nil
}

// Warnings returns the non-fatal findings, such as a missing provider key
// outside production.
func (c *Config) Warnings() []string {
	return c.check().Warnings
}

func (c *Config) check() *ValidationError {
	verr := &ValidationError{}
	production := c.Environment == EnvProduction || c.Environment == "prod"

	switch c.AIProvider {
	case ProviderCerebras:
		if c.CerebrasAPIKey == "" {
			if production {
				verr.Missing = append(verr.Missing, "CEREBRAS_API_KEY")
			} else {
				verr.Warnings = append(verr.Warnings, "CEREBRAS_API_KEY not set, callers must supply keys")
			}
		}
	case ProviderGemini:
		if c.GeminiAPIKey == "" {
			if production {
				verr.Missing = append(verr.Missing, "GEMINI_API_KEY")
			} else {
				verr.Warnings = append(verr.Warnings, "GEMINI_API_KEY not set, callers must supply keys")
			}
		}
	default:
		verr.Invalid = append(verr.Invalid, fmt.Sprintf("AI_PROVIDER (%q)", c.AIProvider))
	}

	if c.SecretsMasterKey == "" {
		if production {
			verr.Missing = append(verr.Missing, "SECRETS_MASTER_KEY")
		}
	} else if err := validateMasterKey(c.SecretsMasterKey); err != nil {
		verr.Invalid = append(verr.Invalid, fmt.Sprintf("SECRETS_MASTER_KEY (%v)", err))
	}

	if c.DatabaseURL != "" && !isPostgresURL(c.DatabaseURL) {
		verr.Invalid = append(verr.Invalid, "DATABASE_URL (must be postgres:// or postgresql://)")
	}
	if c.WorkflowMaxAttempts < 1 {
		verr.Invalid = append(verr.Invalid, "WORKFLOW_MAX_ATTEMPTS (must be >= 1)")
	}
	if c.AIMaxConcurrency < 1 {
		verr.Invalid = append(verr.Invalid, "AI_MAX_CONCURRENCY (must be >= 1)")
	}
	if c.RateLimitRPM < 1 || c.RateLimitBurst < 1 {
		verr.Invalid = append(verr.Invalid, "RATE_LIMIT_RPM/RATE_LIMIT_BURST (must be >= 1)")
	}
	return verr
}

// ActiveAPIKey returns the configured key for the selected provider.
func (c *Config) ActiveAPIKey() string {
	if c.AIProvider == ProviderGemini {
		return c.GeminiAPIKey
	}
	return c.CerebrasAPIKey
}

// IsProduction reports whether the config was loaded for production.
func (c *Config) IsProduction() bool {
	return c.Environment == EnvProduction || c.Environment == "prod"
}

// UsesPostgres reports whether DATABASE_URL selects the postgres driver.
func (c *Config) UsesPostgres() bool {
	return isPostgresURL(c.DatabaseURL)
}

// GetEnvironment returns the current environment
func GetEnvironment() string {
	env := os.Getenv("ENVIRONMENT")
	if env == "" {
		env = os.Getenv("NODE_ENV")
	}
	if env == "" {
		env = os.Getenv("GO_ENV")
	}
	if env == "" {
		env = EnvDevelopment
	}
	return strings.ToLower(env)
}

// IsProductionEnvironment returns true if running in production
func IsProductionEnvironment() bool {
	env := GetEnvironment()
	return env == EnvProduction || env == "prod"
}

// GenerateMasterKey generates a new AES-256 master key
func GenerateMasterKey() (string, error) {
	bytes := make([]byte, MasterKeyBytes)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate master key: %w", err)
	}
	return base64.StdEncoding.EncodeToString(bytes), nil
}

// validateMasterKey enforces a valid AES-256 key.
func validateMasterKey(key string) error {
	decoded, err := base64.StdEncoding.DecodeString(key)
	if err != nil {
		return fmt.Errorf("must be valid base64 encoded: %w", err)
	}

	if len(decoded) != MasterKeyBytes {
		return fmt.Errorf("must decode to exactly %d bytes (got %d) for AES-256", MasterKeyBytes, len(decoded))
	}

	allZero := true
	for _, b := range decoded {
		if b != 0 {
			allZero = false
			break
		}
	}
	if allZero {
		return errors.New("master key is all zeros")
	}

	if e := byteEntropy(decoded); e < 4.0 {
		return fmt.Errorf("master key byte entropy too low (%.1f, need >= 4.0)", e)
	}

	return nil
}

// byteEntropy calculates Shannon entropy per byte
func byteEntropy(data []byte) float64 {
	if len(data) == 0 {
		return 0
	}
	freq := make(map[byte]int)
	for _, b := range data {
		freq[b]++
	}
	var entropy float64
	length := float64(len(data))
	for _, count := range freq {
		p := float64(count) / length
		entropy -= p * math.Log2(p)
	}
	return entropy
}

func isPostgresURL(raw string) bool {
	return strings.HasPrefix(raw, "postgres://") || strings.HasPrefix(raw, "postgresql://")
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAny(keys []string, defaultValue string) string {
	for _, key := range keys {
		if value := os.Getenv(key); value != "" {
			return value
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
