package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"

	"github.com/platinummonkey/tartalacrm/pkg/observability"
	"github.com/platinummonkey/tartalacrm/pkg/storage"
)

// ErrMissingSecret is returned when TARTALA_JWT_SECRET is unset. Nothing can
// issue or verify a token without it.
var ErrMissingSecret = errors.New("TARTALA_JWT_SECRET is required")

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server ServerConfig

	// Storage configuration
	Storage storage.Config
	Redis   storage.RedisConfig

	// Auth configuration
	Auth AuthConfig

	// Observability configuration
	Observability ObservabilityConfig

	// CLI configuration
	CLI CLIConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// LoginRateLimit is the number of /get_token attempts allowed per client
	// address and minute. Zero disables the limiter.
	LoginRateLimit int
}

// AuthConfig holds token and password settings
type AuthConfig struct {
	JWTSecret  string
	TokenTTL   time.Duration
	BcryptCost int
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	LogLevel       observability.LogLevel
	MetricsEnabled bool

	// AuditDB also stores audit events in the audit_logs table.
	AuditDB bool
}

// CLIConfig holds settings of the command-line client
type CLIConfig struct {
	SessionFile string
}

// LoadConfig loads configuration from environment variables, after loading
// a .env file from the working directory if there is one.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Server:        loadServerConfig(),
		Storage:       loadStorageConfig(),
		Redis:         loadRedisConfig(),
		Auth:          loadAuthConfig(),
		Observability: loadObservabilityConfig(),
		CLI: CLIConfig{
			SessionFile: getEnv("TARTALA_SESSION_FILE", ".tartalacrm_config"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// loadServerConfig loads server configuration from environment
func loadServerConfig() ServerConfig {
	return ServerConfig{
		Host:            getEnv("TARTALA_HOST", "0.0.0.0"),
		Port:            getEnv("TARTALA_PORT", "8000"),
		ReadTimeout:     getEnvDuration("TARTALA_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:    getEnvDuration("TARTALA_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:     getEnvDuration("TARTALA_IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout: getEnvDuration("TARTALA_SHUTDOWN_TIMEOUT", 30*time.Second),
		LoginRateLimit:  getEnvInt("TARTALA_LOGIN_RATE_LIMIT", 10),
	}
}

// loadStorageConfig loads database configuration from environment
func loadStorageConfig() storage.Config {
	cfg := storage.DefaultConfig()

	if url := getEnv("TARTALA_DATABASE_URL", ""); url != "" {
		cfg.URL = url
	}
	if maxConns := getEnvInt("TARTALA_DB_MAX_CONNS", 0); maxConns > 0 {
		cfg.MaxConns = maxConns
	}
	if timeout := getEnvDuration("TARTALA_DB_TIMEOUT", 0); timeout > 0 {
		cfg.Timeout = timeout
	}

	return cfg
}

// loadRedisConfig loads the optional Redis connection from environment
func loadRedisConfig() storage.RedisConfig {
	return storage.RedisConfig{
		URL:      getEnv("TARTALA_REDIS_URL", ""),
		Password: getEnv("TARTALA_REDIS_PASSWORD", ""),
		DB:       getEnvInt("TARTALA_REDIS_DB", 0),
		PoolSize: getEnvInt("TARTALA_REDIS_POOL_SIZE", 0),
	}
}

func loadAuthConfig() AuthConfig {
	return AuthConfig{
		JWTSecret:  os.Getenv("TARTALA_JWT_SECRET"),
		TokenTTL:   getEnvDuration("TARTALA_TOKEN_TTL", 24*time.Hour),
		BcryptCost: getEnvInt("TARTALA_BCRYPT_COST", bcrypt.DefaultCost),
	}
}

// loadObservabilityConfig loads observability configuration from environment
func loadObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{
		LogLevel:       observability.ParseLogLevel(getEnv("TARTALA_LOG_LEVEL", "info")),
		MetricsEnabled: getEnvBool("TARTALA_METRICS_ENABLED", true),
		AuditDB:        getEnvBool("TARTALA_AUDIT_DB", false),
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return ErrMissingSecret
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("token TTL must be positive, got %s", c.Auth.TokenTTL)
	}
	if c.Auth.BcryptCost < bcrypt.MinCost || c.Auth.BcryptCost > bcrypt.MaxCost {
		return fmt.Errorf("bcrypt cost must be between %d and %d, got %d", bcrypt.MinCost, bcrypt.MaxCost, c.Auth.BcryptCost)
	}

	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.LoginRateLimit < 0 {
		return fmt.Errorf("login rate limit cannot be negative")
	}

	if _, _, err := storage.ParseURL(c.Storage.URL); err != nil {
		return err
	}

	if c.CLI.SessionFile == "" {
		return fmt.Errorf("session file path is required")
	}

	return nil
}

// Addr returns the host:port the HTTP server listens on.
func (c *Config) Addr() string {
	return c.Server.Host + ":" + c.Server.Port
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
