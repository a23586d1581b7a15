package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Supported database drivers
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config holds the runtime configuration of the circle backend
type Config struct {
	Port        string
	Environment string

	Database DatabaseConfig
	Redis    RedisConfig
	Log      LogConfig
	Tracing  TracingConfig

	// JWTSecret signs and verifies access tokens issued by the session layer
	JWTSecret []byte

	// Toggle routes are rate limited per client
	ToggleRateLimit  int
	ToggleRateWindow time.Duration

	// Counter audit runs every AuditInterval when positive
	AuditInterval   time.Duration
	AuditAutoRepair bool
}

// DatabaseConfig selects and configures the SQL backend
type DatabaseConfig struct {
	Driver     string
	URL        string
	SQLitePath string

	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
}

// RedisConfig points at the Redis instance used for rate limiting
type RedisConfig struct {
	Host     string
	Port     string
	Password string
}

// LogConfig configures the zap logger. An empty File logs to stdout only.
type LogConfig struct {
	Level string
	File  string

	// Rotation of File
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// TracingConfig configures OpenTelemetry export
type TracingConfig struct {
	Enabled      bool
	Endpoint     string
	Insecure     bool
	SamplingRate float64
}

// IsDevelopment reports whether the server runs in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// Load reads .env (if present) and the process environment
func Load() (*Config, error) {
	// A missing .env is normal outside local development
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv builds a Config from environment variables only
func FromEnv() (*Config, error) {
	cfg := &Config{
		Port:        getEnvOrDefault("PORT", "8787"),
		Environment: getEnvOrDefault("ENVIRONMENT", "development"),
		Database: DatabaseConfig{
			Driver:          strings.ToLower(getEnvOrDefault("DB_DRIVER", DriverPostgres)),
			URL:             os.Getenv("DATABASE_URL"),
			SQLitePath:      getEnvOrDefault("SQLITE_PATH", "circle.db"),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 10),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 100),
			ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", time.Hour),
		},
		Redis: RedisConfig{
			Host:     os.Getenv("REDIS_HOST"),
			Port:     getEnvOrDefault("REDIS_PORT", "6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
		},
		Log: LogConfig{
			Level:      getEnvOrDefault("LOG_LEVEL", "info"),
			File:       getEnvOrDefault("LOG_FILE", "server.log"),
			MaxSizeMB:  getEnvInt("LOG_MAX_SIZE_MB", 100),
			MaxBackups: getEnvInt("LOG_MAX_BACKUPS", 5),
			MaxAgeDays: getEnvInt("LOG_MAX_AGE_DAYS", 7),
		},
		Tracing: TracingConfig{
			Enabled:      getEnvBool("OTEL_ENABLED", false),
			Endpoint:     getEnvOrDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
			Insecure:     getEnvBool("OTEL_EXPORTER_OTLP_INSECURE", true),
			SamplingRate: getEnvFloat("OTEL_SAMPLING_RATE", 1.0),
		},
		JWTSecret:        []byte(os.Getenv("JWT_SECRET")),
		ToggleRateLimit:  getEnvInt("RATE_LIMIT_TOGGLE_MAX", 60),
		ToggleRateWindow: getEnvDuration("RATE_LIMIT_TOGGLE_WINDOW", time.Minute),
		AuditInterval:    getEnvDuration("COUNTER_AUDIT_INTERVAL", 0),
		AuditAutoRepair:  getEnvBool("COUNTER_AUDIT_REPAIR", false),
	}

	if cfg.Database.URL == "" && cfg.Database.Driver == DriverPostgres {
		// Fallback to individual components
		cfg.Database.URL = fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			getEnvOrDefault("DB_HOST", "localhost"),
			getEnvOrDefault("DB_PORT", "5432"),
			getEnvOrDefault("DB_USER", "postgres"),
			os.Getenv("DB_PASSWORD"),
			getEnvOrDefault("DB_NAME", "circle"),
			getEnvOrDefault("DB_SSLMODE", "disable"),
		)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks settings that would otherwise fail late
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverPostgres, DriverSQLite:
	default:
		return fmt.Errorf("DB_DRIVER must be %q or %q, got %q", DriverPostgres, DriverSQLite, c.Database.Driver)
	}
	if c.ToggleRateLimit <= 0 {
		return fmt.Errorf("RATE_LIMIT_TOGGLE_MAX must be positive, got %d", c.ToggleRateLimit)
	}
	if c.AuditInterval < 0 {
		return fmt.Errorf("COUNTER_AUDIT_INTERVAL must not be negative, got %v", c.AuditInterval)
	}
	if c.Tracing.SamplingRate < 0 || c.Tracing.SamplingRate > 1 {
		return fmt.Errorf("OTEL_SAMPLING_RATE must be within [0, 1], got %v", c.Tracing.SamplingRate)
	}
	return nil
}

// getEnvOrDefault returns environment variable or default value
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if v, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return v
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if v, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}
