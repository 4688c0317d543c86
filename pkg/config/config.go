package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server      ServerConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	Auth        AuthConfig
	Realtime    RealtimeConfig
	Preferences PreferencesConfig
	RateLimit   RateLimitConfig
	OTEL        OTELConfig
	Log         LogConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host           string
	Port           int
	AllowedOrigins []string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	Migrate  bool
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

// AuthConfig holds the settings used to verify sessions issued by the auth provider
type AuthConfig struct {
	JWTSecret string
	Issuer    string
	Audience  string
}

// RealtimeConfig tunes the change feed and the view controllers built on it
type RealtimeConfig struct {
	NotifyChannel  string
	EmbeddedRelay  bool
	FetchTimeout   time.Duration
	EchoWindow     time.Duration
	HeartbeatEvery time.Duration
	MinReconnect   time.Duration
	MaxReconnect   time.Duration
}

// PreferencesConfig selects where per-user preferences are persisted
type PreferencesConfig struct {
	Backend    string // sqlite, redis or memory
	SQLitePath string
}

// RateLimitConfig holds per-user write limits
type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
}

// OTELConfig holds OpenTelemetry configuration
type OTELConfig struct {
	ServiceName    string
	ServiceVersion string
	Endpoint       string
	Enabled        bool
	ExportLogs     bool
}

// LogConfig holds logging configuration
type LogConfig struct {
	Env   string
	Level string
}

// Load loads configuration from environment variables. A .env file in the
// working directory is read first when present; real environment variables win.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Host:           getEnv("SERVER_HOST", "0.0.0.0"),
			Port:           getEnvAsInt("SERVER_PORT", 8080),
			AllowedOrigins: getEnvAsList("ALLOWED_ORIGINS", []string{"*"}),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Database: getEnv("DB_NAME", "sintesis"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			Migrate:  getEnvAsBool("DB_MIGRATE", true),
		},
		Redis: RedisConfig{
			Enabled:  getEnvAsBool("REDIS_ENABLED", true),
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvAsInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("AUTH_JWT_SECRET", ""),
			Issuer:    getEnv("AUTH_JWT_ISSUER", ""),
			Audience:  getEnv("AUTH_JWT_AUDIENCE", "authenticated"),
		},
		Realtime: RealtimeConfig{
			NotifyChannel:  getEnv("REALTIME_NOTIFY_CHANNEL", "row_changes"),
			EmbeddedRelay:  getEnvAsBool("REALTIME_EMBEDDED_RELAY", true),
			FetchTimeout:   getEnvAsDuration("REALTIME_FETCH_TIMEOUT", 10*time.Second),
			EchoWindow:     getEnvAsDuration("REALTIME_ECHO_WINDOW", 2*time.Minute),
			HeartbeatEvery: getEnvAsDuration("REALTIME_HEARTBEAT", 30*time.Second),
			MinReconnect:   getEnvAsDuration("REALTIME_MIN_RECONNECT", 2*time.Second),
			MaxReconnect:   getEnvAsDuration("REALTIME_MAX_RECONNECT", time.Minute),
		},
		Preferences: PreferencesConfig{
			Backend:    strings.ToLower(getEnv("PREFERENCES_BACKEND", "sqlite")),
			SQLitePath: getEnv("PREFERENCES_SQLITE_PATH", "preferences.db"),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: getEnvAsFloat("RATE_LIMIT_RPS", 5),
			Burst:             getEnvAsInt("RATE_LIMIT_BURST", 10),
		},
		OTEL: OTELConfig{
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "sintesis"),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "1.0.0"),
			Endpoint:       getEnv("OTEL_ENDPOINT", ""),
			Enabled:        getEnvAsBool("OTEL_ENABLED", false),
			ExportLogs:     getEnvAsBool("OTEL_EXPORT_LOGS", false),
		},
		Log: LogConfig{
			Env:   getEnv("APP_ENV", "development"),
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks settings that have no sensible default
func (c *Config) Validate() error {
	switch c.Preferences.Backend {
	case "sqlite", "redis", "memory":
	default:
		return fmt.Errorf("unsupported PREFERENCES_BACKEND %q", c.Preferences.Backend)
	}
	if c.Preferences.Backend == "redis" && !c.Redis.Enabled {
		return fmt.Errorf("PREFERENCES_BACKEND=redis requires REDIS_ENABLED")
	}
	if c.RateLimit.RequestsPerSecond <= 0 || c.RateLimit.Burst <= 0 {
		return fmt.Errorf("rate limit must be positive")
	}
	return nil
}

// DatabaseDSN returns the PostgreSQL connection string
func (c *DatabaseConfig) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// RedisAddr returns the Redis address
func (c *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
