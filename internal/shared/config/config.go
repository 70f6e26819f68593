package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	KurrentDB  KurrentDBConfig
	Auth       AuthConfig
	Log        LogConfig
	Assignment AssignmentConfig
	RateLimit  RateLimitConfig
}

type ServerConfig struct {
	Port int
	Env  string
	// Storage selects the repository backend: "postgres" or "memory".
	// Memory mode is explicit and never used as a fallback for a failing database.
	Storage string
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int
	MinConns int
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Database, d.SSLMode,
	)
}

// KurrentDBConfig holds configuration for KurrentDB (EventStoreDB).
type KurrentDBConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Insecure bool
	Username string
	Password string
}

type AuthConfig struct {
	JWTSecret string
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level       string
	Format      string // json or console
	Development bool
}

// AssignmentConfig configures the case assignment engine.
type AssignmentConfig struct {
	// Offices is the ordered rotation list. Order matters: it is the
	// round-robin order and the lock order for multi-office operations.
	Offices []string
	// Numbering is "sequence" (monotonic per year) or "time" (UnixNano based).
	Numbering string
	// SeedAgents seeds a demo roster per office on startup when the agent table is empty.
	SeedAgents bool
}

type RateLimitConfig struct {
	RequestsPerSecond int
	Burst             int
}

// Load reads configuration from the environment, after loading .env files
// from the working directory and its parent when present.
func Load() (*Config, error) {
	_ = godotenv.Load(".env")
	_ = godotenv.Load("../.env")

	cfg := &Config{
		Server: ServerConfig{
			Port:    getEnvInt("SERVER_PORT", 8080),
			Env:     getEnv("ENV", "development"),
			Storage: getEnv("STORAGE", "postgres"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "coc"),
			Password: getEnv("DB_PASSWORD", "coc"),
			Database: getEnv("DB_NAME", "coc"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			MaxConns: getEnvInt("DB_MAX_CONNS", 25),
			MinConns: getEnvInt("DB_MIN_CONNS", 5),
		},
		KurrentDB: KurrentDBConfig{
			Enabled:  getEnvBool("KURRENTDB_ENABLED", false),
			Host:     getEnv("KURRENTDB_HOST", "localhost"),
			Port:     getEnvInt("KURRENTDB_PORT", 2113),
			Insecure: getEnvBool("KURRENTDB_INSECURE", true),
			Username: getEnv("KURRENTDB_USERNAME", ""),
			Password: getEnv("KURRENTDB_PASSWORD", ""),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", "dev-secret-change-in-prod"),
		},
		Log: LogConfig{
			Level:       getEnv("LOG_LEVEL", "info"),
			Format:      getEnv("LOG_FORMAT", "json"),
			Development: getEnvBool("LOG_DEVELOPMENT", false),
		},
		Assignment: AssignmentConfig{
			Offices:    getEnvSlice("COC_OFFICES", []string{"TUV", "ECF", "AFNOR", "ICUM", "SGS"}),
			Numbering:  getEnv("COC_NUMBERING", "sequence"),
			SeedAgents: getEnvBool("COC_SEED_AGENTS", true),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: getEnvInt("RATE_LIMIT_RPS", 20),
			Burst:             getEnvInt("RATE_LIMIT_BURST", 40),
		},
	}
	return cfg, nil
}

// Validate rejects configurations the service cannot start with.
func (c *Config) Validate() error {
	if len(c.Assignment.Offices) == 0 {
		return errors.New("config: COC_OFFICES must list at least one office")
	}
	switch c.Assignment.Numbering {
	case "sequence", "time":
	default:
		return fmt.Errorf("config: unknown COC_NUMBERING %q", c.Assignment.Numbering)
	}
	switch c.Server.Storage {
	case "postgres", "memory":
	default:
		return fmt.Errorf("config: unknown STORAGE %q", c.Server.Storage)
	}
	if c.Server.Env == "production" && c.Auth.JWTSecret == "dev-secret-change-in-prod" {
		return errors.New("config: JWT_SECRET must be set in production")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

// getEnvSlice parses a comma-separated list, ignoring blank entries.
func getEnvSlice(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var result []string
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	if len(result) == 0 {
		return defaultValue
	}
	return result
}
