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
	Server    ServerConfig
	OpenAI    OpenAIConfig
	Research  ResearchConfig
	Database  DatabaseConfig
	MongoDB   MongoDBConfig
	Redis     RedisConfig
	Documents DocumentsConfig
	Log       LogConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port string
	Host string
	Mode string // gin mode: debug, release, test
}

// OpenAIConfig holds OpenAI API configuration
type OpenAIConfig struct {
	APIKey       string
	BaseURL      string // Optional, for OpenAI-compatible gateways
	EnrichModel  string
	PollInterval time.Duration // How often background research responses are polled
}

// ResearchConfig holds research orchestration settings
type ResearchConfig struct {
	DefaultModel      string
	DefaultCitations  int
	FastModel         string
	FastModelTimeout  time.Duration
	SlowModel         string
	SlowModelTimeout  time.Duration
	EvictAfterPersist bool
}

// ModelTimeouts returns the per-model phase timeouts
func (c ResearchConfig) ModelTimeouts() map[string]time.Duration {
	return map[string]time.Duration{
		c.FastModel: c.FastModelTimeout,
		c.SlowModel: c.SlowModelTimeout,
	}
}

// DatabaseConfig holds relational store settings
type DatabaseConfig struct {
	Driver string // postgres or sqlite3
	DSN    string
}

// MongoDBConfig holds MongoDB connection details
type MongoDBConfig struct {
	URI        string
	Username   string
	Password   string
	Host       string
	Port       string
	Database   string
	Collection string
	AuthSource string // Database to authenticate against (default: admin)
}

// RedisConfig holds Redis connection details for the progress mirror
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// DocumentsConfig holds filesystem document archive settings
type DocumentsConfig struct {
	Dir string
}

// LogConfig holds logger settings
type LogConfig struct {
	Level       string
	Development bool
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	config := &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "8000"),
			Host: getEnv("HOST", "0.0.0.0"),
			Mode: getEnv("GIN_MODE", "release"),
		},
		OpenAI: OpenAIConfig{
			APIKey:       getEnv("OPENAI_API_KEY", ""),
			BaseURL:      getEnv("OPENAI_BASE_URL", ""),
			EnrichModel:  getEnv("OPENAI_ENRICH_MODEL", "gpt-4.1"),
			PollInterval: getEnvDuration("OPENAI_POLL_INTERVAL", 5*time.Second),
		},
		Research: ResearchConfig{
			DefaultModel:      getEnv("RESEARCH_DEFAULT_MODEL", "o3-deep-research"),
			DefaultCitations:  getEnvInt("RESEARCH_DEFAULT_CITATIONS", 20),
			FastModel:         getEnv("RESEARCH_FAST_MODEL", "o4-mini-deep-research"),
			FastModelTimeout:  getEnvDuration("RESEARCH_FAST_MODEL_TIMEOUT", 1800*time.Second),
			SlowModel:         getEnv("RESEARCH_SLOW_MODEL", "o3-deep-research"),
			SlowModelTimeout:  getEnvDuration("RESEARCH_SLOW_MODEL_TIMEOUT", 3600*time.Second),
			EvictAfterPersist: getEnvBool("RESEARCH_EVICT_AFTER_PERSIST", false),
		},
		Database: DatabaseConfig{
			Driver: getEnv("DATABASE_DRIVER", "sqlite3"),
			DSN:    getEnv("DATABASE_URL", "file:research.db?_foreign_keys=on"),
		},
		MongoDB: MongoDBConfig{
			URI:        getEnv("MONGODB_URI", ""),
			Username:   getEnv("MONGODB_USERNAME", ""),
			Password:   getEnv("MONGODB_PASSWORD", ""),
			Host:       getEnv("MONGODB_HOST", ""),
			Port:       getEnv("MONGODB_PORT", "27017"),
			Database:   getEnv("MONGODB_DATABASE", "research"),
			Collection: getEnv("MONGODB_COLLECTION", "research_documents"),
			AuthSource: getEnv("MONGODB_AUTH_SOURCE", "admin"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Documents: DocumentsConfig{
			Dir: getEnv("RESEARCH_DOCUMENTS_DIR", "./research_documents"),
		},
		Log: LogConfig{
			Level:       getEnv("LOG_LEVEL", "info"),
			Development: getEnvBool("LOG_DEVELOPMENT", false),
		},
	}

	if err := ValidateConfig(config); err != nil {
		return nil, err
	}

	return config, nil
}

// ValidateConfig validates that required configuration values are present
func ValidateConfig(config *Config) error {
	switch config.Database.Driver {
	case "postgres", "sqlite3":
	default:
		return fmt.Errorf("DATABASE_DRIVER must be postgres or sqlite3, got %q", config.Database.Driver)
	}
	if config.Database.DSN == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if config.Research.DefaultCitations < 5 || config.Research.DefaultCitations > 100 {
		return fmt.Errorf("RESEARCH_DEFAULT_CITATIONS must be between 5 and 100, got %d", config.Research.DefaultCitations)
	}
	if config.Research.FastModelTimeout <= 0 || config.Research.SlowModelTimeout <= 0 {
		return fmt.Errorf("research model timeouts must be positive")
	}
	if config.OpenAI.PollInterval <= 0 {
		return fmt.Errorf("OPENAI_POLL_INTERVAL must be positive")
	}
	// The API key is optional so the server can start without a backend;
	// research requests fail until it is set.
	return nil
}

// Helper functions for environment variable access
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(strings.TrimSpace(value)); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getEnvDuration accepts Go durations ("30m") or plain seconds ("1800")
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}
