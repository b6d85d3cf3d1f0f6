package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	// Server
	ServerHost   string        `yaml:"server_host"`
	ServerPort   string        `yaml:"server_port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// External product source
	RapidAPIKey    string        `yaml:"rapidapi_key"`
	RapidAPIHost   string        `yaml:"rapidapi_host"`
	ProductBaseURL string        `yaml:"product_base_url"`
	SourceTimeout  time.Duration `yaml:"source_timeout"`
	FetchLimit     int           `yaml:"fetch_limit"`

	// Database
	DatabaseURL      string `yaml:"database_url"`
	PostgresHost     string `yaml:"postgres_host"`
	PostgresPort     string `yaml:"postgres_port"`
	PostgresUser     string `yaml:"postgres_user"`
	PostgresPassword string `yaml:"postgres_password"`
	PostgresDB       string `yaml:"postgres_db"`
	PostgresSSLMode  string `yaml:"postgres_sslmode"`

	// Kafka (optional; empty brokers disables event publishing)
	KafkaBrokers []string `yaml:"kafka_brokers"`
	KafkaTopic   string   `yaml:"kafka_topic"`

	// Rate limiting
	RateLimitRPS   int `yaml:"rate_limit_rps"`
	RateLimitBurst int `yaml:"rate_limit_burst"`
}

func Load() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		ServerHost:   getEnv("SERVER_HOST", "0.0.0.0"),
		ServerPort:   getEnv("SERVER_PORT", "8000"),
		ReadTimeout:  getDuration("READ_TIMEOUT", 30*time.Second),
		WriteTimeout: getDuration("WRITE_TIMEOUT", 30*time.Second),

		RapidAPIKey:    getEnv("RAPIDAPI_KEY", ""),
		RapidAPIHost:   getEnv("RAPIDAPI_HOST", ""),
		ProductBaseURL: getEnv("PRODUCT_BASE_URL", "https://real-time-amazon-data.p.rapidapi.com/"),
		SourceTimeout:  getDuration("SOURCE_TIMEOUT", 10*time.Second),
		FetchLimit:     getIntEnv("FETCH_LIMIT", 4),

		DatabaseURL:      getEnv("DATABASE_URL", ""),
		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", ""),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", ""),
		PostgresDB:       getEnv("POSTGRES_DB", ""),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		KafkaBrokers: getStringSliceEnv("KAFKA_BROKERS", nil),
		KafkaTopic:   getEnv("KAFKA_TOPIC", "product-events"),

		RateLimitRPS:   getIntEnv("RATE_LIMIT_RPS", 50),
		RateLimitBurst: getIntEnv("RATE_LIMIT_BURST", 100),
	}

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.applyFile(path); err != nil {
			fmt.Fprintf(os.Stderr, "config: failed to apply %s: %v\n", path, err)
		}
	}

	return cfg
}

// applyFile overlays values from a YAML file on top of the env-derived config.
func (c *Config) applyFile(path string) error {
	content, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return err
	}
	return yaml.Unmarshal(content, c)
}

// Validate enforces the fatal startup conditions: upstream credentials and a
// database location must be present before the service starts.
func (c *Config) Validate() error {
	if c.RapidAPIKey == "" {
		return errors.New("RAPIDAPI_KEY is required")
	}
	if c.RapidAPIHost == "" {
		return errors.New("RAPIDAPI_HOST is required")
	}
	if c.ProductBaseURL == "" {
		return errors.New("product base URL cannot be empty")
	}
	if c.DatabaseURL == "" && (c.PostgresUser == "" || c.PostgresDB == "") {
		return errors.New("DATABASE_URL or POSTGRES_USER/POSTGRES_DB is required")
	}
	if c.FetchLimit < 0 {
		return fmt.Errorf("fetch limit cannot be negative, got %d", c.FetchLimit)
	}
	if c.SourceTimeout <= 0 {
		return errors.New("source timeout must be positive")
	}
	return nil
}

// DSN returns the Postgres connection string, preferring DATABASE_URL when
// set over the discrete POSTGRES_* fields.
func (c *Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		c.PostgresHost,
		c.PostgresUser,
		c.PostgresPassword,
		c.PostgresDB,
		c.PostgresPort,
		c.PostgresSSLMode,
	)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getStringSliceEnv(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				out = append(out, trimmed)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
