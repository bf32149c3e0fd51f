package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const envPrefix = "DIARY"

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config holds the diary configuration.
// Environment variables are parsed from the DIARY_ prefix, after an optional
// .env file in the working directory.
type Config struct {
	HTTPPort int `envconfig:"HTTP_PORT" default:"8080"`

	// Storage
	StorageDriver string `envconfig:"STORAGE_DRIVER" default:"sqlite"`
	SQLitePath    string `envconfig:"SQLITE_PATH" default:""`
	PostgresDSN   string `envconfig:"POSTGRES_DSN" default:""`

	// Activity events
	EventBuffer  int      `envconfig:"EVENT_BUFFER" default:"100"`
	EventsSQL    bool     `envconfig:"EVENTS_SQL" default:"true"`
	KafkaBrokers []string `envconfig:"KAFKA_BROKERS"`
	KafkaTopic   string   `envconfig:"KAFKA_TOPIC" default:"diary_events"`

	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	Timezone string `envconfig:"TIMEZONE" default:"Local"`

	// Insights
	WeeklyDays    int `envconfig:"WEEKLY_DAYS" default:"7"`
	TopFoodsLimit int `envconfig:"TOP_FOODS_LIMIT" default:"5"`

	ShutdownTimeoutSeconds int `envconfig:"SHUTDOWN_TIMEOUT_SECONDS" default:"10"`
}

// ResolveDefaults derives the sqlite path when none is set.
func (c *Config) ResolveDefaults() error {
	if c.StorageDriver == DriverSQLite && c.SQLitePath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("resolving home directory: %w", err)
		}
		c.SQLitePath = filepath.Join(home, ".acasinha-diary", "diary.db")
	}
	return nil
}

func (c *Config) Validate() error {
	switch c.StorageDriver {
	case DriverSQLite, DriverMemory:
	case DriverPostgres:
		if c.PostgresDSN == "" {
			return errors.New("POSTGRES_DSN is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unsupported STORAGE_DRIVER: %s", c.StorageDriver)
	}
	if c.HTTPPort <= 0 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP_PORT: %d", c.HTTPPort)
	}
	if c.EventBuffer <= 0 {
		return fmt.Errorf("EVENT_BUFFER must be positive, got %d", c.EventBuffer)
	}
	if c.WeeklyDays <= 0 {
		return fmt.Errorf("WEEKLY_DAYS must be positive, got %d", c.WeeklyDays)
	}
	if c.TopFoodsLimit <= 0 {
		return fmt.Errorf("TOP_FOODS_LIMIT must be positive, got %d", c.TopFoodsLimit)
	}
	if len(c.KafkaBrokers) > 0 && c.KafkaTopic == "" {
		return errors.New("KAFKA_TOPIC is required when KAFKA_BROKERS is set")
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("invalid TIMEZONE: %w", err)
	}
	return nil
}

// New loads .env when present, then parses the environment.
func New() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	var cfg Config
	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}
	if err := cfg.ResolveDefaults(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log.Info().
		Int("port", cfg.HTTPPort).
		Str("storage_driver", cfg.StorageDriver).
		Str("sqlite_path", cfg.SQLitePath).
		Bool("postgres_dsn_present", cfg.PostgresDSN != "").
		Strs("kafka_brokers", cfg.KafkaBrokers).
		Bool("events_sql", cfg.EventsSQL).
		Str("timezone", cfg.Timezone).
		Msg("Configuration loaded")

	return &cfg, nil
}

// NewForTesting returns an in-memory configuration with no event sinks.
func NewForTesting() *Config {
	return &Config{
		HTTPPort:               8080,
		StorageDriver:          DriverMemory,
		EventBuffer:            10,
		KafkaTopic:             "diary_events",
		LogLevel:               "debug",
		Timezone:               "UTC",
		WeeklyDays:             7,
		TopFoodsLimit:          5,
		ShutdownTimeoutSeconds: 1,
	}
}

func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}

func (c *Config) GetHTTPAddr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}

func (c *Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.ShutdownTimeoutSeconds) * time.Second
}
