// Package config loads server configuration from an optional YAML file with
// environment variable overrides. Environment always wins so the Docker setup
// can override a baked-in config file.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds the full server configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Archive    ArchiveConfig    `yaml:"archive"`
	MarketData MarketDataConfig `yaml:"market_data"`
	Schedule   ScheduleConfig   `yaml:"schedule"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Port     string `yaml:"port"`
	APIToken string `yaml:"api_token"`
}

// DatabaseConfig configures the primary Postgres connection.
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"ssl_mode"`
}

// ArchiveConfig configures the local SQLite price archive.
type ArchiveConfig struct {
	Path string `yaml:"path"`
}

// MarketDataConfig configures the market data access layer.
type MarketDataConfig struct {
	MaxDaysBack  int  `yaml:"max_days_back"`
	YahooEnabled bool `yaml:"yahoo_enabled"`
}

// ScheduleConfig configures the background revaluation job.
type ScheduleConfig struct {
	// RevaluationCron is a cron expression; empty disables the job.
	RevaluationCron string `yaml:"revaluation_cron"`
}

// Default returns the configuration used when no file and no environment
// overrides are present.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:     "8080",
			APIToken: "dev-token",
		},
		Database: DatabaseConfig{
			Host:    "localhost",
			Port:    "5432",
			User:    "postgres",
			Name:    "noteval",
			SSLMode: "disable",
		},
		Archive: ArchiveConfig{
			Path: "noteval-archive.db",
		},
		MarketData: MarketDataConfig{
			MaxDaysBack: 5,
		},
		Schedule: ScheduleConfig{
			RevaluationCron: "0 18 * * 1-5",
		},
	}
}

// Load builds the configuration: defaults, then the YAML file at path (if path
// is non-empty; a missing file is an error), then environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	setFromEnv(&c.Server.Port, "SERVER_PORT")
	setFromEnv(&c.Server.APIToken, "API_TOKEN")
	setFromEnv(&c.Database.Host, "DB_HOST")
	setFromEnv(&c.Database.Port, "DB_PORT")
	setFromEnv(&c.Database.User, "DB_USER")
	setFromEnv(&c.Database.Password, "DB_PASSWORD")
	setFromEnv(&c.Database.Name, "DB_NAME")
	setFromEnv(&c.Database.SSLMode, "DB_SSLMODE")
	setFromEnv(&c.Archive.Path, "ARCHIVE_PATH")
	setFromEnv(&c.Schedule.RevaluationCron, "REVALUATION_CRON")

	if v := os.Getenv("YAHOO_ENABLED"); v != "" {
		c.MarketData.YahooEnabled = v == "true" || v == "1"
	}
}

func setFromEnv(target *string, key string) {
	if v := os.Getenv(key); v != "" {
		*target = v
	}
}

// ConnString renders the lib/pq connection string for the primary database.
func (c DatabaseConfig) ConnString() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
}
