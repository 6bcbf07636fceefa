// Package config loads tool configuration from an optional YAML file with
// environment variable overrides, and validates the identifiers and paths
// the CLIs accept from the outside.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// DefaultConfigFile is consulted when no explicit config path is given.
const DefaultConfigFile = "spanwright.yaml"

// Config holds all configuration for the seeding and validation tools.
// Values come from a YAML file when present; environment variables always
// override YAML.
type Config struct {
	// Target instance identity. The database ID arrives per-invocation on
	// the command line, not here, since one project seeds many databases.
	ProjectID  string `yaml:"project_id" env:"SPANNER_PROJECT_ID" env-default:"test-project"`
	InstanceID string `yaml:"instance_id" env:"SPANNER_INSTANCE_ID" env-default:"test-instance"`

	// EmulatorHost mirrors the variable the Spanner client library reads
	// directly. Kept here so it can be resolved for Docker and logged.
	EmulatorHost string `yaml:"emulator_host" env:"SPANNER_EMULATOR_HOST" env-default:""`

	LogLevel  string `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`
	SchemaDir string `yaml:"schema_dir" env:"SCHEMA_DIR" env-default:""`

	Pool PoolConfig `yaml:"pool"`
	Seed SeedConfig `yaml:"seed"`
}

// PoolConfig holds connection pool sizing and lifetime settings.
type PoolConfig struct {
	MaxConnections         int `yaml:"max_connections" env:"POOL_MAX_CONNECTIONS" env-default:"10"`
	IdleTimeoutMinutes     int `yaml:"idle_timeout_minutes" env:"POOL_IDLE_TIMEOUT_MINUTES" env-default:"5"`
	MaxLifetimeMinutes     int `yaml:"max_lifetime_minutes" env:"POOL_MAX_LIFETIME_MINUTES" env-default:"10"`
	CleanupIntervalSeconds int `yaml:"cleanup_interval_seconds" env:"POOL_CLEANUP_INTERVAL_SECONDS" env-default:"60"`
}

// SeedConfig bounds what seed and fixture inputs the tools accept.
type SeedConfig struct {
	// MaxFileSizeBytes caps individual seed file size (default 10 MiB).
	MaxFileSizeBytes int64 `yaml:"max_file_size_bytes" env:"SEED_MAX_FILE_SIZE_BYTES" env-default:"10485760"`
	// SchemaCacheSize bounds the number of table schemas held in memory.
	SchemaCacheSize int `yaml:"schema_cache_size" env:"SEED_SCHEMA_CACHE_SIZE" env-default:"100"`
}

// IdleTimeout returns the pool idle timeout as a duration.
func (p PoolConfig) IdleTimeout() time.Duration {
	return time.Duration(p.IdleTimeoutMinutes) * time.Minute
}

// MaxLifetime returns the pool max connection lifetime as a duration.
func (p PoolConfig) MaxLifetime() time.Duration {
	return time.Duration(p.MaxLifetimeMinutes) * time.Minute
}

// CleanupInterval returns the pool cleanup cadence as a duration.
func (p PoolConfig) CleanupInterval() time.Duration {
	return time.Duration(p.CleanupIntervalSeconds) * time.Second
}

// Load reads configuration from the given YAML file (DefaultConfigFile
// when path is empty) with environment variable overrides. A missing
// default file is fine since everything has an env binding and a default,
// but an explicitly requested file must exist.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if path == "" {
		path = DefaultConfigFile
	}

	cfg := &Config{}
	if _, err := os.Stat(path); err != nil {
		if explicit || !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("config file %s: %w", path, err)
		}
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("reading config from environment: %w", err)
		}
		return cfg, validate(cfg)
	}

	if err := cleanenv.ReadConfig(path, cfg); err != nil {
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}
	return cfg, validate(cfg)
}

func validate(cfg *Config) error {
	if err := ValidateResourceID("project_id", cfg.ProjectID); err != nil {
		return err
	}
	if err := ValidateResourceID("instance_id", cfg.InstanceID); err != nil {
		return err
	}
	cfg.EmulatorHost = ResolveHostForDocker(cfg.EmulatorHost)
	return nil
}

// DatabasePath assembles the full database path the Spanner client
// expects for a database in the configured project and instance.
func (c *Config) DatabasePath(databaseID string) string {
	return fmt.Sprintf("projects/%s/instances/%s/databases/%s", c.ProjectID, c.InstanceID, databaseID)
}
