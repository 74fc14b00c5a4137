// Package config loads schoolcore settings from SCHOOLCORE_* environment variables.
package config

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
)

// Storage drivers.
const (
	StorageMemory   = "memory"
	StorageSQLite   = "sqlite"
	StoragePostgres = "postgres"
	StorageSnapshot = "snapshot"
)

// Blob drivers.
const (
	BlobFS     = "fs"
	BlobS3     = "s3"
	BlobMemory = "memory"
)

// Config is the complete runtime configuration.
type Config struct {
	Storage Storage `envPrefix:"SCHOOLCORE_"`
	Blob    Blob    `envPrefix:"SCHOOLCORE_BLOB_"`
	Log     Log     `envPrefix:"SCHOOLCORE_LOG_"`
	Metrics Metrics `envPrefix:"SCHOOLCORE_METRICS_"`
}

// Storage selects and configures the persistent store.
type Storage struct {
	Driver       string `env:"STORAGE_DRIVER" envDefault:"sqlite"`
	SQLitePath   string `env:"SQLITE_PATH" envDefault:"school.db"`
	PostgresDSN  string `env:"POSTGRES_DSN"`
	SnapshotPath string `env:"SNAPSHOT_PATH" envDefault:"school.json"`
}

// Blob configures where backups are uploaded.
type Blob struct {
	Driver string `env:"DRIVER" envDefault:"fs"`
	FSRoot string `env:"FS_ROOT" envDefault:"./backups"`
	S3     S3     `envPrefix:"S3_"`
}

// S3 holds S3-compatible bucket settings.
type S3 struct {
	Bucket    string `env:"BUCKET"`
	Region    string `env:"REGION" envDefault:"us-east-1"`
	Endpoint  string `env:"ENDPOINT"`
	PathStyle bool   `env:"PATH_STYLE"`
}

// Log configures the zerolog logger.
type Log struct {
	Level  string `env:"LEVEL" envDefault:"info"`
	Pretty bool   `env:"PRETTY"`
}

// Metrics configures operation metrics. When Textfile is set the collected
// series are written there in the Prometheus text format on exit, for the node
// exporter textfile collector.
type Metrics struct {
	Textfile string `env:"TEXTFILE"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Load parses the environment and validates driver names.
func Load() (Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	cfg.Storage.Driver = strings.ToLower(strings.TrimSpace(cfg.Storage.Driver))
	cfg.Blob.Driver = strings.ToLower(strings.TrimSpace(cfg.Blob.Driver))
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports unknown drivers and missing required settings.
func (c Config) Validate() error {
	switch c.Storage.Driver {
	case StorageMemory, StorageSQLite, StoragePostgres, StorageSnapshot:
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	switch c.Blob.Driver {
	case BlobFS, BlobMemory:
	case BlobS3:
		if c.Blob.S3.Bucket == "" {
			return fmt.Errorf("blob driver s3 requires SCHOOLCORE_BLOB_S3_BUCKET")
		}
	default:
		return fmt.Errorf("unknown blob driver %q", c.Blob.Driver)
	}
	return nil
}
