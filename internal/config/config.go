package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/kelseyhightower/envconfig"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config is the process configuration read from the environment.
type Config struct {
	Environment string `envconfig:"ENVIRONMENT" default:"local"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	StoreDriver string `envconfig:"STORE_DRIVER" default:"sqlite"`
	StorePath   string `envconfig:"STORE_PATH" default:"data/jobdedup.db"`
	DatabaseURL string `envconfig:"DATABASE_URL"`
	DBMaxConns  int32  `envconfig:"DB_MAX_CONNS" default:"4"`

	ModelDir      string `envconfig:"MODEL_DIR" default:"models"`
	WorkDir       string `envconfig:"WORK_DIR" default:"data/work"`
	IDCounterFile string `envconfig:"ID_COUNTER_FILE" default:"data/last_unique_id.txt"`
	SettingsFile  string `envconfig:"SETTINGS_FILE" default:"config.yaml"`

	Workers         int    `envconfig:"WORKERS" default:"1"`
	ChunkSize       int    `envconfig:"CHUNK_SIZE" default:"5000"`
	MaxRowsPerTable int    `envconfig:"MAX_ROWS_PER_TABLE" default:"0"`
	TableFilter     string `envconfig:"TABLE_FILTER" default:""`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	cfg.StoreDriver = strings.ToLower(strings.TrimSpace(cfg.StoreDriver))
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.StoreDriver {
	case DriverSQLite:
		if strings.TrimSpace(c.StorePath) == "" {
			return fmt.Errorf("STORE_PATH is required for the sqlite driver")
		}
	case DriverPostgres:
		if strings.TrimSpace(c.DatabaseURL) == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres driver")
		}
		if c.DBMaxConns < 1 {
			return fmt.Errorf("DB_MAX_CONNS must be >= 1")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("STORE_DRIVER must be one of sqlite, postgres, memory (got %q)", c.StoreDriver)
	}
	if strings.TrimSpace(c.ModelDir) == "" {
		return fmt.Errorf("MODEL_DIR is required")
	}
	if strings.TrimSpace(c.WorkDir) == "" {
		return fmt.Errorf("WORK_DIR is required")
	}
	if strings.TrimSpace(c.IDCounterFile) == "" {
		return fmt.Errorf("ID_COUNTER_FILE is required")
	}
	if c.Workers < 1 {
		return fmt.Errorf("WORKERS must be >= 1")
	}
	if c.ChunkSize < 1 {
		return fmt.Errorf("CHUNK_SIZE must be >= 1")
	}
	if c.MaxRowsPerTable < 0 {
		return fmt.Errorf("MAX_ROWS_PER_TABLE must be >= 0")
	}
	return nil
}

// ModelPath returns the artifact path of a model kind under MODEL_DIR.
func (c *Config) ModelPath(kind string) string {
	return filepath.Join(c.ModelDir, kind+"_model.gob")
}

// WorkPath returns a file path under WORK_DIR.
func (c *Config) WorkPath(name string) string {
	return filepath.Join(c.WorkDir, name)
}
