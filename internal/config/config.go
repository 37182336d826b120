package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/MikeSquared-Agency/Weighting/internal/rim"
)

// Store drivers.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Hermes    HermesConfig    `yaml:"hermes"`
	Survey    SurveyConfig    `yaml:"survey"`
	Weighting WeightingConfig `yaml:"weighting"`
	Logging   LoggingConfig   `yaml:"logging"`
}

type ServerConfig struct {
	Port        int    `yaml:"port"`
	MetricsPort int    `yaml:"metrics_port"`
	AdminToken  string `yaml:"admin_token"`
}

// DatabaseConfig selects the plan store. URL is a Postgres connection
// string for the postgres driver and a file path for sqlite.
type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	URL    string `yaml:"url"`
}

// HermesConfig points at NATS. An empty URL disables event publishing.
type HermesConfig struct {
	URL string `yaml:"url"`
}

// SurveyConfig points at the survey service that serves respondents for
// reverse runs. Empty disables remote lookups.
type SurveyConfig struct {
	URL string `yaml:"url"`
}

type WeightingConfig struct {
	PointTolerance float64 `yaml:"point_tolerance"`
	MaxIterations  int     `yaml:"max_iterations"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// RimOptions returns the calculator options.
func (c *Config) RimOptions() rim.Options {
	return rim.Options{
		PointTolerance: c.Weighting.PointTolerance,
		MaxIterations:  c.Weighting.MaxIterations,
	}
}

func Load(path string) (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:        8700,
			MetricsPort: 8701,
		},
		Database: DatabaseConfig{
			Driver: DriverMemory,
		},
		Hermes: HermesConfig{
			URL: "nats://localhost:4222",
		},
		Weighting: WeightingConfig{
			PointTolerance: rim.DefaultPointTolerance,
			MaxIterations:  rim.DefaultMaxIterations,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnv(cfg)
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Database.Driver {
	case DriverMemory, DriverSQLite:
	case DriverPostgres:
		if c.Database.URL == "" {
			return fmt.Errorf("database.url is required for the %s driver", DriverPostgres)
		}
	default:
		return fmt.Errorf("unknown database driver %q", c.Database.Driver)
	}
	if err := c.RimOptions().Validate(); err != nil {
		return fmt.Errorf("weighting: %w", err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("WEIGHTING_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = n
		}
	}
	if v := os.Getenv("WEIGHTING_METRICS_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Server.MetricsPort = n
		}
	}
	if v := os.Getenv("WEIGHTING_ADMIN_TOKEN"); v != "" {
		cfg.Server.AdminToken = v
	}
	if v := os.Getenv("WEIGHTING_DATABASE_DRIVER"); v != "" {
		cfg.Database.Driver = v
	}
	if v := os.Getenv("WEIGHTING_DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v, ok := os.LookupEnv("WEIGHTING_HERMES_URL"); ok {
		cfg.Hermes.URL = v
	}
	if v := os.Getenv("WEIGHTING_SURVEY_URL"); v != "" {
		cfg.Survey.URL = v
	}
	if v := os.Getenv("WEIGHTING_POINT_TOLERANCE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Weighting.PointTolerance = f
		}
	}
	if v := os.Getenv("WEIGHTING_MAX_ITERATIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Weighting.MaxIterations = n
		}
	}
	if v := os.Getenv("WEIGHTING_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("WEIGHTING_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}
