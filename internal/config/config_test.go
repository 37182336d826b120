package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

var envVars = []string{
	"WEIGHTING_PORT", "WEIGHTING_METRICS_PORT", "WEIGHTING_ADMIN_TOKEN",
	"WEIGHTING_DATABASE_DRIVER", "WEIGHTING_DATABASE_URL", "WEIGHTING_HERMES_URL",
	"WEIGHTING_SURVEY_URL", "WEIGHTING_POINT_TOLERANCE", "WEIGHTING_MAX_ITERATIONS",
	"WEIGHTING_LOG_LEVEL", "WEIGHTING_LOG_FORMAT",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envVars {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 8700 {
		t.Errorf("expected port 8700, got %d", cfg.Server.Port)
	}
	if cfg.Server.MetricsPort != 8701 {
		t.Errorf("expected metrics port 8701, got %d", cfg.Server.MetricsPort)
	}
	if cfg.Database.Driver != DriverMemory {
		t.Errorf("expected memory driver, got %s", cfg.Database.Driver)
	}
	if cfg.Hermes.URL != "nats://localhost:4222" {
		t.Errorf("expected nats URL, got %s", cfg.Hermes.URL)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("expected log level 'info', got '%s'", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("expected log format 'json', got '%s'", cfg.Logging.Format)
	}

	opts := cfg.RimOptions()
	if opts.PointTolerance != 0.00005 {
		t.Errorf("expected tolerance 0.00005, got %g", opts.PointTolerance)
	}
	if opts.MaxIterations != 50 {
		t.Errorf("expected 50 iterations, got %d", opts.MaxIterations)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("WEIGHTING_PORT", "9000")
	t.Setenv("WEIGHTING_METRICS_PORT", "9001")
	t.Setenv("WEIGHTING_ADMIN_TOKEN", "secret-token")
	t.Setenv("WEIGHTING_DATABASE_DRIVER", "postgres")
	t.Setenv("WEIGHTING_DATABASE_URL", "postgres://localhost/weighting_test")
	t.Setenv("WEIGHTING_HERMES_URL", "")
	t.Setenv("WEIGHTING_SURVEY_URL", "http://survey:8080")
	t.Setenv("WEIGHTING_POINT_TOLERANCE", "0.001")
	t.Setenv("WEIGHTING_MAX_ITERATIONS", "25")
	t.Setenv("WEIGHTING_LOG_LEVEL", "debug")
	t.Setenv("WEIGHTING_LOG_FORMAT", "text")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 9000 {
		t.Errorf("expected port 9000, got %d", cfg.Server.Port)
	}
	if cfg.Server.MetricsPort != 9001 {
		t.Errorf("expected metrics port 9001, got %d", cfg.Server.MetricsPort)
	}
	if cfg.Server.AdminToken != "secret-token" {
		t.Errorf("expected admin token 'secret-token', got '%s'", cfg.Server.AdminToken)
	}
	if cfg.Database.Driver != DriverPostgres {
		t.Errorf("expected postgres driver, got '%s'", cfg.Database.Driver)
	}
	if cfg.Database.URL != "postgres://localhost/weighting_test" {
		t.Errorf("expected database URL, got '%s'", cfg.Database.URL)
	}
	if cfg.Hermes.URL != "" {
		t.Errorf("expected hermes disabled, got '%s'", cfg.Hermes.URL)
	}
	if cfg.Survey.URL != "http://survey:8080" {
		t.Errorf("expected survey URL, got '%s'", cfg.Survey.URL)
	}
	if cfg.Weighting.PointTolerance != 0.001 {
		t.Errorf("expected tolerance 0.001, got %g", cfg.Weighting.PointTolerance)
	}
	if cfg.Weighting.MaxIterations != 25 {
		t.Errorf("expected 25 iterations, got %d", cfg.Weighting.MaxIterations)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected log level 'debug', got '%s'", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("expected log format 'text', got '%s'", cfg.Logging.Format)
	}
}

func TestLoadFromFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "weighting.yaml")
	data := `
server:
  port: 7000
database:
  driver: sqlite
  url: /tmp/weighting.db
weighting:
  max_iterations: 80
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Port != 7000 {
		t.Errorf("expected port 7000, got %d", cfg.Server.Port)
	}
	if cfg.Server.MetricsPort != 8701 {
		t.Errorf("expected default metrics port, got %d", cfg.Server.MetricsPort)
	}
	if cfg.Database.Driver != DriverSQLite {
		t.Errorf("expected sqlite driver, got %s", cfg.Database.Driver)
	}
	if cfg.Weighting.MaxIterations != 80 {
		t.Errorf("expected 80 iterations, got %d", cfg.Weighting.MaxIterations)
	}
	if cfg.Weighting.PointTolerance != 0.00005 {
		t.Errorf("expected default tolerance, got %g", cfg.Weighting.PointTolerance)
	}
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"unknown driver", map[string]string{"WEIGHTING_DATABASE_DRIVER": "mysql"}, "unknown database driver"},
		{"postgres without url", map[string]string{"WEIGHTING_DATABASE_DRIVER": "postgres"}, "database.url is required"},
		{"negative tolerance", map[string]string{"WEIGHTING_POINT_TOLERANCE": "-1"}, "point tolerance"},
		{"zero iterations", map[string]string{"WEIGHTING_MAX_ITERATIONS": "0"}, "max iterations"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load("")
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	clearEnv(t)
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing config file")
	}
}
