package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"DB_DRIVER", "APP_PORT", "HTTP_PORT", "SCAN_INTERVAL_MS", "SCANNER_API_URL", "CAMERA_FACING_MODE"} {
		t.Setenv(k, "")
	}
	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults invalid: %v", err)
	}
	if cfg.DB.Driver != DriverSQLite {
		t.Fatalf("driver = %q", cfg.DB.Driver)
	}
	if cfg.ScanInterval != 100*time.Millisecond {
		t.Fatalf("interval = %v", cfg.ScanInterval)
	}
	if cfg.ScannerAPIURL != "https://vibeat.io/api/v1/scanner" {
		t.Fatalf("api url = %q", cfg.ScannerAPIURL)
	}
	if cfg.CameraWidth != 640 || cfg.CameraHeight != 480 {
		t.Fatalf("camera = %dx%d", cfg.CameraWidth, cfg.CameraHeight)
	}
	if cfg.Addr() != "0.0.0.0:8090" {
		t.Fatalf("addr = %q", cfg.Addr())
	}
}

func TestHTTPPortFallback(t *testing.T) {
	t.Setenv("APP_PORT", "")
	t.Setenv("HTTP_PORT", "9100")
	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.HTTPPort != "9100" {
		t.Fatalf("port = %q", cfg.HTTPPort)
	}
}

func TestDatabaseURLs(t *testing.T) {
	cfg := &Config{}
	cfg.DB.Driver = DriverSQLite
	cfg.DB.Path = "data/scanner.db"
	if got := cfg.DatabaseURL(); got != "sqlite3://data/scanner.db" {
		t.Fatalf("sqlite url = %q", got)
	}
	if got := cfg.DSN(); got != "data/scanner.db" {
		t.Fatalf("sqlite dsn = %q", got)
	}

	cfg.DB.Driver = DriverPostgres
	cfg.DB.Host, cfg.DB.Port = "db", "5432"
	cfg.DB.User, cfg.DB.Password = "scanner", "p@ss"
	cfg.DB.Database, cfg.DB.SSLMode = "checkin", "disable"
	if got := cfg.DatabaseURL(); got != "postgres://scanner:p%40ss@db:5432/checkin?sslmode=disable" {
		t.Fatalf("postgres url = %q", got)
	}
	if !strings.Contains(cfg.DSN(), "dbname=checkin") {
		t.Fatalf("postgres dsn = %q", cfg.DSN())
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		c := &Config{
			ScannerAPIURL:     "https://vibeat.io/api/v1/scanner",
			ScanInterval:      100 * time.Millisecond,
			CameraFacingMode:  "environment",
			AttendeesPageSize: 10,
		}
		c.DB.Driver = DriverSQLite
		c.DB.Path = "x.db"
		return c
	}
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown driver", func(c *Config) { c.DB.Driver = "mysql" }},
		{"sqlite without path", func(c *Config) { c.DB.Path = "" }},
		{"postgres without host", func(c *Config) { c.DB.Driver = DriverPostgres }},
		{"bad facing mode", func(c *Config) { c.CameraFacingMode = "left" }},
		{"zero interval", func(c *Config) { c.ScanInterval = 0 }},
		{"zero page size", func(c *Config) { c.AttendeesPageSize = 0 }},
		{"bad api url", func(c *Config) { c.ScannerAPIURL = "not a url" }},
	}
	if err := valid().Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			if err := c.Validate(); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}
